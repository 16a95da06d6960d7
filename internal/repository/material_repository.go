package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// MaterialStatuses is the material lifecycle list. No transition graph is
// enforced; any status may be set at any time.
var MaterialStatuses = []string{
	"in_use", "under_repair", "damaged", "incomplete",
	"lost", "stored", "being_cleaned", "unavailable",
}

// Material mirrors the 'materials' table. A material belongs to one area
// and participates in script links.
type Material struct {
	ID          uint64
	Title       string
	Reference   string
	Description sql.NullString
	PhotoURL    sql.NullString
	Status      string
	AreaID      uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var ErrMaterialNotFound = errors.New("material not found")

type MaterialRepo struct{ DB *sql.DB }

func NewMaterialRepo(db *sql.DB) *MaterialRepo { return &MaterialRepo{DB: db} }

const materialColumns = "id,title,reference,description,photo_url,status,area_id,created_at,updated_at"

func (m *Material) scan(row *sql.Row) error {
	err := row.Scan(&m.ID, &m.Title, &m.Reference, &m.Description, &m.PhotoURL,
		&m.Status, &m.AreaID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMaterialNotFound
	}
	return err
}

// Create inserts a material and re-reads the row.
func (r *MaterialRepo) Create(ctx context.Context, m *Material) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO materials (title, reference, description, photo_url, status, area_id)
		 VALUES (?,?,?,?,?,?)`,
		m.Title, m.Reference, m.Description, m.PhotoURL, m.Status, m.AreaID)
	if err != nil {
		if isMissingParent(err) {
			return ErrAreaNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return m.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+materialColumns+" FROM materials WHERE id=?", m.ID))
}

// GetByID fetches a material by id.
func (r *MaterialRepo) GetByID(ctx context.Context, id uint64) (*Material, error) {
	var m Material
	if err := m.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+materialColumns+" FROM materials WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns materials, optionally filtered by area when areaID is
// non-zero.
func (r *MaterialRepo) List(ctx context.Context, areaID uint64) ([]*Material, error) {
	q := "SELECT " + materialColumns + " FROM materials ORDER BY id"
	args := []interface{}{}
	if areaID != 0 {
		q = "SELECT " + materialColumns + " FROM materials WHERE area_id=? ORDER BY id"
		args = append(args, areaID)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Material
	for rows.Next() {
		m := new(Material)
		if err := rows.Scan(&m.ID, &m.Title, &m.Reference, &m.Description, &m.PhotoURL,
			&m.Status, &m.AreaID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Exists reports whether a material row is present.
func (r *MaterialRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM materials WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back and refreshes updated_at.
func (r *MaterialRepo) Update(ctx context.Context, m *Material) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE materials
		 SET title=?, reference=?, description=?, photo_url=?, status=?, area_id=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		m.Title, m.Reference, m.Description, m.PhotoURL, m.Status, m.AreaID, m.ID)
	if err != nil {
		if isMissingParent(err) {
			return ErrAreaNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		probe := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM materials WHERE id=? LIMIT 1", m.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrMaterialNotFound
		}
		return probe
	}
	return nil
}

// Delete removes a material. Materials referenced by activities or script
// links cannot be deleted.
func (r *MaterialRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM materials WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMaterialNotFound
	}
	return nil
}
