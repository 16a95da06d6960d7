package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AreaTypes is the accepted curriculum category list.
var AreaTypes = []string{
	"practical_life", "sensorial", "language", "mathematics", "cultural",
	"science", "geography", "history", "cosmic_education", "art", "music",
	"emotional_education", "movement", "reading_writing", "social_studies",
	"ecology", "technology", "second_language", "peace_education",
}

// Area mirrors the 'areas' table. An area belongs to one environment and
// owns materials and scripts.
type Area struct {
	ID            uint64
	Title         string
	AreaType      string
	EnvironmentID uint64
	Description   string
	PhotoURL      sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var ErrAreaNotFound = errors.New("area not found")

type AreaRepo struct{ DB *sql.DB }

func NewAreaRepo(db *sql.DB) *AreaRepo { return &AreaRepo{DB: db} }

const areaColumns = "id,title,area_type,environment_id,description,photo_url,created_at,updated_at"

func (a *Area) scan(row *sql.Row) error {
	err := row.Scan(&a.ID, &a.Title, &a.AreaType, &a.EnvironmentID,
		&a.Description, &a.PhotoURL, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAreaNotFound
	}
	return err
}

// Create inserts an area and re-reads the row.
func (r *AreaRepo) Create(ctx context.Context, a *Area) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO areas (title, area_type, environment_id, description, photo_url)
		 VALUES (?,?,?,?,?)`,
		a.Title, a.AreaType, a.EnvironmentID, a.Description, a.PhotoURL)
	if err != nil {
		if isMissingParent(err) {
			return ErrEnvironmentNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return a.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+areaColumns+" FROM areas WHERE id=?", a.ID))
}

// GetByID fetches an area by id.
func (r *AreaRepo) GetByID(ctx context.Context, id uint64) (*Area, error) {
	var a Area
	if err := a.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+areaColumns+" FROM areas WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns areas, optionally filtered by environment when
// environmentID is non-zero.
func (r *AreaRepo) List(ctx context.Context, environmentID uint64) ([]*Area, error) {
	q := "SELECT " + areaColumns + " FROM areas ORDER BY id"
	args := []interface{}{}
	if environmentID != 0 {
		q = "SELECT " + areaColumns + " FROM areas WHERE environment_id=? ORDER BY id"
		args = append(args, environmentID)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Area
	for rows.Next() {
		a := new(Area)
		if err := rows.Scan(&a.ID, &a.Title, &a.AreaType, &a.EnvironmentID,
			&a.Description, &a.PhotoURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Exists reports whether an area row is present.
func (r *AreaRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM areas WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back and refreshes updated_at.
func (r *AreaRepo) Update(ctx context.Context, a *Area) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE areas
		 SET title=?, area_type=?, environment_id=?, description=?, photo_url=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		a.Title, a.AreaType, a.EnvironmentID, a.Description, a.PhotoURL, a.ID)
	if err != nil {
		if isMissingParent(err) {
			return ErrEnvironmentNotFound
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
			"SELECT 1 FROM areas WHERE id=? LIMIT 1", a.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrAreaNotFound
		}
		return probe
	}
	return nil
}

// Delete removes an area. Areas still owning materials, scripts or
// activities cannot be deleted.
func (r *AreaRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM areas WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAreaNotFound
	}
	return nil
}
