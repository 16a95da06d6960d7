package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Environment types and statuses accepted by the API.
var (
	EnvironmentTypes    = []string{"nest", "community", "house", "lower", "upper", "adolescence", "high"}
	EnvironmentStatuses = []string{"active", "inactive", "maintenance"}
)

// Environment mirrors the 'environments' table. An environment owns areas
// and activities.
type Environment struct {
	ID           uint64
	Title        string
	Type         string
	Status       string
	Location     sql.NullString
	Availability string
	Capacity     int
	Description  sql.NullString
	PhotoURL     sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var ErrEnvironmentNotFound = errors.New("environment not found")

type EnvironmentRepo struct{ DB *sql.DB }

func NewEnvironmentRepo(db *sql.DB) *EnvironmentRepo { return &EnvironmentRepo{DB: db} }

const environmentColumns = "id,title,environment_type,environment_status,location,availability,capacity,description,photo_url,created_at,updated_at"

func (e *Environment) scan(row *sql.Row) error {
	err := row.Scan(&e.ID, &e.Title, &e.Type, &e.Status, &e.Location,
		&e.Availability, &e.Capacity, &e.Description, &e.PhotoURL,
		&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEnvironmentNotFound
	}
	return err
}

// Create inserts an environment and re-reads the row.
func (r *EnvironmentRepo) Create(ctx context.Context, e *Environment) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO environments (title, environment_type, environment_status, location,
		                           availability, capacity, description, photo_url)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.Title, e.Type, e.Status, e.Location, e.Availability, e.Capacity, e.Description, e.PhotoURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return e.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+environmentColumns+" FROM environments WHERE id=?", e.ID))
}

// GetByID fetches an environment by id.
func (r *EnvironmentRepo) GetByID(ctx context.Context, id uint64) (*Environment, error) {
	var e Environment
	if err := e.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+environmentColumns+" FROM environments WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns all environments ordered by id.
func (r *EnvironmentRepo) List(ctx context.Context) ([]*Environment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+environmentColumns+" FROM environments ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Environment
	for rows.Next() {
		e := new(Environment)
		if err := rows.Scan(&e.ID, &e.Title, &e.Type, &e.Status, &e.Location,
			&e.Availability, &e.Capacity, &e.Description, &e.PhotoURL,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Exists reports whether an environment row is present.
func (r *EnvironmentRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM environments WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back and refreshes updated_at.
func (r *EnvironmentRepo) Update(ctx context.Context, e *Environment) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE environments
		 SET title=?, environment_type=?, environment_status=?, location=?, availability=?,
		     capacity=?, description=?, photo_url=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		e.Title, e.Type, e.Status, e.Location, e.Availability, e.Capacity,
		e.Description, e.PhotoURL, e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		probe := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM environments WHERE id=? LIMIT 1", e.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrEnvironmentNotFound
		}
		return probe
	}
	return nil
}

// Delete removes an environment. Environments that still own areas or
// activities cannot be deleted.
func (r *EnvironmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM environments WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEnvironmentNotFound
	}
	return nil
}
