package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Accepted enum values for activities.
var (
	ActivityTypes = []string{"presentation", "work"}
	LessonTypes   = []string{"first_time", "second_time", "third_time"}
)

// Activity mirrors the 'activities' table.
type Activity struct {
	ID            uint64
	Name          string
	Description   sql.NullString
	ActivityType  string
	LessonType    string
	EnvironmentID uint64
	AreaID        uint64
	MaterialID    uint64
	ScriptID      uint64
	GuideID       sql.NullInt64
	AssistantID   sql.NullInt64
	CreatedAt     time.Time
}

var ErrActivityNotFound = errors.New("activity not found")

type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

const activityColumns = "id,name,description,activity_type,lesson_type,environment_id,area_id,material_id,script_id,guide_id,assistant_id,created_at"

func (a *Activity) scanFrom(scan func(dest ...interface{}) error) error {
	return scan(&a.ID, &a.Name, &a.Description, &a.ActivityType, &a.LessonType,
		&a.EnvironmentID, &a.AreaID, &a.MaterialID, &a.ScriptID,
		&a.GuideID, &a.AssistantID, &a.CreatedAt)
}

func (a *Activity) scan(row *sql.Row) error {
	err := a.scanFrom(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrActivityNotFound
	}
	return err
}

// Create inserts an activity and re-reads the row. Handlers pre-check
// every referenced parent so a constraint failure here only happens on a
// racing delete.
func (r *ActivityRepo) Create(ctx context.Context, a *Activity) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO activities (name, description, activity_type, lesson_type,
		                         environment_id, area_id, material_id, script_id,
		                         guide_id, assistant_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.Name, a.Description, a.ActivityType, a.LessonType,
		a.EnvironmentID, a.AreaID, a.MaterialID, a.ScriptID,
		a.GuideID, a.AssistantID)
	if err != nil {
		if isMissingParent(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return a.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id=?", a.ID))
}

// GetByID fetches an activity by id.
func (r *ActivityRepo) GetByID(ctx context.Context, id uint64) (*Activity, error) {
	var a Activity
	if err := a.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns activities, optionally filtered by environment.
func (r *ActivityRepo) List(ctx context.Context, environmentID uint64) ([]*Activity, error) {
	q := "SELECT " + activityColumns + " FROM activities ORDER BY id"
	args := []interface{}{}
	if environmentID != 0 {
		q = "SELECT " + activityColumns + " FROM activities WHERE environment_id=? ORDER BY id"
		args = append(args, environmentID)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Activity
	for rows.Next() {
		a := new(Activity)
		if err := a.scanFrom(rows.Scan); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Exists reports whether an activity row is present.
func (r *ActivityRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM activities WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back.
func (r *ActivityRepo) Update(ctx context.Context, a *Activity) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE activities
		 SET name=?, description=?, activity_type=?, lesson_type=?,
		     environment_id=?, area_id=?, material_id=?, script_id=?,
		     guide_id=?, assistant_id=?
		 WHERE id=?`,
		a.Name, a.Description, a.ActivityType, a.LessonType,
		a.EnvironmentID, a.AreaID, a.MaterialID, a.ScriptID,
		a.GuideID, a.AssistantID, a.ID)
	if err != nil {
		if isMissingParent(err) {
			return ErrConflict
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
			"SELECT 1 FROM activities WHERE id=? LIMIT 1", a.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrActivityNotFound
		}
		return probe
	}
	return nil
}

// Delete removes an activity. Activities with observations or enrolled
// learners cannot be deleted.
func (r *ActivityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM activities WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrActivityNotFound
	}
	return nil
}
