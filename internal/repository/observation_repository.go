package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Observation mirrors the 'observations' table. One observation record
// captures a session watching one activity.
type Observation struct {
	ID                   uint64
	ObserverID           uint64
	ActivityID           uint64
	StartTime            time.Time
	EndTime              time.Time
	ObserverMood         string
	WeatherStatus        string
	ObjectiveDescription string
	Conclusion           string
	Interpretation       string
	TimeFelt             string
	Feelings             string
}

var ErrObservationNotFound = errors.New("observation not found")

type ObservationRepo struct{ DB *sql.DB }

func NewObservationRepo(db *sql.DB) *ObservationRepo { return &ObservationRepo{DB: db} }

const observationColumns = "id,observer_id,activity_id,start_time,end_time,observer_mood,weather_status,objective_description,conclusion,interpretation,time_felt,feelings"

func (o *Observation) scanFrom(scan func(dest ...interface{}) error) error {
	return scan(&o.ID, &o.ObserverID, &o.ActivityID, &o.StartTime, &o.EndTime,
		&o.ObserverMood, &o.WeatherStatus, &o.ObjectiveDescription,
		&o.Conclusion, &o.Interpretation, &o.TimeFelt, &o.Feelings)
}

func (o *Observation) scan(row *sql.Row) error {
	err := o.scanFrom(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrObservationNotFound
	}
	return err
}

// Create inserts an observation and re-reads the row.
func (r *ObservationRepo) Create(ctx context.Context, o *Observation) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO observations (observer_id, activity_id, start_time, end_time,
		                           observer_mood, weather_status, objective_description,
		                           conclusion, interpretation, time_felt, feelings)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		o.ObserverID, o.ActivityID, o.StartTime, o.EndTime,
		o.ObserverMood, o.WeatherStatus, o.ObjectiveDescription,
		o.Conclusion, o.Interpretation, o.TimeFelt, o.Feelings)
	if err != nil {
		if isMissingParent(err) {
			return ErrActivityNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return o.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+observationColumns+" FROM observations WHERE id=?", o.ID))
}

// GetByID fetches an observation by id.
func (r *ObservationRepo) GetByID(ctx context.Context, id uint64) (*Observation, error) {
	var o Observation
	if err := o.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+observationColumns+" FROM observations WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns observations, optionally filtered by observer or
// activity when the ids are non-zero.
func (r *ObservationRepo) List(ctx context.Context, observerID, activityID uint64) ([]*Observation, error) {
	q := "SELECT " + observationColumns + " FROM observations"
	var (
		args  []interface{}
		where string
	)
	switch {
	case observerID != 0 && activityID != 0:
		where = " WHERE observer_id=? AND activity_id=?"
		args = append(args, observerID, activityID)
	case observerID != 0:
		where = " WHERE observer_id=?"
		args = append(args, observerID)
	case activityID != 0:
		where = " WHERE activity_id=?"
		args = append(args, activityID)
	}
	rows, err := r.DB.QueryContext(ctx, q+where+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Observation
	for rows.Next() {
		o := new(Observation)
		if err := o.scanFrom(rows.Scan); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Exists reports whether an observation row is present.
func (r *ObservationRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM observations WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back.
func (r *ObservationRepo) Update(ctx context.Context, o *Observation) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE observations
		 SET observer_id=?, activity_id=?, start_time=?, end_time=?,
		     observer_mood=?, weather_status=?, objective_description=?,
		     conclusion=?, interpretation=?, time_felt=?, feelings=?
		 WHERE id=?`,
		o.ObserverID, o.ActivityID, o.StartTime, o.EndTime,
		o.ObserverMood, o.WeatherStatus, o.ObjectiveDescription,
		o.Conclusion, o.Interpretation, o.TimeFelt, o.Feelings, o.ID)
	if err != nil {
		if isMissingParent(err) {
			return ErrActivityNotFound
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
			"SELECT 1 FROM observations WHERE id=? LIMIT 1", o.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrObservationNotFound
		}
		return probe
	}
	return nil
}

// Delete removes an observation. Observations attached to a report
// cannot be deleted.
func (r *ObservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM observations WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrObservationNotFound
	}
	return nil
}
