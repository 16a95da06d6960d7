package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ActivityLearner enrolls a learner user into an activity.
type ActivityLearner struct {
	ActivityID uint64
	LearnerID  uint64
}

var ErrActivityLearnerNotFound = errors.New("activity learner not found")

type ActivityLearnerRepo struct{ DB *sql.DB }

func NewActivityLearnerRepo(db *sql.DB) *ActivityLearnerRepo {
	return &ActivityLearnerRepo{DB: db}
}

// Create enrolls a learner. The composite primary key rejects enrolling
// the same learner twice.
func (r *ActivityLearnerRepo) Create(ctx context.Context, l *ActivityLearner) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activity_learners (activity_id, learner_id) VALUES (?,?)",
		l.ActivityID, l.LearnerID)
	switch {
	case err == nil:
		return nil
	case isDuplicateEntry(err):
		return ErrDuplicate
	case isMissingParent(err):
		return ErrActivityNotFound
	default:
		return err
	}
}

// ListByActivity returns the learner ids enrolled in an activity.
func (r *ActivityLearnerRepo) ListByActivity(ctx context.Context, activityID uint64) ([]*ActivityLearner, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT activity_id, learner_id FROM activity_learners WHERE activity_id=? ORDER BY learner_id",
		activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ActivityLearner
	for rows.Next() {
		l := new(ActivityLearner)
		if err := rows.Scan(&l.ActivityID, &l.LearnerID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes one enrollment.
func (r *ActivityLearnerRepo) Delete(ctx context.Context, activityID, learnerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM activity_learners WHERE activity_id=? AND learner_id=?",
		activityID, learnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrActivityLearnerNotFound
	}
	return nil
}
