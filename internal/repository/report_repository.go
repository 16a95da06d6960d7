package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Report mirrors the 'reports' table. The observations it bundles live
// in report_observation_links.
type Report struct {
	ID          uint64
	SenderID    uint64
	RecipientID uint64
	StartedAt   time.Time
	EndedAt     time.Time
}

var ErrReportNotFound = errors.New("report not found")

type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

const reportColumns = "id,sender_id,recipient_id,started_at,ended_at"

func (rep *Report) scanFrom(scan func(dest ...interface{}) error) error {
	return scan(&rep.ID, &rep.SenderID, &rep.RecipientID, &rep.StartedAt, &rep.EndedAt)
}

func (rep *Report) scan(row *sql.Row) error {
	err := rep.scanFrom(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReportNotFound
	}
	return err
}

// Create inserts a report and re-reads the row.
func (r *ReportRepo) Create(ctx context.Context, rep *Report) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reports (sender_id, recipient_id, started_at, ended_at) VALUES (?,?,?,?)",
		rep.SenderID, rep.RecipientID, rep.StartedAt, rep.EndedAt)
	if err != nil {
		if isMissingParent(err) {
			return ErrUserNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	return rep.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id=?", rep.ID))
}

// GetByID fetches a report by id.
func (r *ReportRepo) GetByID(ctx context.Context, id uint64) (*Report, error) {
	var rep Report
	if err := rep.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &rep, nil
}

// List returns reports, optionally filtered by sender or recipient.
func (r *ReportRepo) List(ctx context.Context, senderID, recipientID uint64) ([]*Report, error) {
	q := "SELECT " + reportColumns + " FROM reports"
	var (
		args  []interface{}
		where string
	)
	switch {
	case senderID != 0 && recipientID != 0:
		where = " WHERE sender_id=? AND recipient_id=?"
		args = append(args, senderID, recipientID)
	case senderID != 0:
		where = " WHERE sender_id=?"
		args = append(args, senderID)
	case recipientID != 0:
		where = " WHERE recipient_id=?"
		args = append(args, recipientID)
	}
	rows, err := r.DB.QueryContext(ctx, q+where+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		rep := new(Report)
		if err := rep.scanFrom(rows.Scan); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// Exists reports whether a report row is present.
func (r *ReportRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM reports WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back.
func (r *ReportRepo) Update(ctx context.Context, rep *Report) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE reports SET sender_id=?, recipient_id=?, started_at=?, ended_at=? WHERE id=?",
		rep.SenderID, rep.RecipientID, rep.StartedAt, rep.EndedAt, rep.ID)
	if err != nil {
		if isMissingParent(err) {
			return ErrUserNotFound
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
			"SELECT 1 FROM reports WHERE id=? LIMIT 1", rep.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrReportNotFound
		}
		return probe
	}
	return nil
}

// Delete removes a report. Reports with linked observations cannot be
// deleted until their links are removed.
func (r *ReportRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reports WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReportNotFound
	}
	return nil
}
