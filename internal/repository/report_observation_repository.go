package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ReportObservationLink bundles an observation into a report.
type ReportObservationLink struct {
	ReportID      uint64
	ObservationID uint64
}

var ErrReportObservationNotFound = errors.New("report observation link not found")

type ReportObservationRepo struct{ DB *sql.DB }

func NewReportObservationRepo(db *sql.DB) *ReportObservationRepo {
	return &ReportObservationRepo{DB: db}
}

// Create links an observation to a report. The composite primary key
// rejects linking the same observation twice.
func (r *ReportObservationRepo) Create(ctx context.Context, l *ReportObservationLink) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO report_observation_links (report_id, observation_id) VALUES (?,?)",
		l.ReportID, l.ObservationID)
	switch {
	case err == nil:
		return nil
	case isDuplicateEntry(err):
		return ErrDuplicate
	case isMissingParent(err):
		return ErrReportNotFound
	default:
		return err
	}
}

// ListByReport returns the observation ids bundled into a report.
func (r *ReportObservationRepo) ListByReport(ctx context.Context, reportID uint64) ([]*ReportObservationLink, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT report_id, observation_id FROM report_observation_links WHERE report_id=? ORDER BY observation_id",
		reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ReportObservationLink
	for rows.Next() {
		l := new(ReportObservationLink)
		if err := rows.Scan(&l.ReportID, &l.ObservationID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete unlinks one observation from a report.
func (r *ReportObservationRepo) Delete(ctx context.Context, reportID, observationID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM report_observation_links WHERE report_id=? AND observation_id=?",
		reportID, observationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReportObservationNotFound
	}
	return nil
}
