package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Script mirrors the 'scripts' table. Tags are persisted as a JSON array
// column so a tag containing a comma survives round trips intact.
type Script struct {
	ID               uint64
	Title            string
	AreaID           uint64
	AgeRange         string
	Objective        string
	Steps            string
	DurationMinutes  int
	CreatedBy        string
	UploadedBy       string
	IllustrationsURL sql.NullString
	VideoURL         sql.NullString
	PDFURL           sql.NullString
	ReviewedBy       sql.NullString
	Notes            sql.NullString
	Tags             []string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	UploadedAt       time.Time
}

var ErrScriptNotFound = errors.New("script not found")

type ScriptRepo struct{ DB *sql.DB }

func NewScriptRepo(db *sql.DB) *ScriptRepo { return &ScriptRepo{DB: db} }

const scriptColumns = "id,title,area_id,age_range,objective,steps,duration_minutes,created_by,uploaded_by,illustrations_url,video_url,pdf_url,reviewed_by,notes,tags,is_active,created_at,updated_at,uploaded_at"

// encodeTags marshals the tag list for the JSON column. nil and empty
// lists persist as SQL NULL.
func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeTags(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Script) scanFrom(scan func(dest ...interface{}) error) error {
	var rawTags sql.NullString
	if err := scan(&s.ID, &s.Title, &s.AreaID, &s.AgeRange, &s.Objective, &s.Steps,
		&s.DurationMinutes, &s.CreatedBy, &s.UploadedBy, &s.IllustrationsURL,
		&s.VideoURL, &s.PDFURL, &s.ReviewedBy, &s.Notes, &rawTags, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt, &s.UploadedAt); err != nil {
		return err
	}
	tags, err := decodeTags(rawTags)
	if err != nil {
		return err
	}
	s.Tags = tags
	return nil
}

func (s *Script) scan(row *sql.Row) error {
	err := s.scanFrom(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrScriptNotFound
	}
	return err
}

// Create inserts a script and re-reads the row.
func (r *ScriptRepo) Create(ctx context.Context, s *Script) error {
	tags, err := encodeTags(s.Tags)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO scripts (title, area_id, age_range, objective, steps, duration_minutes,
		                      created_by, uploaded_by, illustrations_url, video_url, pdf_url,
		                      reviewed_by, notes, tags, is_active)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.Title, s.AreaID, s.AgeRange, s.Objective, s.Steps, s.DurationMinutes,
		s.CreatedBy, s.UploadedBy, s.IllustrationsURL, s.VideoURL, s.PDFURL,
		s.ReviewedBy, s.Notes, tags, s.IsActive)
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
	s.ID = uint64(id)
	return s.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+scriptColumns+" FROM scripts WHERE id=?", s.ID))
}

// GetByID fetches a script by id.
func (r *ScriptRepo) GetByID(ctx context.Context, id uint64) (*Script, error) {
	var s Script
	if err := s.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+scriptColumns+" FROM scripts WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns scripts, optionally filtered by area when areaID is
// non-zero.
func (r *ScriptRepo) List(ctx context.Context, areaID uint64) ([]*Script, error) {
	q := "SELECT " + scriptColumns + " FROM scripts ORDER BY id"
	args := []interface{}{}
	if areaID != 0 {
		q = "SELECT " + scriptColumns + " FROM scripts WHERE area_id=? ORDER BY id"
		args = append(args, areaID)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Script
	for rows.Next() {
		s := new(Script)
		if err := s.scanFrom(rows.Scan); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Exists reports whether a script row is present.
func (r *ScriptRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM scripts WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Update writes merged fields back and refreshes updated_at.
func (r *ScriptRepo) Update(ctx context.Context, s *Script) error {
	tags, err := encodeTags(s.Tags)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE scripts
		 SET title=?, area_id=?, age_range=?, objective=?, steps=?, duration_minutes=?,
		     created_by=?, uploaded_by=?, illustrations_url=?, video_url=?, pdf_url=?,
		     reviewed_by=?, notes=?, tags=?, is_active=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		s.Title, s.AreaID, s.AgeRange, s.Objective, s.Steps, s.DurationMinutes,
		s.CreatedBy, s.UploadedBy, s.IllustrationsURL, s.VideoURL, s.PDFURL,
		s.ReviewedBy, s.Notes, tags, s.IsActive, s.ID)
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
	// The driver counts changed rows, so a write that repeats the current
	// values reports zero. Confirm absence before returning not found.
	if n == 0 {
		var one int
		probe := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM scripts WHERE id=? LIMIT 1", s.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrScriptNotFound
		}
		return probe
	}
	return nil
}

// Delete removes a script. Scripts referenced by activities or material
// links cannot be deleted.
func (r *ScriptRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM scripts WHERE id=?", id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScriptNotFound
	}
	return nil
}
