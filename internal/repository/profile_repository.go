package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Profile mirrors the 'profiles' table. One active profile per user by
// convention; the schema does not enforce uniqueness on user_id.
type Profile struct {
	ID             uint64
	UserID         uint64
	FirstName      string
	MiddleName     sql.NullString
	LastName       string
	SecondLastName sql.NullString
	PhotoURL       sql.NullString
	BirthDate      time.Time
	MobilePhone    sql.NullString
	HomeAddress    sql.NullString
	Role           sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileColumns = "id,user_id,first_name,middle_name,last_name,second_last_name,photo_url,birth_date,mobile_phone,home_address,role,created_at,updated_at"

func (p *Profile) scan(row *sql.Row) error {
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.MiddleName, &p.LastName,
		&p.SecondLastName, &p.PhotoURL, &p.BirthDate, &p.MobilePhone,
		&p.HomeAddress, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProfileNotFound
	}
	return err
}

// Create inserts a profile and re-reads the row so timestamps are set.
func (r *ProfileRepo) Create(ctx context.Context, p *Profile) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO profiles (user_id, first_name, middle_name, last_name, second_last_name,
		                       photo_url, birth_date, mobile_phone, home_address, role)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.FirstName, p.MiddleName, p.LastName, p.SecondLastName,
		p.PhotoURL, p.BirthDate, p.MobilePhone, p.HomeAddress, p.Role)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return p.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id=?", p.ID))
}

// GetByID fetches a profile by id.
func (r *ProfileRepo) GetByID(ctx context.Context, id uint64) (*Profile, error) {
	var p Profile
	if err := p.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID returns the profile attached to a user.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uint64) (*Profile, error) {
	var p Profile
	if err := p.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id=? ORDER BY id LIMIT 1", userID)); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all profiles ordered by id.
func (r *ProfileRepo) List(ctx context.Context) ([]*Profile, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p := new(Profile)
		if err := rows.Scan(&p.ID, &p.UserID, &p.FirstName, &p.MiddleName, &p.LastName,
			&p.SecondLastName, &p.PhotoURL, &p.BirthDate, &p.MobilePhone,
			&p.HomeAddress, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes the merged profile back. Callers load the row, apply the
// supplied fields and pass the result here; updated_at is refreshed.
func (r *ProfileRepo) Update(ctx context.Context, p *Profile) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE profiles
		 SET first_name=?, middle_name=?, last_name=?, second_last_name=?, photo_url=?,
		     birth_date=?, mobile_phone=?, home_address=?, role=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		p.FirstName, p.MiddleName, p.LastName, p.SecondLastName, p.PhotoURL,
		p.BirthDate, p.MobilePhone, p.HomeAddress, p.Role, p.ID)
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
			"SELECT 1 FROM profiles WHERE id=? LIMIT 1", p.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrProfileNotFound
		}
		return probe
	}
	return nil
}

// Delete removes a profile row.
func (r *ProfileRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM profiles WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
