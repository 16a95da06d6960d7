package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

// newMockDB returns a sqlmock-backed database handle for repository tests.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// mysqlError builds a driver error with the given server error number.
func mysqlError(number uint16) error {
	return &mysql.MySQLError{Number: number, Message: "mock"}
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func userRows(id uint64, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "is_active",
		"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
	}).AddRow(id, email, "$2a$10$hash", true, nil, nil, now, now)
}

func TestUserRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("guide@example.com", "$2a$10$hash").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), "guide@example.com", "$2a$10$hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id 7, got %d", id)
	}
	expectMet(t, mock)
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("guide@example.com", "$2a$10$hash").
		WillReturnError(mysqlError(1062))

	if _, err := repo.Create(context.Background(), "guide@example.com", "$2a$10$hash"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(userRows(5, "guide@example.com"))

	u, err := repo.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.ID != 5 || u.Email != "guide@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
	if !u.IsActive {
		t.Error("expected active user")
	}
	expectMet(t, mock)
}

func TestUserRepoGetByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").
		WithArgs(uint64(6)).
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.Exists(context.Background(), 5)
	if err != nil || !ok {
		t.Errorf("expected exists, got ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(context.Background(), 6)
	if err != nil || ok {
		t.Errorf("expected not exists, got ok=%v err=%v", ok, err)
	}
	expectMet(t, mock)
}

func TestUserRepoSetActiveNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	// Writing the flag's current value counts zero changed rows; the user
	// exists, so this succeeds.
	mock.ExpectExec("UPDATE users SET is_active=").
		WithArgs(true, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	if err := repo.SetActive(context.Background(), 5, true); err != nil {
		t.Errorf("expected no-op toggle to succeed, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoSetActiveMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET is_active=").
		WithArgs(false, uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	if err := repo.SetActive(context.Background(), 99, false); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoSetResetToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	exp := time.Now().UTC().Add(30 * time.Minute)

	mock.ExpectExec("UPDATE users SET reset_token_hash=").
		WithArgs("hashhex", exp, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetResetToken(context.Background(), 5, "hashhex", exp); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoSetResetTokenMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	exp := time.Now().UTC().Add(30 * time.Minute)

	mock.ExpectExec("UPDATE users SET reset_token_hash=").
		WithArgs("hashhex", exp, uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetResetToken(context.Background(), 99, "hashhex", exp); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoConsumePasswordReset(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET password_hash=").
		WithArgs("$2a$10$newhash", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ConsumePasswordReset(context.Background(), 5, "$2a$10$newhash"); err != nil {
		t.Fatalf("ConsumePasswordReset: %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoDeleteReferenced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("DELETE FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnError(mysqlError(1451))

	if err := repo.Delete(context.Background(), 5); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserRepoDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("DELETE FROM users WHERE id=").
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 99); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}
