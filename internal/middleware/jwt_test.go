package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
	"github.com/observari/observari/internal/utils"
)

const testSecret = "test-secret"

func newJWTTest(t *testing.T) (echo.MiddlewareFunc, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return JWTAuth(testSecret, repository.NewUserRepo(db)), mock
}

func runJWT(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := mw(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	return rec, reached
}

func userRow(id uint64, email string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "is_active",
		"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
	}).AddRow(id, email, "$2a$10$hash", active, nil, nil, now, now)
}

func TestJWTAuthMissingHeader(t *testing.T) {
	mw, _ := newJWTTest(t)

	rec, reached := runJWT(t, mw, "")
	if rec.Code != http.StatusUnauthorized || reached {
		t.Errorf("expected 401 without handler, got %d reached=%v", rec.Code, reached)
	}
}

func TestJWTAuthBadToken(t *testing.T) {
	mw, _ := newJWTTest(t)

	rec, reached := runJWT(t, mw, "Bearer not-a-jwt")
	if rec.Code != http.StatusUnauthorized || reached {
		t.Errorf("expected 401 without handler, got %d reached=%v", rec.Code, reached)
	}
}

func TestJWTAuthDeletedUser(t *testing.T) {
	mw, mock := newJWTTest(t)
	at, err := utils.NewAccessToken(testSecret, 5, "guide@example.com", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	// Tokens for deleted subjects look like any other invalid token.
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "is_active",
			"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
		}))

	rec, reached := runJWT(t, mw, "Bearer "+at.Token)
	if rec.Code != http.StatusUnauthorized || reached {
		t.Errorf("expected 401 without handler, got %d reached=%v", rec.Code, reached)
	}
}

func TestJWTAuthDisabledAccount(t *testing.T) {
	mw, mock := newJWTTest(t)
	at, err := utils.NewAccessToken(testSecret, 5, "guide@example.com", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(userRow(5, "guide@example.com", false))

	rec, reached := runJWT(t, mw, "Bearer "+at.Token)
	if rec.Code != http.StatusForbidden || reached {
		t.Errorf("expected 403 without handler, got %d reached=%v", rec.Code, reached)
	}
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	mw, mock := newJWTTest(t)
	at, err := utils.NewAccessToken(testSecret, 5, "guide@example.com", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(userRow(5, "guide@example.com", true))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+at.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error {
		if uid, ok := c.Get("user_id").(uint64); !ok || uid != 5 {
			t.Errorf("expected user_id 5 in context, got %v", c.Get("user_id"))
		}
		if c.Get("email") != "guide@example.com" {
			t.Errorf("expected email in context, got %v", c.Get("email"))
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
