package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

func newEnvironmentTest(t *testing.T) (*EnvironmentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEnvironmentHandler(repository.NewEnvironmentRepo(db)), mock
}

func environmentRowColumns() []string {
	return []string{
		"id", "title", "environment_type", "environment_status", "location",
		"availability", "capacity", "description", "photo_url", "created_at", "updated_at",
	}
}

// patchJSON runs a handler against a PATCH request carrying a path id.
func patchJSON(t *testing.T, h echo.HandlerFunc, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestEnvironmentCreate(t *testing.T) {
	h, mock := newEnvironmentTest(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO environments").
		WithArgs("Casa dei Bambini", "house", "active", nil, "weekdays", 24, nil, nil).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("SELECT .+ FROM environments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(environmentRowColumns()).
			AddRow(3, "Casa dei Bambini", "house", "active", nil, "weekdays", 24, nil, nil, now, now))

	rec := postJSON(t, h.Create,
		`{"title":"Casa dei Bambini","environment_type":"house","environment_status":"active","availability":"weekdays","capacity":24}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["id"] != float64(3) || body["environment_type"] != "house" {
		t.Errorf("unexpected body %v", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnvironmentCreateBadType(t *testing.T) {
	h, _ := newEnvironmentTest(t)

	rec := postJSON(t, h.Create,
		`{"title":"Casa","environment_type":"castle","environment_status":"active","availability":"weekdays","capacity":24}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEnvironmentCreateBadCapacity(t *testing.T) {
	h, _ := newEnvironmentTest(t)

	rec := postJSON(t, h.Create,
		`{"title":"Casa","environment_type":"house","environment_status":"active","availability":"weekdays","capacity":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEnvironmentPatchMergesFields(t *testing.T) {
	h, mock := newEnvironmentTest(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM environments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(environmentRowColumns()).
			AddRow(3, "Casa dei Bambini", "house", "active", "via Roma", "weekdays", 24, nil, nil, now, now))
	// Only status changes; every other column is written back untouched.
	mock.ExpectExec("UPDATE environments").
		WithArgs("Casa dei Bambini", "house", "maintenance", "via Roma", "weekdays", 24, nil, nil, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM environments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(environmentRowColumns()).
			AddRow(3, "Casa dei Bambini", "house", "maintenance", "via Roma", "weekdays", 24, nil, nil, now, now))

	rec := patchJSON(t, h.Patch, "3", `{"environment_status":"maintenance"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["environment_status"] != "maintenance" || body["title"] != "Casa dei Bambini" {
		t.Errorf("unexpected body %v", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnvironmentPatchClearsNullable(t *testing.T) {
	h, mock := newEnvironmentTest(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM environments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(environmentRowColumns()).
			AddRow(3, "Casa", "house", "active", "via Roma", "weekdays", 24, nil, nil, now, now))
	// An empty string clears the nullable column.
	mock.ExpectExec("UPDATE environments").
		WithArgs("Casa", "house", "active", nil, "weekdays", 24, nil, nil, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM environments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(environmentRowColumns()).
			AddRow(3, "Casa", "house", "active", nil, "weekdays", 24, nil, nil, now, now))

	rec := patchJSON(t, h.Patch, "3", `{"location":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["location"] != nil {
		t.Errorf("expected cleared location, got %v", body["location"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnvironmentPatchMissing(t *testing.T) {
	h, mock := newEnvironmentTest(t)

	mock.ExpectQuery("SELECT .+ FROM environments WHERE id=").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(environmentRowColumns()))

	rec := patchJSON(t, h.Patch, "99", `{"environment_status":"inactive"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEnvironmentDeleteReferenced(t *testing.T) {
	h, mock := newEnvironmentTest(t)

	mock.ExpectExec("DELETE FROM environments WHERE id=").
		WithArgs(uint64(3)).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "mock"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}
