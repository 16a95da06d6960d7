package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

func newRelationshipTest(t *testing.T) (*RelationshipHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRelationshipHandler(
		repository.NewRelationshipRepo(db),
		repository.NewUserRepo(db),
	), mock
}

func relationshipRowColumns() []string {
	return []string{
		"id", "user_id", "related_user_id", "relationship_type",
		"description", "created_at", "updated_at",
	}
}

func existsRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"1"}).AddRow(1)
}

func TestRelationshipCreate(t *testing.T) {
	h, mock := newRelationshipTest(t)
	now := time.Now()

	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(1)).WillReturnRows(existsRow())
	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(2)).WillReturnRows(existsRow())
	mock.ExpectExec("INSERT INTO users_relationships").
		WithArgs(uint64(1), uint64(2), "colleague", "works in the toddler room").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery("SELECT .+ FROM users_relationships WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(relationshipRowColumns()).
			AddRow(10, 1, 2, "colleague", "works in the toddler room", now, now))

	rec := postJSON(t, h.Create,
		`{"user_id":1,"related_user_id":2,"relationship_type":"colleague","description":"works in the toddler room"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["id"] != float64(10) || body["relationship_type"] != "colleague" {
		t.Errorf("unexpected body %v", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRelationshipCreateSelfEdge(t *testing.T) {
	h, mock := newRelationshipTest(t)

	// Rejected by validation alone.
	rec := postJSON(t, h.Create, `{"user_id":3,"related_user_id":3,"relationship_type":"friend"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRelationshipCreateBadType(t *testing.T) {
	h, _ := newRelationshipTest(t)

	rec := postJSON(t, h.Create, `{"user_id":1,"related_user_id":2,"relationship_type":"nemesis"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRelationshipCreateMissingRelatedUser(t *testing.T) {
	h, mock := newRelationshipTest(t)

	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(1)).WillReturnRows(existsRow())
	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	rec := postJSON(t, h.Create, `{"user_id":1,"related_user_id":99,"relationship_type":"friend"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRelationshipCreateDuplicatePair(t *testing.T) {
	h, mock := newRelationshipTest(t)

	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(1)).WillReturnRows(existsRow())
	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(2)).WillReturnRows(existsRow())
	mock.ExpectExec("INSERT INTO users_relationships").
		WithArgs(uint64(1), uint64(2), "friend", nil).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "mock"})

	rec := postJSON(t, h.Create, `{"user_id":1,"related_user_id":2,"relationship_type":"friend"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRelationshipMutual(t *testing.T) {
	h, mock := newRelationshipTest(t)
	now := time.Now()

	mock.ExpectQuery("SELECT 1 FROM users WHERE id=").WithArgs(uint64(1)).WillReturnRows(existsRow())
	mock.ExpectQuery("FROM users_relationships o").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(relationshipRowColumns()).
			AddRow(10, 1, 2, "friend", nil, now, now))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues("1")
	if err := h.Mutual(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRelationshipBetweenNotFound(t *testing.T) {
	h, mock := newRelationshipTest(t)

	mock.ExpectQuery("SELECT .+ FROM users_relationships WHERE user_id=. AND related_user_id=").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows(relationshipRowColumns()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id", "related_user_id")
	c.SetParamValues("1", "2")
	if err := h.Between(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRelationshipDelete(t *testing.T) {
	h, mock := newRelationshipTest(t)

	mock.ExpectExec("DELETE FROM users_relationships WHERE id=").
		WithArgs(uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
