package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func relationshipRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "related_user_id", "relationship_type",
		"description", "created_at", "updated_at",
	})
}

func TestRelationshipRepoCreateSelfEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	// Must fail before any statement is issued.
	rel := &Relationship{UserID: 3, RelatedUserID: 3, RelationshipType: "friend"}
	if err := repo.Create(context.Background(), rel); !errors.Is(err, ErrSelfRelation) {
		t.Errorf("expected ErrSelfRelation, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)
	now := time.Now()

	mock.ExpectExec("INSERT INTO users_relationships").
		WithArgs(uint64(1), uint64(2), "colleague", nil).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery("SELECT .+ FROM users_relationships WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(relationshipRows().AddRow(10, 1, 2, "colleague", nil, now, now))

	rel := &Relationship{UserID: 1, RelatedUserID: 2, RelationshipType: "colleague"}
	if err := repo.Create(context.Background(), rel); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rel.ID != 10 {
		t.Errorf("expected id 10, got %d", rel.ID)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoCreateDuplicatePair(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectExec("INSERT INTO users_relationships").
		WithArgs(uint64(1), uint64(2), "friend", nil).
		WillReturnError(mysqlError(1062))

	rel := &Relationship{UserID: 1, RelatedUserID: 2, RelationshipType: "friend"}
	if err := repo.Create(context.Background(), rel); !errors.Is(err, ErrDuplicateRelation) {
		t.Errorf("expected ErrDuplicateRelation, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoCreateMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectExec("INSERT INTO users_relationships").
		WithArgs(uint64(1), uint64(99), "friend", nil).
		WillReturnError(mysqlError(1452))

	rel := &Relationship{UserID: 1, RelatedUserID: 99, RelationshipType: "friend"}
	if err := repo.Create(context.Background(), rel); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoBetweenNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectQuery("SELECT .+ FROM users_relationships WHERE user_id=. AND related_user_id=").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(relationshipRows())

	if _, err := repo.Between(context.Background(), 1, 2); !errors.Is(err, ErrRelationshipNotFound) {
		t.Errorf("expected ErrRelationshipNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoMutual(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)
	now := time.Now()

	mock.ExpectQuery("FROM users_relationships o").
		WithArgs(uint64(1)).
		WillReturnRows(relationshipRows().
			AddRow(10, 1, 2, "friend", nil, now, now).
			AddRow(11, 1, 4, "family", "cousin", now, now))

	out, err := repo.Mutual(context.Background(), 1)
	if err != nil {
		t.Fatalf("Mutual: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 mutual edges, got %d", len(out))
	}
	if out[1].RelatedUserID != 4 || !out[1].Description.Valid || out[1].Description.String != "cousin" {
		t.Errorf("unexpected edge %+v", out[1])
	}
	expectMet(t, mock)
}

func TestRelationshipRepoUpdateSelfEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	rel := &Relationship{ID: 10, UserID: 2, RelatedUserID: 2, RelationshipType: "other"}
	if err := repo.Update(context.Background(), rel); !errors.Is(err, ErrSelfRelation) {
		t.Errorf("expected ErrSelfRelation, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoUpdateNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectExec("UPDATE users_relationships").
		WithArgs(uint64(1), uint64(2), "friend", nil, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM users_relationships WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	rel := &Relationship{ID: 10, UserID: 1, RelatedUserID: 2, RelationshipType: "friend"}
	if err := repo.Update(context.Background(), rel); err != nil {
		t.Errorf("expected no-op update to succeed, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoUpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectExec("UPDATE users_relationships").
		WithArgs(uint64(1), uint64(2), "friend", nil, uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM users_relationships WHERE id=").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	rel := &Relationship{ID: 99, UserID: 1, RelatedUserID: 2, RelationshipType: "friend"}
	if err := repo.Update(context.Background(), rel); !errors.Is(err, ErrRelationshipNotFound) {
		t.Errorf("expected ErrRelationshipNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestRelationshipRepoDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectExec("DELETE FROM users_relationships WHERE id=").
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 99); !errors.Is(err, ErrRelationshipNotFound) {
		t.Errorf("expected ErrRelationshipNotFound, got %v", err)
	}
	expectMet(t, mock)
}
