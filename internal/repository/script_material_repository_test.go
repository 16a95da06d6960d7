package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestScriptMaterialRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScriptMaterialRepo(db)

	mock.ExpectExec("INSERT INTO script_material_links").
		WithArgs(uint64(3), uint64(8), 2, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := &ScriptMaterialLink{ScriptID: 3, MaterialID: 8, Quantity: 2, Required: true}
	if err := repo.Create(context.Background(), l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	expectMet(t, mock)
}

func TestScriptMaterialRepoCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScriptMaterialRepo(db)

	mock.ExpectExec("INSERT INTO script_material_links").
		WithArgs(uint64(3), uint64(8), 1, true).
		WillReturnError(mysqlError(1062))

	l := &ScriptMaterialLink{ScriptID: 3, MaterialID: 8, Quantity: 1, Required: true}
	if err := repo.Create(context.Background(), l); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	expectMet(t, mock)
}

func TestScriptMaterialRepoUpdateNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScriptMaterialRepo(db)

	// Zero rows affected but the pair exists: the write was a no-op, not
	// a miss.
	mock.ExpectExec("UPDATE script_material_links").
		WithArgs(2, true, uint64(3), uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM script_material_links").
		WithArgs(uint64(3), uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	l := &ScriptMaterialLink{ScriptID: 3, MaterialID: 8, Quantity: 2, Required: true}
	if err := repo.Update(context.Background(), l); err != nil {
		t.Fatalf("Update: %v", err)
	}
	expectMet(t, mock)
}

func TestScriptMaterialRepoUpdateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScriptMaterialRepo(db)

	mock.ExpectExec("UPDATE script_material_links").
		WithArgs(2, true, uint64(3), uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM script_material_links").
		WithArgs(uint64(3), uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	l := &ScriptMaterialLink{ScriptID: 3, MaterialID: 99, Quantity: 2, Required: true}
	if err := repo.Update(context.Background(), l); !errors.Is(err, ErrScriptMaterialNotFound) {
		t.Errorf("expected ErrScriptMaterialNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestScriptMaterialRepoListByScript(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScriptMaterialRepo(db)

	mock.ExpectQuery("SELECT .+ FROM script_material_links WHERE script_id=").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"script_id", "material_id", "quantity", "required"}).
			AddRow(3, 8, 1, true).
			AddRow(3, 9, 4, false))

	out, err := repo.ListByScript(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListByScript: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 links, got %d", len(out))
	}
	if out[1].MaterialID != 9 || out[1].Quantity != 4 || out[1].Required {
		t.Errorf("unexpected link %+v", out[1])
	}
	expectMet(t, mock)
}

func TestScriptMaterialRepoDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScriptMaterialRepo(db)

	mock.ExpectExec("DELETE FROM script_material_links").
		WithArgs(uint64(3), uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 3, 99); !errors.Is(err, ErrScriptMaterialNotFound) {
		t.Errorf("expected ErrScriptMaterialNotFound, got %v", err)
	}
	expectMet(t, mock)
}
