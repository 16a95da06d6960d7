package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ScriptMaterialLink attaches a material to a script with the quantity a
// presentation needs.
type ScriptMaterialLink struct {
	ScriptID   uint64
	MaterialID uint64
	Quantity   int
	Required   bool
}

var ErrScriptMaterialNotFound = errors.New("script material link not found")

type ScriptMaterialRepo struct{ DB *sql.DB }

func NewScriptMaterialRepo(db *sql.DB) *ScriptMaterialRepo {
	return &ScriptMaterialRepo{DB: db}
}

// Create inserts a link row. The composite primary key rejects a second
// link for the same script/material pair.
func (r *ScriptMaterialRepo) Create(ctx context.Context, l *ScriptMaterialLink) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO script_material_links (script_id, material_id, quantity, required) VALUES (?,?,?,?)",
		l.ScriptID, l.MaterialID, l.Quantity, l.Required)
	switch {
	case err == nil:
		return nil
	case isDuplicateEntry(err):
		return ErrDuplicate
	case isMissingParent(err):
		return ErrScriptNotFound
	default:
		return err
	}
}

// Get fetches one link by its pair key.
func (r *ScriptMaterialRepo) Get(ctx context.Context, scriptID, materialID uint64) (*ScriptMaterialLink, error) {
	var l ScriptMaterialLink
	err := r.DB.QueryRowContext(ctx,
		"SELECT script_id, material_id, quantity, required FROM script_material_links WHERE script_id=? AND material_id=?",
		scriptID, materialID).
		Scan(&l.ScriptID, &l.MaterialID, &l.Quantity, &l.Required)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScriptMaterialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByScript returns every material linked to a script.
func (r *ScriptMaterialRepo) ListByScript(ctx context.Context, scriptID uint64) ([]*ScriptMaterialLink, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT script_id, material_id, quantity, required FROM script_material_links WHERE script_id=? ORDER BY material_id",
		scriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ScriptMaterialLink
	for rows.Next() {
		l := new(ScriptMaterialLink)
		if err := rows.Scan(&l.ScriptID, &l.MaterialID, &l.Quantity, &l.Required); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Update rewrites quantity and required for an existing pair.
func (r *ScriptMaterialRepo) Update(ctx context.Context, l *ScriptMaterialLink) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE script_material_links SET quantity=?, required=? WHERE script_id=? AND material_id=?",
		l.Quantity, l.Required, l.ScriptID, l.MaterialID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// A no-op update also reports zero rows, so confirm absence before
	// returning not found.
	if n == 0 {
		var one int
		probe := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM script_material_links WHERE script_id=? AND material_id=? LIMIT 1",
			l.ScriptID, l.MaterialID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrScriptMaterialNotFound
		}
		return probe
	}
	return nil
}

// Delete removes a link pair.
func (r *ScriptMaterialRepo) Delete(ctx context.Context, scriptID, materialID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM script_material_links WHERE script_id=? AND material_id=?",
		scriptID, materialID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScriptMaterialNotFound
	}
	return nil
}
