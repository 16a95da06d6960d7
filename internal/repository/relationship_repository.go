package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Accepted relationship_type values.
var RelationshipTypes = []string{"friend", "family", "colleague", "acquaintance", "other"}

// Relationship mirrors the 'users_relationships' table. Rows are
// directed: (user, related) and (related, user) are distinct edges.
type Relationship struct {
	ID               uint64
	UserID           uint64
	RelatedUserID    uint64
	RelationshipType string
	Description      sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

var (
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrSelfRelation         = errors.New("relationship cannot reference the same user twice")
	ErrDuplicateRelation    = errors.New("relationship already exists for this pair")
)

type RelationshipRepo struct{ DB *sql.DB }

func NewRelationshipRepo(db *sql.DB) *RelationshipRepo { return &RelationshipRepo{DB: db} }

const relationshipColumns = "id,user_id,related_user_id,relationship_type,description,created_at,updated_at"

func (rel *Relationship) scanFrom(scan func(dest ...interface{}) error) error {
	return scan(&rel.ID, &rel.UserID, &rel.RelatedUserID, &rel.RelationshipType,
		&rel.Description, &rel.CreatedAt, &rel.UpdatedAt)
}

func (rel *Relationship) scan(row *sql.Row) error {
	err := rel.scanFrom(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRelationshipNotFound
	}
	return err
}

// Create inserts a directed edge. Self edges are rejected before touching
// the database; the unique pair index rejects a second edge in the same
// direction.
func (r *RelationshipRepo) Create(ctx context.Context, rel *Relationship) error {
	if rel.UserID == rel.RelatedUserID {
		return ErrSelfRelation
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users_relationships (user_id, related_user_id, relationship_type, description) VALUES (?,?,?,?)",
		rel.UserID, rel.RelatedUserID, rel.RelationshipType, rel.Description)
	switch {
	case err == nil:
	case isDuplicateEntry(err):
		return ErrDuplicateRelation
	case isMissingParent(err):
		return ErrUserNotFound
	default:
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rel.ID = uint64(id)
	return rel.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+relationshipColumns+" FROM users_relationships WHERE id=?", rel.ID))
}

// GetByID fetches a relationship by id.
func (r *RelationshipRepo) GetByID(ctx context.Context, id uint64) (*Relationship, error) {
	var rel Relationship
	if err := rel.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+relationshipColumns+" FROM users_relationships WHERE id=?", id)); err != nil {
		return nil, err
	}
	return &rel, nil
}

// List returns relationships, optionally filtered by the owning user.
func (r *RelationshipRepo) List(ctx context.Context, userID uint64) ([]*Relationship, error) {
	q := "SELECT " + relationshipColumns + " FROM users_relationships ORDER BY id"
	args := []interface{}{}
	if userID != 0 {
		q = "SELECT " + relationshipColumns + " FROM users_relationships WHERE user_id=? ORDER BY id"
		args = append(args, userID)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Relationship
	for rows.Next() {
		rel := new(Relationship)
		if err := rel.scanFrom(rows.Scan); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// Between fetches the single directed edge from userID to relatedUserID.
func (r *RelationshipRepo) Between(ctx context.Context, userID, relatedUserID uint64) (*Relationship, error) {
	var rel Relationship
	if err := rel.scan(r.DB.QueryRowContext(ctx,
		"SELECT "+relationshipColumns+" FROM users_relationships WHERE user_id=? AND related_user_id=?",
		userID, relatedUserID)); err != nil {
		return nil, err
	}
	return &rel, nil
}

// Mutual returns the edges a user owns whose counterpart edge also
// exists, i.e. pairs related in both directions.
func (r *RelationshipRepo) Mutual(ctx context.Context, userID uint64) ([]*Relationship, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT o.id, o.user_id, o.related_user_id, o.relationship_type, o.description, o.created_at, o.updated_at
		 FROM users_relationships o
		 JOIN users_relationships i
		   ON i.user_id = o.related_user_id AND i.related_user_id = o.user_id
		 WHERE o.user_id=?
		 ORDER BY o.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Relationship
	for rows.Next() {
		rel := new(Relationship)
		if err := rel.scanFrom(rows.Scan); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// Update rewrites the edge. Redirecting it onto an existing pair is a
// duplicate; pointing both ends at one user is a self edge.
func (r *RelationshipRepo) Update(ctx context.Context, rel *Relationship) error {
	if rel.UserID == rel.RelatedUserID {
		return ErrSelfRelation
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users_relationships
		 SET user_id=?, related_user_id=?, relationship_type=?, description=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		rel.UserID, rel.RelatedUserID, rel.RelationshipType, rel.Description, rel.ID)
	switch {
	case err == nil:
	case isDuplicateEntry(err):
		return ErrDuplicateRelation
	case isMissingParent(err):
		return ErrUserNotFound
	default:
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		probe := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM users_relationships WHERE id=? LIMIT 1", rel.ID).Scan(&one)
		if errors.Is(probe, sql.ErrNoRows) {
			return ErrRelationshipNotFound
		}
		return probe
	}
	return nil
}

// Delete removes one directed edge.
func (r *RelationshipRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users_relationships WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRelationshipNotFound
	}
	return nil
}
