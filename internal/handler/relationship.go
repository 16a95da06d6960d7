package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// RelationshipHandler serves /v1/relationships. Edges are directed;
// mutuality is computed at read time, never stored twice.
type RelationshipHandler struct {
	Relationships *repository.RelationshipRepo
	Users         *repository.UserRepo
}

func NewRelationshipHandler(r *repository.RelationshipRepo, u *repository.UserRepo) *RelationshipHandler {
	return &RelationshipHandler{Relationships: r, Users: u}
}

type relationshipCreateReq struct {
	UserID           uint64  `json:"user_id"`
	RelatedUserID    uint64  `json:"related_user_id"`
	RelationshipType string  `json:"relationship_type"`
	Description      *string `json:"description"`
}

type relationshipPatchReq struct {
	RelationshipType *string `json:"relationship_type"`
	Description      *string `json:"description"`
}

type relationshipResp struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	RelatedUserID    uint64    `json:"related_user_id"`
	RelationshipType string    `json:"relationship_type"`
	Description      *string   `json:"description"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toRelationshipResp(rel *repository.Relationship) relationshipResp {
	return relationshipResp{
		ID:               rel.ID,
		UserID:           rel.UserID,
		RelatedUserID:    rel.RelatedUserID,
		RelationshipType: rel.RelationshipType,
		Description:      strPtr(rel.Description),
		CreatedAt:        rel.CreatedAt,
		UpdatedAt:        rel.UpdatedAt,
	}
}

// Create inserts a directed edge between two existing users.
func (h *RelationshipHandler) Create(c echo.Context) error {
	var req relationshipCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || req.RelatedUserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/related_user_id required"})
	}
	if req.UserID == req.RelatedUserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot relate a user to themselves"})
	}
	if !validEnum(repository.RelationshipTypes, req.RelationshipType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid relationship_type"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Users.Exists(ctx, req.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if exists, err := h.Users.Exists(ctx, req.RelatedUserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "related user not found"})
	}

	rel := &repository.Relationship{
		UserID:           req.UserID,
		RelatedUserID:    req.RelatedUserID,
		RelationshipType: req.RelationshipType,
		Description:      nullStr(req.Description),
	}
	switch err := h.Relationships.Create(ctx, rel); {
	case err == nil:
		return c.JSON(http.StatusCreated, toRelationshipResp(rel))
	case errors.Is(err, repository.ErrSelfRelation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot relate a user to themselves"})
	case errors.Is(err, repository.ErrDuplicateRelation):
		return c.JSON(http.StatusConflict, echo.Map{"error": "relationship already exists for this pair"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create relationship failed"})
	}
}

// List returns relationships, optionally scoped with ?user_id=.
func (h *RelationshipHandler) List(c echo.Context) error {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rels, err := h.Relationships.List(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]relationshipResp, 0, len(rels))
	for _, rel := range rels {
		out = append(out, toRelationshipResp(rel))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one relationship by id.
func (h *RelationshipHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Relationships.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRelationshipNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toRelationshipResp(rel))
}

// Patch updates the type or description of an edge. The endpoints stay
// fixed; redirecting an edge means deleting and recreating it.
func (h *RelationshipHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req relationshipPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RelationshipType == nil && req.Description == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Relationships.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRelationshipNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.RelationshipType != nil {
		if !validEnum(repository.RelationshipTypes, *req.RelationshipType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid relationship_type"})
		}
		rel.RelationshipType = *req.RelationshipType
	}
	if req.Description != nil {
		rel.Description = nullStr(req.Description)
	}

	if err := h.Relationships.Update(ctx, rel); err != nil {
		if errors.Is(err, repository.ErrRelationshipNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Relationships.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toRelationshipResp(updated))
}

// Delete removes one directed edge. The counterpart edge, if any, is
// untouched.
func (h *RelationshipHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Relationships.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrRelationshipNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}

// Between returns the single edge from one user to another, direction
// sensitive.
func (h *RelationshipHandler) Between(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	relatedID, ok := pathID(c, "related_user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid related_user_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Relationships.Between(ctx, userID, relatedID)
	if err != nil {
		if errors.Is(err, repository.ErrRelationshipNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "relationship not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toRelationshipResp(rel))
}

// Mutual returns the user's outgoing edges whose reverse edge exists.
func (h *RelationshipHandler) Mutual(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Users.Exists(ctx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	rels, err := h.Relationships.Mutual(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]relationshipResp, 0, len(rels))
	for _, rel := range rels {
		out = append(out, toRelationshipResp(rel))
	}
	return c.JSON(http.StatusOK, out)
}
