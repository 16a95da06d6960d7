package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// EnvironmentHandler serves /v1/environments.
type EnvironmentHandler struct {
	Environments *repository.EnvironmentRepo
}

func NewEnvironmentHandler(e *repository.EnvironmentRepo) *EnvironmentHandler {
	return &EnvironmentHandler{Environments: e}
}

type environmentCreateReq struct {
	Title        string  `json:"title"`
	Type         string  `json:"environment_type"`
	Status       string  `json:"environment_status"`
	Location     *string `json:"location"`
	Availability string  `json:"availability"`
	Capacity     int     `json:"capacity"`
	Description  *string `json:"description"`
	PhotoURL     *string `json:"photo_url"`
}

type environmentPatchReq struct {
	Title        *string `json:"title"`
	Type         *string `json:"environment_type"`
	Status       *string `json:"environment_status"`
	Location     *string `json:"location"`
	Availability *string `json:"availability"`
	Capacity     *int    `json:"capacity"`
	Description  *string `json:"description"`
	PhotoURL     *string `json:"photo_url"`
}

type environmentResp struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	Type         string    `json:"environment_type"`
	Status       string    `json:"environment_status"`
	Location     *string   `json:"location"`
	Availability string    `json:"availability"`
	Capacity     int       `json:"capacity"`
	Description  *string   `json:"description"`
	PhotoURL     *string   `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toEnvironmentResp(e *repository.Environment) environmentResp {
	return environmentResp{
		ID:           e.ID,
		Title:        e.Title,
		Type:         e.Type,
		Status:       e.Status,
		Location:     strPtr(e.Location),
		Availability: e.Availability,
		Capacity:     e.Capacity,
		Description:  strPtr(e.Description),
		PhotoURL:     strPtr(e.PhotoURL),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// Create inserts an environment.
func (h *EnvironmentHandler) Create(c echo.Context) error {
	var req environmentCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.Availability == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/availability required"})
	}
	if !validEnum(repository.EnvironmentTypes, req.Type) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_type"})
	}
	if !validEnum(repository.EnvironmentStatuses, req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_status"})
	}
	if req.Capacity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e := &repository.Environment{
		Title:        req.Title,
		Type:         req.Type,
		Status:       req.Status,
		Location:     nullStr(req.Location),
		Availability: req.Availability,
		Capacity:     req.Capacity,
		Description:  nullStr(req.Description),
		PhotoURL:     nullStr(req.PhotoURL),
	}
	if err := h.Environments.Create(ctx, e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create environment failed"})
	}
	return c.JSON(http.StatusCreated, toEnvironmentResp(e))
}

// List returns all environments.
func (h *EnvironmentHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	envs, err := h.Environments.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]environmentResp, 0, len(envs))
	for _, e := range envs {
		out = append(out, toEnvironmentResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one environment by id.
func (h *EnvironmentHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Environments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEnvironmentResp(e))
}

// Patch merges the supplied fields into the stored row.
func (h *EnvironmentHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req environmentPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Environments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Title != nil {
		if *req.Title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
		}
		e.Title = *req.Title
	}
	if req.Type != nil {
		if !validEnum(repository.EnvironmentTypes, *req.Type) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_type"})
		}
		e.Type = *req.Type
	}
	if req.Status != nil {
		if !validEnum(repository.EnvironmentStatuses, *req.Status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_status"})
		}
		e.Status = *req.Status
	}
	if req.Availability != nil {
		if *req.Availability == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "availability cannot be empty"})
		}
		e.Availability = *req.Availability
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
		}
		e.Capacity = *req.Capacity
	}
	if req.Location != nil {
		e.Location = nullStr(req.Location)
	}
	if req.Description != nil {
		e.Description = nullStr(req.Description)
	}
	if req.PhotoURL != nil {
		e.PhotoURL = nullStr(req.PhotoURL)
	}

	if err := h.Environments.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Environments.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEnvironmentResp(updated))
}

// Delete removes an environment unless areas or activities still
// reference it.
func (h *EnvironmentHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Environments.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrEnvironmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "environment is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
