package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// AreaHandler serves /v1/areas.
type AreaHandler struct {
	Areas        *repository.AreaRepo
	Environments *repository.EnvironmentRepo
}

func NewAreaHandler(a *repository.AreaRepo, e *repository.EnvironmentRepo) *AreaHandler {
	return &AreaHandler{Areas: a, Environments: e}
}

type areaCreateReq struct {
	Title         string  `json:"title"`
	AreaType      string  `json:"area_type"`
	EnvironmentID uint64  `json:"environment_id"`
	Description   string  `json:"description"`
	PhotoURL      *string `json:"photo_url"`
}

type areaPatchReq struct {
	Title         *string `json:"title"`
	AreaType      *string `json:"area_type"`
	EnvironmentID *uint64 `json:"environment_id"`
	Description   *string `json:"description"`
	PhotoURL      *string `json:"photo_url"`
}

type areaResp struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	AreaType      string    `json:"area_type"`
	EnvironmentID uint64    `json:"environment_id"`
	Description   string    `json:"description"`
	PhotoURL      *string   `json:"photo_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toAreaResp(a *repository.Area) areaResp {
	return areaResp{
		ID:            a.ID,
		Title:         a.Title,
		AreaType:      a.AreaType,
		EnvironmentID: a.EnvironmentID,
		Description:   a.Description,
		PhotoURL:      strPtr(a.PhotoURL),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// Create inserts an area after confirming its environment exists.
func (h *AreaHandler) Create(c echo.Context) error {
	var req areaCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.Description == "" || req.EnvironmentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/description/environment_id required"})
	}
	if !validEnum(repository.AreaTypes, req.AreaType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area_type"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.Environments.Exists(ctx, req.EnvironmentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
	}

	a := &repository.Area{
		Title:         req.Title,
		AreaType:      req.AreaType,
		EnvironmentID: req.EnvironmentID,
		Description:   req.Description,
		PhotoURL:      nullStr(req.PhotoURL),
	}
	if err := h.Areas.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create area failed"})
	}
	return c.JSON(http.StatusCreated, toAreaResp(a))
}

// List returns areas, optionally scoped with ?environment_id=.
func (h *AreaHandler) List(c echo.Context) error {
	envID, ok := queryID(c, "environment_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	areas, err := h.Areas.List(ctx, envID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]areaResp, 0, len(areas))
	for _, a := range areas {
		out = append(out, toAreaResp(a))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one area by id.
func (h *AreaHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Areas.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAreaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toAreaResp(a))
}

// Patch merges the supplied fields into the stored row. Moving the area
// to another environment re-checks that the target exists.
func (h *AreaHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req areaPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Areas.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAreaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Title != nil {
		if *req.Title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
		}
		a.Title = *req.Title
	}
	if req.AreaType != nil {
		if !validEnum(repository.AreaTypes, *req.AreaType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area_type"})
		}
		a.AreaType = *req.AreaType
	}
	if req.EnvironmentID != nil {
		exists, err := h.Environments.Exists(ctx, *req.EnvironmentID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		a.EnvironmentID = *req.EnvironmentID
	}
	if req.Description != nil {
		if *req.Description == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "description cannot be empty"})
		}
		a.Description = *req.Description
	}
	if req.PhotoURL != nil {
		a.PhotoURL = nullStr(req.PhotoURL)
	}

	if err := h.Areas.Update(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrAreaNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		case errors.Is(err, repository.ErrEnvironmentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Areas.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toAreaResp(updated))
}

// Delete removes an area unless materials, scripts or activities still
// reference it.
func (h *AreaHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Areas.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrAreaNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "area is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
