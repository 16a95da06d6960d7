package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// MaterialHandler serves /v1/materials.
type MaterialHandler struct {
	Materials *repository.MaterialRepo
	Areas     *repository.AreaRepo
}

func NewMaterialHandler(m *repository.MaterialRepo, a *repository.AreaRepo) *MaterialHandler {
	return &MaterialHandler{Materials: m, Areas: a}
}

type materialCreateReq struct {
	Title       string  `json:"title"`
	Reference   string  `json:"reference"`
	Description *string `json:"description"`
	PhotoURL    *string `json:"photo_url"`
	Status      string  `json:"status"`
	AreaID      uint64  `json:"area_id"`
}

type materialPatchReq struct {
	Title       *string `json:"title"`
	Reference   *string `json:"reference"`
	Description *string `json:"description"`
	PhotoURL    *string `json:"photo_url"`
	Status      *string `json:"status"`
	AreaID      *uint64 `json:"area_id"`
}

type materialResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Reference   string    `json:"reference"`
	Description *string   `json:"description"`
	PhotoURL    *string   `json:"photo_url"`
	Status      string    `json:"status"`
	AreaID      uint64    `json:"area_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMaterialResp(m *repository.Material) materialResp {
	return materialResp{
		ID:          m.ID,
		Title:       m.Title,
		Reference:   m.Reference,
		Description: strPtr(m.Description),
		PhotoURL:    strPtr(m.PhotoURL),
		Status:      m.Status,
		AreaID:      m.AreaID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// Create inserts a material after confirming its area exists.
func (h *MaterialHandler) Create(c echo.Context) error {
	var req materialCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.Reference == "" || req.AreaID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/reference/area_id required"})
	}
	if !validEnum(repository.MaterialStatuses, req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.Areas.Exists(ctx, req.AreaID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
	}

	m := &repository.Material{
		Title:       req.Title,
		Reference:   req.Reference,
		Description: nullStr(req.Description),
		PhotoURL:    nullStr(req.PhotoURL),
		Status:      req.Status,
		AreaID:      req.AreaID,
	}
	if err := h.Materials.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrAreaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create material failed"})
	}
	return c.JSON(http.StatusCreated, toMaterialResp(m))
}

// List returns materials, optionally scoped with ?area_id=.
func (h *MaterialHandler) List(c echo.Context) error {
	areaID, ok := queryID(c, "area_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	mats, err := h.Materials.List(ctx, areaID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]materialResp, 0, len(mats))
	for _, m := range mats {
		out = append(out, toMaterialResp(m))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one material by id.
func (h *MaterialHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Materials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMaterialNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "material not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toMaterialResp(m))
}

// Patch merges the supplied fields into the stored row. Status moves
// freely between any two values; there is no transition graph.
func (h *MaterialHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req materialPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Materials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMaterialNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "material not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Title != nil {
		if *req.Title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
		}
		m.Title = *req.Title
	}
	if req.Reference != nil {
		if *req.Reference == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "reference cannot be empty"})
		}
		m.Reference = *req.Reference
	}
	if req.Status != nil {
		if !validEnum(repository.MaterialStatuses, *req.Status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		m.Status = *req.Status
	}
	if req.AreaID != nil {
		exists, err := h.Areas.Exists(ctx, *req.AreaID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		m.AreaID = *req.AreaID
	}
	if req.Description != nil {
		m.Description = nullStr(req.Description)
	}
	if req.PhotoURL != nil {
		m.PhotoURL = nullStr(req.PhotoURL)
	}

	if err := h.Materials.Update(ctx, m); err != nil {
		switch {
		case errors.Is(err, repository.ErrMaterialNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "material not found"})
		case errors.Is(err, repository.ErrAreaNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Materials.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toMaterialResp(updated))
}

// Delete removes a material unless scripts or activities still
// reference it.
func (h *MaterialHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Materials.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrMaterialNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "material not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "material is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
