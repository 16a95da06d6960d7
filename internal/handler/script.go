package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// ScriptHandler serves /v1/scripts, including the per-script material
// link endpoints.
type ScriptHandler struct {
	Scripts   *repository.ScriptRepo
	Areas     *repository.AreaRepo
	Materials *repository.MaterialRepo
	Links     *repository.ScriptMaterialRepo
}

func NewScriptHandler(s *repository.ScriptRepo, a *repository.AreaRepo, m *repository.MaterialRepo, l *repository.ScriptMaterialRepo) *ScriptHandler {
	return &ScriptHandler{Scripts: s, Areas: a, Materials: m, Links: l}
}

type scriptCreateReq struct {
	Title            string   `json:"title"`
	AreaID           uint64   `json:"area_id"`
	AgeRange         string   `json:"age_range"`
	Objective        string   `json:"objective"`
	Steps            string   `json:"steps"`
	DurationMinutes  int      `json:"duration_minutes"`
	CreatedBy        string   `json:"created_by"`
	UploadedBy       string   `json:"uploaded_by"`
	IllustrationsURL *string  `json:"illustrations_url"`
	VideoURL         *string  `json:"video_url"`
	PDFURL           *string  `json:"pdf_url"`
	ReviewedBy       *string  `json:"reviewed_by"`
	Notes            *string  `json:"notes"`
	Tags             []string `json:"tags"`
	IsActive         *bool    `json:"is_active"`
}

type scriptPatchReq struct {
	Title            *string   `json:"title"`
	AreaID           *uint64   `json:"area_id"`
	AgeRange         *string   `json:"age_range"`
	Objective        *string   `json:"objective"`
	Steps            *string   `json:"steps"`
	DurationMinutes  *int      `json:"duration_minutes"`
	CreatedBy        *string   `json:"created_by"`
	UploadedBy       *string   `json:"uploaded_by"`
	IllustrationsURL *string   `json:"illustrations_url"`
	VideoURL         *string   `json:"video_url"`
	PDFURL           *string   `json:"pdf_url"`
	ReviewedBy       *string   `json:"reviewed_by"`
	Notes            *string   `json:"notes"`
	Tags             *[]string `json:"tags"`
	IsActive         *bool     `json:"is_active"`
}

type scriptResp struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	AreaID           uint64    `json:"area_id"`
	AgeRange         string    `json:"age_range"`
	Objective        string    `json:"objective"`
	Steps            string    `json:"steps"`
	DurationMinutes  int       `json:"duration_minutes"`
	CreatedBy        string    `json:"created_by"`
	UploadedBy       string    `json:"uploaded_by"`
	IllustrationsURL *string   `json:"illustrations_url"`
	VideoURL         *string   `json:"video_url"`
	PDFURL           *string   `json:"pdf_url"`
	ReviewedBy       *string   `json:"reviewed_by"`
	Notes            *string   `json:"notes"`
	Tags             []string  `json:"tags"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

func toScriptResp(s *repository.Script) scriptResp {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return scriptResp{
		ID:               s.ID,
		Title:            s.Title,
		AreaID:           s.AreaID,
		AgeRange:         s.AgeRange,
		Objective:        s.Objective,
		Steps:            s.Steps,
		DurationMinutes:  s.DurationMinutes,
		CreatedBy:        s.CreatedBy,
		UploadedBy:       s.UploadedBy,
		IllustrationsURL: strPtr(s.IllustrationsURL),
		VideoURL:         strPtr(s.VideoURL),
		PDFURL:           strPtr(s.PDFURL),
		ReviewedBy:       strPtr(s.ReviewedBy),
		Notes:            strPtr(s.Notes),
		Tags:             tags,
		IsActive:         s.IsActive,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		UploadedAt:       s.UploadedAt,
	}
}

// Create inserts a script after confirming its area exists.
func (h *ScriptHandler) Create(c echo.Context) error {
	var req scriptCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.AreaID == 0 || req.AgeRange == "" || req.Objective == "" ||
		req.Steps == "" || req.CreatedBy == "" || req.UploadedBy == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/area_id/age_range/objective/steps/created_by/uploaded_by required"})
	}
	if req.DurationMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
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

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	s := &repository.Script{
		Title:            req.Title,
		AreaID:           req.AreaID,
		AgeRange:         req.AgeRange,
		Objective:        req.Objective,
		Steps:            req.Steps,
		DurationMinutes:  req.DurationMinutes,
		CreatedBy:        req.CreatedBy,
		UploadedBy:       req.UploadedBy,
		IllustrationsURL: nullStr(req.IllustrationsURL),
		VideoURL:         nullStr(req.VideoURL),
		PDFURL:           nullStr(req.PDFURL),
		ReviewedBy:       nullStr(req.ReviewedBy),
		Notes:            nullStr(req.Notes),
		Tags:             req.Tags,
		IsActive:         active,
	}
	if err := h.Scripts.Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrAreaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create script failed"})
	}
	return c.JSON(http.StatusCreated, toScriptResp(s))
}

// List returns scripts, optionally scoped with ?area_id=.
func (h *ScriptHandler) List(c echo.Context) error {
	areaID, ok := queryID(c, "area_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	scripts, err := h.Scripts.List(ctx, areaID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]scriptResp, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, toScriptResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one script by id.
func (h *ScriptHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toScriptResp(s))
}

// Patch merges the supplied fields into the stored row. A supplied tags
// array replaces the stored list wholesale.
func (h *ScriptHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req scriptPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Title != nil {
		if *req.Title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
		}
		s.Title = *req.Title
	}
	if req.AreaID != nil {
		exists, err := h.Areas.Exists(ctx, *req.AreaID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		s.AreaID = *req.AreaID
	}
	if req.AgeRange != nil {
		s.AgeRange = *req.AgeRange
	}
	if req.Objective != nil {
		s.Objective = *req.Objective
	}
	if req.Steps != nil {
		s.Steps = *req.Steps
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
		}
		s.DurationMinutes = *req.DurationMinutes
	}
	if req.CreatedBy != nil {
		s.CreatedBy = *req.CreatedBy
	}
	if req.UploadedBy != nil {
		s.UploadedBy = *req.UploadedBy
	}
	if req.IllustrationsURL != nil {
		s.IllustrationsURL = nullStr(req.IllustrationsURL)
	}
	if req.VideoURL != nil {
		s.VideoURL = nullStr(req.VideoURL)
	}
	if req.PDFURL != nil {
		s.PDFURL = nullStr(req.PDFURL)
	}
	if req.ReviewedBy != nil {
		s.ReviewedBy = nullStr(req.ReviewedBy)
	}
	if req.Notes != nil {
		s.Notes = nullStr(req.Notes)
	}
	if req.Tags != nil {
		s.Tags = *req.Tags
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}

	if err := h.Scripts.Update(ctx, s); err != nil {
		switch {
		case errors.Is(err, repository.ErrScriptNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		case errors.Is(err, repository.ErrAreaNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toScriptResp(updated))
}

// Delete removes a script unless activities or material links still
// reference it.
func (h *ScriptHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Scripts.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrScriptNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "script is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}

// ----- material links -----

type scriptMaterialReq struct {
	MaterialID uint64 `json:"material_id"`
	Quantity   *int   `json:"quantity"`
	Required   *bool  `json:"required"`
}

type scriptMaterialPatchReq struct {
	Quantity *int  `json:"quantity"`
	Required *bool `json:"required"`
}

type scriptMaterialResp struct {
	ScriptID   uint64 `json:"script_id"`
	MaterialID uint64 `json:"material_id"`
	Quantity   int    `json:"quantity"`
	Required   bool   `json:"required"`
}

func toScriptMaterialResp(l *repository.ScriptMaterialLink) scriptMaterialResp {
	return scriptMaterialResp{
		ScriptID:   l.ScriptID,
		MaterialID: l.MaterialID,
		Quantity:   l.Quantity,
		Required:   l.Required,
	}
}

// AddMaterial links a material to the script.
func (h *ScriptHandler) AddMaterial(c echo.Context) error {
	scriptID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req scriptMaterialReq
	if err := c.Bind(&req); err != nil || req.MaterialID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "material_id required"})
	}
	quantity := 1
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
		}
		quantity = *req.Quantity
	}
	required := true
	if req.Required != nil {
		required = *req.Required
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Scripts.Exists(ctx, scriptID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
	}
	if exists, err := h.Materials.Exists(ctx, req.MaterialID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "material not found"})
	}

	l := &repository.ScriptMaterialLink{
		ScriptID:   scriptID,
		MaterialID: req.MaterialID,
		Quantity:   quantity,
		Required:   required,
	}
	switch err := h.Links.Create(ctx, l); {
	case err == nil:
		return c.JSON(http.StatusCreated, toScriptMaterialResp(l))
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "material already linked to script"})
	case errors.Is(err, repository.ErrScriptNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link material failed"})
	}
}

// ListMaterials returns the script's material links.
func (h *ScriptHandler) ListMaterials(c echo.Context) error {
	scriptID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Scripts.Exists(ctx, scriptID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
	}

	links, err := h.Links.ListByScript(ctx, scriptID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]scriptMaterialResp, 0, len(links))
	for _, l := range links {
		out = append(out, toScriptMaterialResp(l))
	}
	return c.JSON(http.StatusOK, out)
}

// GetMaterial returns one link by its pair key.
func (h *ScriptHandler) GetMaterial(c echo.Context) error {
	scriptID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	materialID, ok := pathID(c, "material_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid material_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Links.Get(ctx, scriptID, materialID)
	if err != nil {
		if errors.Is(err, repository.ErrScriptMaterialNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script material link not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toScriptMaterialResp(l))
}

// PatchMaterial updates quantity and required on an existing link.
func (h *ScriptHandler) PatchMaterial(c echo.Context) error {
	scriptID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	materialID, ok := pathID(c, "material_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid material_id"})
	}
	var req scriptMaterialPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Quantity == nil && req.Required == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	l, err := h.Links.Get(ctx, scriptID, materialID)
	if err != nil {
		if errors.Is(err, repository.ErrScriptMaterialNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script material link not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
		}
		l.Quantity = *req.Quantity
	}
	if req.Required != nil {
		l.Required = *req.Required
	}

	if err := h.Links.Update(ctx, l); err != nil {
		if errors.Is(err, repository.ErrScriptMaterialNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script material link not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toScriptMaterialResp(l))
}

// RemoveMaterial unlinks a material from the script.
func (h *ScriptHandler) RemoveMaterial(c echo.Context) error {
	scriptID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	materialID, ok := pathID(c, "material_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid material_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Links.Delete(ctx, scriptID, materialID); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrScriptMaterialNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "script material link not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
