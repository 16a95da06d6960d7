package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// ActivityHandler serves /v1/activities, including learner enrollment.
type ActivityHandler struct {
	Activities   *repository.ActivityRepo
	Environments *repository.EnvironmentRepo
	Areas        *repository.AreaRepo
	Materials    *repository.MaterialRepo
	Scripts      *repository.ScriptRepo
	Users        *repository.UserRepo
	Learners     *repository.ActivityLearnerRepo
}

func NewActivityHandler(
	act *repository.ActivityRepo,
	env *repository.EnvironmentRepo,
	area *repository.AreaRepo,
	mat *repository.MaterialRepo,
	scr *repository.ScriptRepo,
	usr *repository.UserRepo,
	lrn *repository.ActivityLearnerRepo,
) *ActivityHandler {
	return &ActivityHandler{
		Activities:   act,
		Environments: env,
		Areas:        area,
		Materials:    mat,
		Scripts:      scr,
		Users:        usr,
		Learners:     lrn,
	}
}

type activityCreateReq struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	ActivityType  string  `json:"activity_type"`
	LessonType    string  `json:"lesson_type"`
	EnvironmentID uint64  `json:"environment_id"`
	AreaID        uint64  `json:"area_id"`
	MaterialID    uint64  `json:"material_id"`
	ScriptID      uint64  `json:"script_id"`
	GuideID       *uint64 `json:"guide_id"`
	AssistantID   *uint64 `json:"assistant_id"`
}

type activityPatchReq struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	ActivityType  *string `json:"activity_type"`
	LessonType    *string `json:"lesson_type"`
	EnvironmentID *uint64 `json:"environment_id"`
	AreaID        *uint64 `json:"area_id"`
	MaterialID    *uint64 `json:"material_id"`
	ScriptID      *uint64 `json:"script_id"`
	GuideID       *uint64 `json:"guide_id"`
	AssistantID   *uint64 `json:"assistant_id"`
}

type activityResp struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	ActivityType  string    `json:"activity_type"`
	LessonType    string    `json:"lesson_type"`
	EnvironmentID uint64    `json:"environment_id"`
	AreaID        uint64    `json:"area_id"`
	MaterialID    uint64    `json:"material_id"`
	ScriptID      uint64    `json:"script_id"`
	GuideID       *uint64   `json:"guide_id"`
	AssistantID   *uint64   `json:"assistant_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func toActivityResp(a *repository.Activity) activityResp {
	return activityResp{
		ID:            a.ID,
		Name:          a.Name,
		Description:   strPtr(a.Description),
		ActivityType:  a.ActivityType,
		LessonType:    a.LessonType,
		EnvironmentID: a.EnvironmentID,
		AreaID:        a.AreaID,
		MaterialID:    a.MaterialID,
		ScriptID:      a.ScriptID,
		GuideID:       idPtr(a.GuideID),
		AssistantID:   idPtr(a.AssistantID),
		CreatedAt:     a.CreatedAt,
	}
}

// checkActivityRefs verifies every referenced parent exists and answers
// the 404 body naming the first missing one.
func (h *ActivityHandler) checkActivityRefs(c echo.Context, a *repository.Activity) (bool, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	checks := []struct {
		name   string
		exists func() (bool, error)
	}{
		{"environment", func() (bool, error) { return h.Environments.Exists(ctx, a.EnvironmentID) }},
		{"area", func() (bool, error) { return h.Areas.Exists(ctx, a.AreaID) }},
		{"material", func() (bool, error) { return h.Materials.Exists(ctx, a.MaterialID) }},
		{"script", func() (bool, error) { return h.Scripts.Exists(ctx, a.ScriptID) }},
	}
	if a.GuideID.Valid {
		gid := uint64(a.GuideID.Int64)
		checks = append(checks, struct {
			name   string
			exists func() (bool, error)
		}{"guide user", func() (bool, error) { return h.Users.Exists(ctx, gid) }})
	}
	if a.AssistantID.Valid {
		aid := uint64(a.AssistantID.Int64)
		checks = append(checks, struct {
			name   string
			exists func() (bool, error)
		}{"assistant user", func() (bool, error) { return h.Users.Exists(ctx, aid) }})
	}
	for _, chk := range checks {
		ok, err := chk.exists()
		if err != nil {
			return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !ok {
			return false, c.JSON(http.StatusNotFound, echo.Map{"error": chk.name + " not found"})
		}
	}
	return true, nil
}

// Create inserts an activity after confirming every referenced parent.
func (h *ActivityHandler) Create(c echo.Context) error {
	var req activityCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.EnvironmentID == 0 || req.AreaID == 0 || req.MaterialID == 0 || req.ScriptID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/environment_id/area_id/material_id/script_id required"})
	}
	if !validEnum(repository.ActivityTypes, req.ActivityType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity_type"})
	}
	if !validEnum(repository.LessonTypes, req.LessonType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lesson_type"})
	}

	a := &repository.Activity{
		Name:          req.Name,
		Description:   nullStr(req.Description),
		ActivityType:  req.ActivityType,
		LessonType:    req.LessonType,
		EnvironmentID: req.EnvironmentID,
		AreaID:        req.AreaID,
		MaterialID:    req.MaterialID,
		ScriptID:      req.ScriptID,
		GuideID:       nullID(req.GuideID),
		AssistantID:   nullID(req.AssistantID),
	}
	if ok, resp := h.checkActivityRefs(c, a); !ok {
		return resp
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Activities.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "referenced record was removed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create activity failed"})
	}
	return c.JSON(http.StatusCreated, toActivityResp(a))
}

// List returns activities, optionally scoped with ?environment_id=.
func (h *ActivityHandler) List(c echo.Context) error {
	envID, ok := queryID(c, "environment_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acts, err := h.Activities.List(ctx, envID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]activityResp, 0, len(acts))
	for _, a := range acts {
		out = append(out, toActivityResp(a))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one activity by id.
func (h *ActivityHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toActivityResp(a))
}

// Patch merges the supplied fields into the stored row. Any changed
// reference is checked again before the write.
func (h *ActivityHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req activityPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Name != nil {
		if *req.Name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		a.Name = *req.Name
	}
	if req.ActivityType != nil {
		if !validEnum(repository.ActivityTypes, *req.ActivityType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity_type"})
		}
		a.ActivityType = *req.ActivityType
	}
	if req.LessonType != nil {
		if !validEnum(repository.LessonTypes, *req.LessonType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lesson_type"})
		}
		a.LessonType = *req.LessonType
	}
	if req.Description != nil {
		a.Description = nullStr(req.Description)
	}
	if req.EnvironmentID != nil {
		a.EnvironmentID = *req.EnvironmentID
	}
	if req.AreaID != nil {
		a.AreaID = *req.AreaID
	}
	if req.MaterialID != nil {
		a.MaterialID = *req.MaterialID
	}
	if req.ScriptID != nil {
		a.ScriptID = *req.ScriptID
	}
	if req.GuideID != nil {
		a.GuideID = nullID(req.GuideID)
	}
	if req.AssistantID != nil {
		a.AssistantID = nullID(req.AssistantID)
	}

	if ok, resp := h.checkActivityRefs(c, a); !ok {
		return resp
	}

	if err := h.Activities.Update(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrActivityNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "referenced record was removed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Activities.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toActivityResp(updated))
}

// Delete removes an activity unless observations or enrollments still
// reference it.
func (h *ActivityHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Activities.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrActivityNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "activity is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}

// ----- learner enrollment -----

type activityLearnerReq struct {
	LearnerID uint64 `json:"learner_id"`
}

type activityLearnerResp struct {
	ActivityID uint64 `json:"activity_id"`
	LearnerID  uint64 `json:"learner_id"`
}

// AddLearner enrolls a learner user into the activity.
func (h *ActivityHandler) AddLearner(c echo.Context) error {
	activityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req activityLearnerReq
	if err := c.Bind(&req); err != nil || req.LearnerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "learner_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Activities.Exists(ctx, activityID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
	}
	if exists, err := h.Users.Exists(ctx, req.LearnerID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "learner user not found"})
	}

	l := &repository.ActivityLearner{ActivityID: activityID, LearnerID: req.LearnerID}
	switch err := h.Learners.Create(ctx, l); {
	case err == nil:
		return c.JSON(http.StatusCreated, activityLearnerResp{ActivityID: activityID, LearnerID: req.LearnerID})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "learner already enrolled"})
	case errors.Is(err, repository.ErrActivityNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enroll learner failed"})
	}
}

// ListLearners returns the activity's enrollments.
func (h *ActivityHandler) ListLearners(c echo.Context) error {
	activityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Activities.Exists(ctx, activityID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
	}

	learners, err := h.Learners.ListByActivity(ctx, activityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]activityLearnerResp, 0, len(learners))
	for _, l := range learners {
		out = append(out, activityLearnerResp{ActivityID: l.ActivityID, LearnerID: l.LearnerID})
	}
	return c.JSON(http.StatusOK, out)
}

// RemoveLearner drops one enrollment.
func (h *ActivityHandler) RemoveLearner(c echo.Context) error {
	activityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	learnerID, ok := pathID(c, "learner_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid learner_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Learners.Delete(ctx, activityID, learnerID); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrActivityLearnerNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "enrollment not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
