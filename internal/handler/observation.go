package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// ObservationHandler serves /v1/observations.
type ObservationHandler struct {
	Observations *repository.ObservationRepo
	Activities   *repository.ActivityRepo
	Users        *repository.UserRepo
}

func NewObservationHandler(o *repository.ObservationRepo, a *repository.ActivityRepo, u *repository.UserRepo) *ObservationHandler {
	return &ObservationHandler{Observations: o, Activities: a, Users: u}
}

type observationCreateReq struct {
	ObserverID           uint64    `json:"observer_id"`
	ActivityID           uint64    `json:"activity_id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	ObserverMood         string    `json:"observer_mood"`
	WeatherStatus        string    `json:"weather_status"`
	ObjectiveDescription string    `json:"objective_description"`
	Conclusion           string    `json:"conclusion"`
	Interpretation       string    `json:"interpretation"`
	TimeFelt             string    `json:"time_felt"`
	Feelings             string    `json:"feelings"`
}

type observationPatchReq struct {
	ObserverID           *uint64    `json:"observer_id"`
	ActivityID           *uint64    `json:"activity_id"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	ObserverMood         *string    `json:"observer_mood"`
	WeatherStatus        *string    `json:"weather_status"`
	ObjectiveDescription *string    `json:"objective_description"`
	Conclusion           *string    `json:"conclusion"`
	Interpretation       *string    `json:"interpretation"`
	TimeFelt             *string    `json:"time_felt"`
	Feelings             *string    `json:"feelings"`
}

type observationResp struct {
	ID                   uint64    `json:"id"`
	ObserverID           uint64    `json:"observer_id"`
	ActivityID           uint64    `json:"activity_id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	ObserverMood         string    `json:"observer_mood"`
	WeatherStatus        string    `json:"weather_status"`
	ObjectiveDescription string    `json:"objective_description"`
	Conclusion           string    `json:"conclusion"`
	Interpretation       string    `json:"interpretation"`
	TimeFelt             string    `json:"time_felt"`
	Feelings             string    `json:"feelings"`
}

func toObservationResp(o *repository.Observation) observationResp {
	return observationResp{
		ID:                   o.ID,
		ObserverID:           o.ObserverID,
		ActivityID:           o.ActivityID,
		StartTime:            o.StartTime,
		EndTime:              o.EndTime,
		ObserverMood:         o.ObserverMood,
		WeatherStatus:        o.WeatherStatus,
		ObjectiveDescription: o.ObjectiveDescription,
		Conclusion:           o.Conclusion,
		Interpretation:       o.Interpretation,
		TimeFelt:             o.TimeFelt,
		Feelings:             o.Feelings,
	}
}

func (req *observationCreateReq) validate() string {
	switch {
	case req.ObserverID == 0 || req.ActivityID == 0:
		return "observer_id/activity_id required"
	case req.StartTime.IsZero() || req.EndTime.IsZero():
		return "start_time/end_time required"
	case !req.EndTime.After(req.StartTime):
		return "end_time must be after start_time"
	case req.ObserverMood == "" || req.WeatherStatus == "" || req.ObjectiveDescription == "" ||
		req.Conclusion == "" || req.Interpretation == "" || req.TimeFelt == "" || req.Feelings == "":
		return "all narrative fields are required"
	}
	return ""
}

// Create inserts an observation after confirming observer and activity.
func (h *ObservationHandler) Create(c echo.Context) error {
	var req observationCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Users.Exists(ctx, req.ObserverID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "observer user not found"})
	}
	if exists, err := h.Activities.Exists(ctx, req.ActivityID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
	}

	o := &repository.Observation{
		ObserverID:           req.ObserverID,
		ActivityID:           req.ActivityID,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		ObserverMood:         req.ObserverMood,
		WeatherStatus:        req.WeatherStatus,
		ObjectiveDescription: req.ObjectiveDescription,
		Conclusion:           req.Conclusion,
		Interpretation:       req.Interpretation,
		TimeFelt:             req.TimeFelt,
		Feelings:             req.Feelings,
	}
	if err := h.Observations.Create(ctx, o); err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create observation failed"})
	}
	return c.JSON(http.StatusCreated, toObservationResp(o))
}

// List returns observations filtered with ?observer_id= and
// ?activity_id=.
func (h *ObservationHandler) List(c echo.Context) error {
	observerID, ok := queryID(c, "observer_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid observer_id"})
	}
	activityID, ok := queryID(c, "activity_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	obs, err := h.Observations.List(ctx, observerID, activityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]observationResp, 0, len(obs))
	for _, o := range obs {
		out = append(out, toObservationResp(o))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one observation by id.
func (h *ObservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Observations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toObservationResp(o))
}

// Patch merges the supplied fields into the stored row.
func (h *ObservationHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req observationPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Observations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.ObserverID != nil {
		exists, err := h.Users.Exists(ctx, *req.ObserverID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "observer user not found"})
		}
		o.ObserverID = *req.ObserverID
	}
	if req.ActivityID != nil {
		exists, err := h.Activities.Exists(ctx, *req.ActivityID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		o.ActivityID = *req.ActivityID
	}
	if req.StartTime != nil {
		o.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		o.EndTime = *req.EndTime
	}
	if !o.EndTime.After(o.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{req.ObserverMood, &o.ObserverMood},
		{req.WeatherStatus, &o.WeatherStatus},
		{req.ObjectiveDescription, &o.ObjectiveDescription},
		{req.Conclusion, &o.Conclusion},
		{req.Interpretation, &o.Interpretation},
		{req.TimeFelt, &o.TimeFelt},
		{req.Feelings, &o.Feelings},
	} {
		if f.src != nil {
			if *f.src == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "narrative fields cannot be empty"})
			}
			*f.dst = *f.src
		}
	}

	if err := h.Observations.Update(ctx, o); err != nil {
		switch {
		case errors.Is(err, repository.ErrObservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
		case errors.Is(err, repository.ErrActivityNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "activity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toObservationResp(o))
}

// Delete removes an observation unless bundled into a report.
func (h *ObservationHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Observations.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrObservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "observation is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
