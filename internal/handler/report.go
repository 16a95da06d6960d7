package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// ReportHandler serves /v1/reports, including the observation bundle
// endpoints.
type ReportHandler struct {
	Reports      *repository.ReportRepo
	Observations *repository.ObservationRepo
	Users        *repository.UserRepo
	Links        *repository.ReportObservationRepo
}

func NewReportHandler(r *repository.ReportRepo, o *repository.ObservationRepo, u *repository.UserRepo, l *repository.ReportObservationRepo) *ReportHandler {
	return &ReportHandler{Reports: r, Observations: o, Users: u, Links: l}
}

type reportCreateReq struct {
	SenderID    uint64    `json:"sender_id"`
	RecipientID uint64    `json:"recipient_id"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

type reportPatchReq struct {
	SenderID    *uint64    `json:"sender_id"`
	RecipientID *uint64    `json:"recipient_id"`
	StartedAt   *time.Time `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
}

type reportResp struct {
	ID          uint64    `json:"id"`
	SenderID    uint64    `json:"sender_id"`
	RecipientID uint64    `json:"recipient_id"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

func toReportResp(rep *repository.Report) reportResp {
	return reportResp{
		ID:          rep.ID,
		SenderID:    rep.SenderID,
		RecipientID: rep.RecipientID,
		StartedAt:   rep.StartedAt,
		EndedAt:     rep.EndedAt,
	}
}

// Create inserts a report after confirming sender and recipient.
func (h *ReportHandler) Create(c echo.Context) error {
	var req reportCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SenderID == 0 || req.RecipientID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sender_id/recipient_id required"})
	}
	if req.StartedAt.IsZero() || req.EndedAt.IsZero() || !req.EndedAt.After(req.StartedAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ended_at must be after started_at"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Users.Exists(ctx, req.SenderID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sender user not found"})
	}
	if exists, err := h.Users.Exists(ctx, req.RecipientID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "recipient user not found"})
	}

	rep := &repository.Report{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		StartedAt:   req.StartedAt,
		EndedAt:     req.EndedAt,
	}
	if err := h.Reports.Create(ctx, rep); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create report failed"})
	}
	return c.JSON(http.StatusCreated, toReportResp(rep))
}

// List returns reports filtered with ?sender_id= and ?recipient_id=.
func (h *ReportHandler) List(c echo.Context) error {
	senderID, ok := queryID(c, "sender_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sender_id"})
	}
	recipientID, ok := queryID(c, "recipient_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipient_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	reps, err := h.Reports.List(ctx, senderID, recipientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reportResp, 0, len(reps))
	for _, rep := range reps {
		out = append(out, toReportResp(rep))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one report by id.
func (h *ReportHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rep, err := h.Reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toReportResp(rep))
}

// Patch merges the supplied fields into the stored row.
func (h *ReportHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reportPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rep, err := h.Reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.SenderID != nil {
		exists, err := h.Users.Exists(ctx, *req.SenderID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sender user not found"})
		}
		rep.SenderID = *req.SenderID
	}
	if req.RecipientID != nil {
		exists, err := h.Users.Exists(ctx, *req.RecipientID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !exists {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recipient user not found"})
		}
		rep.RecipientID = *req.RecipientID
	}
	if req.StartedAt != nil {
		rep.StartedAt = *req.StartedAt
	}
	if req.EndedAt != nil {
		rep.EndedAt = *req.EndedAt
	}
	if !rep.EndedAt.After(rep.StartedAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ended_at must be after started_at"})
	}

	if err := h.Reports.Update(ctx, rep); err != nil {
		switch {
		case errors.Is(err, repository.ErrReportNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
		case errors.Is(err, repository.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toReportResp(rep))
}

// Delete removes a report and requires its observation links to be
// removed first.
func (h *ReportHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Reports.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrReportNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "report is referenced by other records"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}

// ----- observation links -----

type reportObservationReq struct {
	ObservationID uint64 `json:"observation_id"`
}

type reportObservationResp struct {
	ReportID      uint64 `json:"report_id"`
	ObservationID uint64 `json:"observation_id"`
}

// AddObservation bundles an observation into the report.
func (h *ReportHandler) AddObservation(c echo.Context) error {
	reportID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reportObservationReq
	if err := c.Bind(&req); err != nil || req.ObservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "observation_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Reports.Exists(ctx, reportID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
	}
	if exists, err := h.Observations.Exists(ctx, req.ObservationID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "observation not found"})
	}

	l := &repository.ReportObservationLink{ReportID: reportID, ObservationID: req.ObservationID}
	switch err := h.Links.Create(ctx, l); {
	case err == nil:
		return c.JSON(http.StatusCreated, reportObservationResp{ReportID: reportID, ObservationID: req.ObservationID})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "observation already linked to report"})
	case errors.Is(err, repository.ErrReportNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link observation failed"})
	}
}

// ListObservations returns the report's observation links.
func (h *ReportHandler) ListObservations(c echo.Context) error {
	reportID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if exists, err := h.Reports.Exists(ctx, reportID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
	}

	links, err := h.Links.ListByReport(ctx, reportID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reportObservationResp, 0, len(links))
	for _, l := range links {
		out = append(out, reportObservationResp{ReportID: l.ReportID, ObservationID: l.ObservationID})
	}
	return c.JSON(http.StatusOK, out)
}

// RemoveObservation drops one observation from the report bundle.
func (h *ReportHandler) RemoveObservation(c echo.Context) error {
	reportID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	observationID, ok := pathID(c, "observation_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid observation_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Links.Delete(ctx, reportID, observationID); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrReportObservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "report observation link not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
