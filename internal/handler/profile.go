package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/repository"
)

// ProfileHandler serves /v1/profiles.
type ProfileHandler struct {
	Profiles *repository.ProfileRepo
	Users    *repository.UserRepo
}

func NewProfileHandler(p *repository.ProfileRepo, u *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Profiles: p, Users: u}
}

type profileCreateReq struct {
	UserID         uint64  `json:"user_id"`
	FirstName      string  `json:"first_name"`
	MiddleName     *string `json:"middle_name"`
	LastName       string  `json:"last_name"`
	SecondLastName *string `json:"second_last_name"`
	PhotoURL       *string `json:"photo_url"`
	BirthDate      string  `json:"birth_date"` // YYYY-MM-DD
	MobilePhone    *string `json:"mobile_phone"`
	HomeAddress    *string `json:"home_address"`
	Role           *string `json:"role"`
}

type profilePatchReq struct {
	FirstName      *string `json:"first_name"`
	MiddleName     *string `json:"middle_name"`
	LastName       *string `json:"last_name"`
	SecondLastName *string `json:"second_last_name"`
	PhotoURL       *string `json:"photo_url"`
	BirthDate      *string `json:"birth_date"`
	MobilePhone    *string `json:"mobile_phone"`
	HomeAddress    *string `json:"home_address"`
	Role           *string `json:"role"`
}

type profileResp struct {
	ID             uint64    `json:"id"`
	UserID         uint64    `json:"user_id"`
	FirstName      string    `json:"first_name"`
	MiddleName     *string   `json:"middle_name"`
	LastName       string    `json:"last_name"`
	SecondLastName *string   `json:"second_last_name"`
	PhotoURL       *string   `json:"photo_url"`
	BirthDate      string    `json:"birth_date"`
	MobilePhone    *string   `json:"mobile_phone"`
	HomeAddress    *string   `json:"home_address"`
	Role           *string   `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProfileResp(p *repository.Profile) profileResp {
	return profileResp{
		ID:             p.ID,
		UserID:         p.UserID,
		FirstName:      p.FirstName,
		MiddleName:     strPtr(p.MiddleName),
		LastName:       p.LastName,
		SecondLastName: strPtr(p.SecondLastName),
		PhotoURL:       strPtr(p.PhotoURL),
		BirthDate:      p.BirthDate.Format("2006-01-02"),
		MobilePhone:    strPtr(p.MobilePhone),
		HomeAddress:    strPtr(p.HomeAddress),
		Role:           strPtr(p.Role),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Create inserts a profile after confirming the user exists.
func (h *ProfileHandler) Create(c echo.Context) error {
	var req profileCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || req.FirstName == "" || req.LastName == "" || req.BirthDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/first_name/last_name/birth_date required"})
	}
	birth, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "birth_date must be YYYY-MM-DD"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.Users.Exists(ctx, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	p := &repository.Profile{
		UserID:         req.UserID,
		FirstName:      req.FirstName,
		MiddleName:     nullStr(req.MiddleName),
		LastName:       req.LastName,
		SecondLastName: nullStr(req.SecondLastName),
		PhotoURL:       nullStr(req.PhotoURL),
		BirthDate:      birth,
		MobilePhone:    nullStr(req.MobilePhone),
		HomeAddress:    nullStr(req.HomeAddress),
		Role:           nullStr(req.Role),
	}
	if err := h.Profiles.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create profile failed"})
	}
	return c.JSON(http.StatusCreated, toProfileResp(p))
}

// List returns all profiles, or one user's via ?user_id=.
func (h *ProfileHandler) List(c echo.Context) error {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if userID != 0 {
		p, err := h.Profiles.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				return c.JSON(http.StatusOK, []profileResp{})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, []profileResp{toProfileResp(p)})
	}

	profiles, err := h.Profiles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]profileResp, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one profile by id.
func (h *ProfileHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProfileResp(p))
}

// Patch merges the supplied fields into the stored row. Fields absent
// from the body keep their current values; an empty string clears a
// nullable column.
func (h *ProfileHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req profilePatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.FirstName != nil {
		if *req.FirstName == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name cannot be empty"})
		}
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		if *req.LastName == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "last_name cannot be empty"})
		}
		p.LastName = *req.LastName
	}
	if req.BirthDate != nil {
		birth, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "birth_date must be YYYY-MM-DD"})
		}
		p.BirthDate = birth
	}
	if req.MiddleName != nil {
		p.MiddleName = nullStr(req.MiddleName)
	}
	if req.SecondLastName != nil {
		p.SecondLastName = nullStr(req.SecondLastName)
	}
	if req.PhotoURL != nil {
		p.PhotoURL = nullStr(req.PhotoURL)
	}
	if req.MobilePhone != nil {
		p.MobilePhone = nullStr(req.MobilePhone)
	}
	if req.HomeAddress != nil {
		p.HomeAddress = nullStr(req.HomeAddress)
	}
	if req.Role != nil {
		p.Role = nullStr(req.Role)
	}

	if err := h.Profiles.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Profiles.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProfileResp(updated))
}

// Delete removes a profile.
func (h *ProfileHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch err := h.Profiles.Delete(ctx, id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrProfileNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
}
