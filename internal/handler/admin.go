package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// AdminHandler covers catalog and member upkeep: publishing shows,
// adjusting quotas and correcting member standing after payments are
// reconciled.
type AdminHandler struct {
	Shows   *repository.ShowRepo
	Members *repository.MemberRepo
}

func NewAdminHandler(shows *repository.ShowRepo, members *repository.MemberRepo) *AdminHandler {
	return &AdminHandler{Shows: shows, Members: members}
}

type showReq struct {
	Code     string            `json:"code"`
	Title    string            `json:"title"`
	Artist   string            `json:"artist"`
	Venue    string            `json:"venue"`
	Date     string            `json:"date"` // YYYY-MM-DD
	QuotaMax int               `json:"quota_max"`
	Active   *bool             `json:"active"`
	Metadata map[string]string `json:"metadata"`
}

type memberReq struct {
	Email              string `json:"email"`
	Name               string `json:"name"`
	City               string `json:"city"`
	SubscriptionActive bool   `json:"subscription_active"`
	FeesCurrent        bool   `json:"fees_current"`
}

type standingReq struct {
	SubscriptionActive bool `json:"subscription_active"`
	FeesCurrent        bool `json:"fees_current"`
}

// CreateShow publishes a show to the catalog.
func (h *AdminHandler) CreateShow(c echo.Context) error {
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	show, errMsg := showFromReq(&req)
	if errMsg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errMsg})
	}
	if err := h.Shows.Create(c.Request().Context(), show); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "show code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create show failed"})
	}
	return c.JSON(http.StatusCreated, show)
}

// UpdateShow edits an existing show, including deactivation and quota
// changes. Shrinking quota_max below the already reserved count only
// stops new reservations; existing queue items are untouched.
func (h *AdminHandler) UpdateShow(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	show, errMsg := showFromReq(&req)
	if errMsg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errMsg})
	}
	show.ID = id
	if err := h.Shows.Update(c.Request().Context(), show); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update show failed"})
	}
	return c.JSON(http.StatusOK, show)
}

// CreateMember registers a community member record.
func (h *AdminHandler) CreateMember(c echo.Context) error {
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/name required"})
	}
	m := &model.Member{
		Email:              req.Email,
		Name:               req.Name,
		City:               req.City,
		SubscriptionActive: req.SubscriptionActive,
		FeesCurrent:        req.FeesCurrent,
	}
	if err := h.Members.Create(c.Request().Context(), m); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create member failed"})
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateStanding corrects a member's subscription and fee flags.
func (h *AdminHandler) UpdateStanding(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	var req standingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	err := h.Members.UpdateStanding(c.Request().Context(), email, req.SubscriptionActive, req.FeesCurrent)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update member failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func showFromReq(req *showReq) (*model.Show, string) {
	req.Code = strings.TrimSpace(req.Code)
	req.Title = strings.TrimSpace(req.Title)
	if req.Code == "" || req.Title == "" {
		return nil, "code/title required"
	}
	if req.QuotaMax < 0 {
		return nil, "quota_max must be >= 0"
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, "date must be YYYY-MM-DD"
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &model.Show{
		Code:     req.Code,
		Title:    req.Title,
		Artist:   strings.TrimSpace(req.Artist),
		Venue:    strings.TrimSpace(req.Venue),
		Date:     date,
		QuotaMax: req.QuotaMax,
		Active:   active,
		Metadata: req.Metadata,
	}, ""
}
