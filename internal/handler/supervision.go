package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/service"
)

// SupervisionHandler exposes the supervisor console API: listing and
// inspecting the queue, approving, rejecting, editing drafts and
// triggering delivery.
type SupervisionHandler struct {
	Service *service.SupervisionService
}

func NewSupervisionHandler(s *service.SupervisionService) *SupervisionHandler {
	return &SupervisionHandler{Service: s}
}

type reviewReq struct {
	Notes string `json:"notes"`
}

type editReq struct {
	EmailSubject string `json:"email_subject"`
	EmailContent string `json:"email_content"`
	DecisionType string `json:"decision_type"` // optional
}

// List returns one page of the queue. Filters arrive as query
// parameters: status, decision_type, member_email, venue, show_title,
// date_from, date_to (RFC3339 or YYYY-MM-DD), page, page_size.
func (h *SupervisionHandler) List(c echo.Context) error {
	filter := model.QueueFilter{
		Status:       c.QueryParam("status"),
		DecisionType: c.QueryParam("decision_type"),
		MemberEmail:  c.QueryParam("member_email"),
		Venue:        c.QueryParam("venue"),
		ShowTitle:    c.QueryParam("show_title"),
	}
	if t, ok := parseDate(c.QueryParam("date_from")); ok {
		filter.DateFrom = &t
	}
	if t, ok := parseDate(c.QueryParam("date_to")); ok {
		filter.DateTo = &t
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	out, err := h.Service.List(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, out)
}

// Stats returns the dashboard counters.
func (h *SupervisionHandler) Stats(c echo.Context) error {
	out, err := h.Service.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one queue item with its full draft.
func (h *SupervisionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	item, err := h.Service.Get(c.Request().Context(), id)
	if err != nil {
		return itemError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Approve marks a pending item approved.
func (h *SupervisionHandler) Approve(c echo.Context) error {
	return h.review(c, h.Service.Approve)
}

// Reject marks a pending or approved item rejected, freeing its
// quota slot.
func (h *SupervisionHandler) Reject(c echo.Context) error {
	return h.review(c, h.Service.Reject)
}

func (h *SupervisionHandler) review(c echo.Context, action func(ctx context.Context, id uint64, reviewer, notes string) (*model.SupervisionItem, error)) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	item, err := action(c.Request().Context(), id, reviewerName(c), req.Notes)
	if err != nil {
		return itemError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Edit rewrites the drafted email of an unsent item.
func (h *SupervisionHandler) Edit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req editReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.EmailSubject) == "" || strings.TrimSpace(req.EmailContent) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email_subject and email_content required"})
	}
	switch req.DecisionType {
	case "", model.DecisionApproved, model.DecisionRejected, model.DecisionNeedsClarification:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid decision_type"})
	}
	item, err := h.Service.Edit(c.Request().Context(), id, req.EmailSubject, req.EmailContent, req.DecisionType, reviewerName(c))
	if err != nil {
		return itemError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Send delivers the draft of a reviewed item and finalises it.
func (h *SupervisionHandler) Send(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	item, err := h.Service.Send(c.Request().Context(), id)
	if err != nil {
		return itemError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// reviewerName pulls the display name claim injected by JWTAuth.
func reviewerName(c echo.Context) string {
	if name, ok := c.Get("supervisor_name").(string); ok && name != "" {
		return name
	}
	return "unknown"
}

// itemError maps store errors onto HTTP statuses: unknown item 404,
// illegal state transition 409.
func itemError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "queue item not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "item is not in a state that allows this action"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
