package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// ShowsHandler serves the public show catalog. Only active shows with
// remaining discount slots are listed; internal fields like the exact
// quota are not exposed.
type ShowsHandler struct {
	Shows *repository.ShowRepo
}

func NewShowsHandler(s *repository.ShowRepo) *ShowsHandler {
	return &ShowsHandler{Shows: s}
}

// List returns the available catalog. With ?q= it becomes a search
// over title, artist and venue.
func (h *ShowsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		items, err := h.Shows.Search(ctx, q, limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"items": items})
	}
	items, err := h.Shows.ListAvailable(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// publicShow is the detail view of a single show. Quota internals stay
// private; only the remaining slot count is exposed.
type publicShow struct {
	ID        uint64    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Venue     string    `json:"venue"`
	Date      time.Time `json:"date"`
	Active    bool      `json:"active"`
	Remaining int       `json:"remaining"`
}

// Get returns one show with its remaining slot count.
func (h *ShowsHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	show, err := h.Shows.GetByID(ctx, id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	remaining, err := h.Shows.Remaining(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, publicShow{
		ID: show.ID, Code: show.Code, Title: show.Title, Artist: show.Artist,
		Venue: show.Venue, Date: show.Date, Active: show.Active, Remaining: remaining,
	})
}
