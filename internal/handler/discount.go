package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/service"
)

// DiscountHandler exposes the public intake endpoints: submitting a
// discount request and polling its status. Requests run through the
// decision pipeline synchronously; the response carries the decision
// that was queued for supervision.
type DiscountHandler struct {
	Pipeline *service.DecisionPipeline
	Queue    *repository.QueueRepo
}

func NewDiscountHandler(p *service.DecisionPipeline, q *repository.QueueRepo) *DiscountHandler {
	return &DiscountHandler{Pipeline: p, Queue: q}
}

type discountReq struct {
	RequestID   string `json:"request_id"` // optional, minted when absent
	MemberEmail string `json:"member_email"`
	MemberName  string `json:"member_name"`
	ShowID      uint64 `json:"show_id"`
	Description string `json:"description"`
}

type statusResp struct {
	RequestID      string  `json:"request_id"`
	Status         string  `json:"status"`
	DecisionType   string  `json:"decision_type"`
	ShowID         *uint64 `json:"show_id,omitempty"`
	DeliveryStatus string  `json:"delivery_status"`
	CreatedAt      string  `json:"created_at"`
}

// Request runs one discount request through the pipeline. Clients may
// supply their own request_id to make retries idempotent; without one
// the server mints an id and returns it in the outcome.
func (h *DiscountHandler) Request(c echo.Context) error {
	var req discountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.MemberEmail = strings.ToLower(strings.TrimSpace(req.MemberEmail))
	req.MemberName = strings.TrimSpace(req.MemberName)
	req.Description = strings.TrimSpace(req.Description)
	if req.MemberEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_email required"})
	}
	if req.ShowID == 0 && req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_id or description required"})
	}
	if req.RequestID == "" {
		req.RequestID = service.NewRequestID()
	}

	out, err := h.Pipeline.Process(c.Request().Context(), model.DiscountRequest{
		RequestID:   req.RequestID,
		MemberEmail: req.MemberEmail,
		MemberName:  req.MemberName,
		ShowID:      req.ShowID,
		Description: req.Description,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}
	return c.JSON(http.StatusAccepted, out)
}

// Status reports where a previously submitted request stands in the
// supervision queue. Draft email contents are not exposed here; the
// requester learns the decision from the email itself.
func (h *DiscountHandler) Status(c echo.Context) error {
	requestID := c.Param("requestID")
	item, err := h.Queue.GetByRequestID(c.Request().Context(), requestID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, statusResp{
		RequestID:      item.RequestID,
		Status:         item.Status,
		DecisionType:   item.DecisionType,
		ShowID:         item.ShowID,
		DeliveryStatus: item.DeliveryStatus,
		CreatedAt:      item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
