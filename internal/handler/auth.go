package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/config"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/utils"
)

// AuthHandler bundles dependencies for supervisor auth endpoints.
// Supervisors are created by admins, never self-registered.
type AuthHandler struct {
	Cfg         config.Config
	Supervisors *repository.SupervisorRepo
}

func NewAuthHandler(cfg config.Config, s *repository.SupervisorRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Supervisors: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createSupervisorReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"` // SUPERVISOR | ADMIN
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type supervisorPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResp struct {
	Supervisor supervisorPart `json:"supervisor"`
	Access     tokenPart      `json:"access"`
}

// Login verifies supervisor credentials and returns a signed access
// token. A wrong password and an unknown email both answer the same
// 401 so the endpoint does not leak which emails exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Supervisors.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrSupervisorNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !utils.VerifyPassword(s.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, s.ID, s.Role, s.Name, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Supervisor: supervisorPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role},
		Access:     tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the profile of the authenticated supervisor.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := claimUint64(c.Get("supervisor_id"))
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	s, err := h.Supervisors.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrSupervisorNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "supervisor not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, supervisorPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role})
}

// CreateSupervisor creates a staff account. Admin only.
func (h *AuthHandler) CreateSupervisor(c echo.Context) error {
	var req createSupervisorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/name/password required"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != "ADMIN" {
		role = "SUPERVISOR"
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}
	s := &model.Supervisor{Email: req.Email, Name: req.Name, PasswordHash: hash, Role: role}
	if err := h.Supervisors.Create(c.Request().Context(), s); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create supervisor failed"})
	}
	return c.JSON(http.StatusCreated, supervisorPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role})
}

// claimUint64 coerces a JWT numeric claim, which arrives as float64
// after JSON decoding.
func claimUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}
