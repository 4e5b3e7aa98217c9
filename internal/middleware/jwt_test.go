package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/utils"
)

const testSecret = "test-secret"

func protectedEcho(roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(testSecret), RequireRole(roles...))
	g.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	return e
}

func doRequest(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec := doRequest(protectedEcho("SUPERVISOR"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthInvalidToken(t *testing.T) {
	rec := doRequest(protectedEcho("SUPERVISOR"), "not-a-jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 1, "SUPERVISOR", "Sofía", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := doRequest(protectedEcho("SUPERVISOR"), at.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthAndRoleAccepted(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 1, "SUPERVISOR", "Sofía", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := doRequest(protectedEcho("SUPERVISOR", "ADMIN"), at.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireRoleForbidden(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 1, "SUPERVISOR", "Sofía", 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec := doRequest(protectedEcho("ADMIN"), at.Token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
