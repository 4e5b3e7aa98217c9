// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/handler"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated intake surface: the
// catalog, the discount request endpoints and the chat assistant. The
// write endpoints share a per-client rate limit; rdb may be nil to
// disable it.
func RegisterPublic(e *echo.Echo, shows *handler.ShowsHandler, discounts *handler.DiscountHandler, chat *handler.ChatHandler, rdb *redis.Client, perMinute int) {
	e.GET("/v1/shows", shows.List)
	e.GET("/v1/shows/:id", shows.Get)
	e.GET("/v1/search/shows", shows.List)
	e.GET("/v1/discounts/status/:requestID", discounts.Status)

	limited := e.Group("", middleware.RateLimit(rdb, perMinute))
	limited.POST("/v1/discounts/request", discounts.Request)
	limited.POST("/v1/chat", chat.Message)
}

// RegisterSupervision registers the supervisor console under /v1.
// Every route requires a valid JWT with the SUPERVISOR or ADMIN role.
func RegisterSupervision(e *echo.Echo, s *handler.SupervisionHandler, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/v1/auth/login", a.Login)

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("SUPERVISOR", "ADMIN"),
	)
	g.GET("/auth/me", a.Me)

	g.GET("/supervision/queue", s.List)
	g.GET("/supervision/queue/stats", s.Stats)
	g.GET("/supervision/queue/:id", s.Get)
	g.POST("/supervision/queue/:id/approve", s.Approve)
	g.POST("/supervision/queue/:id/reject", s.Reject)
	g.PUT("/supervision/queue/:id", s.Edit)
	g.POST("/supervision/queue/:id/send", s.Send)
}

// RegisterAdmin registers catalog and member upkeep plus supervisor
// account creation. ADMIN role only.
func RegisterAdmin(e *echo.Echo, adm *handler.AdminHandler, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.POST("/shows", adm.CreateShow)
	g.PUT("/shows/:id", adm.UpdateShow)
	g.POST("/members", adm.CreateMember)
	g.PUT("/members/:email/standing", adm.UpdateStanding)
	g.POST("/supervisors", a.CreateSupervisor)
}
