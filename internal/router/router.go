// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evertly/boxoffice/internal/config"
	"github.com/evertly/boxoffice/internal/handler"
	"github.com/evertly/boxoffice/internal/middleware"
)

// Handlers bundles everything the route table needs.  All fields must
// be non-nil.
type Handlers struct {
	Reservation *handler.ReservationHandler
	Purchase    *handler.PurchaseHandler
	Scan        *handler.ScanHandler
	Refund      *handler.RefundHandler
}

// RegisterRoutes wires the full route table on the provided Echo
// instance.  The public group carries the token-bucket rate limiter
// (a nil Redis client degrades it to pass-through); the staff group
// requires a valid staff JWT with an accepted role.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg config.Config, rl config.RateLimitConfig, rdb *redis.Client) {
	// Health check for load balancers and monitoring, outside every group.
	e.GET("/healthz", handler.Health)

	// Public buyer-facing endpoints.  No authentication: reservations and
	// purchases are capability-based via the session token.
	public := e.Group("/v1")
	public.Use(middleware.NewTokenBucket(rl, rdb))
	public.GET("/tiers/:id/availability", h.Reservation.GetAvailability)
	public.POST("/tiers/:id/reservations", h.Reservation.CreateReservation)
	public.GET("/tiers/:id/reservations/:token", h.Reservation.GetReservation)
	public.POST("/tiers/:id/purchase", h.Purchase.Purchase)

	// Staff endpoints: door scanning and refund administration.  The JWT
	// must carry the staff and organization identity.
	staff := e.Group("/v1")
	staff.Use(middleware.StaffAuth(cfg.JWTSecret))
	staff.Use(middleware.RequireRole("STAFF", "ADMIN"))
	staff.POST("/scan", h.Scan.Scan)
	staff.POST("/tickets/:id/refund", h.Refund.Refund)
	staff.POST("/tickets/:id/cancel", h.Refund.Cancel)
}
