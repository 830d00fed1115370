package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evertly/boxoffice/internal/booking"
)

// ReservationHandler serves the public availability and reservation
// endpoints.  Reservations are anonymous: the only identity attached at
// hold time is an optional buyer email plus the client network address,
// both of which feed the purchase-limit checks.
type ReservationHandler struct {
	Ledger       *booking.Ledger
	Reservations *booking.ReservationManager
}

// NewReservationHandler constructs a ReservationHandler.  Both
// dependencies must be non-nil.
func NewReservationHandler(ledger *booking.Ledger, reservations *booking.ReservationManager) *ReservationHandler {
	if ledger == nil || reservations == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Ledger: ledger, Reservations: reservations}
}

// tierIDParam parses the :id path parameter shared by the tier-scoped
// routes.
func tierIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// GetAvailability handles GET /v1/tiers/:id/availability.  The counts
// are a best-effort snapshot: they can be stale by the time the client
// acts on them, and the reservation path re-checks under lock.
func (h *ReservationHandler) GetAvailability(c echo.Context) error {
	tierID, ok := tierIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	avail, err := h.Ledger.Availability(c.Request().Context(), tierID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, avail)
}

// CreateReservation handles POST /v1/tiers/:id/reservations.  On
// success it returns 201 with the session token the buyer must present
// at purchase, plus the hold's expiry.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	tierID, ok := tierIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	var body struct {
		Quantity   int    `json:"quantity"`
		BuyerEmail string `json:"buyer_email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var buyerEmail *string
	if e := strings.TrimSpace(strings.ToLower(body.BuyerEmail)); e != "" {
		buyerEmail = &e
	}
	var buyerAddr *string
	if ip := c.RealIP(); ip != "" {
		buyerAddr = &ip
	}
	res, err := h.Reservations.Create(c.Request().Context(), tierID, body.Quantity, buyerEmail, buyerAddr)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_token": res.SessionToken,
		"tier_id":       res.TierID,
		"quantity":      res.Quantity,
		"expires_at":    res.ExpiresAt,
	})
}

// GetReservation handles GET /v1/tiers/:id/reservations/:token.  It
// reports the remaining hold; expired or unknown tokens come back 409
// so checkout UIs can send the buyer back to tier selection.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	tierID, ok := tierIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session token"})
	}
	res, err := h.Reservations.Get(c.Request().Context(), token, tierID)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tier_id":    res.TierID,
		"quantity":   res.Quantity,
		"expires_at": res.ExpiresAt,
	})
}
