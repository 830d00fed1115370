package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/evertly/boxoffice/internal/booking"
	"github.com/evertly/boxoffice/internal/repository"
)

// writeEngineError maps the engine's typed errors onto HTTP responses.
// Capacity and limit conflicts carry enough state (availability,
// remaining allowance) for the client to self-correct; anything
// unrecognized is a 500.
func writeEngineError(c echo.Context, err error) error {
	var (
		overLimit   *booking.OverPerOrderLimitError
		noCapacity  *booking.InsufficientCapacityError
		buyerCap    *booking.PerCustomerLimitError
		networkCap  *booking.PerNetworkLimitError
		payFailed   *booking.PaymentFailedError
		payRejected *booking.PaymentRejectedError
		commitFail  *booking.CommitFailedError
	)
	switch {
	case errors.Is(err, booking.ErrInvalidTier), errors.Is(err, repository.ErrTierNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tier not found or not on sale"})
	case errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, booking.ErrInvalidQuantity), errors.Is(err, booking.ErrBuyerEmailRequired),
		errors.Is(err, booking.ErrQuantityMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrReservationExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation expired or invalid"})
	case errors.Is(err, booking.ErrPaymentsNotEnabled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "organization cannot accept payments"})
	case errors.Is(err, booking.ErrAlreadyRefunded), errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrNotCancellable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrAmountNotPositive), errors.Is(err, booking.ErrAmountExceedsPaid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &overLimit):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":         "quantity exceeds per-order limit",
			"max_per_order": overLimit.Max,
		})
	case errors.As(err, &noCapacity):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "not enough tickets available",
			"available": noCapacity.Available,
		})
	case errors.As(err, &buyerCap):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "per-customer limit reached",
			"remaining": buyerCap.Remaining,
		})
	case errors.As(err, &networkCap):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "per-network limit reached",
			"remaining": networkCap.Remaining,
		})
	case errors.As(err, &payFailed):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": payFailed.Error()})
	case errors.As(err, &payRejected):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": payRejected.Error()})
	case errors.As(err, &commitFail):
		// Money moved without inventory.  The journal holds the charge
		// for reconciliation; make sure someone sees it.
		log.Printf("purchase: ALERT commit failed after charge %s settled: %v", commitFail.ChargeRef, commitFail.Err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":      "purchase could not be completed; support has been notified",
			"charge_ref": commitFail.ChargeRef,
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
