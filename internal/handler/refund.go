package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evertly/boxoffice/internal/booking"
	"github.com/evertly/boxoffice/internal/notify"
	"github.com/evertly/boxoffice/internal/queue"
)

// RefundHandler serves the staff refund and cancellation endpoints.
type RefundHandler struct {
	Refunds *booking.RefundManager
}

// NewRefundHandler constructs a RefundHandler.
func NewRefundHandler(refunds *booking.RefundManager) *RefundHandler {
	if refunds == nil {
		panic("nil refund manager passed to NewRefundHandler")
	}
	return &RefundHandler{Refunds: refunds}
}

// ticketIDParam parses the :id path parameter on ticket routes.
func ticketIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Refund handles POST /v1/tickets/:id/refund.  An absent or null
// amount_cents means a full refund; an explicit amount must be positive
// and no more than what was paid.  Only a full refund releases the
// ticket's capacity.
func (h *RefundHandler) Refund(c echo.Context) error {
	ticketID, ok := ticketIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var body struct {
		AmountCents *int64 `json:"amount_cents"`
		Reason      string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	result, err := h.Refunds.Refund(c.Request().Context(), ticketID, body.AmountCents, body.Reason)
	if err != nil {
		return writeEngineError(c, err)
	}

	go publishRefunded(queue.TicketRefundedEvent{
		TicketID:    ticketID,
		AmountCents: result.RefundAmountCents,
		FullRefund:  result.FullRefund,
		Reason:      body.Reason,
		RefundedAt:  time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"refund_amount_cents": result.RefundAmountCents,
		"full_refund":         result.FullRefund,
		"refund_ref":          result.RefundRef,
	})
}

// Cancel handles POST /v1/tickets/:id/cancel.  Cancellation is an
// administrative void of an unredeemed ticket; no money moves.
func (h *RefundHandler) Cancel(c echo.Context) error {
	ticketID, ok := ticketIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	if err := h.Refunds.Cancel(c.Request().Context(), ticketID); err != nil {
		return writeEngineError(c, err)
	}

	go publishRefunded(queue.TicketRefundedEvent{
		TicketID:   ticketID,
		Cancelled:  true,
		RefundedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"cancelled": true})
}

// publishRefunded fires the ticket.refunded notification, best effort.
func publishRefunded(evt queue.TicketRefundedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := notify.Publish(ctx, queue.TicketRefundedQueue, evt); err != nil {
		log.Printf("refund: publish %s failed: %v", queue.TicketRefundedQueue, err)
	}
}
