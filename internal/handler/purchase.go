package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evertly/boxoffice/internal/booking"
	"github.com/evertly/boxoffice/internal/notify"
	"github.com/evertly/boxoffice/internal/queue"
)

// PurchaseHandler serves POST /v1/tiers/:id/purchase, the endpoint that
// converts a live reservation into tickets.
type PurchaseHandler struct {
	Purchases *booking.PurchaseCoordinator
}

// NewPurchaseHandler constructs a PurchaseHandler.
func NewPurchaseHandler(purchases *booking.PurchaseCoordinator) *PurchaseHandler {
	if purchases == nil {
		panic("nil coordinator passed to NewPurchaseHandler")
	}
	return &PurchaseHandler{Purchases: purchases}
}

// ticketResponse is the wire shape of a freshly sold ticket.  The
// redemption code is included exactly once, here; scan responses never
// echo it back.
type ticketResponse struct {
	ID               uint64 `json:"id"`
	Code             string `json:"code"`
	TierID           uint64 `json:"tier_id"`
	EventID          uint64 `json:"event_id"`
	AmountPaidCents  int64  `json:"amount_paid_cents"`
	PlatformFeeCents int64  `json:"platform_fee_cents"`
}

// Purchase handles POST /v1/tiers/:id/purchase.  The session token
// proves the buyer holds a live reservation for this tier; quantity is
// re-submitted and must match the hold.
func (h *PurchaseHandler) Purchase(c echo.Context) error {
	tierID, ok := tierIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	var body struct {
		SessionToken     string `json:"session_token"`
		Quantity         int    `json:"quantity"`
		BuyerEmail       string `json:"buyer_email"`
		BuyerName        string `json:"buyer_name"`
		PaymentMethodRef string `json:"payment_method_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SessionToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_token is required"})
	}
	in := booking.PurchaseInput{
		SessionToken:     body.SessionToken,
		TierID:           tierID,
		Quantity:         body.Quantity,
		BuyerEmail:       strings.TrimSpace(strings.ToLower(body.BuyerEmail)),
		BuyerName:        strings.TrimSpace(body.BuyerName),
		BuyerAddr:        c.RealIP(),
		PaymentMethodRef: body.PaymentMethodRef,
	}
	result, err := h.Purchases.Purchase(c.Request().Context(), in)
	if err != nil {
		return writeEngineError(c, err)
	}

	publishPurchased(result)

	tickets := make([]ticketResponse, 0, len(result.Tickets))
	for _, t := range result.Tickets {
		tickets = append(tickets, ticketResponse{
			ID:               t.ID,
			Code:             t.Code,
			TierID:           t.TierID,
			EventID:          t.EventID,
			AmountPaidCents:  t.AmountPaidCents,
			PlatformFeeCents: t.PlatformFeeCents,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"tickets":     tickets,
		"total_cents": result.TotalCents,
		"fee_cents":   result.FeeCents,
		"charge_ref":  result.ChargeRef,
	})
}

// publishPurchased fires the ticket.purchased notification.  Publishing
// is best effort and never blocks or fails the purchase response.
func publishPurchased(result booking.PurchaseResult) {
	if len(result.Tickets) == 0 {
		return
	}
	first := result.Tickets[0]
	codes := make([]string, 0, len(result.Tickets))
	for _, t := range result.Tickets {
		codes = append(codes, t.Code)
	}
	evt := queue.TicketPurchasedEvent{
		EventID:     first.EventID,
		TierID:      first.TierID,
		BuyerEmail:  first.BuyerEmail,
		BuyerName:   first.BuyerName,
		Quantity:    len(result.Tickets),
		TotalCents:  result.TotalCents,
		FeeCents:    result.FeeCents,
		ChargeRef:   result.ChargeRef,
		TicketCodes: codes,
		PurchasedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func(evt queue.TicketPurchasedEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := notify.Publish(ctx, queue.TicketPurchasedQueue, evt); err != nil {
			log.Printf("purchase: publish %s failed: %v", queue.TicketPurchasedQueue, err)
		}
	}(evt)
}
