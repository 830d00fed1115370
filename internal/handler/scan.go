package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evertly/boxoffice/internal/booking"
	"github.com/evertly/boxoffice/internal/middleware"
	"github.com/evertly/boxoffice/internal/notify"
	"github.com/evertly/boxoffice/internal/queue"
)

// ScanHandler serves POST /v1/scan for door staff.  The scanning
// organization and staff identity come from the verified JWT, never
// from the request body.
type ScanHandler struct {
	Redeemer *booking.Redeemer
}

// NewScanHandler constructs a ScanHandler.
func NewScanHandler(redeemer *booking.Redeemer) *ScanHandler {
	if redeemer == nil {
		panic("nil redeemer passed to NewScanHandler")
	}
	return &ScanHandler{Redeemer: redeemer}
}

// Scan handles POST /v1/scan.  Every recognized outcome is a 200; the
// outcome field tells the door UI what to display.  Only transport and
// database failures surface as errors.
func (h *ScanHandler) Scan(c echo.Context) error {
	staffID, ok := middleware.StaffID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orgID, ok := middleware.OrgID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Code            string  `json:"code"`
		ExpectedEventID *uint64 `json:"expected_event_id"`
		Device          string  `json:"device"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	req := booking.ScanRequest{
		Code:            code,
		ScanningOrgID:   orgID,
		ExpectedEventID: body.ExpectedEventID,
		RedeemerID:      staffID,
	}
	if d := strings.TrimSpace(body.Device); d != "" {
		req.Device = &d
	}
	result, err := h.Redeemer.Scan(c.Request().Context(), req)
	if err != nil {
		return writeEngineError(c, err)
	}

	go publishScanned(code, string(result.Outcome), orgID, staffID)

	return c.JSON(http.StatusOK, result)
}

// publishScanned fires the ticket.scanned notification, best effort.
func publishScanned(code, outcome string, orgID, staffID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	evt := queue.TicketScannedEvent{
		Code:      code,
		Outcome:   outcome,
		OrgID:     orgID,
		StaffID:   staffID,
		ScannedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := notify.Publish(ctx, queue.TicketScannedQueue, evt); err != nil {
		log.Printf("scan: publish %s failed: %v", queue.TicketScannedQueue, err)
	}
}
