package booking

import (
	"context"
	"sync"
	"testing"

	"github.com/evertly/boxoffice/internal/model"
)

// seedTicket inserts one valid ticket and returns it with its id set.
func seedTicket(t *testing.T, store *fakeStore, tierID uint64, code, email string) model.Ticket {
	t.Helper()
	tier := store.tiers[tierID]
	tickets := []model.Ticket{{
		TierID: tierID, EventID: tier.EventID, Code: code,
		BuyerEmail: email, BuyerName: "Holder", Status: model.TicketValid,
		AmountPaidCents: 1500,
	}}
	if err := store.InsertTickets(context.Background(), tickets); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return tickets[0]
}

func TestScanValidThenAlreadyUsed(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 1500, nil, nil)
	ticket := seedTicket(t, store, tierID, "code-1", "holder@example.com")
	redeemer := NewRedeemer(store, clk)
	ctx := context.Background()

	req := ScanRequest{Code: "code-1", ScanningOrgID: 1, RedeemerID: 42, Device: strPtr("gate-3")}
	result, err := redeemer.Scan(ctx, req)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Outcome != ScanValid {
		t.Fatalf("outcome = %q, want valid", result.Outcome)
	}
	if result.HolderEmail != "holder@example.com" || result.AmountPaidCents != 1500 {
		t.Fatalf("holder details = %+v", result)
	}
	if result.EventName != "Test Event" {
		t.Fatalf("EventName = %q", result.EventName)
	}

	stored, _ := store.TicketByID(ctx, ticket.ID)
	if stored.Status != model.TicketUsed {
		t.Fatalf("status = %q, want used", stored.Status)
	}
	if stored.RedeemedBy == nil || *stored.RedeemedBy != 42 {
		t.Fatalf("RedeemedBy = %v, want 42", stored.RedeemedBy)
	}
	if stored.RedeemedDevice == nil || *stored.RedeemedDevice != "gate-3" {
		t.Fatalf("RedeemedDevice = %v", stored.RedeemedDevice)
	}

	// Second presentation of the same code.
	result, err = redeemer.Scan(ctx, req)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if result.Outcome != ScanAlreadyUsed {
		t.Fatalf("outcome = %q, want already_used", result.Outcome)
	}
	if result.RedeemedAt == nil {
		t.Fatal("already_used must report when the ticket was consumed")
	}
}

func TestScanUnknownCode(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	store.seedTier(1, 10, 1500, nil, nil)
	redeemer := NewRedeemer(store, clk)

	result, err := redeemer.Scan(context.Background(), ScanRequest{Code: "nope", ScanningOrgID: 1, RedeemerID: 1})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Outcome != ScanInvalid {
		t.Fatalf("outcome = %q, want invalid", result.Outcome)
	}
}

func TestScanForeignOrgDoesNotLeak(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 1500, nil, nil)
	seedTicket(t, store, tierID, "code-1", "holder@example.com")
	redeemer := NewRedeemer(store, clk)

	result, err := redeemer.Scan(context.Background(), ScanRequest{Code: "code-1", ScanningOrgID: 2, RedeemerID: 1})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Outcome != ScanInvalid {
		t.Fatalf("outcome = %q, want invalid", result.Outcome)
	}
	if result.HolderName != "" || result.EventName != "" {
		t.Fatalf("foreign-org scan must not reveal ticket details: %+v", result)
	}
}

func TestScanWrongEvent(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 1500, nil, nil)
	ticket := seedTicket(t, store, tierID, "code-1", "holder@example.com")
	redeemer := NewRedeemer(store, clk)

	other := ticket.EventID + 100
	result, err := redeemer.Scan(context.Background(), ScanRequest{
		Code: "code-1", ScanningOrgID: 1, ExpectedEventID: uint64Ptr(other), RedeemerID: 1,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Outcome != ScanWrongEvent {
		t.Fatalf("outcome = %q, want wrong_event", result.Outcome)
	}
	if result.EventName != "Test Event" {
		t.Fatalf("EventName = %q, want the ticket's actual event", result.EventName)
	}

	// The ticket was not consumed by the wrong-event attempt.
	stored, _ := store.TicketByID(context.Background(), ticket.ID)
	if stored.Status != model.TicketValid {
		t.Fatalf("status = %q, want valid", stored.Status)
	}
}

func TestScanRefundedTicket(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 1500, nil, nil)
	ticket := seedTicket(t, store, tierID, "code-1", "holder@example.com")
	if _, err := store.MarkRefunded(context.Background(), ticket.ID); err != nil {
		t.Fatalf("MarkRefunded: %v", err)
	}
	redeemer := NewRedeemer(store, clk)

	result, err := redeemer.Scan(context.Background(), ScanRequest{Code: "code-1", ScanningOrgID: 1, RedeemerID: 1})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Outcome != ScanInvalid {
		t.Fatalf("outcome = %q, want invalid", result.Outcome)
	}
	if result.PriorStatus != model.TicketRefunded {
		t.Fatalf("PriorStatus = %q, want refunded", result.PriorStatus)
	}
}

func TestConcurrentDuplicateScans(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 1500, nil, nil)
	seedTicket(t, store, tierID, "code-1", "holder@example.com")
	redeemer := NewRedeemer(store, clk)

	const scanners = 8
	var wg sync.WaitGroup
	outcomes := make(chan ScanOutcome, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := redeemer.Scan(context.Background(), ScanRequest{Code: "code-1", ScanningOrgID: 1, RedeemerID: 1})
			if err != nil {
				t.Errorf("Scan: %v", err)
				return
			}
			outcomes <- result.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	valid, used := 0, 0
	for o := range outcomes {
		switch o {
		case ScanValid:
			valid++
		case ScanAlreadyUsed:
			used++
		default:
			t.Fatalf("unexpected outcome %q", o)
		}
	}
	if valid != 1 {
		t.Fatalf("valid outcomes = %d, want exactly 1", valid)
	}
	if used != scanners-1 {
		t.Fatalf("already_used outcomes = %d, want %d", used, scanners-1)
	}
}
