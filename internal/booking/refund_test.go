package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/evertly/boxoffice/internal/model"
	"github.com/evertly/boxoffice/internal/payment"
)

// refundFixture seeds one paid, valid ticket and a customer row with
// matching lifetime spend.
type refundFixture struct {
	store    *fakeStore
	provider *fakeProvider
	mgr      *RefundManager
	ticket   model.Ticket
	eventID  uint64
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 2000, nil, nil)
	eventID := store.tiers[tierID].EventID

	chargeRef := "ch_1"
	tickets := []model.Ticket{{
		TierID: tierID, EventID: eventID, Code: "code-1",
		BuyerEmail: "buyer@example.com", BuyerName: "Buyer",
		Status: model.TicketValid, AmountPaidCents: 2000, ChargeRef: &chargeRef,
	}}
	if err := store.InsertTickets(context.Background(), tickets); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	if err := store.UpsertCustomer(context.Background(), 1, eventID, "buyer@example.com", "Buyer", 2000); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	provider := newFakeProvider()
	accounts := &fakeAccounts{account: payment.Account{ID: "acct_1", ChargesEnabled: true}}
	return &refundFixture{
		store: store, provider: provider,
		mgr:    NewRefundManager(store, provider, accounts),
		ticket: tickets[0], eventID: eventID,
	}
}

func TestFullRefund(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	result, err := f.mgr.Refund(ctx, f.ticket.ID, nil, "event cancelled")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if !result.FullRefund || result.RefundAmountCents != 2000 {
		t.Fatalf("result = %+v, want full 2000", result)
	}
	if result.RefundRef == "" {
		t.Fatal("expected a provider refund ref")
	}

	stored, _ := f.store.TicketByID(ctx, f.ticket.ID)
	if stored.Status != model.TicketRefunded {
		t.Fatalf("status = %q, want refunded", stored.Status)
	}
	row := f.store.customers[customerKey(1, f.eventID, "buyer@example.com")]
	if row.SpendCents != 0 {
		t.Fatalf("lifetime spend = %d, want 0 after full refund", row.SpendCents)
	}

	if len(f.provider.refunds) != 1 || f.provider.refunds[0].AmountCents != 2000 {
		t.Fatalf("provider refunds = %+v", f.provider.refunds)
	}

	// Terminal: a second refund is rejected.
	if _, err := f.mgr.Refund(ctx, f.ticket.ID, nil, ""); !errors.Is(err, ErrAlreadyRefunded) {
		t.Fatalf("second refund: got %v", err)
	}
}

func TestPartialRefundLeavesTicketUsable(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	result, err := f.mgr.Refund(ctx, f.ticket.ID, int64Ptr(500), "goodwill")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if result.FullRefund || result.RefundAmountCents != 500 {
		t.Fatalf("result = %+v, want partial 500", result)
	}

	stored, _ := f.store.TicketByID(ctx, f.ticket.ID)
	if stored.Status != model.TicketValid {
		t.Fatalf("status = %q, want valid after partial refund", stored.Status)
	}
	// Lifetime spend is only adjusted on full refunds.
	row := f.store.customers[customerKey(1, f.eventID, "buyer@example.com")]
	if row.SpendCents != 2000 {
		t.Fatalf("lifetime spend = %d, want 2000", row.SpendCents)
	}
}

func TestRefundAmountBounds(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Refund(ctx, f.ticket.ID, int64Ptr(0), ""); !errors.Is(err, ErrAmountNotPositive) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := f.mgr.Refund(ctx, f.ticket.ID, int64Ptr(-100), ""); !errors.Is(err, ErrAmountNotPositive) {
		t.Fatalf("negative amount: got %v", err)
	}
	if _, err := f.mgr.Refund(ctx, f.ticket.ID, int64Ptr(2001), ""); !errors.Is(err, ErrAmountExceedsPaid) {
		t.Fatalf("excessive amount: got %v", err)
	}
	if len(f.provider.refunds) != 0 {
		t.Fatal("provider must not be called for rejected amounts")
	}
}

func TestRefundProviderRejection(t *testing.T) {
	f := newRefundFixture(t)
	f.provider.refundErr = errors.New("charge disputed")

	_, err := f.mgr.Refund(context.Background(), f.ticket.ID, nil, "")
	var rejected *PaymentRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("got %v, want PaymentRejectedError", err)
	}
	// Nothing changed: the ticket stays valid and the spend untouched.
	stored, _ := f.store.TicketByID(context.Background(), f.ticket.ID)
	if stored.Status != model.TicketValid {
		t.Fatalf("status = %q, want valid", stored.Status)
	}
}

func TestRefundUsedTicketAllowed(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()
	if _, err := f.store.MarkRedeemed(ctx, f.ticket.ID, 1, nil, f.store.clock.Now()); err != nil {
		t.Fatalf("MarkRedeemed: %v", err)
	}

	result, err := f.mgr.Refund(ctx, f.ticket.ID, nil, "show stopped early")
	if err != nil {
		t.Fatalf("Refund of used ticket: %v", err)
	}
	if !result.FullRefund {
		t.Fatalf("result = %+v, want full refund", result)
	}
	stored, _ := f.store.TicketByID(ctx, f.ticket.ID)
	if stored.Status != model.TicketRefunded {
		t.Fatalf("status = %q, want refunded", stored.Status)
	}
}

func TestCancelValidTicket(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()

	if err := f.mgr.Cancel(ctx, f.ticket.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	stored, _ := f.store.TicketByID(ctx, f.ticket.ID)
	if stored.Status != model.TicketCancelled {
		t.Fatalf("status = %q, want cancelled", stored.Status)
	}
	// No money moves on cancellation.
	if len(f.provider.refunds) != 0 {
		t.Fatal("cancel must not call the provider")
	}

	if err := f.mgr.Cancel(ctx, f.ticket.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: got %v", err)
	}
}

func TestCancelUsedTicketRejected(t *testing.T) {
	f := newRefundFixture(t)
	ctx := context.Background()
	if _, err := f.store.MarkRedeemed(ctx, f.ticket.ID, 1, nil, f.store.clock.Now()); err != nil {
		t.Fatalf("MarkRedeemed: %v", err)
	}

	if err := f.mgr.Cancel(ctx, f.ticket.ID); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("cancel used: got %v", err)
	}
}

func TestCancelledTicketReleasesCapacity(t *testing.T) {
	clk := newFakeClock()
	store := newFakeStore(clk)
	tierID := store.seedTier(1, 10, 1000, intPtr(1), nil)
	eventID := store.tiers[tierID].EventID
	tickets := []model.Ticket{{
		TierID: tierID, EventID: eventID, Code: "code-1",
		BuyerEmail: "buyer@example.com", Status: model.TicketValid, AmountPaidCents: 1000,
	}}
	if err := store.InsertTickets(context.Background(), tickets); err != nil {
		t.Fatalf("seed: %v", err)
	}
	provider := newFakeProvider()
	accounts := &fakeAccounts{account: payment.Account{ID: "acct_1", ChargesEnabled: true}}
	mgr := NewRefundManager(store, provider, accounts)
	resMgr := NewReservationManager(store, nil, clk)
	ctx := context.Background()

	// Sold out: the single unit is taken.
	if _, err := resMgr.Create(ctx, tierID, 1, nil, nil); err == nil {
		t.Fatal("expected capacity rejection while the ticket counts")
	}
	if err := mgr.Cancel(ctx, tickets[0].ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := resMgr.Create(ctx, tierID, 1, nil, nil); err != nil {
		t.Fatalf("hold after cancel: %v", err)
	}
}
