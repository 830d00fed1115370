package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evertly/boxoffice/internal/model"
	"github.com/evertly/boxoffice/internal/payment"
	"github.com/evertly/boxoffice/internal/repository"
)

// fakeClock is a settable clock for tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeTxKey struct{}

// fakeStore is an in-memory stand-in for repository.Store.  WithTx
// serializes callers on one mutex, which models the tier row lock: two
// concurrent check-and-reserve sequences never interleave.  On a
// transaction error all mutations since WithTx began are rolled back.
type fakeStore struct {
	mu    sync.Mutex
	clock *fakeClock

	tiers        map[uint64]model.Tier
	events       map[uint64]model.Event
	orgs         map[uint64]uint64 // event id -> org id convenience
	reservations map[uint64]model.Reservation
	tickets      map[uint64]model.Ticket
	journal      map[uint64]model.ChargeJournal
	customers    map[string]customerRow
	nextID       uint64

	// Failure hooks for the flows under test.
	insertTicketsErr error
	upsertErr        error
	journalInsertErr error
}

type customerRow struct {
	OrderCount int
	SpendCents int64
}

func newFakeStore(clk *fakeClock) *fakeStore {
	return &fakeStore{
		clock:        clk,
		tiers:        map[uint64]model.Tier{},
		events:       map[uint64]model.Event{},
		orgs:         map[uint64]uint64{},
		reservations: map[uint64]model.Reservation{},
		tickets:      map[uint64]model.Ticket{},
		journal:      map[uint64]model.ChargeJournal{},
		customers:    map[string]customerRow{},
	}
}

// seedTier registers an event and a tier under it and returns the tier id.
func (s *fakeStore) seedTier(orgID uint64, maxPerOrder int, price int64, capacity, maxPerCustomer *int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	eventID := s.nextID
	s.events[eventID] = model.Event{ID: eventID, OrgID: orgID, Name: "Test Event", MaxPerOrder: maxPerOrder}
	s.orgs[eventID] = orgID
	s.nextID++
	tierID := s.nextID
	s.tiers[tierID] = model.Tier{
		ID: tierID, EventID: eventID, Name: "GA",
		PriceCents: price, Capacity: capacity, MaxPerCustomer: maxPerCustomer, Active: true,
	}
	return tierID
}

func (s *fakeStore) setTierActive(tierID uint64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tiers[tierID]
	t.Active = active
	s.tiers[tierID] = t
}

// lock acquires the store mutex unless the context already holds the
// transaction, mirroring how the real store routes through *sql.Tx.
func (s *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	reservations map[uint64]model.Reservation
	tickets      map[uint64]model.Ticket
	journal      map[uint64]model.ChargeJournal
	customers    map[string]customerRow
	nextID       uint64
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		reservations: make(map[uint64]model.Reservation, len(s.reservations)),
		tickets:      make(map[uint64]model.Ticket, len(s.tickets)),
		journal:      make(map[uint64]model.ChargeJournal, len(s.journal)),
		customers:    make(map[string]customerRow, len(s.customers)),
		nextID:       s.nextID,
	}
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.tickets {
		snap.tickets[k] = v
	}
	for k, v := range s.journal {
		snap.journal[k] = v
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.reservations = snap.reservations
	s.tickets = snap.tickets
	s.journal = snap.journal
	s.customers = snap.customers
	s.nextID = snap.nextID
}

func (s *fakeStore) TierByID(ctx context.Context, tierID uint64) (model.Tier, error) {
	defer s.lock(ctx)()
	t, ok := s.tiers[tierID]
	if !ok {
		return model.Tier{}, repository.ErrTierNotFound
	}
	return t, nil
}

func (s *fakeStore) TierForUpdate(ctx context.Context, tierID uint64) (model.Tier, error) {
	return s.TierByID(ctx, tierID)
}

func (s *fakeStore) EventByID(ctx context.Context, eventID uint64) (model.Event, error) {
	defer s.lock(ctx)()
	e, ok := s.events[eventID]
	if !ok {
		return model.Event{}, repository.ErrEventNotFound
	}
	return e, nil
}

func (s *fakeStore) CountSoldUnits(ctx context.Context, tierID uint64) (int, error) {
	defer s.lock(ctx)()
	n := 0
	for _, t := range s.tickets {
		if t.TierID == tierID && t.Counts() {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) SumLiveReservedUnits(ctx context.Context, tierID uint64) (int, error) {
	defer s.lock(ctx)()
	now := s.clock.Now()
	n := 0
	for _, r := range s.reservations {
		if r.TierID == tierID && r.Live(now) {
			n += r.Quantity
		}
	}
	return n, nil
}

func (s *fakeStore) BuyerFinalizedUnits(ctx context.Context, eventID uint64, email string) (int, error) {
	defer s.lock(ctx)()
	n := 0
	for _, t := range s.tickets {
		if t.EventID == eventID && t.BuyerEmail == email && t.Status != model.TicketCancelled {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) BuyerReservedUnits(ctx context.Context, eventID uint64, email string) (int, error) {
	defer s.lock(ctx)()
	now := s.clock.Now()
	n := 0
	for _, r := range s.reservations {
		tier := s.tiers[r.TierID]
		if tier.EventID == eventID && r.BuyerEmail != nil && *r.BuyerEmail == email && r.Live(now) {
			n += r.Quantity
		}
	}
	return n, nil
}

func (s *fakeStore) AddrFinalizedUnits(ctx context.Context, eventID uint64, addr string) (int, error) {
	defer s.lock(ctx)()
	n := 0
	for _, t := range s.tickets {
		if t.EventID == eventID && t.BuyerAddr == addr && t.Status != model.TicketCancelled {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) AddrReservedUnits(ctx context.Context, eventID uint64, addr string) (int, error) {
	defer s.lock(ctx)()
	now := s.clock.Now()
	n := 0
	for _, r := range s.reservations {
		tier := s.tiers[r.TierID]
		if tier.EventID == eventID && r.BuyerAddr != nil && *r.BuyerAddr == addr && r.Live(now) {
			n += r.Quantity
		}
	}
	return n, nil
}

func (s *fakeStore) InsertReservation(ctx context.Context, res *model.Reservation) error {
	defer s.lock(ctx)()
	s.nextID++
	res.ID = s.nextID
	res.CreatedAt = s.clock.Now()
	s.reservations[res.ID] = *res
	return nil
}

func (s *fakeStore) ReservationByToken(ctx context.Context, token string, tierID uint64) (model.Reservation, error) {
	defer s.lock(ctx)()
	now := s.clock.Now()
	for _, r := range s.reservations {
		if r.SessionToken == token && r.TierID == tierID && r.Live(now) {
			return r, nil
		}
	}
	return model.Reservation{}, repository.ErrReservationNotFound
}

func (s *fakeStore) DeleteReservation(ctx context.Context, id uint64) (bool, error) {
	defer s.lock(ctx)()
	if _, ok := s.reservations[id]; !ok {
		return false, nil
	}
	delete(s.reservations, id)
	return true, nil
}

func (s *fakeStore) DeleteExpiredReservations(ctx context.Context, before time.Time) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, r := range s.reservations {
		if r.ExpiresAt.Before(before) {
			delete(s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) InsertTickets(ctx context.Context, tickets []model.Ticket) error {
	defer s.lock(ctx)()
	if s.insertTicketsErr != nil {
		return s.insertTicketsErr
	}
	for i := range tickets {
		s.nextID++
		tickets[i].ID = s.nextID
		tickets[i].CreatedAt = s.clock.Now()
		s.tickets[tickets[i].ID] = tickets[i]
	}
	return nil
}

func (s *fakeStore) TicketByID(ctx context.Context, id uint64) (model.Ticket, error) {
	defer s.lock(ctx)()
	t, ok := s.tickets[id]
	if !ok {
		return model.Ticket{}, repository.ErrTicketNotFound
	}
	return t, nil
}

func (s *fakeStore) TicketByCode(ctx context.Context, code string) (model.Ticket, uint64, string, error) {
	defer s.lock(ctx)()
	for _, t := range s.tickets {
		if t.Code == code {
			event := s.events[t.EventID]
			return t, event.OrgID, event.Name, nil
		}
	}
	return model.Ticket{}, 0, "", repository.ErrTicketNotFound
}

func (s *fakeStore) MarkRedeemed(ctx context.Context, id uint64, redeemedBy uint64, device *string, at time.Time) (bool, error) {
	defer s.lock(ctx)()
	t, ok := s.tickets[id]
	if !ok || t.Status != model.TicketValid {
		return false, nil
	}
	t.Status = model.TicketUsed
	t.RedeemedAt = &at
	t.RedeemedBy = &redeemedBy
	t.RedeemedDevice = device
	s.tickets[id] = t
	return true, nil
}

func (s *fakeStore) MarkRefunded(ctx context.Context, id uint64) (bool, error) {
	defer s.lock(ctx)()
	t, ok := s.tickets[id]
	if !ok || (t.Status != model.TicketValid && t.Status != model.TicketUsed) {
		return false, nil
	}
	t.Status = model.TicketRefunded
	s.tickets[id] = t
	return true, nil
}

func (s *fakeStore) MarkCancelled(ctx context.Context, id uint64) (bool, error) {
	defer s.lock(ctx)()
	t, ok := s.tickets[id]
	if !ok || t.Status != model.TicketValid {
		return false, nil
	}
	t.Status = model.TicketCancelled
	s.tickets[id] = t
	return true, nil
}

func customerKey(orgID, eventID uint64, email string) string {
	return fmt.Sprintf("%d/%d/%s", orgID, eventID, email)
}

func (s *fakeStore) UpsertCustomer(ctx context.Context, orgID, eventID uint64, email, name string, spendCents int64) error {
	defer s.lock(ctx)()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	key := customerKey(orgID, eventID, email)
	row := s.customers[key]
	row.OrderCount++
	row.SpendCents += spendCents
	s.customers[key] = row
	return nil
}

func (s *fakeStore) ReduceCustomerSpend(ctx context.Context, orgID, eventID uint64, email string, amountCents int64) error {
	defer s.lock(ctx)()
	key := customerKey(orgID, eventID, email)
	row := s.customers[key]
	row.SpendCents -= amountCents
	if row.SpendCents < 0 {
		row.SpendCents = 0
	}
	s.customers[key] = row
	return nil
}

func (s *fakeStore) InsertChargeJournal(ctx context.Context, j *model.ChargeJournal) error {
	defer s.lock(ctx)()
	if s.journalInsertErr != nil {
		return s.journalInsertErr
	}
	s.nextID++
	j.ID = s.nextID
	j.State = model.JournalPending
	j.CreatedAt = s.clock.Now()
	s.journal[j.ID] = *j
	return nil
}

func (s *fakeStore) MarkJournalCommitted(ctx context.Context, id uint64) error {
	defer s.lock(ctx)()
	j, ok := s.journal[id]
	if ok && j.State == model.JournalPending {
		j.State = model.JournalCommitted
		s.journal[id] = j
	}
	return nil
}

func (s *fakeStore) OrphanStaleJournal(ctx context.Context, before time.Time) ([]model.ChargeJournal, error) {
	defer s.lock(ctx)()
	var stale []model.ChargeJournal
	for id, j := range s.journal {
		if j.State == model.JournalPending && j.CreatedAt.Before(before) {
			j.State = model.JournalOrphaned
			s.journal[id] = j
			stale = append(stale, j)
		}
	}
	return stale, nil
}

// fakeProvider is a scriptable payment.Provider.
type fakeProvider struct {
	mu           sync.Mutex
	chargeStatus payment.ChargeStatus
	chargeErr    error
	refundErr    error
	charges      []payment.ChargeRequest
	refunds      []payment.RefundRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{chargeStatus: payment.ChargeSucceeded}
}

func (p *fakeProvider) CloneMethod(_ context.Context, methodRef, _ string) (string, error) {
	return "cloned_" + methodRef, nil
}

func (p *fakeProvider) Charge(_ context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chargeErr != nil {
		return payment.ChargeResult{}, p.chargeErr
	}
	p.charges = append(p.charges, req)
	return payment.ChargeResult{Status: p.chargeStatus, ChargeRef: fmt.Sprintf("ch_%d", len(p.charges))}, nil
}

func (p *fakeProvider) Refund(_ context.Context, req payment.RefundRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return "", p.refundErr
	}
	p.refunds = append(p.refunds, req)
	return fmt.Sprintf("re_%d", len(p.refunds)), nil
}

func (p *fakeProvider) chargeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.charges)
}

// fakeAccounts resolves every org to one scripted account.
type fakeAccounts struct {
	account payment.Account
	err     error
}

func (a *fakeAccounts) ConnectedAccount(context.Context, uint64) (payment.Account, error) {
	if a.err != nil {
		return payment.Account{}, a.err
	}
	return a.account, nil
}

// fakePlans resolves every org to one plan.
type fakePlans struct{ plan string }

func (p *fakePlans) Plan(context.Context, uint64) (string, error) { return p.plan, nil }

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func int64Ptr(v int64) *int64    { return &v }
func uint64Ptr(v uint64) *uint64 { return &v }
