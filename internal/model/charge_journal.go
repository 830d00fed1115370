package model

import "time"

// JournalState enumerates the states of a charge journal entry.
type JournalState string

const (
	// JournalPending marks a charge that settled with the provider but
	// whose inventory transaction has not yet committed.
	JournalPending JournalState = "pending"
	// JournalCommitted marks a charge whose tickets were written.
	JournalCommitted JournalState = "committed"
	// JournalOrphaned marks a pending entry that outlived the
	// reconciliation threshold: money moved, no tickets exist, and an
	// operator has to step in.
	JournalOrphaned JournalState = "orphaned"
)

// ChargeJournal is the durable saga marker written between the external
// charge and the inventory commit.  If the commit never lands, the
// pending row is what the reconciler surfaces for manual repair; the
// core never auto-reverses a charge.
//
// Fields:
//  ID           – primary key identifier.
//  ChargeRef    – external payment charge reference.
//  SessionToken – reservation token the purchase consumed.
//  TierID       – tier purchased.
//  Quantity     – units purchased.
//  AmountCents  – amount charged in minor units.
//  State        – pending, committed or orphaned.
//  CreatedAt    – when the charge settled.
//  ResolvedAt   – when the entry left the pending state (nullable).
type ChargeJournal struct {
	ID           uint64       // charge_journal.id
	ChargeRef    string       // charge_journal.charge_ref
	SessionToken string       // charge_journal.session_token
	TierID       uint64       // charge_journal.tier_id
	Quantity     int          // charge_journal.quantity
	AmountCents  int64        // charge_journal.amount_cents
	State        JournalState // charge_journal.state
	CreatedAt    time.Time    // charge_journal.created_at
	ResolvedAt   *time.Time   // charge_journal.resolved_at (nullable)
}
