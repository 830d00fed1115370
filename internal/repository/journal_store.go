package repository

import (
	"context"
	"time"

	"github.com/evertly/boxoffice/internal/model"
)

// InsertChargeJournal writes the durable "charge succeeded, awaiting
// commit" marker.  The purchase coordinator calls this between the
// provider charge and the inventory transaction; a row stuck in pending
// means money moved without tickets, which the reconciler surfaces.
func (s *Store) InsertChargeJournal(ctx context.Context, j *model.ChargeJournal) error {
	const q = `INSERT INTO charge_journal (charge_ref, session_token, tier_id, quantity, amount_cents, state)
	           VALUES (?, ?, ?, ?, ?, 'pending')`
	result, err := s.q(ctx).ExecContext(ctx, q,
		j.ChargeRef, j.SessionToken, j.TierID, j.Quantity, j.AmountCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	j.ID = uint64(id)
	j.State = model.JournalPending
	return nil
}

// MarkJournalCommitted resolves a pending journal entry after the
// inventory transaction landed.
func (s *Store) MarkJournalCommitted(ctx context.Context, id uint64) error {
	const q = `UPDATE charge_journal
	           SET state = 'committed', resolved_at = UTC_TIMESTAMP()
	           WHERE id = ? AND state = 'pending'`
	_, err := s.q(ctx).ExecContext(ctx, q, id)
	return err
}

// OrphanStaleJournal flags pending entries created before the cutoff as
// orphaned and returns them so the reconciler can log each one for
// operator follow-up.  Run inside WithTx so the select and the update
// observe the same rows.
func (s *Store) OrphanStaleJournal(ctx context.Context, before time.Time) ([]model.ChargeJournal, error) {
	const sel = `SELECT id, charge_ref, session_token, tier_id, quantity, amount_cents, created_at
	             FROM charge_journal
	             WHERE state = 'pending' AND created_at < ?`
	rows, err := s.q(ctx).QueryContext(ctx, sel, before.UTC())
	if err != nil {
		return nil, err
	}
	var stale []model.ChargeJournal
	for rows.Next() {
		var j model.ChargeJournal
		if scanErr := rows.Scan(&j.ID, &j.ChargeRef, &j.SessionToken, &j.TierID, &j.Quantity, &j.AmountCents, &j.CreatedAt); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		j.State = model.JournalOrphaned
		stale = append(stale, j)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}
	const upd = `UPDATE charge_journal SET state = 'orphaned', resolved_at = UTC_TIMESTAMP()
	             WHERE state = 'pending' AND created_at < ?`
	if _, err := s.q(ctx).ExecContext(ctx, upd, before.UTC()); err != nil {
		return nil, err
	}
	return stale, nil
}
