package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/evertly/boxoffice/internal/model"
)

// InsertTickets bulk-inserts finalized tickets in a single statement.
// Each ticket must carry its redemption code, status, amounts and buyer
// identity.  Passing an empty slice has no effect and returns nil.
func (s *Store) InsertTickets(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets
	          (tier_id, event_id, code, buyer_email, buyer_name, buyer_addr, status,
	           amount_paid_cents, platform_fee_cents, charge_ref) VALUES `
	args := make([]any, 0, len(tickets)*10)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, t.TierID, t.EventID, t.Code, t.BuyerEmail, t.BuyerName, t.BuyerAddr,
			string(t.Status), t.AmountPaidCents, t.PlatformFeeCents, t.ChargeRef)
	}
	_, err := s.q(ctx).ExecContext(ctx, query, args...)
	return err
}

// ticketColumns is the shared select list for ticket scans.
const ticketColumns = `id, tier_id, event_id, code, buyer_email, buyer_name, buyer_addr, status,
	amount_paid_cents, platform_fee_cents, charge_ref, redeemed_at, redeemed_by, redeemed_device,
	created_at, updated_at`

func scanTicket(row *sql.Row, t *model.Ticket) error {
	var chargeRef, device sql.NullString
	var redeemedAt sql.NullTime
	var redeemedBy sql.NullInt64
	var status string
	err := row.Scan(&t.ID, &t.TierID, &t.EventID, &t.Code, &t.BuyerEmail, &t.BuyerName, &t.BuyerAddr,
		&status, &t.AmountPaidCents, &t.PlatformFeeCents, &chargeRef, &redeemedAt, &redeemedBy,
		&device, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}
	t.Status = model.TicketStatus(status)
	if chargeRef.Valid {
		v := chargeRef.String
		t.ChargeRef = &v
	}
	if redeemedAt.Valid {
		v := redeemedAt.Time
		t.RedeemedAt = &v
	}
	if redeemedBy.Valid {
		v := uint64(redeemedBy.Int64)
		t.RedeemedBy = &v
	}
	if device.Valid {
		v := device.String
		t.RedeemedDevice = &v
	}
	return nil
}

// TicketByID returns a ticket by primary key, or ErrTicketNotFound.
func (s *Store) TicketByID(ctx context.Context, id uint64) (model.Ticket, error) {
	var t model.Ticket
	err := scanTicket(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id), &t)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, err
	}
	return t, nil
}

// TicketByCode returns a ticket by its redemption code along with the
// owning organization and event name, which the scan flow needs to
// scope the lookup and to report wrong-event scans.  Returns
// ErrTicketNotFound for unknown codes.
func (s *Store) TicketByCode(ctx context.Context, code string) (model.Ticket, uint64, string, error) {
	const q = `SELECT tk.id, tk.tier_id, tk.event_id, tk.code, tk.buyer_email, tk.buyer_name,
	                  tk.buyer_addr, tk.status, tk.amount_paid_cents, tk.platform_fee_cents,
	                  tk.charge_ref, tk.redeemed_at, tk.redeemed_by, tk.redeemed_device,
	                  tk.created_at, tk.updated_at, e.org_id, e.name
	           FROM tickets tk
	           JOIN events e ON e.id = tk.event_id
	           WHERE tk.code = ?`
	var t model.Ticket
	var chargeRef, device sql.NullString
	var redeemedAt sql.NullTime
	var redeemedBy sql.NullInt64
	var status string
	var orgID uint64
	var eventName string
	err := s.q(ctx).QueryRowContext(ctx, q, code).Scan(
		&t.ID, &t.TierID, &t.EventID, &t.Code, &t.BuyerEmail, &t.BuyerName, &t.BuyerAddr,
		&status, &t.AmountPaidCents, &t.PlatformFeeCents, &chargeRef, &redeemedAt, &redeemedBy,
		&device, &t.CreatedAt, &t.UpdatedAt, &orgID, &eventName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, 0, "", ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, 0, "", err
	}
	t.Status = model.TicketStatus(status)
	if chargeRef.Valid {
		v := chargeRef.String
		t.ChargeRef = &v
	}
	if redeemedAt.Valid {
		v := redeemedAt.Time
		t.RedeemedAt = &v
	}
	if redeemedBy.Valid {
		v := uint64(redeemedBy.Int64)
		t.RedeemedBy = &v
	}
	if device.Valid {
		v := device.String
		t.RedeemedDevice = &v
	}
	return t, orgID, eventName, nil
}

// MarkRedeemed flips a ticket from valid to used, stamping redemption
// time, redeemer and device in the same statement.  The status guard in
// the WHERE clause makes the transition safe under concurrent duplicate
// scans: exactly one update wins, the loser sees false and re-reads.
func (s *Store) MarkRedeemed(ctx context.Context, id uint64, redeemedBy uint64, device *string, at time.Time) (bool, error) {
	const q = `UPDATE tickets
	           SET status = 'used', redeemed_at = ?, redeemed_by = ?, redeemed_device = ?,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = 'valid'`
	result, err := s.q(ctx).ExecContext(ctx, q, at.UTC(), redeemedBy, device, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkRefunded transitions a valid or used ticket to refunded.  It
// reports false when the ticket was already in a terminal state.
func (s *Store) MarkRefunded(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE tickets SET status = 'refunded', updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status IN ('valid', 'used')`
	result, err := s.q(ctx).ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCancelled transitions a valid ticket to cancelled.  Used and
// terminal tickets are left untouched and reported as false.
func (s *Store) MarkCancelled(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE tickets SET status = 'cancelled', updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = 'valid'`
	result, err := s.q(ctx).ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertCustomer records a completed purchase against the buyer
// relationship keyed by (org, event, email): first purchase inserts the
// row, subsequent ones bump the order count and lifetime spend.
func (s *Store) UpsertCustomer(ctx context.Context, orgID, eventID uint64, email, name string, spendCents int64) error {
	const q = `INSERT INTO customers (org_id, event_id, email, name, order_count, lifetime_spend_cents)
	           VALUES (?, ?, ?, ?, 1, ?)
	           ON DUPLICATE KEY UPDATE
	             name = VALUES(name),
	             order_count = order_count + 1,
	             lifetime_spend_cents = lifetime_spend_cents + VALUES(lifetime_spend_cents)`
	_, err := s.q(ctx).ExecContext(ctx, q, orgID, eventID, email, name, spendCents)
	return err
}

// ReduceCustomerSpend subtracts a refunded amount from the buyer's
// lifetime spend, floored at zero.  Missing rows are a no-op: the
// relationship may predate the customers table.
func (s *Store) ReduceCustomerSpend(ctx context.Context, orgID, eventID uint64, email string, amountCents int64) error {
	const q = `UPDATE customers
	           SET lifetime_spend_cents = GREATEST(0, lifetime_spend_cents - ?)
	           WHERE org_id = ? AND event_id = ? AND email = ?`
	_, err := s.q(ctx).ExecContext(ctx, q, amountCents, orgID, eventID, email)
	return err
}
