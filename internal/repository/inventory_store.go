package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/evertly/boxoffice/internal/model"
)

// TierByID returns a tier by primary key.  It returns ErrTierNotFound
// when no such tier exists.
func (s *Store) TierByID(ctx context.Context, tierID uint64) (model.Tier, error) {
	const q = `SELECT id, event_id, name, price_cents, capacity, max_per_customer, is_active, created_at
	           FROM tiers WHERE id = ?`
	return s.scanTier(s.q(ctx).QueryRowContext(ctx, q, tierID))
}

// TierForUpdate returns a tier with its row locked for the remainder of
// the surrounding transaction.  Reservation creation takes this lock so
// that the availability check and the reservation insert behave as one
// atomic unit; two requests racing for the last unit serialize here.
// Callers must be inside WithTx or the lock is released immediately.
func (s *Store) TierForUpdate(ctx context.Context, tierID uint64) (model.Tier, error) {
	const q = `SELECT id, event_id, name, price_cents, capacity, max_per_customer, is_active, created_at
	           FROM tiers WHERE id = ? FOR UPDATE`
	return s.scanTier(s.q(ctx).QueryRowContext(ctx, q, tierID))
}

func (s *Store) scanTier(row *sql.Row) (model.Tier, error) {
	var t model.Tier
	var capacity, maxPer sql.NullInt64
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.PriceCents, &capacity, &maxPer, &t.Active, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tier{}, ErrTierNotFound
	}
	if err != nil {
		return model.Tier{}, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		t.Capacity = &c
	}
	if maxPer.Valid {
		m := int(maxPer.Int64)
		t.MaxPerCustomer = &m
	}
	return t, nil
}

// EventByID returns an event by primary key.  It returns
// ErrEventNotFound when no such event exists.
func (s *Store) EventByID(ctx context.Context, eventID uint64) (model.Event, error) {
	const q = `SELECT id, org_id, name, max_per_order, starts_at, created_at
	           FROM events WHERE id = ?`
	var e model.Event
	err := s.q(ctx).QueryRowContext(ctx, q, eventID).Scan(
		&e.ID, &e.OrgID, &e.Name, &e.MaxPerOrder, &e.StartsAt, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// CountSoldUnits counts tickets of a tier that still occupy capacity,
// i.e. every status except cancelled and refunded.
func (s *Store) CountSoldUnits(ctx context.Context, tierID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets
	           WHERE tier_id = ? AND status NOT IN ('cancelled', 'refunded')`
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, q, tierID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SumLiveReservedUnits sums the quantities of unexpired reservations
// for a tier.  The expiry predicate lives in SQL so that rows the
// sweeper has not collected yet never count toward capacity.
func (s *Store) SumLiveReservedUnits(ctx context.Context, tierID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0) FROM reservations
	           WHERE tier_id = ? AND expires_at > UTC_TIMESTAMP()`
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, q, tierID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// BuyerFinalizedUnits counts an email's finalized tickets across an
// event, excluding cancelled ones.  Used by the per-customer cap.
func (s *Store) BuyerFinalizedUnits(ctx context.Context, eventID uint64, email string) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets
	           WHERE event_id = ? AND buyer_email = ? AND status <> 'cancelled'`
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, q, eventID, email).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// BuyerReservedUnits sums an email's live reservation quantities across
// all tiers of an event.
func (s *Store) BuyerReservedUnits(ctx context.Context, eventID uint64, email string) (int, error) {
	const q = `SELECT COALESCE(SUM(r.quantity), 0)
	           FROM reservations r
	           JOIN tiers t ON t.id = r.tier_id
	           WHERE t.event_id = ? AND r.buyer_email = ? AND r.expires_at > UTC_TIMESTAMP()`
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, q, eventID, email).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AddrFinalizedUnits counts finalized tickets bought from a network
// address across an event, excluding cancelled ones.
func (s *Store) AddrFinalizedUnits(ctx context.Context, eventID uint64, addr string) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets
	           WHERE event_id = ? AND buyer_addr = ? AND status <> 'cancelled'`
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, q, eventID, addr).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AddrReservedUnits sums live reservation quantities placed from a
// network address across all tiers of an event.
func (s *Store) AddrReservedUnits(ctx context.Context, eventID uint64, addr string) (int, error) {
	const q = `SELECT COALESCE(SUM(r.quantity), 0)
	           FROM reservations r
	           JOIN tiers t ON t.id = r.tier_id
	           WHERE t.event_id = ? AND r.buyer_addr = ? AND r.expires_at > UTC_TIMESTAMP()`
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, q, eventID, addr).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertReservation persists a new hold and populates its generated ID.
func (s *Store) InsertReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (tier_id, quantity, session_token, buyer_email, buyer_addr, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := s.q(ctx).ExecContext(ctx, q,
		res.TierID, res.Quantity, res.SessionToken, res.BuyerEmail, res.BuyerAddr, res.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// ReservationByToken returns the live reservation matching the session
// token and tier.  Expired rows are treated as absent: the query itself
// applies the expiry predicate, so a hold past its TTL yields
// ErrReservationNotFound even though the row still exists.
func (s *Store) ReservationByToken(ctx context.Context, token string, tierID uint64) (model.Reservation, error) {
	const q = `SELECT id, tier_id, quantity, session_token, buyer_email, buyer_addr, expires_at, created_at
	           FROM reservations
	           WHERE session_token = ? AND tier_id = ? AND expires_at > UTC_TIMESTAMP()`
	var r model.Reservation
	var email, addr sql.NullString
	err := s.q(ctx).QueryRowContext(ctx, q, token, tierID).Scan(
		&r.ID, &r.TierID, &r.Quantity, &r.SessionToken, &email, &addr, &r.ExpiresAt, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrReservationNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	if email.Valid {
		v := email.String
		r.BuyerEmail = &v
	}
	if addr.Valid {
		v := addr.String
		r.BuyerAddr = &v
	}
	return r, nil
}

// DeleteReservation removes a hold by ID and reports whether a row was
// actually deleted.  The purchase transaction checks the result: a
// false return means another purchase consumed the hold first.
func (s *Store) DeleteReservation(ctx context.Context, id uint64) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpiredReservations removes holds that expired before the given
// cutoff and returns how many were deleted.  The sweeper passes a
// cutoff well behind now, so only rows already invisible to every live
// query are ever touched.
func (s *Store) DeleteExpiredReservations(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM reservations WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
