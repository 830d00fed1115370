package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/evertly/boxoffice/internal/payment"
)

// ConnectedAccount resolves an organization's connected payment account
// from the organizations table, implementing payment.AccountLookup.  An
// organization without an account ID yields payment.ErrNoAccount so the
// purchase flow can reject paid checkouts with PaymentsNotEnabled.
func (s *Store) ConnectedAccount(ctx context.Context, orgID uint64) (payment.Account, error) {
	const q = `SELECT payment_account_id, charges_enabled FROM organizations WHERE id = ?`
	var accountID sql.NullString
	var enabled bool
	err := s.q(ctx).QueryRowContext(ctx, q, orgID).Scan(&accountID, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Account{}, ErrOrgNotFound
	}
	if err != nil {
		return payment.Account{}, err
	}
	if !accountID.Valid || accountID.String == "" {
		return payment.Account{}, payment.ErrNoAccount
	}
	return payment.Account{ID: accountID.String, ChargesEnabled: enabled}, nil
}

// Plan returns the organization's subscription plan name, implementing
// payment.PlanLookup.  The plan only selects the platform fee schedule.
func (s *Store) Plan(ctx context.Context, orgID uint64) (string, error) {
	const q = `SELECT plan FROM organizations WHERE id = ?`
	var plan string
	err := s.q(ctx).QueryRowContext(ctx, q, orgID).Scan(&plan)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOrgNotFound
	}
	if err != nil {
		return "", err
	}
	return plan, nil
}
