package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Store provides data access for the ticketing engine.  Methods either
// run against the pooled connection or, when the context carries a
// transaction opened by WithTx, against that transaction.  This lets
// the booking layer compose several store calls into one atomic unit
// (e.g. lock tier, count committed units, insert reservation) without
// threading *sql.Tx through every signature.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the provided database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// txKey is the context key under which WithTx stashes its transaction.
type txKey struct{}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction from ctx when present, otherwise the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// inTx reports whether ctx carries an open transaction.
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// WithTx runs fn inside a database transaction.  Every store call made
// with the context passed to fn participates in that transaction.  The
// transaction is committed when fn returns nil and rolled back
// otherwise.  Nested calls reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
