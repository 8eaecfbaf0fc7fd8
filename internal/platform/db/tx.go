package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBTxKey carries an open transaction through a request context so that
// repositories participate in it instead of hitting the pool directly.
const DBTxKey contextKey = "db_tx"

// DefaultTxTimeout bounds a single store transaction. Multi-entity mutations
// must surface failure rather than hang on a stuck connection.
const DefaultTxTimeout = 5 * time.Second

// UniqueViolation is the PostgreSQL error code for unique constraint failures.
const UniqueViolation = "23505"

// TxFromContext retrieves the transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ContextWithTx returns a child context carrying the transaction.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// TxRunner runs a function inside a single store transaction, or inside a
// savepoint on an already-open one. The ledger and encounter services depend
// on this interface so tests can substitute an in-memory runner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolTxRunner is the pgx-backed TxRunner. Every multi-entity mutation in the
// system goes through here: the callback sees a context carrying the open
// transaction, repositories pick it up via TxFromContext, and the whole unit
// commits or rolls back together.
type PoolTxRunner struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTxRunner creates a PoolTxRunner with the default timeout.
func NewTxRunner(pool *pgxpool.Pool) *PoolTxRunner {
	return &PoolTxRunner{pool: pool, timeout: DefaultTxTimeout}
}

// RunInTx begins a transaction, invokes fn with a transaction-carrying
// context, and commits on success. Any error from fn rolls back everything.
// If a transaction is already open in ctx, fn joins it instead of nesting.
func (r *PoolTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunInSavepoint scopes fn to a savepoint on the transaction carried by ctx.
// PostgreSQL aborts the whole transaction on the first failed statement, so a
// retry loop such as the ledger's invoice-number re-roll must roll back to a
// savepoint before issuing the next attempt. Without an open transaction in
// ctx, fn gets a transaction of its own.
func (r *PoolTxRunner) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return r.RunInTx(ctx, fn)
	}

	// pgx turns a nested Begin into SAVEPOINT / RELEASE / ROLLBACK TO.
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(ContextWithTx(ctx, sp)); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation. Used by the ledger to re-roll invoice numbers and payment
// references on collision.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation
}
