package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTimeout             = errors.New("store: operation timed out")
	ErrUnavailable         = errors.New("store: unavailable")
	ErrUniqueViolation     = errors.New("store: unique violation")
	ErrForeignKeyViolation = errors.New("store: foreign key violation")
)

// TxRunner runs fn as one atomic unit. Repositories called with the context
// handed to fn take part in the same transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewPostgres(pool *pgxpool.Pool, timeout time.Duration) *Postgres {
	return &Postgres{pool: pool, timeout: timeout}
}

func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// WithinTx begins a READ COMMITTED transaction, or joins the one already
// carried by ctx.
func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	ctx, cancel := p.Deadline(ctx)
	defer cancel()

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return Classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// Conn returns the transaction bound to ctx, falling back to the pool.
func (p *Postgres) Conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.pool
}

// Deadline bounds ctx by the configured query timeout.
func (p *Postgres) Deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Classify wraps err with one of the package sentinels when it recognises
// the failure. Unknown errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w (%s): %w", ErrUniqueViolation, pgErr.ConstraintName, err)
		case "23503":
			return fmt.Errorf("%w (%s): %w", ErrForeignKeyViolation, pgErr.ConstraintName, err)
		case "57014":
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		case "53300", "57P01", "57P02", "57P03":
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}
