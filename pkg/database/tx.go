package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TxFunc is executed inside a transaction. Repository calls made with exec share the transaction.
type TxFunc func(ctx context.Context, exec sqlx.ExtContext) error

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Transactor runs units of work in a single READ COMMITTED transaction bounded by a timeout.
type Transactor struct {
	db      txBeginner
	timeout time.Duration
}

// NewTransactor constructs a Transactor. A zero timeout disables the deadline.
func NewTransactor(db txBeginner, timeout time.Duration) *Transactor {
	return &Transactor{db: db, timeout: timeout}
}

// WithinTx begins a transaction, runs fn and commits. Any error or panic rolls back.
func (t *Transactor) WithinTx(ctx context.Context, fn TxFunc) (err error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
