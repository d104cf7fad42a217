// Package dbx provides the small database abstractions shared by postgres
// stores: DBTX, implemented by both *sql.DB and *sql.Tx, and WithTx to run
// a function inside a transaction.
package dbx

import (
	"context"
	"database/sql"
	"time"

	"kudose/pkg/platform/tx"
)

// DefaultTxTimeout bounds transactions whose caller supplied no deadline.
const DefaultTxTimeout = 5 * time.Second

// DBTX is the subset of database/sql used by the stores.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn returns the transaction carried by ctx, or db when ctx has none.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return db
}

// WithTx begins a transaction, runs fn with it, then commits on success or
// rolls back on error or panic. Panics are rethrown. The transaction is also
// placed in the context handed to fn so context-aware stores can join it.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, q DBTX) error) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTxTimeout)
		defer cancel()
	}

	sqlTx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()

	return fn(tx.WithTx(ctx, sqlTx), sqlTx)
}
