package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// inTx runs body in one transaction. The transaction is committed only if
// body returns nil and rolled back on every other path, panics included.
// A failed rollback is logged next to the error that caused it; the caller
// always sees that original error.
func (e *Engine) inTx(ctx context.Context, op string, body func(tx *sqlx.Tx) error) (err error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return internal(err, "starting transaction")
	}
	open := true

	defer func() {
		if !open {
			return
		}
		if p := recover(); p != nil {
			e.rollback(tx, op, fmt.Errorf("panic: %v", p))
			panic(p)
		}
		e.rollback(tx, op, err)
	}()

	if err = body(tx); err != nil {
		return err
	}

	if cerr := tx.Commit(); cerr != nil {
		return internal(cerr, "committing transaction")
	}
	open = false
	return nil
}

func (e *Engine) rollback(tx *sqlx.Tx, op string, cause error) {
	rerr := tx.Rollback()
	if rerr == nil || errors.Is(rerr, sql.ErrTxDone) {
		// ErrTxDone: the driver already ended it (cancelled context, failed commit).
		return
	}
	e.log.Error("rollback failed", "operation", op, "error", rerr, "cause", cause)
}

// txError folds a storage error raised inside a transaction into an
// internal error, leaving lending errors untouched.
func txError(err error, doing string) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindInternal, Message: "request cancelled while " + doing, Err: err}
	}
	return internal(err, doing)
}
