package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"mapstore/pkg/domain"
)

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// ReferenceProvider reports which ids of the given element type are referenced
// by quests. It reads through the supplied querier so that the lookup takes
// part in the caller's transaction.
type ReferenceProvider interface {
	ReferencedIDs(ctx context.Context, q Querier, elementType domain.ElementType) (map[int64]struct{}, error)
}

// RunInTx runs fn inside a transaction opened with the dialect's options. The
// transaction is committed when fn returns nil and rolled back otherwise.
func RunInTx(ctx context.Context, db *sql.DB, d Dialect, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, d.TxOptions)
	if err != nil {
		return Wrap("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return Wrap("commit", err)
	}
	committed = true
	return nil
}

// Wrap classifies an engine error as a domain.StorageError. Errors that are
// already classified pass through unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	var de *domain.DeserializationError
	if errors.As(err, &de) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}
