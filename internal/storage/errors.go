package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ledger/internal/core"
)

// translateError classifies driver errors into the core error classes while
// keeping the original error in the chain.
func translateError(err error) error {
	if err == nil || classified(err) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", core.ErrConstraintViolation, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", core.ErrStorageFailure, err)
}

func classified(err error) bool {
	return errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrConstraintViolation) ||
		errors.Is(err, core.ErrInvalidArgument) ||
		errors.Is(err, core.ErrStorageFailure)
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", core.ErrNotFound, entity, id)
}

// BatchError reports the item that aborted a batch write. The whole batch is
// rolled back: Succeeded counts items written before the failure that were
// discarded with it.
type BatchError struct {
	Index     int
	Succeeded int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch item %d: %v (%d earlier items rolled back)", e.Index, e.Err, e.Succeeded)
}

func (e *BatchError) Unwrap() error { return e.Err }
