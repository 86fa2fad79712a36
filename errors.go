package storage

import "fmt"

var (
	// ErrNotFound is returned by blob and lookup APIs for absent data
	// where the caller asked for a hard error instead of a zero value.
	ErrNotFound = fmt.Errorf("storage: not found")

	// ErrTransactionCommitted is returned by any mutator or a second
	// Commit call on a transaction that has already committed.
	ErrTransactionCommitted = fmt.Errorf("storage: transaction already committed")

	// ErrTransactionDisposed is returned by any mutator on a
	// transaction that has been rolled back or disposed.
	ErrTransactionDisposed = fmt.Errorf("storage: transaction disposed")

	errCorruptLine = fmt.Errorf("storage: corrupt commit line")
	errFileGone    = fmt.Errorf("storage: segment file is gone")
)

// fsyncFailedError wraps an fsync failure, which the writer treats as
// unrecoverable for the current segment handle.
type fsyncFailedError struct {
	Cause error
}

func (e *fsyncFailedError) Error() string {
	return fmt.Sprintf("storage: fsync failed (segment handle unusable): %v", e.Cause)
}

func (e *fsyncFailedError) Unwrap() error {
	return e.Cause
}
