package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a requested record does not exist. Stores signal
// absence through a found flag; callers translate it into this error when an
// error value is more convenient.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a failure reported by the database engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes the engine error.
func (e *StorageError) Unwrap() error { return e.Err }

// DeserializationError reports a stored row that exists but cannot be decoded.
type DeserializationError struct {
	Table string
	ID    int64
	Err   error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decode %s row %d: %v", e.Table, e.ID, e.Err)
}

// Unwrap exposes the decoding error.
func (e *DeserializationError) Unwrap() error { return e.Err }

// IsStorage reports whether err carries a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsDeserialization reports whether err carries a DeserializationError.
func IsDeserialization(err error) bool {
	var de *DeserializationError
	return errors.As(err, &de)
}
