package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource is matched by every *InvalidSourceError.
	ErrInvalidSource = errors.New("invalid source")
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("article not found")
)

// InvalidSourceError reports an unknown source identifier.
type InvalidSourceError struct {
	Source string
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid source %q", e.Source)
}

func (e *InvalidSourceError) Is(target error) bool { return target == ErrInvalidSource }

// AdapterFetchError wraps a network, timeout or parse failure of one source.
type AdapterFetchError struct {
	Source string
	Err    error
}

func (e *AdapterFetchError) Error() string {
	return fmt.Sprintf("source %s fetch failed: %v", e.Source, e.Err)
}

func (e *AdapterFetchError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure for a single record.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
