package tasks

import "errors"

var (
	// ErrEmptyText rejects add and edit input that is empty after trimming.
	ErrEmptyText = errors.New("task text is empty")
	// ErrNotFound is returned for ids that are unknown or already deleted.
	// Callers treat it as a no-op.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidPageSize rejects page sizes below one.
	ErrInvalidPageSize = errors.New("page size must be at least 1")
	// ErrMalformedBlob marks a stored value that is not a task sequence.
	ErrMalformedBlob = errors.New("malformed task blob")
	// ErrNoEdit is returned by CommitEdit when no edit session is open.
	ErrNoEdit = errors.New("no task is being edited")
)
