package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	// ErrCascade marks an operation refused because it would leave dependent
	// entities behind, such as deleting a task that still has sub-tasks.
	ErrCascade = errors.New("cascade required")
)
