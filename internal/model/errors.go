package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")

	// ErrRequiredTask is returned when a required task did not succeed.
	ErrRequiredTask = errors.New("required task unmet")
	// ErrRunTimeout is returned when a run exceeded its global deadline.
	ErrRunTimeout = errors.New("run deadline exceeded")
	// ErrRunCancelled is returned when a run was cancelled externally (e.g. a signal).
	ErrRunCancelled = errors.New("run cancelled")
)
