package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrNotFound       = errors.New("employee not found")
	ErrEmptyName      = errors.New("employee name is required")
	ErrNoTasks        = errors.New("no tasks provided")
	ErrInvalidRequest = errors.New("invalid request")
)
