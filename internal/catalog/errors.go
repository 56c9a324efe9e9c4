package catalog

import "errors"

var (
	// ErrIndexOutOfRange is returned by index-based operations given an
	// index outside the catalog.
	ErrIndexOutOfRange = errors.New("catalog index out of range")

	// ErrInvalidTemplate is returned when a template cannot be stored:
	// a nil template, an empty tag key or a duplicate id.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrNotFound is returned when no template has the given id.
	ErrNotFound = errors.New("template not found")

	// errInconsistent marks persisted lists that cannot be decoded.
	errInconsistent = errors.New("inconsistent persisted lists")
)
