package storage

import "errors"

var (
	// ErrMissingConfig is returned when required storage settings are absent
	ErrMissingConfig = errors.New("storage configuration is incomplete")

	// ErrEmptyKey is returned when an object key is empty
	ErrEmptyKey = errors.New("storage key is required")

	// ErrNoRecords is returned when a statement has no order lines
	ErrNoRecords = errors.New("statement has no order records")
)
