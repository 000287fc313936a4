package storage

import "errors"

// Trades, calibrations and scenario results are written once per key and
// never updated; a rerun reads what is stored instead.
var (
	// ErrNotFound is returned when no calibration or result exists for a run.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a trade ID, run ID or
	// (run ID, scenario index) is already stored.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput is returned for nil records or records missing a key field.
	ErrInvalidInput = errors.New("invalid input")
)
