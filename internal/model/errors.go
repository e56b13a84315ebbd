package model

import "errors"

// Error taxonomy shared across the aggregation core.
//
// ErrInvalidInput is a local programming or configuration error (zero RD,
// non-monotonic tier cutoffs) — raised immediately, never retried.
//
// ErrInsufficientData means the underlying population is empty or below a
// documented minimum. It is a normal data condition: callers surface it as
// "no data", never as a zero that looks like a real value.
//
// ErrUnknownReference marks a record pointing at a machine or entity key the
// registry does not know. Record-level: logged and skipped, never fatal to a
// batch run.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownReference = errors.New("unknown reference")
)
