package factextract

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when the source document has no text.
	ErrEmptyDocument    = errors.New("document text is empty")
	ErrMissingEventTime = errors.New("document event time is not set")
	ErrModelMissing     = errors.New("model not specified")

	// ErrValidation matches any *ValidationError.
	ErrValidation = errors.New("generation output failed validation")
	// ErrOutputTooLong matches any *OutputTooLongError.
	ErrOutputTooLong = errors.New("generation output exceeded its budget")
	// ErrUnsplittableUnit matches any *UnsplittableUnitError.
	ErrUnsplittableUnit = errors.New("unit overflowed and cannot be split further")
)

// ValidationError reports a response that could not be parsed into a batch.
// It is retried by the extractor up to the configured attempt cap.
type ValidationError struct {
	Unit    string // unit lineage id, empty when raised by an Invoker
	Attempt int
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("unit %s attempt %d: validation failed: %v", e.Unit, e.Attempt, e.Err)
}

func (e *ValidationError) Unwrap() error        { return e.Err }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// OutputTooLongError reports a truncated or size-capped response. It carries
// no usable partial data.
type OutputTooLongError struct {
	Unit   string
	Reason string // provider finish reason, e.g. "MAX_TOKENS" or "length"
	Err    error
}

func (e *OutputTooLongError) Error() string {
	msg := "output too long"
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Unit != "" {
		msg = "unit " + e.Unit + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OutputTooLongError) Unwrap() error        { return e.Err }
func (e *OutputTooLongError) Is(target error) bool { return target == ErrOutputTooLong }

// UnsplittableUnitError is returned when a unit overflows but is below the
// minimum size, at the maximum split depth, or has no usable split point.
type UnsplittableUnitError struct {
	Unit   string
	Depth  int
	Length int
	Reason string
	Err    error // the overflow that triggered the split attempt
}

func (e *UnsplittableUnitError) Error() string {
	return fmt.Sprintf("unit %s (depth %d, %d chars) cannot be split: %s", e.Unit, e.Depth, e.Length, e.Reason)
}

func (e *UnsplittableUnitError) Unwrap() error        { return e.Err }
func (e *UnsplittableUnitError) Is(target error) bool { return target == ErrUnsplittableUnit }

// NewValidationError wraps err for Invoker implementations that detect a
// schema failure on the provider side.
func NewValidationError(err error) error {
	return &ValidationError{Err: err}
}

// NewOutputTooLongError is used by Invoker implementations when the provider
// stopped generating because the output budget ran out.
func NewOutputTooLongError(reason string) error {
	return &OutputTooLongError{Reason: reason}
}
