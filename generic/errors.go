/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed input rejected before evaluation
  2. Lookup errors - Referenced records that do not exist
  3. Store errors - Persistence failures

  Data inconsistencies (overlapping schedule assignments) and missing
  schedules are NOT errors: they resolve to a documented tie-break or to an
  empty expected schedule.

USAGE:
  if generic.IsClientError(err) {
      // 400
  }

SEE ALSO:
  - attendance/evaluator.go: Input validation
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for anything that is not a strict YYYY-MM-DD date.
	ErrInvalidDate = errors.New("invalid date: expected YYYY-MM-DD")

	// ErrInvalidTimeOfDay is returned for wall-clock values that are not HH:MM[:SS].
	ErrInvalidTimeOfDay = errors.New("invalid time of day: expected HH:MM or HH:MM:SS")

	// ErrEmployeeRequired is returned when an evaluation has no employee id.
	ErrEmployeeRequired = errors.New("employee id is required")

	// ErrInvalidEmployeeID is returned when an employee id is not a positive integer.
	ErrInvalidEmployeeID = errors.New("invalid employee id")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: to must be on or after from")

	// ErrRangeTooLarge is returned when a date range exceeds the configured bound.
	ErrRangeTooLarge = errors.New("date range too large")

	// ErrInvalidTemplate is returned for schedule templates with malformed blocks.
	ErrInvalidTemplate = errors.New("invalid schedule template")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrTemplateNotFound is returned when a referenced schedule template doesn't exist.
	ErrTemplateNotFound = errors.New("schedule template not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateError reports the offending input of a date parse.
type DateError struct {
	Value string
	Err   error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Value)
}

func (e *DateError) Unwrap() error {
	return ErrInvalidDate
}

// RangeTooLargeError reports how far a range is over its bound.
type RangeTooLargeError struct {
	Days    int
	MaxDays int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("date range too large: %d days (limit %d)", e.Days, e.MaxDays)
}

func (e *RangeTooLargeError) Unwrap() error {
	return ErrRangeTooLarge
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidTimeOfDay) ||
		errors.Is(err, ErrEmployeeRequired) ||
		errors.Is(err, ErrInvalidEmployeeID) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrRangeTooLarge) ||
		errors.Is(err, ErrInvalidTemplate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}
