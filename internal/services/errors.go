package services

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCustomRange indicates a custom range without both dates.
	ErrMissingCustomRange = errors.New("please select both start and end dates")
	// ErrInvalidCustomRange indicates an unparsable or inverted custom range.
	ErrInvalidCustomRange = errors.New("invalid custom date range")
	// ErrInvalidTimeRange indicates a preset that is not a positive day count.
	ErrInvalidTimeRange = errors.New("time range must be a positive number of days")
	// ErrUnknownMetric indicates a metric outside the supported set.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrNoData indicates an export of chart data before any data was loaded.
	ErrNoData = errors.New("no data to export")
	// ErrUnsupportedFormat indicates an image export format other than png/jpg.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrSessionNotFound indicates an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCacheMiss indicates no cached response for a session.
	ErrCacheMiss = errors.New("cache miss")
)

// UserError is an input problem surfaced to the user as an alert; state is
// left unchanged.
type UserError struct {
	Err error
}

func (e *UserError) Error() string { return e.Err.Error() }

func (e *UserError) Unwrap() error { return e.Err }

func userError(err error) error {
	return &UserError{Err: err}
}

// IsUserError reports whether err is a user-input error.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// FetchError wraps any network or HTTP failure of a performance data fetch.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch performance data: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch performance data: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is a fetch failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
