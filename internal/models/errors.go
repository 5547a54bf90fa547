package models

import "errors"

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEventNotFound         = errors.New("event not found")
	ErrCapacityNotConfigured = errors.New("event capacity not configured")
	ErrInsufficientSeats     = errors.New("not enough seats")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrInvalidState          = errors.New("booking not in a cancellable state")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrStoreFailure          = errors.New("store failure")
)

var domainErrors = []struct {
	err      error
	category string
}{
	{ErrUnauthenticated, "unauthenticated"},
	{ErrForbidden, "forbidden"},
	{ErrInvalidRequest, "invalid_request"},
	{ErrEventNotFound, "event_not_found"},
	{ErrCapacityNotConfigured, "capacity_not_configured"},
	{ErrInsufficientSeats, "insufficient_seats"},
	{ErrBookingNotFound, "booking_not_found"},
	{ErrInvalidState, "invalid_state"},
	{ErrProfileNotFound, "profile_not_found"},
	{ErrMessageNotFound, "message_not_found"},
}

// IsDomainError reports whether err is one of the typed outcomes above,
// as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return true
		}
	}
	return false
}

// ErrorCategory returns the stable caller-facing category for err.
func ErrorCategory(err error) string {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.category
		}
	}
	return "store_failure"
}
