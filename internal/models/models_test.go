package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingTransitions(t *testing.T) {
	assert.True(t, BookingConfirmed.CanTransitionTo(BookingCancelled))
	assert.False(t, BookingCancelled.CanTransitionTo(BookingConfirmed))
	assert.False(t, BookingCancelled.CanTransitionTo(BookingCancelled))
	assert.False(t, BookingPending.CanTransitionTo(BookingCancelled))
	assert.False(t, BookingConfirmed.CanTransitionTo(BookingPending))

	assert.True(t, BookingPending.Valid())
	assert.False(t, BookingStatus("refunded").Valid())
}

func TestErrorCategory(t *testing.T) {
	wrapped := fmt.Errorf("book: %w", ErrInsufficientSeats)
	assert.Equal(t, "insufficient_seats", ErrorCategory(wrapped))
	assert.True(t, IsDomainError(wrapped))

	store := fmt.Errorf("%w: cancel: %w", ErrStoreFailure, errors.New("conn reset"))
	assert.Equal(t, "store_failure", ErrorCategory(store))
	assert.False(t, IsDomainError(store))
}

func TestEventAvailability(t *testing.T) {
	capacity := 10
	e := &Event{ID: "e-1", Capacity: &capacity, TicketsSold: 4}
	a := e.Availability()
	assert.Equal(t, 6, *a.Remaining)
	assert.Equal(t, 6, e.Remaining())

	open := &Event{ID: "e-2"}
	assert.Nil(t, open.Availability().Remaining)
	assert.Equal(t, -1, open.Remaining())
}
