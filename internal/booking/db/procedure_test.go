package db

import (
	"errors"
	"testing"

	"ms-booking/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapProcedureError(t *testing.T) {
	cases := map[string]error{
		sqlStateEventNotFound:         models.ErrEventNotFound,
		sqlStateCapacityNotConfigured: models.ErrCapacityNotConfigured,
		sqlStateInsufficientSeats:     models.ErrInsufficientSeats,
		sqlStateBookingNotFound:       models.ErrBookingNotFound,
		sqlStateInvalidState:          models.ErrInvalidState,
	}
	for code, want := range cases {
		err := mapProcedureError("proc", &pq.Error{Code: pq.ErrorCode(code)})
		assert.ErrorIs(t, err, want, code)
	}
}

func TestMapProcedureErrorWrapsUnknown(t *testing.T) {
	serialization := &pq.Error{Code: "40001"}
	err := mapProcedureError("create_booking_atomic", serialization)
	assert.False(t, models.IsDomainError(err))
	assert.ErrorIs(t, err, serialization)

	plain := errors.New("broken pipe")
	err = mapProcedureError("cancel_booking_atomic", plain)
	assert.ErrorIs(t, err, plain)
	assert.Contains(t, err.Error(), "cancel_booking_atomic")
}
