package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	cases := map[error]int{
		models.ErrUnauthenticated:       http.StatusUnauthorized,
		models.ErrForbidden:             http.StatusForbidden,
		models.ErrInvalidRequest:        http.StatusBadRequest,
		models.ErrEventNotFound:         http.StatusNotFound,
		models.ErrCapacityNotConfigured: http.StatusBadRequest,
		models.ErrInsufficientSeats:     http.StatusBadRequest,
		models.ErrBookingNotFound:       http.StatusNotFound,
		models.ErrInvalidState:          http.StatusBadRequest,
		models.ErrProfileNotFound:       http.StatusNotFound,
		models.ErrMessageNotFound:       http.StatusNotFound,
		models.ErrStoreFailure:          http.StatusInternalServerError,
		errors.New("boom"):              http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusForError(err), err.Error())
	}
}

func TestWriteErrorHidesStoreCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("%w: book: %w", models.ErrStoreFailure, errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "store_failure", body.Error)
}

func TestWriteErrorDomain(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, models.ErrInsufficientSeats)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_seats", body.Error)
	assert.Equal(t, "not enough seats", body.Message)
}

func TestDayWindow(t *testing.T) {
	start, end, err := DayWindow("2026-05-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = DayWindow("04/05/2026")
	assert.Error(t, err)
}
