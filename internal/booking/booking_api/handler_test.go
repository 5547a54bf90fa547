package booking_api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBookingService records calls and replays configured outcomes
type MockBookingService struct {
	bookCalls   int
	lastTickets int
	bookErr     error
	cancelErr   error
	bookings    map[string]models.Booking
}

func NewMockBookingService() *MockBookingService {
	return &MockBookingService{
		bookings: map[string]models.Booking{
			"b-1": {ID: "b-1", UserID: "user-1", EventID: "e-1", NumTickets: 2, Status: models.BookingConfirmed},
		},
	}
}

func (m *MockBookingService) Book(_ context.Context, userID, eventID string, tickets int) (*models.BookingResult, error) {
	m.bookCalls++
	m.lastTickets = tickets
	if m.bookErr != nil {
		return nil, m.bookErr
	}
	return &models.BookingResult{BookingID: "b-new", EventID: eventID, Tickets: tickets, Remaining: 10 - tickets}, nil
}

func (m *MockBookingService) Cancel(_ context.Context, userID, bookingID string) (*models.CancelResult, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	b, ok := m.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, models.ErrBookingNotFound
	}
	return &models.CancelResult{BookingID: bookingID, EventID: b.EventID, Released: b.NumTickets}, nil
}

func (m *MockBookingService) GetBooking(_ context.Context, userID, bookingID string) (*models.Booking, error) {
	b, ok := m.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, models.ErrBookingNotFound
	}
	return &b, nil
}

func (m *MockBookingService) ListBookings(_ context.Context, userID string) ([]models.Booking, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	var out []models.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockBookingService) BookingPass(ctx context.Context, userID, bookingID string) ([]byte, error) {
	if _, err := m.GetBooking(ctx, userID, bookingID); err != nil {
		return nil, err
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func newRouter(svc BookingService) http.Handler {
	h := NewHandler(svc, logger.NewLoggerWithWriter(io.Discard))
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r
}

func do(t *testing.T, router http.Handler, method, path, user, body string) (*httptest.ResponseRecorder, utils.APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp utils.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestCreateBookingSuccess(t *testing.T) {
	svc := NewMockBookingService()
	rec, resp := do(t, newRouter(svc), http.MethodPost, "/api/bookings", "user-1", `{"eventId":"e-1","tickets":2}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "b-new", data["booking_id"])
	assert.Equal(t, float64(8), data["remaining"])
	assert.Equal(t, 2, svc.lastTickets)
}

func TestCreateBookingRejectsBadTicketCounts(t *testing.T) {
	for _, tickets := range []string{`0`, `-1`, `2.5`, `"2"`, `null`, `true`, `2147483648`, `1e20`} {
		t.Run(tickets, func(t *testing.T) {
			svc := NewMockBookingService()
			body := fmt.Sprintf(`{"eventId":"e-1","tickets":%s}`, tickets)
			rec, resp := do(t, newRouter(svc), http.MethodPost, "/api/bookings", "user-1", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request", resp.Error)
			assert.Equal(t, 0, svc.bookCalls)
		})
	}
}

func TestCreateBookingAcceptsIntegralFloat(t *testing.T) {
	svc := NewMockBookingService()
	rec, _ := do(t, newRouter(svc), http.MethodPost, "/api/bookings", "user-1", `{"eventId":"e-1","tickets":3.0}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, svc.lastTickets)
}

func TestCreateBookingRequiresEventAndIdentity(t *testing.T) {
	svc := NewMockBookingService()
	router := newRouter(svc)

	rec, resp := do(t, router, http.MethodPost, "/api/bookings", "user-1", `{"tickets":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", resp.Error)

	rec, _ = do(t, router, http.MethodPost, "/api/bookings", "user-1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = do(t, router, http.MethodPost, "/api/bookings", "", `{"eventId":"e-1","tickets":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", resp.Error)
	assert.Equal(t, 0, svc.bookCalls)
}

func TestCreateBookingMapsLedgerFailures(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		category string
	}{
		{models.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
		{models.ErrCapacityNotConfigured, http.StatusBadRequest, "capacity_not_configured"},
		{models.ErrInsufficientSeats, http.StatusBadRequest, "insufficient_seats"},
		{fmt.Errorf("%w: book: %w", models.ErrStoreFailure, fmt.Errorf("pq: deadlock detected")), http.StatusInternalServerError, "store_failure"},
	}
	for _, tc := range cases {
		t.Run(tc.category, func(t *testing.T) {
			svc := NewMockBookingService()
			svc.bookErr = tc.err
			rec, resp := do(t, newRouter(svc), http.MethodPost, "/api/bookings", "user-1", `{"eventId":"e-1","tickets":1}`)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.category, resp.Error)
			assert.NotContains(t, rec.Body.String(), "deadlock")
		})
	}
}

func TestCancelBooking(t *testing.T) {
	router := newRouter(NewMockBookingService())

	rec, resp := do(t, router, http.MethodPatch, "/api/bookings/b-1", "user-1", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = do(t, router, http.MethodPatch, "/api/bookings/b-1", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = do(t, router, http.MethodPatch, "/api/bookings/b-1", "user-1", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", resp.Error)

	rec, resp = do(t, router, http.MethodPatch, "/api/bookings/b-1", "user-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking_not_found", resp.Error)

	rec, _ = do(t, router, http.MethodPatch, "/api/bookings/b-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelBookingInvalidState(t *testing.T) {
	svc := NewMockBookingService()
	svc.cancelErr = models.ErrInvalidState
	rec, resp := do(t, newRouter(svc), http.MethodPatch, "/api/bookings/b-1", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_state", resp.Error)
}

func TestGetAndListBookings(t *testing.T) {
	router := newRouter(NewMockBookingService())

	rec, resp := do(t, router, http.MethodGet, "/api/bookings", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, _ = do(t, router, http.MethodGet, "/api/bookings/b-1", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/bookings/b-1", "user-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBookingPass(t *testing.T) {
	router := newRouter(NewMockBookingService())

	rec, _ := do(t, router, http.MethodGet, "/api/bookings/b-1/pass", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec, _ = do(t, router, http.MethodGet, "/api/bookings/b-9/pass", "user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseTicketCount(t *testing.T) {
	n, ok := parseTicketCount(json.RawMessage(` 7 `))
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = parseTicketCount(json.RawMessage(`2147483647`))
	assert.True(t, ok)
	assert.Equal(t, 2147483647, n)

	_, ok = parseTicketCount(nil)
	assert.False(t, ok)
}
