package sse

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDeliversOnlyToEventSubscribers(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine := e.Subscribe(ctx, "e-1")
	other := e.Subscribe(ctx, "e-2")
	assert.Equal(t, 1, e.ClientCount("e-1"))

	e.Broadcast(models.Availability{EventID: "e-1", TicketsSold: 4})

	select {
	case got := <-mine:
		assert.Equal(t, 4, got.TicketsSold)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive update")
	}
	select {
	case <-other:
		t.Fatal("unrelated subscriber received update")
	default:
	}
}

func TestEmitterDropsWhenClientIsSlow(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx, "e-1")
	for i := 0; i < clientBuffer+5; i++ {
		e.Broadcast(models.Availability{EventID: "e-1", TicketsSold: i})
	}
	assert.Len(t, ch, clientBuffer)
}

func TestEmitterClosesOnCancel(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx, "e-1")
	cancel()

	require.Eventually(t, func() bool { return e.ClientCount("e-1") == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-ch
	assert.False(t, ok)

	// broadcasting after removal must not panic
	e.Broadcast(models.Availability{EventID: "e-1"})
}

type staticSnapshots struct{ err error }

func (s staticSnapshots) GetAvailability(_ context.Context, eventID string) (*models.Availability, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Availability{EventID: eventID, TicketsSold: 1}, nil
}

func TestStreamAvailability(t *testing.T) {
	emitter := NewAvailabilityEmitter()
	h := NewHandler(emitter, staticSnapshots{}, logger.NewLoggerWithWriter(io.Discard))

	r := chi.NewRouter()
	r.Get("/api/events/{eventId}/availability/stream", h.StreamAvailability)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/e-1/availability/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Contains(t, first, `"tickets_sold":1`)

	require.Eventually(t, func() bool { return emitter.ClientCount("e-1") == 1 }, time.Second, 10*time.Millisecond)
	emitter.Broadcast(models.Availability{EventID: "e-1", TicketsSold: 9})

	second := readEvent(t, reader)
	assert.Contains(t, second, `"tickets_sold":9`)
}

func TestStreamAvailabilityUnknownEvent(t *testing.T) {
	h := NewHandler(NewAvailabilityEmitter(), staticSnapshots{err: models.ErrEventNotFound}, logger.NewLoggerWithWriter(io.Discard))
	r := chi.NewRouter()
	r.Get("/api/events/{eventId}/availability/stream", h.StreamAvailability)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/nope/availability/stream", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" {
			return sb.String()
		}
		sb.WriteString(line)
	}
}
