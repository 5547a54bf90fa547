package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

// SnapshotSource yields the current availability of a published event.
type SnapshotSource interface {
	GetAvailability(ctx context.Context, eventID string) (*models.Availability, error)
}

// Handler streams availability changes of one event as Server-Sent Events
type Handler struct {
	Emitter   *AvailabilityEmitter
	Snapshots SnapshotSource
	Logger    *logger.Logger
	// Heartbeat keeps idle connections open through proxies
	Heartbeat time.Duration
}

func NewHandler(emitter *AvailabilityEmitter, snapshots SnapshotSource, logger *logger.Logger) *Handler {
	return &Handler{
		Emitter:   emitter,
		Snapshots: snapshots,
		Logger:    logger,
		Heartbeat: 25 * time.Second,
	}
}

// StreamAvailability handles GET /api/events/{eventId}/availability/stream.
// The first message is the current snapshot.
func (h *Handler) StreamAvailability(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	ctx := r.Context()

	current, err := h.Snapshots.GetAvailability(ctx, eventID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, fmt.Errorf("%w: streaming unsupported", models.ErrStoreFailure))
		return
	}

	// the server write timeout would otherwise cut the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	updates := h.Emitter.Subscribe(ctx, eventID)
	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "availability", current); err != nil {
		return
	}
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to availability stream for event: %s", eventID))

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case availability, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, "availability", availability); err != nil {
				h.Logger.Debug("SSE", fmt.Sprintf("Write to client failed for event %s: %v", eventID, err))
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from availability stream for event: %s", eventID))
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
