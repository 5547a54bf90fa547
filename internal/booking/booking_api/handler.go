package booking_api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type BookingService interface {
	Book(ctx context.Context, userID, eventID string, tickets int) (*models.BookingResult, error)
	Cancel(ctx context.Context, userID, bookingID string) (*models.CancelResult, error)
	GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]models.Booking, error)
	BookingPass(ctx context.Context, userID, bookingID string) ([]byte, error)
}

type Handler struct {
	Service BookingService
	Logger  *logger.Logger
}

func NewHandler(service BookingService, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// RegisterRoutes mounts the booking endpoints. Callers must wrap r with the
// auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/", h.ListBookings)
		r.Get("/{bookingId}", h.GetBooking)
		r.Patch("/{bookingId}", h.CancelBooking)
		r.Get("/{bookingId}/pass", h.GetBookingPass)
	})
}

type createBookingRequest struct {
	EventID string          `json:"eventId"`
	Tickets json.RawMessage `json:"tickets"`
}

type createBookingResponse struct {
	BookingID string `json:"booking_id"`
	Remaining int    `json:"remaining"`
}

// CreateBooking handles POST /api/bookings with body {"eventId": "...", "tickets": 2}.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, models.ErrUnauthenticated)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	tickets, ok := parseTicketCount(req.Tickets)
	if req.EventID == "" || !ok {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}

	result, err := h.Service.Book(r.Context(), userID, req.EventID, tickets)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Booking confirmed", createBookingResponse{
		BookingID: result.BookingID,
		Remaining: result.Remaining,
	}))
}

// parseTicketCount accepts a JSON number that is a positive whole value
// within int32 range. 2.0 is accepted, 2.5 and "2" are not.
func parseTicketCount(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.ListBookings(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings retrieved", bookings))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBooking(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "bookingId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking retrieved", booking))
}

// CancelBooking handles PATCH /api/bookings/{bookingId}. The body is optional;
// when present it must ask for status "cancelled".
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, models.ErrUnauthenticated)
		return
	}

	var req struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}
	if req.Status != "" && req.Status != models.BookingCancelled {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}

	result, err := h.Service.Cancel(r.Context(), userID, chi.URLParam(r, "bookingId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking cancelled", result))
}

func (h *Handler) GetBookingPass(w http.ResponseWriter, r *http.Request) {
	png, err := h.Service.BookingPass(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "bookingId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("HTTP", "Failed to write booking pass: "+err.Error())
	}
}
