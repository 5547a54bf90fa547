package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ms-booking/internal/models"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// WriteJSON writes payload with the given status as application/json.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes the caller-facing category of err. Store failures never
// leak their cause.
func WriteError(w http.ResponseWriter, err error) {
	category := models.ErrorCategory(err)
	message := "internal error"
	if models.IsDomainError(err) {
		message = rootMessage(err)
	}
	WriteJSON(w, StatusForError(err), ErrorResponse(message, category))
}

// StatusForError maps a domain sentinel to its HTTP status.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrProfileNotFound),
		errors.Is(err, models.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, models.ErrCapacityNotConfigured),
		errors.Is(err, models.ErrInsufficientSeats),
		errors.Is(err, models.ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func rootMessage(err error) string {
	for _, sentinel := range []error{
		models.ErrUnauthenticated, models.ErrForbidden, models.ErrInvalidRequest,
		models.ErrEventNotFound, models.ErrCapacityNotConfigured, models.ErrInsufficientSeats,
		models.ErrBookingNotFound, models.ErrInvalidState, models.ErrProfileNotFound, models.ErrMessageNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
