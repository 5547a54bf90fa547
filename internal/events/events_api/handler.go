package events_api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type EventService interface {
	ListPublishedEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetPublishedEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateEvent(ctx context.Context, organizerID string, req models.CreateEventRequest) (*models.Event, error)
	GetAvailability(ctx context.Context, eventID string) (*models.Availability, error)

	ListAllEvents(ctx context.Context) ([]models.Event, error)
	SetEventPublished(ctx context.Context, adminID, eventID string, published bool) error
	DeleteEvent(ctx context.Context, adminID, eventID string) error
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	SetAdmin(ctx context.Context, adminID, userID string, isAdmin bool) error
	DeleteProfile(ctx context.Context, adminID, userID string) error
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error

	SubmitContactMessage(ctx context.Context, req models.ContactRequest) (*models.ContactMessage, error)
	ListContactMessages(ctx context.Context) ([]models.ContactMessage, error)
	SetContactMessageStatus(ctx context.Context, adminID, messageID string, status models.MessageStatus) error
	DeleteContactMessage(ctx context.Context, adminID, messageID string) error
}

type Handler struct {
	Service EventService
	Logger  *logger.Logger
}

func NewHandler(service EventService, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// RegisterPublicRoutes mounts the anonymous catalogue endpoints.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/events", h.ListEvents)
	r.Get("/events/{eventId}", h.GetEvent)
	r.Get("/events/{eventId}/availability", h.GetAvailability)
	r.Get("/categories", h.ListCategories)
	r.Post("/contact", h.SubmitContact)
}

// RegisterAccountRoutes mounts endpoints that need an authenticated caller.
func (h *Handler) RegisterAccountRoutes(r chi.Router) {
	r.Post("/events", h.CreateEvent)
	r.Put("/profile", h.UpdateProfile)
}

// RegisterAdminRoutes mounts moderation endpoints. Callers must wrap r with
// auth.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/events", h.AdminListEvents)
		r.Patch("/events/{eventId}", h.AdminSetPublished)
		r.Delete("/events/{eventId}", h.AdminDeleteEvent)
		r.Get("/users", h.AdminListUsers)
		r.Patch("/users/{userId}", h.AdminSetRole)
		r.Delete("/users/{userId}", h.AdminDeleteUser)
		r.Get("/messages", h.AdminListMessages)
		r.Patch("/messages/{messageId}", h.AdminSetMessageStatus)
		r.Delete("/messages/{messageId}", h.AdminDeleteMessage)
	})
}

// ListEvents handles GET /api/events?search=&location=&date=YYYY-MM-DD&category=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.Service.ListPublishedEvents(r.Context(), models.EventFilter{
		Search:   q.Get("search"),
		Location: q.Get("location"),
		Date:     q.Get("date"),
		Category: q.Get("category"),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.GetPublishedEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.Service.GetAvailability(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Availability retrieved", availability))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Categories retrieved", categories))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}

	event, err := h.Service.CreateEvent(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

func (h *Handler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListAllEvents(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

// AdminSetPublished handles PATCH /api/admin/events/{eventId} with {"is_published": bool}.
func (h *Handler) AdminSetPublished(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsPublished *bool `json:"is_published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsPublished == nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}

	eventID := chi.URLParam(r, "eventId")
	if err := h.Service.SetEventPublished(r.Context(), auth.UserID(r.Context()), eventID, *req.IsPublished); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", map[string]interface{}{
		"id":           eventID,
		"is_published": *req.IsPublished,
	}))
}

func (h *Handler) AdminDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEvent(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "eventId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event deleted", nil))
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Service.ListProfiles(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Users retrieved", profiles))
}

// AdminSetRole handles PATCH /api/admin/users/{userId} with {"is_admin": bool}.
func (h *Handler) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAdmin *bool `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsAdmin == nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}

	userID := chi.URLParam(r, "userId")
	if err := h.Service.SetAdmin(r.Context(), auth.UserID(r.Context()), userID, *req.IsAdmin); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("User updated", map[string]interface{}{
		"id":       userID,
		"is_admin": *req.IsAdmin,
	}))
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteProfile(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "userId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("User deleted", nil))
}

// UpdateProfile handles PUT /api/profile with {"full_name", "avatar_url"}.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}
	if err := h.Service.UpdateProfile(r.Context(), auth.UserID(r.Context()), req); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Profile updated", nil))
}

// SubmitContact handles POST /api/contact with {"name", "email", "message"}.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}
	msg, err := h.Service.SubmitContactMessage(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Message received", map[string]string{"id": msg.ID}))
}

func (h *Handler) AdminListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.Service.ListContactMessages(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Messages retrieved", messages))
}

// AdminSetMessageStatus handles PATCH /api/admin/messages/{messageId} with {"status": "new"|"handled"}.
func (h *Handler) AdminSetMessageStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.MessageStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.ErrInvalidRequest)
		return
	}

	messageID := chi.URLParam(r, "messageId")
	if err := h.Service.SetContactMessageStatus(r.Context(), auth.UserID(r.Context()), messageID, req.Status); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Message updated", map[string]interface{}{
		"id":     messageID,
		"status": req.Status,
	}))
}

func (h *Handler) AdminDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteContactMessage(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "messageId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Message deleted", nil))
}
