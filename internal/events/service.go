package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type EventStore interface {
	ListPublishedEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetPublishedEvent(ctx context.Context, eventID string) (*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event, categorySlugs []string) error
	ListCategories(ctx context.Context) ([]models.Category, error)

	ListAllEvents(ctx context.Context) ([]models.Event, error)
	SetEventPublished(ctx context.Context, eventID string, published bool) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	SetAdmin(ctx context.Context, userID string, isAdmin bool) error
	DeleteProfile(ctx context.Context, userID string) ([]string, error)
	UpdateProfile(ctx context.Context, userID, fullName, avatarURL string) error

	CreateContactMessage(ctx context.Context, msg *models.ContactMessage) error
	ListContactMessages(ctx context.Context) ([]models.ContactMessage, error)
	SetContactMessageStatus(ctx context.Context, messageID string, status models.MessageStatus) error
	DeleteContactMessage(ctx context.Context, messageID string) error
}

type AvailabilityCache interface {
	Get(ctx context.Context, eventID string) (*models.Availability, error)
	Set(ctx context.Context, availability models.Availability) error
	Invalidate(ctx context.Context, eventID string) error
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, topic string, evt models.BookingEvent) error
}

type EventService struct {
	Store        EventStore
	Cache        AvailabilityCache
	Kafka        EventPublisher
	UpdatedTopic string
	Logger       *logger.Logger
}

func NewEventService(store EventStore, cache AvailabilityCache, kafka EventPublisher, updatedTopic string, logger *logger.Logger) *EventService {
	return &EventService{
		Store:        store,
		Cache:        cache,
		Kafka:        kafka,
		UpdatedTopic: updatedTopic,
		Logger:       logger,
	}
}

func (s *EventService) ListPublishedEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events, err := s.Store.ListPublishedEvents(ctx, filter)
	return events, s.wrap("list events", err)
}

func (s *EventService) GetPublishedEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.Store.GetPublishedEvent(ctx, eventID)
	return event, s.wrap("get event", err)
}

func (s *EventService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.Store.ListCategories(ctx)
	return categories, s.wrap("list categories", err)
}

// CreateEvent stores a draft owned by organizerID. Capacity may be left unset,
// in which case the event cannot be booked until it is configured.
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, req models.CreateEventRequest) (*models.Event, error) {
	if organizerID == "" {
		return nil, models.ErrUnauthenticated
	}
	req.Title = strings.TrimSpace(req.Title)
	switch {
	case req.Title == "", req.StartsAt.IsZero():
		return nil, models.ErrInvalidRequest
	case req.Capacity != nil && *req.Capacity < 0:
		return nil, models.ErrInvalidRequest
	case !req.EndsAt.IsZero() && !req.EndsAt.After(req.StartsAt):
		return nil, models.ErrInvalidRequest
	}

	event := &models.Event{
		OrganizerID: organizerID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt.UTC(),
		Capacity:    req.Capacity,
		IsPublished: false,
	}
	if !req.EndsAt.IsZero() {
		event.EndsAt = req.EndsAt.UTC()
	}

	if err := s.Store.CreateEvent(ctx, event, req.Categories); err != nil {
		return nil, s.wrap("create event", err)
	}
	s.Logger.Info("EVENTS", fmt.Sprintf("Event %s created by %s", event.ID, organizerID))
	return event, nil
}

// GetAvailability serves the cached snapshot when present and otherwise reads
// the ledger row and repopulates the cache. Cache failures only cost latency.
func (s *EventService) GetAvailability(ctx context.Context, eventID string) (*models.Availability, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, eventID)
		if err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Availability cache read for %s failed: %v", eventID, err))
		} else if cached != nil {
			return cached, nil
		}
	}

	event, err := s.Store.GetPublishedEvent(ctx, eventID)
	if err != nil {
		return nil, s.wrap("get availability", err)
	}
	snapshot := event.Availability()

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, snapshot); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Availability cache write for %s failed: %v", eventID, err))
		}
	}
	return &snapshot, nil
}

// ---------------- MODERATION ----------------

func (s *EventService) ListAllEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.Store.ListAllEvents(ctx)
	return events, s.wrap("list all events", err)
}

func (s *EventService) SetEventPublished(ctx context.Context, adminID, eventID string, published bool) error {
	if err := s.Store.SetEventPublished(ctx, eventID, published); err != nil {
		return s.wrap("set published", err)
	}
	s.Logger.LogSecurity("EVENT_MODERATED", fmt.Sprintf("admin %s set event %s published=%t", adminID, eventID, published))
	s.eventChanged(ctx, eventID)
	return nil
}

func (s *EventService) DeleteEvent(ctx context.Context, adminID, eventID string) error {
	if err := s.Store.DeleteEvent(ctx, eventID); err != nil {
		return s.wrap("delete event", err)
	}
	s.Logger.LogSecurity("EVENT_DELETED", fmt.Sprintf("admin %s deleted event %s", adminID, eventID))
	s.eventChanged(ctx, eventID)
	return nil
}

func (s *EventService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.Store.ListProfiles(ctx)
	return profiles, s.wrap("list profiles", err)
}

func (s *EventService) SetAdmin(ctx context.Context, adminID, userID string, isAdmin bool) error {
	if adminID == userID && !isAdmin {
		// admins cannot demote themselves
		return models.ErrInvalidRequest
	}
	if err := s.Store.SetAdmin(ctx, userID, isAdmin); err != nil {
		return s.wrap("set admin", err)
	}
	s.Logger.LogSecurity("ADMIN_CHANGED", fmt.Sprintf("admin %s set %s is_admin=%t", adminID, userID, isAdmin))
	return nil
}

func (s *EventService) DeleteProfile(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return models.ErrInvalidRequest
	}
	touched, err := s.Store.DeleteProfile(ctx, userID)
	if err != nil {
		return s.wrap("delete profile", err)
	}
	s.Logger.LogSecurity("PROFILE_DELETED", fmt.Sprintf("admin %s deleted profile %s", adminID, userID))
	for _, eventID := range touched {
		s.eventChanged(ctx, eventID)
	}
	return nil
}

// UpdateProfile lets the caller edit their own display name and avatar.
func (s *EventService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	if userID == "" {
		return models.ErrUnauthenticated
	}
	fullName := strings.TrimSpace(req.FullName)
	avatarURL := strings.TrimSpace(req.AvatarURL)
	if len(fullName) > maxProfileField || len(avatarURL) > maxProfileField {
		return models.ErrInvalidRequest
	}
	if err := s.Store.UpdateProfile(ctx, userID, fullName, avatarURL); err != nil {
		return s.wrap("update profile", err)
	}
	return nil
}

// ---------------- CONTACT ----------------

const (
	maxProfileField   = 512
	maxContactMessage = 5000
)

func (s *EventService) SubmitContactMessage(ctx context.Context, req models.ContactRequest) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: strings.TrimSpace(req.Message),
	}
	if msg.Email == "" || msg.Message == "" || len(msg.Message) > maxContactMessage {
		return nil, models.ErrInvalidRequest
	}
	if err := s.Store.CreateContactMessage(ctx, msg); err != nil {
		return nil, s.wrap("submit contact message", err)
	}
	s.Logger.Info("CONTACT", fmt.Sprintf("Message %s received from %s", msg.ID, msg.Email))
	return msg, nil
}

func (s *EventService) ListContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	messages, err := s.Store.ListContactMessages(ctx)
	return messages, s.wrap("list contact messages", err)
}

func (s *EventService) SetContactMessageStatus(ctx context.Context, adminID, messageID string, status models.MessageStatus) error {
	if !status.Valid() {
		return models.ErrInvalidRequest
	}
	if err := s.Store.SetContactMessageStatus(ctx, messageID, status); err != nil {
		return s.wrap("set message status", err)
	}
	s.Logger.Info("CONTACT", fmt.Sprintf("admin %s marked message %s %s", adminID, messageID, status))
	return nil
}

func (s *EventService) DeleteContactMessage(ctx context.Context, adminID, messageID string) error {
	if err := s.Store.DeleteContactMessage(ctx, messageID); err != nil {
		return s.wrap("delete contact message", err)
	}
	s.Logger.Info("CONTACT", fmt.Sprintf("admin %s deleted message %s", adminID, messageID))
	return nil
}

// eventChanged drops the cached snapshot and tells the projector to rebuild it.
func (s *EventService) eventChanged(ctx context.Context, eventID string) {
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, eventID); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Invalidate %s failed: %v", eventID, err))
		}
	}
	if s.Kafka == nil || s.UpdatedTopic == "" {
		return
	}
	evt := models.BookingEvent{Type: models.EventEventUpdated, EventID: eventID, OccurredAt: time.Now().UTC()}
	if err := s.Kafka.PublishBookingEvent(ctx, s.UpdatedTopic, evt); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for event %s: %v", evt.Type, eventID, err))
	}
}

func (s *EventService) wrap(op string, err error) error {
	if err == nil || models.IsDomainError(err) {
		return err
	}
	s.Logger.Error("EVENTS", fmt.Sprintf("%s failed: %v", op, err))
	return fmt.Errorf("%w: %s: %w", models.ErrStoreFailure, op, err)
}
