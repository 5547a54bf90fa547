package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DB is the event catalogue and profile store. It never changes
// events.tickets_sold except when removing bookings wholesale, and then only
// inside the same transaction.
type DB struct {
	Bun *bun.DB
}

// ---------------- CATALOGUE ----------------

// ListPublishedEvents → published events ordered by start time
func (d *DB) ListPublishedEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events := []models.Event{}
	q := d.Bun.NewSelect().
		Model(&events).
		Where("event.is_published = ?", true).
		Order("event.starts_at ASC")

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(event.title) LIKE ?", pattern).
				WhereOr("LOWER(event.description) LIKE ?", pattern)
		})
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		q = q.Where("LOWER(event.location) LIKE ?", likePattern(location))
	}
	if filter.Date != "" {
		start, end, err := utils.DayWindow(filter.Date)
		if err != nil {
			return nil, models.ErrInvalidRequest
		}
		q = q.Where("event.starts_at >= ?", start).Where("event.starts_at < ?", end)
	}
	if slug := strings.TrimSpace(filter.Category); slug != "" {
		sub := d.Bun.NewSelect().
			TableExpr("event_categories AS ec").
			Join("JOIN categories AS c ON c.id = ec.category_id").
			ColumnExpr("ec.event_id").
			Where("c.slug = ?", slug)
		q = q.Where("event.id IN (?)", sub)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list published events: %w", err)
	}
	return events, nil
}

// GetPublishedEvent hides drafts behind ErrEventNotFound.
func (d *DB) GetPublishedEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := d.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPublished {
		return nil, models.ErrEventNotFound
	}
	return event, nil
}

// GetEvent → fetch an event regardless of publication
func (d *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event.id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// CreateEvent inserts an event and links it to existing categories by slug.
// An unknown slug rejects the whole insert.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event, categorySlugs []string) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.TicketsSold = 0

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if len(categorySlugs) == 0 {
			return nil
		}

		var categories []models.Category
		err := tx.NewSelect().
			Model(&categories).
			Where("slug IN (?)", bun.In(categorySlugs)).
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("resolve categories: %w", err)
		}
		if len(categories) != len(dedupe(categorySlugs)) {
			return models.ErrInvalidRequest
		}

		links := make([]models.EventCategory, 0, len(categories))
		for _, c := range categories {
			links = append(links, models.EventCategory{EventID: event.ID, CategoryID: c.ID})
		}
		if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
			return fmt.Errorf("link categories: %w", err)
		}
		return nil
	})
}

func (d *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := d.Bun.NewSelect().Model(&categories).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ---------------- MODERATION ----------------

func (d *DB) ListAllEvents(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	if err := d.Bun.NewSelect().Model(&events).Order("event.created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (d *DB) SetEventPublished(ctx context.Context, eventID string, published bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("is_published = ?", published).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	return requireRow(res, models.ErrEventNotFound)
}

// DeleteEvent removes the event with its bookings and category links.
func (d *DB) DeleteEvent(ctx context.Context, eventID string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return deleteEvents(ctx, tx, []string{eventID}, true)
	})
}

// ---------------- PROFILES ----------------

// EnsureProfile creates the caller's profile on first sight. Email falls
// back to the user id when the token carries none.
func (d *DB) EnsureProfile(ctx context.Context, userID, email string) error {
	if email == "" {
		email = userID
	}
	profile := models.Profile{ID: userID, Email: email, CreatedAt: time.Now().UTC()}
	_, err := d.Bun.NewInsert().
		Model(&profile).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func (d *DB) IsAdmin(ctx context.Context, userID string) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.Profile)(nil)).
		Where("id = ?", userID).
		Where("is_admin = ?", true).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}

func (d *DB) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles := []models.Profile{}
	if err := d.Bun.NewSelect().Model(&profiles).Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (d *DB) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("is_admin = ?", isAdmin).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return requireRow(res, models.ErrProfileNotFound)
}

// UpdateProfile replaces the display fields of userID's profile.
func (d *DB) UpdateProfile(ctx context.Context, userID, fullName, avatarURL string) error {
	profile := models.Profile{ID: userID, FullName: fullName, AvatarURL: avatarURL}
	res, err := d.Bun.NewUpdate().
		Model(&profile).
		Column("full_name", "avatar_url").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRow(res, models.ErrProfileNotFound)
}

// DeleteProfile removes a user together with the events they organize. Seats
// held by their confirmed bookings on other events go back to those ledgers
// in the same transaction. Returns the ids of events whose ledgers changed.
func (d *DB) DeleteProfile(ctx context.Context, userID string) ([]string, error) {
	var touched []string

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var owned []string
		err := tx.NewSelect().
			Model((*models.Event)(nil)).
			Column("id").
			Where("organizer_id = ?", userID).
			Scan(ctx, &owned)
		if err != nil {
			return fmt.Errorf("list organized events: %w", err)
		}
		if err := deleteEvents(ctx, tx, owned, false); err != nil {
			return err
		}
		touched = append(touched, owned...)

		var held []models.Booking
		err = tx.NewSelect().
			Model(&held).
			Where("user_id = ?", userID).
			Where("status = ?", models.BookingConfirmed).
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("list held bookings: %w", err)
		}
		for _, b := range held {
			res, err := tx.NewUpdate().
				Model((*models.Event)(nil)).
				Set("tickets_sold = tickets_sold - ?", b.NumTickets).
				Where("id = ?", b.EventID).
				Where("tickets_sold >= ?", b.NumTickets).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("release seats of booking %s: %w", b.ID, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("release seats of booking %s: %w", b.ID, err)
			} else if n == 0 {
				return fmt.Errorf("release seats of booking %s: ledger for event %s holds fewer than %d seats", b.ID, b.EventID, b.NumTickets)
			}
			touched = append(touched, b.EventID)
		}

		if _, err := tx.NewDelete().Model((*models.Booking)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
			return fmt.Errorf("delete bookings: %w", err)
		}
		res, err := tx.NewDelete().Model((*models.Profile)(nil)).Where("id = ?", userID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return requireRow(res, models.ErrProfileNotFound)
	})
	if err != nil {
		return nil, err
	}
	return dedupe(touched), nil
}

// ---------------- CONTACT ----------------

func (d *DB) CreateContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Status == "" {
		msg.Status = models.MessageNew
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if _, err := d.Bun.NewInsert().Model(msg).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

// ListContactMessages → every message, newest first
func (d *DB) ListContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	messages := []models.ContactMessage{}
	if err := d.Bun.NewSelect().Model(&messages).Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return messages, nil
}

func (d *DB) SetContactMessageStatus(ctx context.Context, messageID string, status models.MessageStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.ContactMessage)(nil)).
		Set("status = ?", status).
		Where("id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set message status: %w", err)
	}
	return requireRow(res, models.ErrMessageNotFound)
}

func (d *DB) DeleteContactMessage(ctx context.Context, messageID string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.ContactMessage)(nil)).
		Where("id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	return requireRow(res, models.ErrMessageNotFound)
}

func deleteEvents(ctx context.Context, tx bun.Tx, eventIDs []string, mustExist bool) error {
	if len(eventIDs) == 0 {
		return nil
	}
	ids := bun.In(eventIDs)

	if _, err := tx.NewDelete().Model((*models.Booking)(nil)).Where("event_id IN (?)", ids).Exec(ctx); err != nil {
		return fmt.Errorf("delete event bookings: %w", err)
	}
	if _, err := tx.NewDelete().Model((*models.EventCategory)(nil)).Where("event_id IN (?)", ids).Exec(ctx); err != nil {
		return fmt.Errorf("delete event categories: %w", err)
	}
	res, err := tx.NewDelete().Model((*models.Event)(nil)).Where("id IN (?)", ids).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	if mustExist {
		return requireRow(res, models.ErrEventNotFound)
	}
	return nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("%", "", "_", "").Replace(s)
	return "%" + s + "%"
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
