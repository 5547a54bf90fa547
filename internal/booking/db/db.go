package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DB is the capacity ledger and booking record store. Every mutation of
// events.tickets_sold happens inside one transaction together with the
// matching bookings row change, and the counter itself only moves through a
// conditional UPDATE so concurrent writers on the same event are serialized
// by the row lock the database takes for that statement.
type DB struct {
	Bun *bun.DB
}

// ---------------- LEDGER ----------------

// BookTickets reserves tickets on eventID for userID and records a confirmed
// booking. Either both the counter increment and the booking row commit, or
// nothing does.
func (d *DB) BookTickets(ctx context.Context, eventID, userID string, tickets int) (*models.BookingResult, error) {
	var result *models.BookingResult

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("tickets_sold = tickets_sold + ?", tickets).
			Where("id = ?", eventID).
			Where("is_published = ?", true).
			Where("capacity IS NOT NULL").
			Where("? <= capacity - tickets_sold", tickets).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment tickets_sold: %w", err)
		}

		applied, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("increment tickets_sold: %w", err)
		}
		if applied == 0 {
			return classifyRejectedBooking(ctx, tx, eventID)
		}

		ledger, err := loadLedgerRow(ctx, tx, eventID)
		if err != nil {
			return err
		}

		booking := models.Booking{
			ID:         uuid.NewString(),
			UserID:     userID,
			EventID:    eventID,
			NumTickets: tickets,
			Status:     models.BookingConfirmed,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(&booking).Exec(ctx); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		result = &models.BookingResult{
			BookingID: booking.ID,
			EventID:   eventID,
			Tickets:   tickets,
			Remaining: *ledger.Capacity - ledger.TicketsSold,
			Capacity:  *ledger.Capacity,
			Sold:      ledger.TicketsSold,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelBooking moves a confirmed booking owned by userID to cancelled and
// returns its seats to the ledger in the same transaction.
func (d *DB) CancelBooking(ctx context.Context, bookingID, userID string) (*models.CancelResult, error) {
	var result *models.CancelResult

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var booking models.Booking
		err := tx.NewSelect().
			Model(&booking).
			Where("id = ?", bookingID).
			Where("user_id = ?", userID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if !booking.Status.CanTransitionTo(models.BookingCancelled) {
			return models.ErrInvalidState
		}

		// The status guard makes the release happen at most once even if two
		// cancellations race past the read above.
		res, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", models.BookingCancelled).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", bookingID).
			Where("status = ?", models.BookingConfirmed).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		} else if n == 0 {
			return models.ErrInvalidState
		}

		res, err = tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("tickets_sold = tickets_sold - ?", booking.NumTickets).
			Where("id = ?", booking.EventID).
			Where("tickets_sold >= ?", booking.NumTickets).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("release tickets_sold: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("release tickets_sold: %w", err)
		} else if n == 0 {
			return fmt.Errorf("release tickets_sold: ledger for event %s holds fewer than %d seats", booking.EventID, booking.NumTickets)
		}

		ledger, err := loadLedgerRow(ctx, tx, booking.EventID)
		if err != nil {
			return err
		}

		result = &models.CancelResult{
			BookingID:   booking.ID,
			EventID:     booking.EventID,
			Released:    booking.NumTickets,
			TicketsSold: ledger.TicketsSold,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// classifyRejectedBooking explains why the conditional increment matched no
// row. It runs inside the rejected transaction, which has written nothing.
func classifyRejectedBooking(ctx context.Context, tx bun.Tx, eventID string) error {
	var event models.Event
	err := tx.NewSelect().
		Model(&event).
		Column("id", "capacity", "tickets_sold", "is_published").
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	switch {
	case !event.IsPublished:
		return models.ErrEventNotFound
	case event.Capacity == nil:
		return models.ErrCapacityNotConfigured
	default:
		return models.ErrInsufficientSeats
	}
}

func loadLedgerRow(ctx context.Context, tx bun.Tx, eventID string) (*models.Event, error) {
	var event models.Event
	err := tx.NewSelect().
		Model(&event).
		Column("id", "capacity", "tickets_sold").
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger row: %w", err)
	}
	return &event, nil
}

// ---------------- BOOKINGS ----------------

// GetBooking → fetch one booking owned by userID
func (d *DB) GetBooking(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Relation("Event").
		Where("booking.id = ?", bookingID).
		Where("booking.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// ListBookingsByUser → all bookings of a user, newest first
func (d *DB) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Event").
		Where("booking.user_id = ?", userID).
		Order("booking.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// ConfirmedTicketsForEvent sums num_tickets over confirmed bookings of an event.
func (d *DB) ConfirmedTicketsForEvent(ctx context.Context, eventID string) (int, error) {
	var total int
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("COALESCE(SUM(num_tickets), 0)").
		Where("event_id = ?", eventID).
		Where("status = ?", models.BookingConfirmed).
		Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("sum confirmed tickets: %w", err)
	}
	return total, nil
}
