package db

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// SQLSTATEs raised by the booking procedures installed in migration 000003.
const (
	sqlStateEventNotFound         = "BK001"
	sqlStateCapacityNotConfigured = "BK002"
	sqlStateInsufficientSeats     = "BK003"
	sqlStateBookingNotFound       = "BK004"
	sqlStateInvalidState          = "BK005"
)

// ProcedureLedger runs booking and cancellation as one server-side call each.
// Postgres only.
type ProcedureLedger struct {
	Bun *bun.DB
}

func (p *ProcedureLedger) BookTickets(ctx context.Context, eventID, userID string, tickets int) (*models.BookingResult, error) {
	var (
		bookingID           string
		remaining, capacity int
		ticketsSold         int
	)
	err := p.Bun.NewRaw(
		"SELECT booking_id, remaining, capacity, tickets_sold FROM create_booking_atomic(?, ?, ?)",
		eventID, userID, tickets,
	).Scan(ctx, &bookingID, &remaining, &capacity, &ticketsSold)
	if err != nil {
		return nil, mapProcedureError("create_booking_atomic", err)
	}
	return &models.BookingResult{
		BookingID: bookingID,
		EventID:   eventID,
		Tickets:   tickets,
		Remaining: remaining,
		Capacity:  capacity,
		Sold:      ticketsSold,
	}, nil
}

func (p *ProcedureLedger) CancelBooking(ctx context.Context, bookingID, userID string) (*models.CancelResult, error) {
	var (
		eventID                 string
		numTickets, ticketsSold int
	)
	err := p.Bun.NewRaw(
		"SELECT event_id, num_tickets, tickets_sold FROM cancel_booking_atomic(?, ?)",
		bookingID, userID,
	).Scan(ctx, &eventID, &numTickets, &ticketsSold)
	if err != nil {
		return nil, mapProcedureError("cancel_booking_atomic", err)
	}
	return &models.CancelResult{
		BookingID:   bookingID,
		EventID:     eventID,
		Released:    numTickets,
		TicketsSold: ticketsSold,
	}, nil
}

// mapProcedureError turns the procedures' custom SQLSTATEs back into the
// domain sentinels and wraps everything else.
func mapProcedureError(procedure string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case sqlStateEventNotFound:
			return models.ErrEventNotFound
		case sqlStateCapacityNotConfigured:
			return models.ErrCapacityNotConfigured
		case sqlStateInsufficientSeats:
			return models.ErrInsufficientSeats
		case sqlStateBookingNotFound:
			return models.ErrBookingNotFound
		case sqlStateInvalidState:
			return models.ErrInvalidState
		}
	}
	return fmt.Errorf("%s: %w", procedure, err)
}
