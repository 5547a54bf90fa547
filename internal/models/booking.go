package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	// BookingPending is reserved; no flow produces it today.
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// bookingTransitions is the complete set of allowed status moves.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingConfirmed: {BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a booking in status s may move to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is a per-user reservation. NumTickets never changes after insert.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID         string        `bun:"id,pk" json:"id"`
	UserID     string        `bun:"user_id,notnull" json:"user_id"`
	EventID    string        `bun:"event_id,notnull" json:"event_id"`
	NumTickets int           `bun:"num_tickets,notnull" json:"num_tickets"`
	Status     BookingStatus `bun:"status,notnull" json:"status"`
	CreatedAt  time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time     `bun:"updated_at,nullzero" json:"updated_at,omitempty"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
}

// BookingResult is returned by a successful atomic booking.
type BookingResult struct {
	BookingID string `json:"booking_id"`
	EventID   string `json:"event_id"`
	Tickets   int    `json:"tickets"`
	Remaining int    `json:"remaining"`
	Capacity  int    `json:"-"`
	Sold      int    `json:"-"`
}

// CancelResult is returned by a successful cancellation.
type CancelResult struct {
	BookingID   string `json:"booking_id"`
	EventID     string `json:"event_id"`
	Released    int    `json:"released"`
	TicketsSold int    `json:"tickets_sold"`
}
