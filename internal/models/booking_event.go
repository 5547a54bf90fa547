package models

import "time"

const (
	BookingEventCreated   = "booking.created"
	BookingEventCancelled = "booking.cancelled"
	EventEventUpdated     = "event.updated"
)

// BookingEvent is the Kafka payload emitted after a ledger mutation commits.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   string    `json:"booking_id,omitempty"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id,omitempty"`
	Tickets     int       `json:"tickets"`
	TicketsSold int       `json:"tickets_sold"`
	OccurredAt  time.Time `json:"occurred_at"`
}
