package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is one row of the capacity ledger. Capacity is nil when the organizer
// never configured it; TicketsSold only moves through the booking ledger.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk" json:"id"`
	OrganizerID string    `bun:"organizer_id,notnull" json:"organizer_id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Location    string    `bun:"location,nullzero" json:"location,omitempty"`
	StartsAt    time.Time `bun:"starts_at,notnull" json:"starts_at"`
	EndsAt      time.Time `bun:"ends_at,nullzero" json:"ends_at,omitempty"`
	Capacity    *int      `bun:"capacity" json:"capacity"`
	TicketsSold int       `bun:"tickets_sold,notnull,default:0" json:"tickets_sold"`
	IsPublished bool      `bun:"is_published,notnull,default:false" json:"is_published"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Remaining returns the seats left, or -1 when capacity is not configured.
func (e *Event) Remaining() int {
	if e.Capacity == nil {
		return -1
	}
	return *e.Capacity - e.TicketsSold
}

type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID   string `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
	Slug string `bun:"slug,unique,notnull" json:"slug"`
}

type EventCategory struct {
	bun.BaseModel `bun:"table:event_categories"`

	EventID    string `bun:"event_id,pk"`
	CategoryID string `bun:"category_id,pk"`
}

// EventFilter carries the public listing filters. Date is a YYYY-MM-DD day.
type EventFilter struct {
	Search   string
	Location string
	Date     string
	Category string
}

type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    *int      `json:"capacity"`
	Categories  []string  `json:"categories"`
}

// Availability is the read view of a ledger row served to browsers.
type Availability struct {
	EventID     string    `json:"event_id"`
	Capacity    *int      `json:"capacity"`
	TicketsSold int       `json:"tickets_sold"`
	Remaining   *int      `json:"remaining"`
	ObservedAt  time.Time `json:"observed_at"`
}

func (e *Event) Availability() Availability {
	a := Availability{
		EventID:     e.ID,
		Capacity:    e.Capacity,
		TicketsSold: e.TicketsSold,
		ObservedAt:  time.Now().UTC(),
	}
	if e.Capacity != nil {
		remaining := *e.Capacity - e.TicketsSold
		a.Remaining = &remaining
	}
	return a
}
