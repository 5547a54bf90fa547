package availability

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type LedgerReader interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
}

type Broadcaster interface {
	Broadcast(availability models.Availability)
}

type Store interface {
	Invalidate(ctx context.Context, eventID string) error
}

// Projector turns booking events into fresh availability snapshots. It never
// trusts counts carried by the message and always re-reads the ledger row.
// The cached snapshot is dropped rather than overwritten: two projections of
// the same event may finish in either order, and the next reader repopulates
// the cache from the ledger.
type Projector struct {
	Ledger      LedgerReader
	Cache       Store
	Broadcaster Broadcaster
	Logger      *logger.Logger
}

func NewProjector(ledger LedgerReader, cache Store, broadcaster Broadcaster, logger *logger.Logger) *Projector {
	return &Projector{
		Ledger:      ledger,
		Cache:       cache,
		Broadcaster: broadcaster,
		Logger:      logger,
	}
}

// Handle matches the kafka consumer handler signature.
func (p *Projector) Handle(ctx context.Context, evt models.BookingEvent) error {
	if evt.EventID == "" {
		return fmt.Errorf("%s message without event id", evt.Type)
	}

	event, err := p.Ledger.GetEvent(ctx, evt.EventID)
	if err != nil && !errors.Is(err, models.ErrEventNotFound) {
		return fmt.Errorf("read ledger for %s: %w", evt.EventID, err)
	}
	if err := p.Cache.Invalidate(ctx, evt.EventID); err != nil {
		return err
	}
	if event == nil || !event.IsPublished {
		p.Logger.Debug("PROJECTOR", fmt.Sprintf("Event %s is gone or unpublished, nothing to broadcast", evt.EventID))
		return nil
	}

	snapshot := event.Availability()
	if p.Broadcaster != nil {
		p.Broadcaster.Broadcast(snapshot)
	}

	p.Logger.Debug("PROJECTOR", fmt.Sprintf("%s on event %s: %d sold", evt.Type, evt.EventID, snapshot.TicketsSold))
	return nil
}

// DirectPublisher feeds booking events straight into a projector. Used when
// the service runs without Kafka.
type DirectPublisher struct {
	Projector *Projector
}

func (d DirectPublisher) PublishBookingEvent(ctx context.Context, _ string, evt models.BookingEvent) error {
	return d.Projector.Handle(ctx, evt)
}
