package booking

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"
)

// Ledger is the atomic capacity ledger. Implementations must apply the
// counter change and the booking row change as one indivisible unit.
type Ledger interface {
	BookTickets(ctx context.Context, eventID, userID string, tickets int) (*models.BookingResult, error)
	CancelBooking(ctx context.Context, bookingID, userID string) (*models.CancelResult, error)
}

type BookingStore interface {
	GetBooking(ctx context.Context, bookingID, userID string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, topic string, evt models.BookingEvent) error
}

type PassGenerator interface {
	GeneratePass(booking models.Booking) ([]byte, error)
}

type Topics struct {
	Created   string
	Cancelled string
}

const publishTimeout = 5 * time.Second

type BookingService struct {
	Ledger Ledger
	Store  BookingStore
	Kafka  EventPublisher
	Topics Topics
	Passes PassGenerator
	Logger *logger.Logger
}

func NewBookingService(ledger Ledger, store BookingStore, kafka EventPublisher, topics Topics, passes PassGenerator, logger *logger.Logger) *BookingService {
	return &BookingService{
		Ledger: ledger,
		Store:  store,
		Kafka:  kafka,
		Topics: topics,
		Passes: passes,
		Logger: logger,
	}
}

// Book reserves tickets on eventID for the authenticated userID. There is no
// retry: a lost race surfaces as ErrInsufficientSeats to the caller.
func (s *BookingService) Book(ctx context.Context, userID, eventID string, tickets int) (*models.BookingResult, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if eventID == "" || tickets <= 0 {
		return nil, models.ErrInvalidRequest
	}

	start := time.Now()
	result, err := s.Ledger.BookTickets(ctx, eventID, userID, tickets)
	metrics.LedgerDuration.WithLabelValues("book").Observe(time.Since(start).Seconds())
	if err != nil {
		err = s.storeFailure("book", err)
		metrics.BookingRequests.WithLabelValues(models.ErrorCategory(err)).Inc()
		s.Logger.Warn("BOOKING", fmt.Sprintf("Booking %d ticket(s) on event %s for user %s rejected: %s", tickets, eventID, userID, models.ErrorCategory(err)))
		return nil, err
	}

	metrics.BookingRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.TicketsMoved.WithLabelValues("booked").Add(float64(tickets))
	s.Logger.LogBooking("CREATE", result.BookingID, fmt.Sprintf("%d ticket(s) on event %s, %d remaining", tickets, eventID, result.Remaining))

	s.publish(ctx, s.Topics.Created, models.BookingEvent{
		Type:        models.BookingEventCreated,
		BookingID:   result.BookingID,
		EventID:     eventID,
		UserID:      userID,
		Tickets:     tickets,
		TicketsSold: result.Sold,
		OccurredAt:  time.Now().UTC(),
	})
	return result, nil
}

// Cancel cancels a confirmed booking owned by userID and returns its seats.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID string) (*models.CancelResult, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if bookingID == "" {
		return nil, models.ErrInvalidRequest
	}

	start := time.Now()
	result, err := s.Ledger.CancelBooking(ctx, bookingID, userID)
	metrics.LedgerDuration.WithLabelValues("cancel").Observe(time.Since(start).Seconds())
	if err != nil {
		err = s.storeFailure("cancel", err)
		metrics.BookingCancellations.WithLabelValues(models.ErrorCategory(err)).Inc()
		s.Logger.Warn("BOOKING", fmt.Sprintf("Cancellation of booking %s by user %s rejected: %s", bookingID, userID, models.ErrorCategory(err)))
		return nil, err
	}

	metrics.BookingCancellations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.TicketsMoved.WithLabelValues("released").Add(float64(result.Released))
	s.Logger.LogBooking("CANCEL", bookingID, fmt.Sprintf("released %d ticket(s) on event %s", result.Released, result.EventID))

	s.publish(ctx, s.Topics.Cancelled, models.BookingEvent{
		Type:        models.BookingEventCancelled,
		BookingID:   bookingID,
		EventID:     result.EventID,
		UserID:      userID,
		Tickets:     result.Released,
		TicketsSold: result.TicketsSold,
		OccurredAt:  time.Now().UTC(),
	})
	return result, nil
}

func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	booking, err := s.Store.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, s.storeFailure("get booking", err)
	}
	return booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	bookings, err := s.Store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, s.storeFailure("list bookings", err)
	}
	return bookings, nil
}

// BookingPass renders the QR pass of a confirmed booking.
func (s *BookingService) BookingPass(ctx context.Context, userID, bookingID string) ([]byte, error) {
	booking, err := s.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingConfirmed {
		return nil, models.ErrInvalidState
	}
	png, err := s.Passes.GeneratePass(*booking)
	if err != nil {
		return nil, s.storeFailure("generate pass", err)
	}
	return png, nil
}

// storeFailure passes domain outcomes through and collapses everything else
// into ErrStoreFailure after logging the cause.
func (s *BookingService) storeFailure(op string, err error) error {
	if models.IsDomainError(err) {
		return err
	}
	s.Logger.Error("BOOKING", fmt.Sprintf("%s failed: %v", op, err))
	return fmt.Errorf("%w: %s: %w", models.ErrStoreFailure, op, err)
}

// publish is best effort: the ledger change is already committed.
func (s *BookingService) publish(ctx context.Context, topic string, evt models.BookingEvent) {
	if s.Kafka == nil || topic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.Kafka.PublishBookingEvent(ctx, topic, evt); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for event %s: %v", evt.Type, evt.EventID, err))
		return
	}
	s.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s booking=%s", evt.Type, evt.BookingID))
}
