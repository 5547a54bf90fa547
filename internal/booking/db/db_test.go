package db_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/sync/errgroup"
)

func setupTestDB(t *testing.T) *bookingdb.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	// every :memory: connection is its own database
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	require.NoError(t, bunDB.ResetModel(ctx, (*models.Event)(nil), (*models.Booking)(nil)))

	return &bookingdb.DB{Bun: bunDB}
}

func intPtr(v int) *int { return &v }

func seedEvent(t *testing.T, d *bookingdb.DB, id string, capacity *int, sold int, published bool) {
	t.Helper()
	event := models.Event{
		ID:          id,
		OrganizerID: "organizer-1",
		Title:       "Event " + id,
		StartsAt:    time.Now().Add(48 * time.Hour).UTC(),
		Capacity:    capacity,
		TicketsSold: sold,
		IsPublished: published,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := d.Bun.NewInsert().Model(&event).Exec(context.Background())
	require.NoError(t, err)
}

func ledgerRow(t *testing.T, d *bookingdb.DB, id string) models.Event {
	t.Helper()
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("id = ?", id).Scan(context.Background())
	require.NoError(t, err)
	return event
}

func TestBookTicketsSuccess(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 0, true)

	res, err := d.BookTickets(context.Background(), "e-1", "u-1", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, res.BookingID)
	assert.Equal(t, 7, res.Remaining)
	assert.Equal(t, 3, res.Sold)

	assert.Equal(t, 3, ledgerRow(t, d, "e-1").TicketsSold)

	booking, err := d.GetBooking(context.Background(), res.BookingID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, 3, booking.NumTickets)
	require.NotNil(t, booking.Event)
	assert.Equal(t, "e-1", booking.Event.ID)
}

func TestBookTicketsExactFill(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(4), 1, true)

	res, err := d.BookTickets(context.Background(), "e-1", "u-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)
}

func TestConcurrentOverlappingRequestsOneWins(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 0, true)

	var wins, rejected atomic.Int32
	var g errgroup.Group
	for _, user := range []string{"u-1", "u-2"} {
		user := user
		g.Go(func() error {
			_, err := d.BookTickets(context.Background(), "e-1", user, 6)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, models.ErrInsufficientSeats):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(1), rejected.Load())
	event := ledgerRow(t, d, "e-1")
	assert.Equal(t, 6, event.TicketsSold)
	assert.Equal(t, 4, event.Remaining())
}

func TestConcurrentBookingsNeverOversell(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 0, true)

	var wins atomic.Int32
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := d.BookTickets(context.Background(), "e-1", "u-1", 1)
			if err == nil {
				wins.Add(1)
				return nil
			}
			if errors.Is(err, models.ErrInsufficientSeats) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(10), wins.Load())
	assert.Equal(t, 10, ledgerRow(t, d, "e-1").TicketsSold)

	confirmed, err := d.ConfirmedTicketsForEvent(context.Background(), "e-1")
	require.NoError(t, err)
	assert.Equal(t, 10, confirmed)
}

func TestBookTicketsSoldOut(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(5), 5, true)

	_, err := d.BookTickets(context.Background(), "e-1", "u-1", 1)
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)

	assert.Equal(t, 5, ledgerRow(t, d, "e-1").TicketsSold)
	bookings, err := d.ListBookingsByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestBookTicketsHugeCountIsInsufficientSeats(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 5, true)

	_, err := d.BookTickets(context.Background(), "e-1", "u-1", math.MaxInt32)
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)
	assert.Equal(t, 5, ledgerRow(t, d, "e-1").TicketsSold)
}

func TestBookTicketsCapacityNotConfigured(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", nil, 0, true)

	_, err := d.BookTickets(context.Background(), "e-1", "u-1", 1)
	assert.ErrorIs(t, err, models.ErrCapacityNotConfigured)
}

func TestBookTicketsUnknownOrUnpublishedEvent(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "draft", intPtr(10), 0, false)

	_, err := d.BookTickets(context.Background(), "missing", "u-1", 1)
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	_, err = d.BookTickets(context.Background(), "draft", "u-1", 1)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.Equal(t, 0, ledgerRow(t, d, "draft").TicketsSold)
}

func TestCancelBookingReleasesSeatsOnce(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 5, true)

	res, err := d.BookTickets(context.Background(), "e-1", "u-1", 3)
	require.NoError(t, err)
	require.Equal(t, 8, ledgerRow(t, d, "e-1").TicketsSold)

	cancelled, err := d.CancelBooking(context.Background(), res.BookingID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, cancelled.Released)
	assert.Equal(t, 5, cancelled.TicketsSold)
	assert.Equal(t, "e-1", cancelled.EventID)

	assert.Equal(t, 5, ledgerRow(t, d, "e-1").TicketsSold)
	booking, err := d.GetBooking(context.Background(), res.BookingID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)

	_, err = d.CancelBooking(context.Background(), res.BookingID, "u-1")
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, 5, ledgerRow(t, d, "e-1").TicketsSold)
}

func TestConcurrentCancelReleasesOnce(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 0, true)
	res, err := d.BookTickets(context.Background(), "e-1", "u-1", 4)
	require.NoError(t, err)

	var wins atomic.Int32
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := d.CancelBooking(context.Background(), res.BookingID, "u-1")
			if err == nil {
				wins.Add(1)
				return nil
			}
			if errors.Is(err, models.ErrInvalidState) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 0, ledgerRow(t, d, "e-1").TicketsSold)
}

func TestCancelBookingOwnedByAnotherUser(t *testing.T) {
	d := setupTestDB(t)
	seedEvent(t, d, "e-1", intPtr(10), 0, true)
	res, err := d.BookTickets(context.Background(), "e-1", "owner", 2)
	require.NoError(t, err)

	_, err = d.CancelBooking(context.Background(), res.BookingID, "intruder")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)

	_, err = d.CancelBooking(context.Background(), "does-not-exist", "owner")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)

	assert.Equal(t, 2, ledgerRow(t, d, "e-1").TicketsSold)
}

func TestLedgerMatchesConfirmedBookings(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, d, "e-1", intPtr(20), 0, true)

	var ids []string
	for _, n := range []int{2, 5, 1, 4} {
		res, err := d.BookTickets(ctx, "e-1", "u-1", n)
		require.NoError(t, err)
		ids = append(ids, res.BookingID)
	}
	_, err := d.CancelBooking(ctx, ids[1], "u-1")
	require.NoError(t, err)
	_, err = d.BookTickets(ctx, "e-1", "u-2", 30)
	require.ErrorIs(t, err, models.ErrInsufficientSeats)

	confirmed, err := d.ConfirmedTicketsForEvent(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, 7, confirmed)
	assert.Equal(t, confirmed, ledgerRow(t, d, "e-1").TicketsSold)
}

func TestListAndGetBookingsAreScopedToOwner(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	seedEvent(t, d, "e-1", intPtr(10), 0, true)

	mine, err := d.BookTickets(ctx, "e-1", "u-1", 1)
	require.NoError(t, err)
	_, err = d.BookTickets(ctx, "e-1", "u-1", 1)
	require.NoError(t, err)
	_, err = d.BookTickets(ctx, "e-1", "u-2", 1)
	require.NoError(t, err)

	bookings, err := d.ListBookingsByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
	for _, b := range bookings {
		assert.Equal(t, "u-1", b.UserID)
	}

	_, err = d.GetBooking(ctx, mine.BookingID, "u-2")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
}
