package bookings_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"boxoffice/db"
	"boxoffice/db/bookings"
	"boxoffice/entity"
	"boxoffice/pkg"
)

func TestMain(m *testing.M) {
	var containers []testcontainers.Container

	if os.Getenv("POSTGRES_URL") == "" {
		container, connStr := db.StartPostgresContainer()
		containers = append(containers, container)
		os.Setenv("POSTGRES_URL", connStr)
	}

	code := m.Run()

	for _, container := range containers {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}

var outboxInitOnce sync.Once

func newRepo(t *testing.T) *bookings.PostgresRepository {
	t.Helper()
	dbconn := db.GetDb(t)

	// in production the forwarder's subscriber creates the outbox table at
	// startup; the transactional publisher cannot do it itself
	outboxInitOnce.Do(func() {
		subscriber, err := pkg.NewOutboxSubscriber(dbconn, watermill.NopLogger{})
		require.NoError(t, err)
		require.NoError(t, subscriber.(*watermillSQL.Subscriber).SubscribeInitialize(pkg.OutboxTopic))
		require.NoError(t, subscriber.Close())
	})

	return bookings.NewPostgresRepository(dbconn, watermill.NopLogger{})
}

func someBooking(userID string, status entity.BookingStatus) entity.Booking {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return entity.Booking{
		BookingID: uuid.NewString(),
		UserID:    userID,
		EventID:   uuid.NewString(),
		Tickets: entity.ReservedTickets{
			{TicketID: uuid.NewString(), Tier: "standard", Price: decimal.RequireFromString("49.99"), SeatNumber: "A1"},
		},
		TotalAmount:   decimal.RequireFromString("49.99"),
		Status:        status,
		ReservedUntil: now.Add(5 * time.Minute),
		CreatedAt:     now,
		UpdatedAt:     now,
		PurgeAfter:    now.Add(5*time.Minute + time.Hour),
	}
}

func TestBookingsRepository_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	booking := someBooking(uuid.NewString(), entity.BookingStatusReserved)
	require.NoError(t, repo.Store(ctx, booking))

	stored, err := repo.Get(ctx, booking.BookingID)
	require.NoError(t, err)

	assert.Equal(t, booking.BookingID, stored.BookingID)
	assert.Equal(t, booking.UserID, stored.UserID)
	assert.Equal(t, entity.BookingStatusReserved, stored.Status)
	require.Len(t, stored.Tickets, 1)
	assert.Equal(t, booking.Tickets[0].TicketID, stored.Tickets[0].TicketID)
	assert.True(t, stored.TotalAmount.Equal(booking.TotalAmount))
	assert.WithinDuration(t, booking.ReservedUntil, stored.ReservedUntil, time.Second)
	assert.WithinDuration(t, booking.PurgeAfter, stored.PurgeAfter, time.Second)
}

func TestBookingsRepository_Store_enqueuesReservationMessage(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	dbconn := db.GetDb(t)

	var before int
	// the outbox table is created lazily on the first publish
	_ = dbconn.Get(&before, `SELECT COUNT(*) FROM watermill_messages_to_forward`)

	booking := someBooking(uuid.NewString(), entity.BookingStatusReserved)
	require.NoError(t, repo.Store(ctx, booking))

	var after int
	err := dbconn.Get(&after, `SELECT COUNT(*) FROM watermill_messages_to_forward`)
	require.NoError(t, err)
	assert.Equal(t, before+1, after, "the booking insert and its outbox message must land together")
}

func TestBookingsRepository_Get_notFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestBookingsRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	booking := someBooking(uuid.NewString(), entity.BookingStatusReserved)
	require.NoError(t, repo.Store(ctx, booking))

	require.NoError(t, repo.UpdateStatus(ctx, booking.BookingID, entity.BookingStatusProcessing))

	stored, err := repo.Get(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusProcessing, stored.Status)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

	err = repo.UpdateStatus(ctx, uuid.NewString(), entity.BookingStatusCancelled)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestBookingsRepository_CountActive(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	userID := uuid.NewString()
	for _, status := range []entity.BookingStatus{
		entity.BookingStatusReserved,
		entity.BookingStatusProcessing,
		entity.BookingStatusConfirmed,
		entity.BookingStatusCancelled,
		entity.BookingStatusExpired,
	} {
		require.NoError(t, repo.Store(ctx, someBooking(userID, status)))
	}

	count, err := repo.CountActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "only reserved, processing and confirmed count against the quota")
}

func TestBookingsRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	userID := uuid.NewString()
	statuses := []entity.BookingStatus{
		entity.BookingStatusReserved,
		entity.BookingStatusConfirmed,
		entity.BookingStatusCancelled,
	}
	for i, status := range statuses {
		booking := someBooking(userID, status)
		booking.CreatedAt = booking.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Store(ctx, booking))
	}

	all, err := repo.ListByUser(ctx, userID, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, entity.BookingStatusCancelled, all[0].Status, "newest first")

	confirmed, err := repo.ListByUser(ctx, userID, 10, 0, entity.BookingStatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, entity.BookingStatusConfirmed, confirmed[0].Status)

	paged, err := repo.ListByUser(ctx, userID, 1, 1, "")
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, entity.BookingStatusConfirmed, paged[0].Status)

	none, err := repo.ListByUser(ctx, uuid.NewString(), 10, 0, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}
