package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
	"boxoffice/pkg"
	"boxoffice/pubsub"
)

type PostgresRepository struct {
	db     *sqlx.DB
	logger watermill.LoggerAdapter
}

func NewPostgresRepository(db *sqlx.DB, logger watermill.LoggerAdapter) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db, logger: logger}
}

// Store persists a new booking and enqueues its process_reservation message
// through the outbox in the same transaction, so a booking row never exists
// without its downstream message.
func (r *PostgresRepository) Store(ctx context.Context, booking entity.Booking) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO bookings
			(booking_id, user_id, event_id, tickets, total_amount, status,
			 reserved_until, created_at, updated_at, purge_after)
		VALUES
			(:booking_id, :user_id, :event_id, :tickets, :total_amount, :status,
			 :reserved_until, :created_at, :updated_at, :purge_after)
	`, booking)
	if err != nil {
		return fmt.Errorf("could not add booking: %w", err)
	}

	outboxPublisher, err := pkg.NewOutboxPublisher(tx.Tx, r.logger)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	msg, err := pubsub.NewQueueMessage(entity.NewReservationMessage(booking.BookingID, booking.UserID))
	if err != nil {
		return err
	}

	if err = outboxPublisher.Publish(pubsub.TopicReservations, msg); err != nil {
		return fmt.Errorf("could not publish reservation message: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, bookingID string) (entity.Booking, error) {
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking, `
		SELECT booking_id, user_id, event_id, tickets, total_amount, status,
		       reserved_until, created_at, updated_at, purge_after
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Booking{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not get booking: %w", err)
	}

	return booking, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, bookingID string, status entity.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2, updated_at = now()
		WHERE booking_id = $1
	`, bookingID, status)
	if err != nil {
		return fmt.Errorf("could not update booking status: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return entity.ErrNotFound
	}

	return nil
}

// CountActive is the source of truth behind the cached per-user quota counter.
func (r *PostgresRepository) CountActive(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1 AND status IN ('reserved', 'processing', 'confirmed')
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("could not count active bookings: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
	status entity.BookingStatus,
) ([]entity.Booking, error) {
	query := `
		SELECT booking_id, user_id, event_id, tickets, total_amount, status,
		       reserved_until, created_at, updated_at, purge_after
		FROM bookings
		WHERE user_id = $1`
	args := []any{userID}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var bookings []entity.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("could not list bookings: %w", err)
	}

	return bookings, nil
}
