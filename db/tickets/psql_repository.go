package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"boxoffice/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Store(ctx context.Context, ticket entity.Ticket) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tickets (event_id, ticket_id, tier, price, seat_number, status)
		VALUES (:event_id, :ticket_id, :tier, :price, :seat_number, :status)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, ticket)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, eventID, ticketID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT event_id, ticket_id, tier, price, seat_number, status, reserved_by, reserved_until
		FROM tickets
		WHERE event_id = $1 AND ticket_id = $2
	`, eventID, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get ticket: %w", err)
	}

	return ticket, nil
}

// FindAvailable returns up to limit available tickets of the given tier.
// The result is a point-in-time snapshot: tickets may be taken by another
// actor between this query and the conditional Reserve that follows.
func (r *PostgresRepository) FindAvailable(ctx context.Context, eventID, tier string, limit int) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT event_id, ticket_id, tier, price, seat_number, status, reserved_by, reserved_until
		FROM tickets
		WHERE event_id = $1 AND tier = $2 AND status = 'available'
		ORDER BY ticket_id
		LIMIT $3
	`, eventID, tier, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query available tickets: %w", err)
	}

	return tickets, nil
}

// Reserve performs the conditional available -> reserved transition. The
// status predicate in the WHERE clause is the sole mechanism preventing two
// concurrent requests from reserving the same ticket.
func (r *PostgresRepository) Reserve(ctx context.Context, eventID, ticketID, userID string, until time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'reserved', reserved_by = $3, reserved_until = $4
		WHERE event_id = $1 AND ticket_id = $2 AND status = 'available'
	`, eventID, ticketID, userID, until)
	if err != nil {
		return fmt.Errorf("could not reserve ticket %s: %w", ticketID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// lost the race: the ticket is no longer available
		return entity.ErrNoAvailableTickets
	}

	return nil
}

// ReleaseIfReservedBy rolls a ticket back to available only while userID
// still holds it, so a ticket legitimately re-reserved by someone else is
// never clobbered. A failed predicate is not an error.
func (r *PostgresRepository) ReleaseIfReservedBy(ctx context.Context, eventID, ticketID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'available', reserved_by = NULL, reserved_until = NULL
		WHERE event_id = $1 AND ticket_id = $2 AND status = 'reserved' AND reserved_by = $3
	`, eventID, ticketID, userID)
	if err != nil {
		return fmt.Errorf("could not roll back ticket %s: %w", ticketID, err)
	}

	return nil
}

// Release unconditionally returns a ticket to the available pool. Used by
// cancellation, where the booking record is the authoritative owner.
func (r *PostgresRepository) Release(ctx context.Context, eventID, ticketID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = 'available', reserved_by = NULL, reserved_until = NULL
		WHERE event_id = $1 AND ticket_id = $2
	`, eventID, ticketID)
	if err != nil {
		return fmt.Errorf("could not release ticket %s: %w", ticketID, err)
	}

	return nil
}
