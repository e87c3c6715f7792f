package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"boxoffice/entity"
	"boxoffice/metrics"
)

type TicketsRepository interface {
	FindAvailable(ctx context.Context, eventID, tier string, limit int) ([]entity.Ticket, error)
	Reserve(ctx context.Context, eventID, ticketID, userID string, until time.Time) error
	ReleaseIfReservedBy(ctx context.Context, eventID, ticketID, userID string) error
	Release(ctx context.Context, eventID, ticketID string) error
}

// TicketReserver performs the per-ticket conditional reservation protocol.
type TicketReserver struct {
	tickets TicketsRepository
}

func NewTicketReserver(tickets TicketsRepository) *TicketReserver {
	return &TicketReserver{tickets: tickets}
}

// Reserve takes quantity tickets of one tier for userID, or nothing at all.
// Callers must hold the event lock; correctness does not depend on it, only
// the amount of wasted work does.
func (r *TicketReserver) Reserve(ctx context.Context, eventID, tier string, quantity int, userID string) ([]entity.ReservedTicket, error) {
	// Over-fetch to tolerate tickets taken between this query and the
	// conditional writes below; the query itself is not atomic with them.
	candidates, err := r.tickets.FindAvailable(ctx, eventID, tier, quantity*2)
	if err != nil {
		return nil, fmt.Errorf("could not find available tickets: %w", err)
	}

	if len(candidates) < quantity {
		return nil, fmt.Errorf("%w: only %d %s tickets available", entity.ErrNoAvailableTickets, len(candidates), tier)
	}

	until := time.Now().UTC().Add(ReservationWindow)
	reserved := make([]entity.ReservedTicket, 0, quantity)

	for _, candidate := range candidates[:quantity] {
		if err := r.tickets.Reserve(ctx, eventID, candidate.TicketID, userID, until); err != nil {
			r.Rollback(ctx, eventID, userID, reserved)

			if errors.Is(err, entity.ErrNoAvailableTickets) {
				return nil, fmt.Errorf("%w: ticket %s is no longer available", entity.ErrNoAvailableTickets, candidate.TicketID)
			}
			return nil, fmt.Errorf("could not reserve ticket %s: %w", candidate.TicketID, err)
		}

		reserved = append(reserved, entity.ReservedTicket{
			TicketID:   candidate.TicketID,
			Tier:       candidate.Tier,
			Price:      candidate.Price,
			SeatNumber: candidate.SeatNumber,
		})
		metrics.TicketsReserved.Inc()
	}

	return reserved, nil
}

// Rollback returns this attempt's tickets to the pool. The release is
// predicated on reserved_by so a ticket already re-reserved by someone else
// is left alone. Best effort: failures are logged and swallowed, and the
// orphaned reservation recovers through its own reserved_until expiry.
func (r *TicketReserver) Rollback(ctx context.Context, eventID, userID string, reserved []entity.ReservedTicket) {
	for _, ticket := range reserved {
		if err := r.tickets.ReleaseIfReservedBy(ctx, eventID, ticket.TicketID, userID); err != nil {
			log.FromContext(ctx).
				WithError(err).
				WithField("ticket_id", ticket.TicketID).
				Error("could not roll back ticket reservation")
			continue
		}
		metrics.TicketRollbacks.Inc()
	}
}
