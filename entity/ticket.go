package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusReserved  TicketStatus = "reserved"
	TicketStatusSold      TicketStatus = "sold"
)

type Ticket struct {
	EventID       string          `json:"event_id" db:"event_id"`
	TicketID      string          `json:"ticket_id" db:"ticket_id"`
	Tier          string          `json:"tier" db:"tier"`
	Price         decimal.Decimal `json:"price" db:"price"`
	SeatNumber    string          `json:"seat_number" db:"seat_number"`
	Status        TicketStatus    `json:"status" db:"status"`
	ReservedBy    *string         `json:"reserved_by,omitempty" db:"reserved_by"`
	ReservedUntil *time.Time      `json:"reserved_until,omitempty" db:"reserved_until"`
}

// ReservedTicket is the snapshot copied into a booking at reservation time.
// It is never re-read from the tickets table.
type ReservedTicket struct {
	TicketID   string          `json:"ticket_id"`
	Tier       string          `json:"tier"`
	Price      decimal.Decimal `json:"price"`
	SeatNumber string          `json:"seat_number"`
}

// ReservedTickets is stored as a JSONB column on bookings.
type ReservedTickets []ReservedTicket

func (t ReservedTickets) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *ReservedTickets) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported type for reserved tickets: %T", src)
	}
}

func (t ReservedTickets) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, ticket := range t {
		total = total.Add(ticket.Price)
	}
	return total
}
