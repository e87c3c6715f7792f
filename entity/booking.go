package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusReserved   BookingStatus = "reserved"
	BookingStatusProcessing BookingStatus = "processing"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusExpired    BookingStatus = "expired"
)

// IsActive reports whether a booking in this status counts against the
// owner's quota.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusReserved || s == BookingStatusProcessing || s == BookingStatusConfirmed
}

type Booking struct {
	BookingID     string          `json:"booking_id" db:"booking_id"`
	UserID        string          `json:"user_id" db:"user_id"`
	EventID       string          `json:"event_id" db:"event_id"`
	Tickets       ReservedTickets `json:"tickets" db:"tickets"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status        BookingStatus   `json:"status" db:"status"`
	ReservedUntil time.Time       `json:"reserved_until" db:"reserved_until"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	// PurgeAfter is the retention marker: the store may physically delete
	// the row after this point, regardless of status.
	PurgeAfter time.Time `json:"purge_after" db:"purge_after"`
}

// TierRequest asks for a quantity of tickets within one tier.
type TierRequest struct {
	Tier     string `json:"tier"`
	Quantity int    `json:"quantity"`
}
