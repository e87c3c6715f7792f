package entity

import (
	"time"
)

type EventStatus string

const (
	EventStatusActive  EventStatus = "active"
	EventStatusSoldOut EventStatus = "sold_out"
	EventStatusClosed  EventStatus = "closed"
)

// Event is read-only from the booking core's perspective; it is seeded
// and maintained elsewhere.
type Event struct {
	EventID   string      `json:"event_id" db:"event_id"`
	Name      string      `json:"name" db:"name"`
	Venue     string      `json:"venue" db:"venue"`
	Status    EventStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
