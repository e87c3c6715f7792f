package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id VARCHAR(36) PRIMARY KEY,
	name TEXT NOT NULL,
	venue TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tickets (
	event_id VARCHAR(36) NOT NULL,
	ticket_id VARCHAR(36) NOT NULL,
	tier TEXT NOT NULL,
	price NUMERIC(12, 2) NOT NULL,
	seat_number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'available',
	reserved_by VARCHAR(36),
	reserved_until TIMESTAMPTZ,
	PRIMARY KEY (event_id, ticket_id)
);

CREATE INDEX IF NOT EXISTS tickets_availability_idx
	ON tickets (event_id, tier, status);

CREATE TABLE IF NOT EXISTS bookings (
	booking_id VARCHAR(36) PRIMARY KEY,
	user_id VARCHAR(36) NOT NULL,
	event_id VARCHAR(36) NOT NULL,
	tickets JSONB NOT NULL,
	total_amount NUMERIC(12, 2) NOT NULL,
	status TEXT NOT NULL DEFAULT 'reserved',
	reserved_until TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	purge_after TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS bookings_user_idx
	ON bookings (user_id, created_at DESC);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}
	return nil
}
