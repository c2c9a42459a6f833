package sqlite

import (
	"context"
	"fmt"
)

// schema holds the full DDL for the reservation store. Statements are
// idempotent so Migrate can run on every startup. The composite index on
// bookings backs ConflictDetector's range query.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin      INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		min_capacity INTEGER NOT NULL DEFAULT 1,
		max_capacity INTEGER NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		CHECK (min_capacity > 0 AND max_capacity >= min_capacity)
	)`,
	`CREATE TABLE IF NOT EXISTS room_features (
		room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		feature TEXT NOT NULL,
		PRIMARY KEY (room_id, feature)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                  TEXT PRIMARY KEY,
		room_id             TEXT NOT NULL REFERENCES rooms(id),
		user_id             TEXT NOT NULL REFERENCES users(id),
		start_time          TEXT NOT NULL,
		end_time            TEXT NOT NULL,
		purpose             TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL CHECK (status IN ('CONFIRMED', 'CANCELLED')),
		cancellation_reason TEXT,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_room_status_window
		ON bookings (room_id, status, start_time, end_time)`,
	`CREATE TABLE IF NOT EXISTS booking_attendees (
		booking_id   TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		name         TEXT NOT NULL,
		student_id   TEXT,
		is_companion INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (booking_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

// Migrate applies the schema to the connected database.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
