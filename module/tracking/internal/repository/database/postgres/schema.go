package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'offline',
		reported_lat DOUBLE PRECISION,
		reported_lon DOUBLE PRECISION,
		last_seen_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS location_points (
		id           TEXT PRIMARY KEY,
		device_id    TEXT NOT NULL,
		latitude     DOUBLE PRECISION NOT NULL,
		longitude    DOUBLE PRECISION NOT NULL,
		address      TEXT NOT NULL DEFAULT '',
		city         TEXT NOT NULL DEFAULT '',
		state        TEXT NOT NULL DEFAULT '',
		pincode      TEXT NOT NULL DEFAULT '',
		country      TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		speed        DOUBLE PRECISION,
		heading      DOUBLE PRECISION,
		accuracy     DOUBLE PRECISION,
		source       TEXT NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL,
		is_sos       BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_location_points_device_time ON location_points (device_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS responders (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		latitude  DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		active    BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// EnsureSchema creates the tables the tracking module needs.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
