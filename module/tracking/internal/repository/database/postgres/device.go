package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/database"
)

var _ database.DeviceRepository = (*DeviceRepo)(nil)

const deviceColumns = `id, name, status, reported_lat, reported_lon, last_seen_at`

type DeviceRepo struct {
	db *sql.DB
}

func NewDeviceRepo(db *sql.DB) *DeviceRepo {
	return &DeviceRepo{db: db}
}

func (r *DeviceRepo) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`,
		deviceID,
	)
	return scanDevice(row)
}

// UpsertTelemetry records a location report. A device that reports is
// online.
func (r *DeviceRepo) UpsertTelemetry(ctx context.Context, deviceID string, loc domain.Coordinate, seenAt time.Time) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO devices (id, name, status, reported_lat, reported_lon, last_seen_at) VALUES ($1, $1, 'online', $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET status = 'online', reported_lat = EXCLUDED.reported_lat, reported_lon = EXCLUDED.reported_lon, last_seen_at = EXCLUDED.last_seen_at
		 RETURNING `+deviceColumns,
		deviceID, loc.Lat, loc.Lon, seenAt,
	)
	return scanDevice(row)
}

func (r *DeviceRepo) UpdateStatus(ctx context.Context, deviceID string, status domain.DeviceStatus) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE devices SET status = $2 WHERE id = $1 RETURNING `+deviceColumns,
		deviceID, string(status),
	)
	return scanDevice(row)
}

func scanDevice(row *sql.Row) (*domain.Device, error) {
	var (
		d        domain.Device
		status   string
		lat, lon sql.NullFloat64
		seen     sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Name, &status, &lat, &lon, &seen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, err
	}
	d.Status = domain.DeviceStatus(status)
	if lat.Valid && lon.Valid {
		d.ReportedLocation = &domain.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	if seen.Valid {
		t := seen.Time
		d.LastSeenAt = &t
	}
	return &d, nil
}
