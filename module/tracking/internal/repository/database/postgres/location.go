package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/database"
)

var _ database.LocationRepository = (*LocationRepo)(nil)

// historyLimit caps how many of the most recent points a history read returns.
const historyLimit = 500

const pointColumns = `id, device_id, latitude, longitude, address, city, state, pincode, country, display_name, speed, heading, accuracy, source, recorded_at, is_sos`

type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Insert(ctx context.Context, p *domain.LocationPoint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO location_points (id, device_id, latitude, longitude, speed, heading, accuracy, source, recorded_at, is_sos) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.DeviceID, p.Latitude, p.Longitude,
		nullFloat(p.Speed), nullFloat(p.Heading), nullFloat(p.Accuracy),
		string(p.Source), p.RecordedAt, p.IsSOS,
	)
	return err
}

// ListByDevice returns the newest points first; callers sort.
func (r *LocationRepo) ListByDevice(ctx context.Context, deviceID string) ([]domain.LocationPoint, error) {
	return r.query(ctx,
		`SELECT `+pointColumns+` FROM location_points WHERE device_id = $1 ORDER BY recorded_at DESC LIMIT $2`,
		deviceID, historyLimit,
	)
}

func (r *LocationRepo) ListMissingAddress(ctx context.Context, deviceID string, limit int) ([]domain.LocationPoint, error) {
	return r.query(ctx,
		`SELECT `+pointColumns+` FROM location_points WHERE device_id = $1 AND address = '' AND display_name = '' ORDER BY recorded_at DESC LIMIT $2`,
		deviceID, limit,
	)
}

func (r *LocationRepo) UpdateAddress(ctx context.Context, pointID string, addr domain.Address) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE location_points SET address = $2, city = $3, state = $4, pincode = $5, country = $6, display_name = $7 WHERE id = $1`,
		pointID, addr.Address, addr.City, addr.State, addr.Pincode, addr.Country, addr.DisplayName,
	)
	return err
}

func (r *LocationRepo) query(ctx context.Context, q string, args ...any) ([]domain.LocationPoint, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.LocationPoint
	for rows.Next() {
		var (
			p                        domain.LocationPoint
			speed, heading, accuracy sql.NullFloat64
			source                   string
		)
		if err := rows.Scan(
			&p.ID, &p.DeviceID, &p.Latitude, &p.Longitude,
			&p.Address, &p.City, &p.State, &p.Pincode, &p.Country, &p.DisplayName,
			&speed, &heading, &accuracy, &source, &p.RecordedAt, &p.IsSOS,
		); err != nil {
			return nil, err
		}
		p.Speed = floatPtr(speed)
		p.Heading = floatPtr(heading)
		p.Accuracy = floatPtr(accuracy)
		p.Source = domain.PointSource(source)
		results = append(results, p)
	}
	return results, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
