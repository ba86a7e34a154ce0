package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/database"
)

const (
	defaultBackfillLimit = 25
	maxBackfillLimit     = 100
)

type geocoder interface {
	Reverse(ctx context.Context, c domain.Coordinate) (*domain.Address, error)
}

type alerter interface {
	TriggerAlert(ctx context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error)
}

// LocationService is the backend the tracking views talk to, and the sink
// for device telemetry.
type LocationService struct {
	locations database.LocationRepository
	devices   database.DeviceRepository
	geocoder  geocoder
	alerter   alerter
	logger    *slog.Logger
	now       func() time.Time
}

var _ Backend = (*LocationService)(nil)

func NewLocationService(locations database.LocationRepository, devices database.DeviceRepository, geo geocoder, alerts alerter, logger *slog.Logger) *LocationService {
	return &LocationService{
		locations: locations,
		devices:   devices,
		geocoder:  geo,
		alerter:   alerts,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *LocationService) GetLocationHistory(ctx context.Context, deviceID string) ([]domain.LocationPoint, error) {
	return s.locations.ListByDevice(ctx, deviceID)
}

func (s *LocationService) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.devices.Get(ctx, deviceID)
}

func (s *LocationService) CreateLocationPoint(ctx context.Context, req domain.NewLocationPoint) (*domain.LocationPoint, error) {
	if req.DeviceID == "" {
		return nil, &domain.RemoteError{Op: "create location", Message: "Device id is required."}
	}
	if !(domain.Coordinate{Lat: req.Latitude, Lon: req.Longitude}).Valid() {
		return nil, &domain.RemoteError{Op: "create location", Message: "Latitude or longitude is out of range."}
	}

	recorded := req.RecordedAt
	if recorded.IsZero() {
		recorded = s.now()
	}
	source := req.Source
	if source == "" {
		source = domain.PointSourceDevice
	}

	p := &domain.LocationPoint{
		ID:         uuid.NewString(),
		DeviceID:   req.DeviceID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Speed:      req.Speed,
		Heading:    req.Heading,
		Accuracy:   req.Accuracy,
		Source:     source,
		RecordedAt: recorded,
		IsSOS:      req.IsSOS,
	}
	if err := s.locations.Insert(ctx, p); err != nil {
		return nil, &domain.RemoteError{Op: "create location", Message: "The location could not be saved.", Err: err}
	}
	return p, nil
}

func (s *LocationService) TriggerEmergencyAlert(ctx context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error) {
	return s.alerter.TriggerAlert(ctx, alert)
}

// BackfillAddresses geocodes up to limit of the device's most recent points
// that have no address. Points the geocoder cannot resolve are skipped.
func (s *LocationService) BackfillAddresses(ctx context.Context, deviceID string, limit int) error {
	if limit <= 0 {
		limit = defaultBackfillLimit
	}
	limit = min(limit, maxBackfillLimit)

	points, err := s.locations.ListMissingAddress(ctx, deviceID, limit)
	if err != nil {
		return fmt.Errorf("list points without address: %w", err)
	}

	var errs []error
	filled := 0
	for _, p := range points {
		addr, err := s.geocoder.Reverse(ctx, p.Coordinate())
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
			break
		}
		if err != nil {
			s.logger.Debug("reverse geocode failed", "point_id", p.ID, "error", err)
			continue
		}
		if err := s.locations.UpdateAddress(ctx, p.ID, *addr); err != nil {
			errs = append(errs, fmt.Errorf("update address of %s: %w", p.ID, err))
			continue
		}
		filled++
	}

	s.logger.Info("address backfill finished", "device_id", deviceID, "candidates", len(points), "filled", filled)
	return errors.Join(errs...)
}

// SaveTelemetry stores a device location report as a history point and as
// the device's reported location.
func (s *LocationService) SaveTelemetry(ctx context.Context, t *domain.DeviceTelemetry) (*domain.Device, error) {
	if _, err := s.CreateLocationPoint(ctx, domain.NewLocationPoint{
		DeviceID:   t.DeviceID,
		Latitude:   t.Location.Lat,
		Longitude:  t.Location.Lon,
		Speed:      t.Speed,
		Heading:    t.Heading,
		Accuracy:   t.Accuracy,
		Source:     domain.PointSourceDevice,
		RecordedAt: t.RecordedAt,
	}); err != nil {
		return nil, err
	}

	device, err := s.devices.UpsertTelemetry(ctx, t.DeviceID, t.Location, t.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("update device %s: %w", t.DeviceID, err)
	}
	return device, nil
}

func (s *LocationService) UpdateStatus(ctx context.Context, deviceID string, status domain.DeviceStatus) (*domain.Device, error) {
	return s.devices.UpdateStatus(ctx, deviceID, status)
}
