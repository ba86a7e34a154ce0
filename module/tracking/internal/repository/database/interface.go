package database

import (
	"context"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

type LocationRepository interface {
	Insert(ctx context.Context, p *domain.LocationPoint) error
	ListByDevice(ctx context.Context, deviceID string) ([]domain.LocationPoint, error)
	ListMissingAddress(ctx context.Context, deviceID string, limit int) ([]domain.LocationPoint, error)
	UpdateAddress(ctx context.Context, pointID string, addr domain.Address) error
}

type DeviceRepository interface {
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	UpsertTelemetry(ctx context.Context, deviceID string, loc domain.Coordinate, seenAt time.Time) (*domain.Device, error)
	UpdateStatus(ctx context.Context, deviceID string, status domain.DeviceStatus) (*domain.Device, error)
}

type ResponderRepository interface {
	ListActive(ctx context.Context) ([]domain.Responder, error)
}
