package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockBackend struct {
	getHistoryFn     func(ctx context.Context, deviceID string) ([]domain.LocationPoint, error)
	backfillFn       func(ctx context.Context, deviceID string, limit int) error
	triggerAlertFn   func(ctx context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error)
	createLocationFn func(ctx context.Context, req domain.NewLocationPoint) (*domain.LocationPoint, error)
	getDeviceFn      func(ctx context.Context, deviceID string) (*domain.Device, error)

	mu            sync.Mutex
	historyCalls  int
	alertCalls    []domain.EmergencyAlert
	locationCalls []domain.NewLocationPoint
}

func (m *mockBackend) GetLocationHistory(ctx context.Context, deviceID string) ([]domain.LocationPoint, error) {
	m.mu.Lock()
	m.historyCalls++
	m.mu.Unlock()
	if m.getHistoryFn == nil {
		return nil, nil
	}
	return m.getHistoryFn(ctx, deviceID)
}

func (m *mockBackend) BackfillAddresses(ctx context.Context, deviceID string, limit int) error {
	if m.backfillFn == nil {
		return nil
	}
	return m.backfillFn(ctx, deviceID, limit)
}

func (m *mockBackend) TriggerEmergencyAlert(ctx context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error) {
	m.mu.Lock()
	m.alertCalls = append(m.alertCalls, alert)
	m.mu.Unlock()
	if m.triggerAlertFn == nil {
		return &domain.AlertResult{}, nil
	}
	return m.triggerAlertFn(ctx, alert)
}

func (m *mockBackend) CreateLocationPoint(ctx context.Context, req domain.NewLocationPoint) (*domain.LocationPoint, error) {
	m.mu.Lock()
	m.locationCalls = append(m.locationCalls, req)
	m.mu.Unlock()
	if m.createLocationFn == nil {
		return &domain.LocationPoint{
			ID:         "p-sos",
			DeviceID:   req.DeviceID,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			Source:     req.Source,
			RecordedAt: req.RecordedAt,
			IsSOS:      req.IsSOS,
		}, nil
	}
	return m.createLocationFn(ctx, req)
}

func (m *mockBackend) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	if m.getDeviceFn == nil {
		return &domain.Device{ID: deviceID, Status: domain.DeviceOffline}, nil
	}
	return m.getDeviceFn(ctx, deviceID)
}

func (m *mockBackend) HistoryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls
}

func (m *mockBackend) AlertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alertCalls)
}

func (m *mockBackend) LocationCalls() []domain.NewLocationPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NewLocationPoint, len(m.locationCalls))
	copy(out, m.locationCalls)
	return out
}

type fakeTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time)}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// tickerFactory hands out fake tickers and remembers them in creation order.
type tickerFactory struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *tickerFactory) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := newFakeTicker()
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) Created() []*fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeTicker, len(f.tickers))
	copy(out, f.tickers)
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingNotifier) Notify(n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) Sent() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

type fakeGeo struct {
	permission domain.GeoPermission
	live       *domain.Coordinate
	lastKnown  *domain.Coordinate
}

func (f *fakeGeo) Permission() domain.GeoPermission { return f.permission }

func (f *fakeGeo) Live() (domain.Coordinate, bool) {
	if f.live == nil {
		return domain.Coordinate{}, false
	}
	return *f.live, true
}

func (f *fakeGeo) LastKnown() (domain.Coordinate, bool) {
	if f.lastKnown == nil {
		return domain.Coordinate{}, false
	}
	return *f.lastKnown, true
}

func coord(lat, lon float64) *domain.Coordinate {
	return &domain.Coordinate{Lat: lat, Lon: lon}
}

func point(id string, lat, lon float64, at int64) domain.LocationPoint {
	return domain.LocationPoint{
		ID:         id,
		DeviceID:   "dev-1",
		Latitude:   lat,
		Longitude:  lon,
		RecordedAt: time.Unix(at, 0),
	}
}
