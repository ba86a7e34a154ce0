package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

// Backend is the remote side of the engine.
type Backend interface {
	historyBackend
	sosBackend
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
}

type Notifier interface {
	Notify(n domain.Notification)
}

type ViewConfig struct {
	PollInterval  time.Duration
	DefaultCenter domain.Coordinate
	LiveFixMaxAge time.Duration
}

type ViewSnapshot struct {
	ID         string               `json:"id"`
	Open       bool                 `json:"open"`
	Device     *domain.Device       `json:"device,omitempty"`
	History    HistorySnapshot      `json:"history"`
	Resolution Resolution           `json:"resolution"`
	Polling    *PollingSession      `json:"polling,omitempty"`
	SOS        domain.SOSStatus     `json:"sos"`
	Permission domain.GeoPermission `json:"geolocation_permission"`
}

// DeviceView is the tracking engine behind one open device view. It owns
// the view's history, polling session and SOS attempts; nothing is shared
// between views.
type DeviceView struct {
	id       string
	history  *HistoryStore
	poller   *Poller
	sos      *SOSDispatcher
	geo      Geolocator
	resolver Resolver
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	device *domain.Device
	open   bool
}

func NewDeviceView(id string, backend Backend, geo Geolocator, cfg ViewConfig, notifier Notifier, logger *slog.Logger) *DeviceView {
	logger = logger.With("view_id", id)
	v := &DeviceView{
		id:       id,
		history:  NewHistoryStore(backend, logger),
		geo:      geo,
		resolver: NewResolver(cfg.DefaultCenter),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	v.poller = NewPoller(cfg.PollInterval, v.backgroundRefresh, logger)
	v.sos = NewSOSDispatcher(backend, v.resolver, v.backgroundRefresh, logger)
	return v
}

func (v *DeviceView) ID() string { return v.id }

// Open binds the view to device, loads its history and starts polling if
// the device is online. Opening an already open view swaps the device.
func (v *DeviceView) Open(ctx context.Context, device domain.Device) error {
	deviceID, ok := NormalizeDeviceID(device.ID)
	if !ok {
		return domain.ErrDeviceIDMissing
	}
	device.ID = deviceID

	v.mu.Lock()
	v.poller.Stop()
	v.device = &device
	v.open = true
	v.history.Bind(deviceID)
	v.mu.Unlock()

	_ = v.history.Fetch(ctx, deviceID, FetchOptions{Initial: true})

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open && v.device != nil && v.device.ID == deviceID {
		v.poller.Start(deviceID, v.device.Status)
	}
	return nil
}

// Close stops polling and drops the history. It is safe to call twice.
func (v *DeviceView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.poller.Stop()
	if !v.open {
		return
	}
	v.open = false
	v.device = nil
	v.history.Reset()
}

func (v *DeviceView) DeviceID() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.open || v.device == nil {
		return "", false
	}
	return v.device.ID, true
}

// ApplyDevice takes a fresher record of the device the view shows and
// starts or stops polling when its status changed.
func (v *DeviceView) ApplyDevice(device domain.Device) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open || v.device == nil || v.device.ID != device.ID {
		return
	}
	prev := v.device.Status
	v.device = &device
	if prev != device.Status {
		v.applyStatusLocked()
	}
}

func (v *DeviceView) SetDeviceStatus(status domain.DeviceStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open || v.device == nil || v.device.Status == status {
		return
	}
	d := *v.device
	d.Status = status
	v.device = &d
	v.applyStatusLocked()
}

func (v *DeviceView) applyStatusLocked() {
	if v.device.Status == domain.DeviceOnline {
		v.poller.Start(v.device.ID, v.device.Status)
		return
	}
	v.poller.Stop()
}

// RefreshNow reloads history without touching the polling timer.
func (v *DeviceView) RefreshNow(ctx context.Context) error {
	deviceID, ok := v.DeviceID()
	if !ok {
		return domain.ErrViewClosed
	}
	err := v.history.Fetch(ctx, deviceID, FetchOptions{})
	if errors.Is(err, ErrStaleHistory) {
		return nil
	}
	return err
}

func (v *DeviceView) BackfillAddresses(ctx context.Context, limit int) error {
	deviceID, ok := v.DeviceID()
	if !ok {
		return domain.ErrViewClosed
	}
	v.history.BackfillAddresses(ctx, deviceID, limit)
	return nil
}

func (v *DeviceView) backgroundRefresh(ctx context.Context, deviceID string) {
	_ = v.history.Fetch(ctx, deviceID, FetchOptions{})
}

func (v *DeviceView) sources() Sources {
	v.mu.RLock()
	device := v.device
	v.mu.RUnlock()
	return sourcesFrom(v.history.Points(), device, v.geo)
}

func (v *DeviceView) Resolve() Resolution {
	return v.resolver.Resolve(v.sources())
}

func (v *DeviceView) Route(filter domain.RouteFilter) domain.Route {
	src := v.sources()
	return FilterRoute(BuildRoute(src.History, v.resolver.Resolve(src)), filter)
}

// TriggerSOS dispatches an SOS for the device. Rejections of a repeated
// trigger come back as domain.ErrSOSInFlight and are not announced.
func (v *DeviceView) TriggerSOS(ctx context.Context) (*SOSOutcome, error) {
	v.mu.RLock()
	if !v.open || v.device == nil {
		v.mu.RUnlock()
		return nil, domain.ErrViewClosed
	}
	deviceID := v.device.ID
	v.mu.RUnlock()

	outcome, err := v.sos.Trigger(ctx, deviceID, v.sources())
	switch {
	case err == nil:
		v.notify(domain.NotifyInfo, "sos_sent", outcome.Message)
	case errors.Is(err, domain.ErrLocationUnavailable):
		v.notify(domain.NotifyWarning, "sos_location_unavailable",
			"Location unavailable. Enable location access or wait for the device to report its position.")
	default:
		var de *DispatchError
		if errors.As(err, &de) {
			v.notify(domain.NotifyError, "sos_failed", de.Message)
		}
	}
	return outcome, err
}

func (v *DeviceView) notify(level domain.NotificationLevel, kind, msg string) {
	if v.notifier == nil {
		return
	}
	v.notifier.Notify(domain.Notification{
		ViewID:  v.id,
		Level:   level,
		Kind:    kind,
		Message: msg,
		At:      v.now(),
	})
}

func (v *DeviceView) Snapshot() ViewSnapshot {
	v.mu.RLock()
	open := v.open
	var device *domain.Device
	if v.device != nil {
		d := *v.device
		device = &d
	}
	v.mu.RUnlock()

	snap := ViewSnapshot{
		ID:         v.id,
		Open:       open,
		Device:     device,
		History:    v.history.Snapshot(),
		Resolution: v.Resolve(),
		Permission: domain.GeoUnavailable,
	}
	if s, ok := v.poller.Session(); ok {
		snap.Polling = &s
	}
	if device != nil {
		snap.SOS = v.sos.Status(device.ID)
	} else {
		snap.SOS = domain.SOSStatus{State: domain.SOSIdle}
	}
	if v.geo != nil {
		snap.Permission = v.geo.Permission()
	}
	return snap
}

// ActiveTimers reports the live polling tickers of this view.
func (v *DeviceView) ActiveTimers() int {
	return v.poller.ActiveTimers()
}
