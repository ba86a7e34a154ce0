package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

const defaultLiveFixMaxAge = 2 * time.Minute

type managedView struct {
	view *DeviceView
	geo  *BrowserGeolocation
}

// ViewManager keeps the device views that are currently open.
type ViewManager struct {
	backend  Backend
	cfg      ViewConfig
	notifier Notifier
	logger   *slog.Logger
	newID    func() string

	mu    sync.RWMutex
	views map[string]*managedView
}

func NewViewManager(backend Backend, cfg ViewConfig, notifier Notifier, logger *slog.Logger) *ViewManager {
	if cfg.LiveFixMaxAge == 0 {
		cfg.LiveFixMaxAge = defaultLiveFixMaxAge
	}
	return &ViewManager{
		backend:  backend,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		newID:    uuid.NewString,
		views:    make(map[string]*managedView),
	}
}

// Open normalizes rawDeviceID, loads the device record and opens a new
// view on it.
func (m *ViewManager) Open(ctx context.Context, rawDeviceID any) (*DeviceView, error) {
	deviceID, ok := NormalizeDeviceID(rawDeviceID)
	if !ok {
		return nil, domain.ErrDeviceIDMissing
	}

	device, err := m.backend.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load device %s: %w", deviceID, err)
	}

	geo := NewBrowserGeolocation(m.cfg.LiveFixMaxAge)
	view := NewDeviceView(m.newID(), m.backend, geo, m.cfg, m.notifier, m.logger)
	if err := view.Open(ctx, *device); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.views[view.ID()] = &managedView{view: view, geo: geo}
	m.mu.Unlock()

	m.logger.Info("view opened", "view_id", view.ID(), "device_id", deviceID, "status", device.Status)
	return view, nil
}

func (m *ViewManager) Get(viewID string) (*DeviceView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mv, ok := m.views[viewID]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	return mv.view, nil
}

func (m *ViewManager) Geolocation(viewID string) (*BrowserGeolocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mv, ok := m.views[viewID]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	return mv.geo, nil
}

func (m *ViewManager) Close(viewID string) error {
	m.mu.Lock()
	mv, ok := m.views[viewID]
	delete(m.views, viewID)
	m.mu.Unlock()
	if !ok {
		return domain.ErrViewNotFound
	}
	mv.view.Close()
	m.logger.Info("view closed", "view_id", viewID)
	return nil
}

// DeviceUpdated hands a fresh device record to every view showing it.
func (m *ViewManager) DeviceUpdated(device domain.Device) {
	for _, v := range m.viewsOf(device.ID) {
		v.ApplyDevice(device)
	}
}

func (m *ViewManager) DeviceStatusChanged(deviceID string, status domain.DeviceStatus) {
	for _, v := range m.viewsOf(deviceID) {
		v.SetDeviceStatus(status)
	}
}

func (m *ViewManager) viewsOf(deviceID string) []*DeviceView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*DeviceView
	for _, mv := range m.views {
		if id, ok := mv.view.DeviceID(); ok && id == deviceID {
			out = append(out, mv.view)
		}
	}
	return out
}

func (m *ViewManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// Shutdown closes every open view.
func (m *ViewManager) Shutdown() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[string]*managedView)
	m.mu.Unlock()

	for _, mv := range views {
		mv.view.Close()
	}
}
