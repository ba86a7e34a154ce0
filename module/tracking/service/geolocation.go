package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

// Geolocator is the operator browser's geolocation capability as the
// engine consumes it.
type Geolocator interface {
	Permission() domain.GeoPermission
	Live() (domain.Coordinate, bool)
	LastKnown() (domain.Coordinate, bool)
}

// BrowserGeolocation holds the fixes the operator's browser reports for
// one open view. A live fix also becomes the last-known fix.
type BrowserGeolocation struct {
	maxLiveAge time.Duration
	now        func() time.Time

	mu         sync.RWMutex
	permission domain.GeoPermission
	live       *domain.Coordinate
	liveAt     time.Time
	lastKnown  *domain.Coordinate
}

var _ Geolocator = (*BrowserGeolocation)(nil)

// NewBrowserGeolocation returns a capability in the prompt state. A live
// fix older than maxLiveAge is no longer live; zero disables expiry.
func NewBrowserGeolocation(maxLiveAge time.Duration) *BrowserGeolocation {
	return &BrowserGeolocation{
		maxLiveAge: maxLiveAge,
		now:        time.Now,
		permission: domain.GeoPrompt,
	}
}

func (g *BrowserGeolocation) Permission() domain.GeoPermission {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.permission
}

func (g *BrowserGeolocation) SetPermission(p domain.GeoPermission) error {
	if !p.Known() {
		return fmt.Errorf("unknown geolocation permission %q", p)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.permission = p
	if p != domain.GeoGranted {
		g.live = nil
	}
	return nil
}

// UpdateFix records a fresh fix. Receiving one implies permission.
func (g *BrowserGeolocation) UpdateFix(c domain.Coordinate) error {
	if !c.Valid() {
		return fmt.Errorf("invalid coordinate %f,%f", c.Lat, c.Lon)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.permission = domain.GeoGranted
	live, known := c, c
	g.live = &live
	g.lastKnown = &known
	g.liveAt = g.now()
	return nil
}

// SeedLastKnown restores a fix cached by an earlier session.
func (g *BrowserGeolocation) SeedLastKnown(c domain.Coordinate) error {
	if !c.Valid() {
		return fmt.Errorf("invalid coordinate %f,%f", c.Lat, c.Lon)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	known := c
	g.lastKnown = &known
	return nil
}

func (g *BrowserGeolocation) Live() (domain.Coordinate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.permission != domain.GeoGranted || g.live == nil {
		return domain.Coordinate{}, false
	}
	if g.maxLiveAge > 0 && g.now().Sub(g.liveAt) > g.maxLiveAge {
		return domain.Coordinate{}, false
	}
	return *g.live, true
}

func (g *BrowserGeolocation) LastKnown() (domain.Coordinate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.lastKnown == nil {
		return domain.Coordinate{}, false
	}
	return *g.lastKnown, true
}

func sourcesFrom(history domain.LocationHistory, device *domain.Device, geo Geolocator) Sources {
	src := Sources{History: history}
	if device != nil && device.ReportedLocation != nil {
		c := *device.ReportedLocation
		src.DeviceReported = &c
	}
	if geo == nil {
		return src
	}
	if c, ok := geo.Live(); ok {
		src.LiveBrowser = &c
	}
	if c, ok := geo.LastKnown(); ok {
		src.LastKnownBrowser = &c
	}
	return src
}
