package service

import (
	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

// DefaultCenter is shown when nothing is known about a device.
var DefaultCenter = domain.Coordinate{Lat: 20.5937, Lon: 78.9629}

// Sources are the competing inputs for a device's current location.
type Sources struct {
	History          domain.LocationHistory
	DeviceReported   *domain.Coordinate
	LiveBrowser      *domain.Coordinate
	LastKnownBrowser *domain.Coordinate
}

type Resolution struct {
	Location       domain.ResolvedLocation `json:"location"`
	HasAnyLocation bool                    `json:"has_any_location"`
}

type candidate struct {
	kind  domain.SourceKind
	coord *domain.Coordinate
}

// Resolver picks one authoritative coordinate out of Sources. Resolution
// is pure, so it is safe to call on every update.
type Resolver struct {
	fallback domain.Coordinate
}

func NewResolver(fallback domain.Coordinate) Resolver {
	if !fallback.Valid() {
		fallback = DefaultCenter
	}
	return Resolver{fallback: fallback}
}

func (r Resolver) Fallback() domain.Coordinate {
	if r.fallback == (domain.Coordinate{}) {
		return DefaultCenter
	}
	return r.fallback
}

// Resolve applies history > device-reported > live browser > last-known
// browser, and falls back to the default center.
func (r Resolver) Resolve(src Sources) Resolution {
	var latest *domain.Coordinate
	if p, ok := src.History.Last(); ok {
		c := p.Coordinate()
		latest = &c
	}

	loc, ok := pick([]candidate{
		{domain.SourceHistory, latest},
		{domain.SourceDeviceReported, src.DeviceReported},
		{domain.SourceBrowserLive, src.LiveBrowser},
		{domain.SourceBrowserLastKnown, src.LastKnownBrowser},
	})
	if !ok {
		fb := r.Fallback()
		return Resolution{
			Location: domain.ResolvedLocation{Latitude: fb.Lat, Longitude: fb.Lon, Source: domain.SourceNone},
		}
	}
	return Resolution{Location: loc, HasAnyLocation: true}
}

// ResolveForSOS uses the same order without history: an SOS has to say
// where help is needed now, not where the device was last recorded.
func (r Resolver) ResolveForSOS(src Sources) (domain.ResolvedLocation, bool) {
	return pick([]candidate{
		{domain.SourceDeviceReported, src.DeviceReported},
		{domain.SourceBrowserLive, src.LiveBrowser},
		{domain.SourceBrowserLastKnown, src.LastKnownBrowser},
	})
}

func pick(candidates []candidate) (domain.ResolvedLocation, bool) {
	for _, c := range candidates {
		if c.coord == nil || !c.coord.Valid() {
			continue
		}
		return domain.ResolvedLocation{Latitude: c.coord.Lat, Longitude: c.coord.Lon, Source: c.kind}, true
	}
	return domain.ResolvedLocation{}, false
}
