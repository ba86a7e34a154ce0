package domain

// SourceKind names which location source produced a ResolvedLocation.
type SourceKind string

const (
	SourceHistory          SourceKind = "history"
	SourceDeviceReported   SourceKind = "device_reported"
	SourceBrowserLive      SourceKind = "browser_live"
	SourceBrowserLastKnown SourceKind = "browser_last_known"
	SourceNone             SourceKind = "none"
)

type ResolvedLocation struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Source    SourceKind `json:"source"`
}

func (r ResolvedLocation) Coordinate() Coordinate {
	return Coordinate{Lat: r.Latitude, Lon: r.Longitude}
}

type GeoPermission string

const (
	GeoGranted     GeoPermission = "granted"
	GeoDenied      GeoPermission = "denied"
	GeoPrompt      GeoPermission = "prompt"
	GeoUnavailable GeoPermission = "unavailable"
)

func (p GeoPermission) Known() bool {
	switch p {
	case GeoGranted, GeoDenied, GeoPrompt, GeoUnavailable:
		return true
	}
	return false
}
