package domain

type MarkerRole string

const (
	MarkerStart    MarkerRole = "start"
	MarkerWaypoint MarkerRole = "waypoint"
	MarkerSOS      MarkerRole = "sos"
	MarkerCurrent  MarkerRole = "current"
)

type Marker struct {
	Index int           `json:"index"`
	Role  MarkerRole    `json:"role"`
	Point LocationPoint `json:"point"`
	// Priority orders marker stacking; SOS markers are always on top.
	Priority int `json:"priority"`
}

type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

type ViewportMode string

const (
	ViewportFitBounds ViewportMode = "fit_bounds"
	ViewportCenter    ViewportMode = "center"
)

type Viewport struct {
	Mode    ViewportMode `json:"mode"`
	Bounds  *Bounds      `json:"bounds,omitempty"`
	Padding int          `json:"padding,omitempty"`
	Center  *Coordinate  `json:"center,omitempty"`
	Zoom    int          `json:"zoom,omitempty"`
}

type Route struct {
	Coordinates []Coordinate `json:"coordinates"`
	Markers     []Marker     `json:"markers"`
	Viewport    Viewport     `json:"viewport"`
}

// RouteFilter holds the presentation toggles for a route.
type RouteFilter struct {
	Start     bool `json:"start"`
	Waypoints bool `json:"waypoints"`
	SOS       bool `json:"sos"`
	Current   bool `json:"current"`
	Line      bool `json:"line"`
}

func DefaultRouteFilter() RouteFilter {
	return RouteFilter{Start: true, Waypoints: true, SOS: true, Current: true, Line: true}
}
