package service

import (
	"sort"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

const (
	routeFitPadding = 50
	singlePointZoom = 16
	resolvedZoom    = 13
	continentZoom   = 5
)

const (
	priorityWaypoint = 0
	priorityStart    = 100
	priorityCurrent  = 200
	prioritySOS      = 1000
)

// BuildRoute derives the polyline, the classified markers and the map
// framing from a chronologically sorted history. With no history the view
// is centered on res: on its location when it has one, otherwise on its
// fallback center.
func BuildRoute(history domain.LocationHistory, res Resolution) domain.Route {
	route := domain.Route{
		Coordinates: make([]domain.Coordinate, 0, len(history)),
		Markers:     make([]domain.Marker, 0, len(history)),
	}

	for i, p := range history {
		route.Coordinates = append(route.Coordinates, p.Coordinate())
		role, priority := classifyPoint(i, len(history), p)
		route.Markers = append(route.Markers, domain.Marker{
			Index:    i,
			Role:     role,
			Point:    p,
			Priority: priority,
		})
	}

	route.Viewport = viewportFor(route.Coordinates, res)
	return route
}

func classifyPoint(i, n int, p domain.LocationPoint) (domain.MarkerRole, int) {
	switch {
	case i == 0:
		return domain.MarkerStart, priorityStart
	case i == n-1:
		return domain.MarkerCurrent, priorityCurrent
	case p.IsSOS:
		return domain.MarkerSOS, prioritySOS
	default:
		return domain.MarkerWaypoint, priorityWaypoint
	}
}

func viewportFor(coords []domain.Coordinate, res Resolution) domain.Viewport {
	switch len(coords) {
	case 0:
		if res.HasAnyLocation {
			c := res.Location.Coordinate()
			return domain.Viewport{Mode: domain.ViewportCenter, Center: &c, Zoom: resolvedZoom}
		}
		c := DefaultCenter
		if res.Location.Source == domain.SourceNone && res.Location.Coordinate().Valid() {
			c = res.Location.Coordinate()
		}
		return domain.Viewport{Mode: domain.ViewportCenter, Center: &c, Zoom: continentZoom}
	case 1:
		c := coords[0]
		return domain.Viewport{Mode: domain.ViewportCenter, Center: &c, Zoom: singlePointZoom}
	default:
		b := boundsOf(coords)
		return domain.Viewport{Mode: domain.ViewportFitBounds, Bounds: &b, Padding: routeFitPadding}
	}
}

func boundsOf(coords []domain.Coordinate) domain.Bounds {
	b := domain.Bounds{
		South: coords[0].Lat, North: coords[0].Lat,
		West: coords[0].Lon, East: coords[0].Lon,
	}
	for _, c := range coords[1:] {
		b.South = min(b.South, c.Lat)
		b.North = max(b.North, c.Lat)
		b.West = min(b.West, c.Lon)
		b.East = max(b.East, c.Lon)
	}
	return b
}

// FilterRoute applies the presentation toggles to a copy of route. SOS
// markers answer only to the SOS toggle, never to the waypoint one. The
// returned markers are ordered by priority so SOS markers come last and
// render on top.
func FilterRoute(route domain.Route, filter domain.RouteFilter) domain.Route {
	out := domain.Route{
		Coordinates: []domain.Coordinate{},
		Markers:     make([]domain.Marker, 0, len(route.Markers)),
		Viewport:    route.Viewport,
	}
	if filter.Line {
		out.Coordinates = append(out.Coordinates, route.Coordinates...)
	}

	for _, m := range route.Markers {
		if markerVisible(m.Role, filter) {
			out.Markers = append(out.Markers, m)
		}
	}
	sort.SliceStable(out.Markers, func(i, j int) bool {
		return out.Markers[i].Priority < out.Markers[j].Priority
	})
	return out
}

func markerVisible(role domain.MarkerRole, filter domain.RouteFilter) bool {
	switch role {
	case domain.MarkerStart:
		return filter.Start
	case domain.MarkerCurrent:
		return filter.Current
	case domain.MarkerSOS:
		return filter.SOS
	default:
		return filter.Waypoints
	}
}
