package domain

import (
	"math"
	"sort"
	"time"
)

type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether c is a finite WGS84 coordinate.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

type PointSource string

const (
	PointSourceDevice  PointSource = "device"
	PointSourceBrowser PointSource = "browser"
	PointSourceSOS     PointSource = "sos"
)

// LocationPoint is one recorded observation of a device. Points are never
// modified after creation; enrichment produces a new fetch.
type LocationPoint struct {
	ID          string      `json:"id"`
	DeviceID    string      `json:"device_id"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Address     string      `json:"address,omitempty"`
	City        string      `json:"city,omitempty"`
	State       string      `json:"state,omitempty"`
	Pincode     string      `json:"pincode,omitempty"`
	Country     string      `json:"country,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	Speed       *float64    `json:"speed,omitempty"`
	Heading     *float64    `json:"heading,omitempty"`
	Accuracy    *float64    `json:"accuracy,omitempty"`
	Source      PointSource `json:"source"`
	RecordedAt  time.Time   `json:"recorded_at"`
	IsSOS       bool        `json:"is_sos"`
}

func (p LocationPoint) Coordinate() Coordinate {
	return Coordinate{Lat: p.Latitude, Lon: p.Longitude}
}

func (p LocationPoint) HasAddress() bool {
	return p.Address != "" || p.DisplayName != ""
}

// LocationHistory is kept sorted ascending by RecordedAt, so the first
// element is where the device started and the last is where it is now.
type LocationHistory []LocationPoint

// NewLocationHistory copies points and sorts the copy chronologically.
// Points sharing a timestamp keep their input order.
func NewLocationHistory(points []LocationPoint) LocationHistory {
	h := make(LocationHistory, len(points))
	copy(h, points)
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].RecordedAt.Before(h[j].RecordedAt)
	})
	return h
}

func (h LocationHistory) First() (LocationPoint, bool) {
	if len(h) == 0 {
		return LocationPoint{}, false
	}
	return h[0], true
}

func (h LocationHistory) Last() (LocationPoint, bool) {
	if len(h) == 0 {
		return LocationPoint{}, false
	}
	return h[len(h)-1], true
}

// NewLocationPoint is the create request for a history point.
type NewLocationPoint struct {
	DeviceID   string      `json:"device_id"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Accuracy   *float64    `json:"accuracy,omitempty"`
	Speed      *float64    `json:"speed,omitempty"`
	Heading    *float64    `json:"heading,omitempty"`
	Source     PointSource `json:"source"`
	IsSOS      bool        `json:"is_sos"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Address is the reverse-geocoded description of a coordinate.
type Address struct {
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Country     string `json:"country"`
	DisplayName string `json:"display_name"`
}
