package domain

import (
	"fmt"
	"strings"
	"time"
)

type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
)

func ParseDeviceStatus(raw string) (DeviceStatus, error) {
	switch DeviceStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case DeviceOnline:
		return DeviceOnline, nil
	case DeviceOffline:
		return DeviceOffline, nil
	default:
		return "", fmt.Errorf("unknown device status %q", raw)
	}
}

type Device struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Status           DeviceStatus `json:"status"`
	ReportedLocation *Coordinate  `json:"reported_location,omitempty"`
	LastSeenAt       *time.Time   `json:"last_seen_at,omitempty"`
}

// DeviceTelemetry is one location report sent by a device.
type DeviceTelemetry struct {
	DeviceID   string
	Location   Coordinate
	Speed      *float64
	Heading    *float64
	Accuracy   *float64
	RecordedAt time.Time
}
