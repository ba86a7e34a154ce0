package domain

import "time"

type AlertEventType string

const SOSAlertEvent AlertEventType = "sos_alert"

// EmergencyAlert asks responders near Location for help.
type EmergencyAlert struct {
	DeviceID  string     `json:"device_id"`
	Location  Coordinate `json:"location"`
	Timestamp time.Time  `json:"timestamp"`
}

type AlertResult struct {
	RespondersFound int      `json:"responders_found"`
	ResponderIDs    []string `json:"responder_ids,omitempty"`
}

type Responder struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`
}

// SOSNotice is what gets published to the alert exchange.
type SOSNotice struct {
	Event        AlertEventType `json:"event"`
	DeviceID     string         `json:"device_id"`
	Location     Coordinate     `json:"location"`
	ResponderIDs []string       `json:"responder_ids"`
	Timestamp    int64          `json:"timestamp"`
}
