package domain

import "time"

type SOSState string

const (
	SOSIdle      SOSState = "idle"
	SOSInFlight  SOSState = "in_flight"
	SOSSucceeded SOSState = "succeeded"
	SOSFailed    SOSState = "failed"
)

// SOSStatus is the observable state of one device's SOS attempts. State is
// only ever idle or in_flight; LastResult keeps how the previous attempt
// ended.
type SOSStatus struct {
	State      SOSState   `json:"state"`
	LastResult SOSState   `json:"last_result,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
