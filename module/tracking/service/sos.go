package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

const genericSOSFailure = "Failed to send SOS. Please try again."

type sosBackend interface {
	TriggerEmergencyAlert(ctx context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error)
	CreateLocationPoint(ctx context.Context, req domain.NewLocationPoint) (*domain.LocationPoint, error)
}

type DispatchStage string

const (
	StageTriggerAlert   DispatchStage = "trigger_alert"
	StageCreateLocation DispatchStage = "create_location"
)

// DispatchError is a failed SOS network call. Message is safe to show to
// the operator.
type DispatchError struct {
	Stage   DispatchStage
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("sos %s: %v", e.Stage, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func newDispatchError(stage DispatchStage, err error) *DispatchError {
	msg := genericSOSFailure
	var remote *domain.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		msg = remote.Message
	}
	return &DispatchError{Stage: stage, Message: msg, Err: err}
}

type SOSOutcome struct {
	DeviceID        string                  `json:"device_id"`
	Location        domain.ResolvedLocation `json:"location"`
	RespondersFound int                     `json:"responders_found"`
	Point           *domain.LocationPoint   `json:"point,omitempty"`
	Message         string                  `json:"message"`
}

// SOSDispatcher raises emergency alerts. Each device has at most one
// attempt in flight; a second trigger is rejected, not queued.
type SOSDispatcher struct {
	backend  sosBackend
	resolver Resolver
	refresh  RefreshFunc
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	status map[string]*domain.SOSStatus
}

func NewSOSDispatcher(backend sosBackend, resolver Resolver, refresh RefreshFunc, logger *slog.Logger) *SOSDispatcher {
	return &SOSDispatcher{
		backend:  backend,
		resolver: resolver,
		refresh:  refresh,
		logger:   logger,
		now:      time.Now,
		status:   make(map[string]*domain.SOSStatus),
	}
}

// Trigger sends an SOS for the device at the freshest non-history
// location. It fails before any network call when the id or the location
// is missing, and returns domain.ErrSOSInFlight while another attempt for
// the same device is running.
func (d *SOSDispatcher) Trigger(ctx context.Context, rawDeviceID any, src Sources) (*SOSOutcome, error) {
	deviceID, ok := NormalizeDeviceID(rawDeviceID)
	if !ok {
		return nil, domain.ErrDeviceIDMissing
	}
	if d.Status(deviceID).State == domain.SOSInFlight {
		return nil, domain.ErrSOSInFlight
	}

	loc, ok := d.resolver.ResolveForSOS(src)
	if !ok {
		return nil, domain.ErrLocationUnavailable
	}

	if !d.begin(deviceID) {
		return nil, domain.ErrSOSInFlight
	}

	outcome, err := d.dispatch(ctx, deviceID, loc)
	d.finish(deviceID, err)
	if err != nil {
		d.logger.Error("sos dispatch failed", "device_id", deviceID, "error", err)
		return nil, err
	}

	d.logger.Info("sos dispatched", "device_id", deviceID, "source", loc.Source, "responders", outcome.RespondersFound)
	if d.refresh != nil {
		d.refresh(ctx, deviceID)
	}
	return outcome, nil
}

func (d *SOSDispatcher) dispatch(ctx context.Context, deviceID string, loc domain.ResolvedLocation) (*SOSOutcome, error) {
	now := d.now()

	alert, err := d.backend.TriggerEmergencyAlert(ctx, domain.EmergencyAlert{
		DeviceID:  deviceID,
		Location:  loc.Coordinate(),
		Timestamp: now,
	})
	if err != nil {
		return nil, newDispatchError(StageTriggerAlert, err)
	}

	point, err := d.backend.CreateLocationPoint(ctx, domain.NewLocationPoint{
		DeviceID:   deviceID,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Source:     domain.PointSourceSOS,
		IsSOS:      true,
		RecordedAt: now,
	})
	if err != nil {
		return nil, newDispatchError(StageCreateLocation, err)
	}

	responders := 0
	if alert != nil {
		responders = alert.RespondersFound
	}
	return &SOSOutcome{
		DeviceID:        deviceID,
		Location:        loc,
		RespondersFound: responders,
		Point:           point,
		Message:         sosMessage(responders),
	}, nil
}

func sosMessage(responders int) string {
	switch responders {
	case 0:
		return "SOS sent. No responders were found nearby; the alert has been logged."
	case 1:
		return "SOS sent. 1 responder has been notified."
	default:
		return fmt.Sprintf("SOS sent. %d responders have been notified.", responders)
	}
}

func (d *SOSDispatcher) begin(deviceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.status[deviceID]
	if !ok {
		st = &domain.SOSStatus{State: domain.SOSIdle}
		d.status[deviceID] = st
	}
	if st.State == domain.SOSInFlight {
		return false
	}
	st.State = domain.SOSInFlight
	return true
}

func (d *SOSDispatcher) finish(deviceID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.status[deviceID]
	finished := d.now()
	st.FinishedAt = &finished
	st.LastError = ""
	st.LastResult = domain.SOSSucceeded
	if err != nil {
		st.LastResult = domain.SOSFailed
		st.LastError = err.Error()
		var de *DispatchError
		if errors.As(err, &de) {
			st.LastError = de.Message
		}
	}
	st.State = domain.SOSIdle
}

func (d *SOSDispatcher) Status(deviceID string) domain.SOSStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.status[deviceID]
	if !ok {
		return domain.SOSStatus{State: domain.SOSIdle}
	}
	return *st
}
