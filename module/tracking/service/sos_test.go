package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

func TestTrigger_Success(t *testing.T) {
	backend := &mockBackend{
		triggerAlertFn: func(_ context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error) {
			if alert.Location.Lat != 12.9 || alert.Location.Lon != 77.6 {
				t.Errorf("unexpected alert location %+v", alert.Location)
			}
			return &domain.AlertResult{RespondersFound: 3}, nil
		},
	}
	var refreshed []string
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), func(_ context.Context, id string) {
		refreshed = append(refreshed, id)
	}, discardLogger())

	outcome, err := d.Trigger(context.Background(), "dev-1", Sources{DeviceReported: coord(12.9, 77.6)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.RespondersFound != 3 {
		t.Errorf("expected 3 responders, got %d", outcome.RespondersFound)
	}
	if outcome.Message != "SOS sent. 3 responders have been notified." {
		t.Errorf("unexpected message %q", outcome.Message)
	}

	calls := backend.LocationCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 location point, got %d", len(calls))
	}
	if !calls[0].IsSOS || calls[0].Source != domain.PointSourceSOS {
		t.Errorf("expected an SOS point, got %+v", calls[0])
	}
	if calls[0].Latitude != 12.9 || calls[0].Longitude != 77.6 {
		t.Errorf("unexpected point location %v,%v", calls[0].Latitude, calls[0].Longitude)
	}

	if len(refreshed) != 1 || refreshed[0] != "dev-1" {
		t.Errorf("expected one refresh of dev-1, got %v", refreshed)
	}

	st := d.Status("dev-1")
	if st.State != domain.SOSIdle || st.LastResult != domain.SOSSucceeded {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestTrigger_ZeroRespondersIsSoftSuccess(t *testing.T) {
	backend := &mockBackend{
		triggerAlertFn: func(context.Context, domain.EmergencyAlert) (*domain.AlertResult, error) {
			return &domain.AlertResult{RespondersFound: 0}, nil
		},
	}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())

	outcome, err := d.Trigger(context.Background(), "dev-1", Sources{LiveBrowser: coord(1, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Message != "SOS sent. No responders were found nearby; the alert has been logged." {
		t.Errorf("unexpected message %q", outcome.Message)
	}
	if d.Status("dev-1").LastResult != domain.SOSSucceeded {
		t.Error("expected succeeded")
	}
}

func TestTrigger_MissingDeviceID(t *testing.T) {
	backend := &mockBackend{}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())

	_, err := d.Trigger(context.Background(), map[string]any{"$oid": ""}, Sources{DeviceReported: coord(1, 1)})
	if !errors.Is(err, domain.ErrDeviceIDMissing) {
		t.Fatalf("expected ErrDeviceIDMissing, got %v", err)
	}
	if backend.AlertCalls() != 0 || len(backend.LocationCalls()) != 0 {
		t.Error("expected no network calls")
	}
}

func TestTrigger_NoLocationMakesNoNetworkCalls(t *testing.T) {
	backend := &mockBackend{}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())

	history := domain.NewLocationHistory([]domain.LocationPoint{point("a", 1, 1, 100)})
	_, err := d.Trigger(context.Background(), "dev-1", Sources{History: history})
	if !errors.Is(err, domain.ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	if backend.AlertCalls() != 0 || len(backend.LocationCalls()) != 0 {
		t.Error("expected no network calls")
	}
	if st := d.Status("dev-1"); st.State != domain.SOSIdle || st.LastResult != "" {
		t.Errorf("expected untouched status, got %+v", st)
	}
}

func TestTrigger_RejectsConcurrentAttempt(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &mockBackend{
		triggerAlertFn: func(context.Context, domain.EmergencyAlert) (*domain.AlertResult, error) {
			close(entered)
			<-release
			return &domain.AlertResult{RespondersFound: 1}, nil
		},
	}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())
	src := Sources{DeviceReported: coord(1, 1)}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = d.Trigger(context.Background(), "dev-1", src)
	}()
	<-entered

	if st := d.Status("dev-1"); st.State != domain.SOSInFlight {
		t.Fatalf("expected in_flight, got %s", st.State)
	}
	for i := 0; i < 3; i++ {
		if _, err := d.Trigger(context.Background(), "dev-1", src); !errors.Is(err, domain.ErrSOSInFlight) {
			t.Fatalf("expected ErrSOSInFlight, got %v", err)
		}
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("unexpected error: %v", firstErr)
	}
	if backend.AlertCalls() != 1 || len(backend.LocationCalls()) != 1 {
		t.Errorf("expected exactly one dispatch, got %d alerts and %d points", backend.AlertCalls(), len(backend.LocationCalls()))
	}

	if _, err := d.Trigger(context.Background(), "dev-1", src); err != nil {
		t.Fatalf("expected a new attempt after the first finished, got %v", err)
	}
}

func TestTrigger_OtherDevicesAreIndependent(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &mockBackend{
		triggerAlertFn: func(_ context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error) {
			if alert.DeviceID == "dev-1" {
				close(entered)
				<-release
			}
			return &domain.AlertResult{}, nil
		},
	}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())
	src := Sources{DeviceReported: coord(1, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Trigger(context.Background(), "dev-1", src)
	}()
	<-entered

	if _, err := d.Trigger(context.Background(), "dev-2", src); err != nil {
		t.Fatalf("unexpected error for dev-2: %v", err)
	}
	close(release)
	<-done
}

func TestTrigger_AlertFailureSkipsLocationPoint(t *testing.T) {
	backend := &mockBackend{
		triggerAlertFn: func(context.Context, domain.EmergencyAlert) (*domain.AlertResult, error) {
			return nil, &domain.RemoteError{Op: "trigger alert", Message: "Responder lookup failed. Please try again."}
		},
	}
	refreshed := false
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), func(context.Context, string) { refreshed = true }, discardLogger())

	_, err := d.Trigger(context.Background(), "dev-1", Sources{DeviceReported: coord(1, 1)})

	var de *DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("expected DispatchError, got %v", err)
	}
	if de.Stage != StageTriggerAlert {
		t.Errorf("expected trigger_alert stage, got %s", de.Stage)
	}
	if de.Message != "Responder lookup failed. Please try again." {
		t.Errorf("expected backend message, got %q", de.Message)
	}
	if len(backend.LocationCalls()) != 0 {
		t.Error("expected no location point after a failed alert")
	}
	if refreshed {
		t.Error("expected no refresh after a failure")
	}

	st := d.Status("dev-1")
	if st.State != domain.SOSIdle || st.LastResult != domain.SOSFailed || st.LastError != de.Message {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestTrigger_GenericMessageForPlainErrors(t *testing.T) {
	backend := &mockBackend{
		createLocationFn: func(context.Context, domain.NewLocationPoint) (*domain.LocationPoint, error) {
			return nil, errors.New("connection reset")
		},
	}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())

	_, err := d.Trigger(context.Background(), "dev-1", Sources{LastKnownBrowser: coord(1, 1)})

	var de *DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("expected DispatchError, got %v", err)
	}
	if de.Stage != StageCreateLocation {
		t.Errorf("expected create_location stage, got %s", de.Stage)
	}
	if de.Message != genericSOSFailure {
		t.Errorf("expected generic message, got %q", de.Message)
	}
}

func TestTrigger_StampsAlertAndPointWithSameTime(t *testing.T) {
	backend := &mockBackend{}
	d := NewSOSDispatcher(backend, NewResolver(DefaultCenter), nil, discardLogger())
	now := time.Unix(1715003456, 0)
	d.now = func() time.Time { return now }

	if _, err := d.Trigger(context.Background(), "dev-1", Sources{DeviceReported: coord(1, 1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := backend.alertCalls[0].Timestamp; !got.Equal(now) {
		t.Errorf("expected alert at %v, got %v", now, got)
	}
	if got := backend.LocationCalls()[0].RecordedAt; !got.Equal(now) {
		t.Errorf("expected point at %v, got %v", now, got)
	}
}
