package service

import (
	"context"
	"math"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/database"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/publisher"
)

const (
	earthRadiusMeters     = 6371000
	DefaultResponderRange = 5000
)

// EmergencyService notifies the responders near an SOS and publishes the
// alert for the dispatch desk.
type EmergencyService struct {
	responders   database.ResponderRepository
	publisher    publisher.AlertPublisher
	radiusMeters float64
}

func NewEmergencyService(responders database.ResponderRepository, pub publisher.AlertPublisher, radiusMeters float64) *EmergencyService {
	if radiusMeters <= 0 {
		radiusMeters = DefaultResponderRange
	}
	return &EmergencyService{
		responders:   responders,
		publisher:    pub,
		radiusMeters: radiusMeters,
	}
}

func (s *EmergencyService) TriggerAlert(ctx context.Context, alert domain.EmergencyAlert) (*domain.AlertResult, error) {
	if !alert.Location.Valid() {
		return nil, &domain.RemoteError{Op: "trigger alert", Message: "The SOS location is not a valid coordinate."}
	}

	responders, err := s.responders.ListActive(ctx)
	if err != nil {
		return nil, &domain.RemoteError{Op: "trigger alert", Message: "Responder lookup failed. Please try again.", Err: err}
	}

	ids := []string{}
	for _, r := range responders {
		if haversine(alert.Location.Lat, alert.Location.Lon, r.Location.Lat, r.Location.Lon) <= s.radiusMeters {
			ids = append(ids, r.ID)
		}
	}

	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	notice := &domain.SOSNotice{
		Event:        domain.SOSAlertEvent,
		DeviceID:     alert.DeviceID,
		Location:     alert.Location,
		ResponderIDs: ids,
		Timestamp:    ts.Unix(),
	}
	if err := s.publisher.PublishSOS(ctx, notice); err != nil {
		return nil, &domain.RemoteError{Op: "trigger alert", Message: "The alert could not be delivered to responders.", Err: err}
	}

	return &domain.AlertResult{RespondersFound: len(ids), ResponderIDs: ids}, nil
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
