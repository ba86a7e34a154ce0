package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/service"
)

const (
	locationTopic = "/fleet/device/+/location"
	statusTopic   = "/fleet/device/+/status"
)

type telemetryService interface {
	SaveTelemetry(ctx context.Context, t *domain.DeviceTelemetry) (*domain.Device, error)
	UpdateStatus(ctx context.Context, deviceID string, status domain.DeviceStatus) (*domain.Device, error)
}

type deviceListener interface {
	DeviceUpdated(device domain.Device)
	DeviceStatusChanged(deviceID string, status domain.DeviceStatus)
}

type locationMessage struct {
	DeviceID  json.RawMessage `json:"device_id"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Speed     *float64        `json:"speed,omitempty"`
	Heading   *float64        `json:"heading,omitempty"`
	Accuracy  *float64        `json:"accuracy,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type statusMessage struct {
	DeviceID json.RawMessage `json:"device_id"`
	Status   string          `json:"status"`
}

// TelemetrySubscriber stores what devices report over MQTT and tells the
// open views about it.
type TelemetrySubscriber struct {
	client    mqtt.Client
	telemetry telemetryService
	views     deviceListener
	logger    *slog.Logger
}

func NewTelemetrySubscriber(client mqtt.Client, telemetry telemetryService, views deviceListener, logger *slog.Logger) *TelemetrySubscriber {
	return &TelemetrySubscriber{
		client:    client,
		telemetry: telemetry,
		views:     views,
		logger:    logger,
	}
}

func (s *TelemetrySubscriber) Start() error {
	token := s.client.SubscribeMultiple(map[string]byte{
		locationTopic: 1,
		statusTopic:   1,
	}, s.route)
	token.Wait()
	return token.Error()
}

func (s *TelemetrySubscriber) route(c mqtt.Client, msg mqtt.Message) {
	switch {
	case strings.HasSuffix(msg.Topic(), "/location"):
		s.handleLocation(c, msg)
	case strings.HasSuffix(msg.Topic(), "/status"):
		s.handleStatus(c, msg)
	default:
		s.logger.Debug("ignoring message", "topic", msg.Topic())
	}
}

func (s *TelemetrySubscriber) handleLocation(_ mqtt.Client, msg mqtt.Message) {
	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("invalid location message", "topic", msg.Topic(), "error", err)
		return
	}

	deviceID, ok := messageDeviceID(raw.DeviceID, msg.Topic())
	if !ok {
		s.logger.Debug("location message without device id", "topic", msg.Topic())
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		s.logger.Warn("validation error", "device_id", deviceID, "error", err)
		return
	}

	t := &domain.DeviceTelemetry{
		DeviceID:   deviceID,
		Location:   domain.Coordinate{Lat: raw.Latitude, Lon: raw.Longitude},
		Speed:      raw.Speed,
		Heading:    raw.Heading,
		Accuracy:   raw.Accuracy,
		RecordedAt: time.Unix(raw.Timestamp, 0),
	}

	device, err := s.telemetry.SaveTelemetry(context.Background(), t)
	if err != nil {
		s.logger.Error("save telemetry error", "device_id", deviceID, "error", err)
		return
	}
	s.views.DeviceUpdated(*device)
}

func (s *TelemetrySubscriber) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	var raw statusMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("invalid status message", "topic", msg.Topic(), "error", err)
		return
	}

	deviceID, ok := messageDeviceID(raw.DeviceID, msg.Topic())
	if !ok {
		s.logger.Debug("status message without device id", "topic", msg.Topic())
		return
	}

	status, err := domain.ParseDeviceStatus(raw.Status)
	if err != nil {
		s.logger.Warn("validation error", "device_id", deviceID, "error", err)
		return
	}

	if _, err := s.telemetry.UpdateStatus(context.Background(), deviceID, status); err != nil {
		s.logger.Error("update status error", "device_id", deviceID, "error", err)
		return
	}
	s.views.DeviceStatusChanged(deviceID, status)
}

// messageDeviceID prefers the id in the payload and falls back to the
// device segment of the topic.
func messageDeviceID(raw json.RawMessage, topic string) (string, bool) {
	if id, ok := service.NormalizeDeviceID(raw); ok {
		return id, true
	}
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	return service.NormalizeDeviceID(parts[2])
}

func validateLocationMessage(msg *locationMessage) error {
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
