package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/repository/publisher"
)

var _ publisher.AlertPublisher = (*SOSPublisher)(nil)

const (
	ExchangeName = "fleet.events"
	QueueName    = "sos_alerts"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type SOSPublisher struct {
	ch channel
}

func NewSOSPublisher(conn *amqp.Connection) (*SOSPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &SOSPublisher{ch: ch}, nil
}

type sosMessage struct {
	Event        domain.AlertEventType `json:"event"`
	DeviceID     string                `json:"device_id"`
	Location     alertLocation         `json:"location"`
	ResponderIDs []string              `json:"responder_ids"`
	Timestamp    int64                 `json:"timestamp"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *SOSPublisher) PublishSOS(ctx context.Context, notice *domain.SOSNotice) error {
	ids := notice.ResponderIDs
	if ids == nil {
		ids = []string{}
	}
	msg := sosMessage{
		Event:    notice.Event,
		DeviceID: notice.DeviceID,
		Location: alertLocation{
			Latitude:  notice.Location.Lat,
			Longitude: notice.Location.Lon,
		},
		ResponderIDs: ids,
		Timestamp:    notice.Timestamp,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sos alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(notice.Timestamp, 0),
		Type:         string(notice.Event),
		Body:         body,
	})
}
