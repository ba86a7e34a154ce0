package bus

import (
	"log/slog"
	"reflect"

	"github.com/cskr/pubsub"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

const bufferSize = 64

type Subscription chan any

// Bus fans view notifications out to whoever streams them.
type Bus struct {
	ps     *pubsub.PubSub
	logger *slog.Logger
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		ps:     pubsub.New(bufferSize),
		logger: logger,
	}
}

func NotificationTopic(viewID string) string {
	return "view/" + viewID
}

// Notify publishes n on its view's topic.
func (b *Bus) Notify(n domain.Notification) {
	b.Publish(NotificationTopic(n.ViewID), n)
}

func (b *Bus) Publish(topic string, msg any) {
	b.logger.Debug("publish", "topic", topic, "payload_type", payloadType(msg))
	b.ps.Pub(msg, topic)
}

func (b *Bus) Subscribe(topic string) Subscription {
	b.logger.Debug("subscribe", "topic", topic)
	return b.ps.Sub(topic)
}

func (b *Bus) Unsubscribe(ch Subscription, topics ...string) {
	if len(topics) == 0 {
		b.ps.Unsub(ch)
		return
	}
	b.ps.Unsub(ch, topics...)
}

func (b *Bus) Close() {
	b.ps.Shutdown()
}

func payloadType(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
