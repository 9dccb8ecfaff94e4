package runtime

import (
	"context"
	"log/slog"

	"github.com/opera-rt/opera/pkg/broker"
	"github.com/opera-rt/opera/pkg/message"
)

// Sender publishes CollisionNotification messages on the broker's
// collision-notification topic: one typed method per outbound message
// kind, marshaling to JSON before handing off to the transport.
type Sender struct {
	broker broker.Broker
}

// NewSender returns a Sender publishing through b.
func NewSender(b broker.Broker) *Sender {
	return &Sender{broker: b}
}

// SendCollision marshals and publishes msg. Transport failures are logged
// and swallowed: an undeliverable notification is dropped, never retried
// by the worker.
func (s *Sender) SendCollision(ctx context.Context, msg message.CollisionNotification) {
	data, err := msg.Marshal()
	if err != nil {
		slog.Error("sender: failed to marshal collision notification", "error", err)
		return
	}
	if err := s.broker.Publish(ctx, broker.TopicCollisionNotification, data); err != nil {
		slog.Warn("sender: failed to publish collision notification", "error", err)
	}
}
