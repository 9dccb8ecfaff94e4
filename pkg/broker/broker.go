// Package broker defines the publish/subscribe boundary the runtime uses
// to exchange the four message families with the outside world, plus
// concrete in-memory, MQTT, and Kafka implementations.
package broker

import "context"

// Topic names the four message families a Broker carries.
type Topic string

const (
	TopicBodyPresentation      Topic = "body_presentation"
	TopicHumanState            Topic = "human_state"
	TopicRobotState            Topic = "robot_state"
	TopicCollisionNotification Topic = "collision_notification"
)

// Handler is invoked once per message received on a subscription. A
// returned error is logged by the broker implementation but does not
// unsubscribe the handler.
type Handler func(ctx context.Context, payload []byte) error

// Broker is the transport-agnostic publish/subscribe boundary. Every
// implementation (memory, mqtt, kafka) resolves a Topic to its own
// wire-level channel name (a slice index, an MQTT topic string, a Kafka
// topic) and carries already-encoded JSON payloads without inspecting
// them — encoding and decoding is pkg/message's job, not the broker's.
type Broker interface {
	// Publish sends payload on topic. It returns once the message has
	// been handed to the underlying transport (for Kafka, once the
	// produce has been acknowledged per the configured acks setting).
	Publish(ctx context.Context, topic Topic, payload []byte) error

	// Subscribe registers handler to be called for every message
	// received on topic from now on. Subscribe may be called more than
	// once per topic; every handler registered receives every message.
	Subscribe(ctx context.Context, topic Topic, handler Handler) error

	// Close releases any connections or background goroutines the
	// broker holds. It is idempotent.
	Close() error
}
