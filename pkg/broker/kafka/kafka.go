// Package kafka implements broker.Broker over github.com/twmb/franz-go.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"github.com/opera-rt/opera/pkg/broker"
)

// Topics maps the four message families to their Kafka topic names,
// all sharing a configurable prefix.
type Topics struct {
	BodyPresentation      string
	HumanState            string
	RobotState            string
	CollisionNotification string
}

// DefaultTopics builds the four topic names by prefixing the message
// family name, e.g. prefix "opera" yields "opera.body_presentation".
func DefaultTopics(prefix string) Topics {
	return Topics{
		BodyPresentation:      prefix + ".body_presentation",
		HumanState:            prefix + ".human_state",
		RobotState:            prefix + ".robot_state",
		CollisionNotification: prefix + ".collision_notification",
	}
}

func (t Topics) lookup(topic broker.Topic) (string, error) {
	switch topic {
	case broker.TopicBodyPresentation:
		return t.BodyPresentation, nil
	case broker.TopicHumanState:
		return t.HumanState, nil
	case broker.TopicRobotState:
		return t.RobotState, nil
	case broker.TopicCollisionNotification:
		return t.CollisionNotification, nil
	default:
		return "", fmt.Errorf("kafka broker: unknown topic %q", topic)
	}
}

// Config holds the connection parameters needed to build a client.
type Config struct {
	SeedBrokers []string
	Topics      Topics
	ConsumerID  string

	// SASL credentials; left empty for a plaintext connection.
	SASLUser string
	SASLPass string

	// StartOffset selects where a fresh subscription begins reading:
	// kgo.NewOffset().AtStart() or .AtEnd() (the default).
	StartOffset kgo.Offset
}

// Broker adapts a franz-go client to broker.Broker.
type Broker struct {
	client *kgo.Client
	topics Topics
	cancel []context.CancelFunc
}

// Dial constructs a franz-go client connected to cfg.SeedBrokers.
func Dial(cfg Config) (*Broker, error) {
	consumerID := cfg.ConsumerID
	if consumerID == "" {
		consumerID = "opera-" + uuid.NewString()
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.SeedBrokers...),
		kgo.ConsumerGroup(consumerID),
	}
	if cfg.SASLUser != "" {
		opts = append(opts, kgo.SASL(plain.Auth{User: cfg.SASLUser, Pass: cfg.SASLPass}.AsMechanism()))
	}
	if cfg.StartOffset != (kgo.Offset{}) {
		opts = append(opts, kgo.ConsumeResetOffset(cfg.StartOffset))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka broker: new client: %w", err)
	}

	topics := cfg.Topics
	if topics == (Topics{}) {
		topics = DefaultTopics("opera")
	}
	return &Broker{client: client, topics: topics}, nil
}

// Publish produces payload to topic's Kafka topic and waits for the
// broker's produce acknowledgement.
func (b *Broker) Publish(ctx context.Context, topic broker.Topic, payload []byte) error {
	name, err := b.topics.lookup(topic)
	if err != nil {
		return err
	}
	record := &kgo.Record{Topic: name, Value: payload}
	result := b.client.ProduceSync(ctx, record)
	return result.FirstErr()
}

// Subscribe adds topic's Kafka topic to the client's consumption set and
// starts a background poll loop that invokes handler for every fetched
// record, until ctx is cancelled or Close is called.
func (b *Broker) Subscribe(ctx context.Context, topic broker.Topic, handler broker.Handler) error {
	name, err := b.topics.lookup(topic)
	if err != nil {
		return err
	}
	b.client.AddConsumeTopics(name)

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = append(b.cancel, cancel)
	go func() {
		for {
			fetches := b.client.PollFetches(ctx)
			if ctx.Err() != nil {
				return
			}
			fetches.EachError(func(t string, p int32, err error) {
				slog.Warn("kafka broker: fetch error", "topic", t, "partition", p, "error", err)
			})
			fetches.EachRecord(func(record *kgo.Record) {
				if record.Topic != name {
					return
				}
				if err := handler(ctx, record.Value); err != nil {
					slog.Warn("kafka broker: handler failed", "topic", name, "error", err)
				}
			})
		}
	}()
	return nil
}

// Close stops every subscription poll loop and closes the underlying
// client.
func (b *Broker) Close() error {
	for _, cancel := range b.cancel {
		cancel()
	}
	b.client.Close()
	return nil
}
