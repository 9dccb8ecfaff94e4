// Package mqtt implements broker.Broker over an MQTT 3.1.1 connection via
// github.com/eclipse/paho.mqtt.golang.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/opera-rt/opera/pkg/broker"
)

// QoS is the MQTT quality-of-service level Opera publishes and
// subscribes at: exactly-once delivery, since a duplicated collision
// notification or a lost human-state sample both corrupt the runtime's
// view of the world.
const QoS = 2

// publishTimeout bounds how long Publish waits for the broker to
// acknowledge a QoS 2 publish before giving up.
const publishTimeout = 5 * time.Second

// Topics maps the four message families to their MQTT topic names; a
// deployment may rename any of them via config.
type Topics struct {
	BodyPresentation      string
	HumanState            string
	RobotState            string
	CollisionNotification string
}

// DefaultTopics returns the default opera_* topic names.
func DefaultTopics() Topics {
	return Topics{
		BodyPresentation:      "opera_body_presentation",
		HumanState:            "opera_human_state",
		RobotState:            "opera_robot_state",
		CollisionNotification: "opera_collision_notification",
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
		return "", fmt.Errorf("mqtt broker: unknown topic %q", topic)
	}
}

// Broker adapts an MQTT client connection to broker.Broker.
type Broker struct {
	client pahomqtt.Client
	topics Topics
}

// Config holds the connection parameters needed to dial a broker.
type Config struct {
	BrokerURL string // e.g. "tcp://localhost:1883"
	ClientID  string
	Username  string
	Password  string
	Topics    Topics
}

// Dial connects to the MQTT broker named by cfg.BrokerURL and returns a
// ready Broker. The connection is held open until Close is called.
func Dial(cfg Config) (*Broker, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "opera-" + uuid.NewString()
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt broker: timed out connecting to %s", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt broker: connect to %s: %w", cfg.BrokerURL, err)
	}

	topics := cfg.Topics
	if topics == (Topics{}) {
		topics = DefaultTopics()
	}
	return &Broker{client: client, topics: topics}, nil
}

// Publish sends payload on topic's MQTT topic at QoS 2.
func (b *Broker) Publish(ctx context.Context, topic broker.Topic, payload []byte) error {
	name, err := b.topics.lookup(topic)
	if err != nil {
		return err
	}
	token := b.client.Publish(name, QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt broker: publish to %s timed out", name)
	}
	return token.Error()
}

// Subscribe registers handler against topic's MQTT topic at QoS 2.
func (b *Broker) Subscribe(ctx context.Context, topic broker.Topic, handler broker.Handler) error {
	name, err := b.topics.lookup(topic)
	if err != nil {
		return err
	}
	token := b.client.Subscribe(name, QoS, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		if err := handler(ctx, msg.Payload()); err != nil {
			slog.Warn("mqtt broker: handler failed", "topic", name, "error", err)
		}
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt broker: subscribe to %s timed out", name)
	}
	return token.Error()
}

// Close disconnects the underlying MQTT client, waiting up to 250ms for
// in-flight work to drain.
func (b *Broker) Close() error {
	b.client.Disconnect(250)
	return nil
}
