package config

import "time"

// BrokerConfig selects and configures the transport implementation the
// runtime exchanges the four message families through.
type BrokerConfig struct {
	// Kind selects memory, mqtt, or kafka. Defaults to memory.
	Kind BrokerKind `yaml:"kind"`

	MQTT  *MQTTConfig  `yaml:"mqtt,omitempty"`
	Kafka *KafkaConfig `yaml:"kafka,omitempty"`
}

// MQTTConfig configures the paho.mqtt.golang-backed broker.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`

	// UsernameEnv/PasswordEnv name environment variables holding
	// credentials, never the credentials themselves.
	UsernameEnv string `yaml:"username_env,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Topics overrides the four default opera_* topic names.
	Topics MQTTTopics `yaml:"topics,omitempty"`
}

// MQTTTopics names the four wire topics.
type MQTTTopics struct {
	BodyPresentation      string `yaml:"body_presentation,omitempty"`
	HumanState            string `yaml:"human_state,omitempty"`
	RobotState            string `yaml:"robot_state,omitempty"`
	CollisionNotification string `yaml:"collision_notification,omitempty"`
}

// KafkaConfig configures the franz-go-backed broker.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	TopicPrefix   string   `yaml:"topic_prefix"`
	ConsumerGroup string   `yaml:"consumer_group"`

	// Offset selects where a new consumer group starts reading: "start",
	// "end", or an explicit numeric offset encoded as a decimal string.
	Offset string `yaml:"offset"`

	// SASL, when non-nil, authenticates with SASL/PLAIN; a nil SASL means
	// a plaintext connection.
	SASL *KafkaSASLConfig `yaml:"sasl,omitempty"`
}

// KafkaSASLConfig configures SASL/PLAIN credentials for the Kafka broker.
type KafkaSASLConfig struct {
	Mechanism   string `yaml:"mechanism"`
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
}

// DefaultBrokerConfig returns the in-memory broker, Opera's zero-setup
// default transport.
func DefaultBrokerConfig() *BrokerConfig {
	return &BrokerConfig{Kind: BrokerMemory}
}
