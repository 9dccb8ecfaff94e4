package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadWithNoFileUsesDefaultsPlusCLI(t *testing.T) {
	cfg, err := Load("", CLIOverrides{Scheduler: SchedulerBlocking, Theme: ThemeDark, Verbosity: 2})
	require.NoError(t, err)
	assert.Equal(t, SchedulerBlocking, cfg.Scheduler)
	assert.Equal(t, ThemeDark, cfg.Theme)
	assert.Equal(t, 2, cfg.Verbosity)
	assert.Equal(t, BrokerMemory, cfg.Broker.Kind)
}

func TestLoadMissingFileTolerated(t *testing.T) {
	cfg, err := Load("/nonexistent/opera.yaml", CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Broker.Kind, cfg.Broker.Kind)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/opera.yaml"
	require.NoError(t, os.WriteFile(path, []byte(`
broker:
  kind: mqtt
  mqtt:
    broker_url: tcp://localhost:1883
retention:
  history_retention_seconds: 7200
`), 0o644))
	cfg, err := Load(path, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, BrokerMQTT, cfg.Broker.Kind)
	assert.Equal(t, "tcp://localhost:1883", cfg.Broker.MQTT.BrokerURL)
	assert.EqualValues(t, 7200, cfg.Retention.HistoryRetentionSeconds)
	// Untouched defaults survive the merge.
	assert.EqualValues(t, 10_000, cfg.Retention.HumanRetentionTimeoutMS)
	assert.Equal(t, JobVariantReuse, cfg.Runtime.Variant)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/opera.yaml"
	require.NoError(t, os.WriteFile(path, []byte("broker: [not a map"), 0o644))
	_, err := Load(path, CLIOverrides{})
	require.Error(t, err)
}

func TestLoadRejectsInvalidBrokerKind(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/opera.yaml"
	require.NoError(t, os.WriteFile(path, []byte("broker:\n  kind: carrier_pigeon\n"), 0o644))
	_, err := Load(path, CLIOverrides{})
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateRejectsNonPositiveWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.WorkerCount = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresMQTTBrokerURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker.Kind = BrokerMQTT
	cfg.Broker.MQTT = nil
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresKafkaBrokers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker.Kind = BrokerKafka
	cfg.Broker.Kafka = &KafkaConfig{}
	require.Error(t, cfg.Validate())
}
