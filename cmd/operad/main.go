// Command operad is Opera's predictive collision-detection daemon: it
// subscribes to body presentation, human state, and robot state
// messages, runs the look-ahead worker pool, and publishes collision
// notifications.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/opera-rt/opera/pkg/api"
	"github.com/opera-rt/opera/pkg/broker"
	"github.com/opera-rt/opera/pkg/broker/kafka"
	"github.com/opera-rt/opera/pkg/broker/memory"
	"github.com/opera-rt/opera/pkg/broker/mqtt"
	"github.com/opera-rt/opera/pkg/cleanup"
	"github.com/opera-rt/opera/pkg/cli"
	"github.com/opera-rt/opera/pkg/config"
	"github.com/opera-rt/opera/pkg/logging"
	"github.com/opera-rt/opera/pkg/registry"
	"github.com/opera-rt/opera/pkg/runtime"
	"github.com/opera-rt/opera/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, code, ok := cli.Parse(os.Args[1:], os.Stdout)
	if !ok {
		return code
	}

	logger := logging.Init(os.Stderr, opts.Verbosity)

	cfg, err := config.Load(opts.ConfigDir, config.CLIOverrides{
		Scheduler: opts.Scheduler,
		Theme:     opts.Theme,
		Verbosity: opts.Verbosity,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "operad: %v\n", err)
		return 1
	}

	logger.Info("starting opera", "version", version.Full(), "scheduler", cfg.Scheduler, "broker", cfg.Broker.Kind)

	b, err := buildBroker(cfg.Broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "operad: broker: %v\n", err)
		return 1
	}
	defer b.Close()

	reg := registry.New()
	rt := runtime.New(cfg.Runtime, b, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "operad: runtime: %v\n", err)
		return 1
	}
	defer rt.Stop()

	reg.StartEvictionLoop(ctx, evictionCheckInterval(cfg.Retention), cfg.Retention.HumanRetentionTimeoutMS, func(ids []string) {
		rt.DiscardHumanJobs(ids)
	})
	defer reg.StopEvictionLoop()

	cleanupSvc := cleanup.NewService(cfg.Retention, reg)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	srv := api.NewServer(reg, rt, "")
	go func() {
		if err := srv.Run(":8080"); err != nil {
			logger.Error("api server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	return 0
}

func evictionCheckInterval(r *config.RetentionConfig) time.Duration {
	if r.EvictionCheckInterval > 0 {
		return r.EvictionCheckInterval
	}
	return time.Second
}

func buildBroker(cfg *config.BrokerConfig) (broker.Broker, error) {
	switch cfg.Kind {
	case config.BrokerMemory:
		return memory.New(), nil
	case config.BrokerMQTT:
		return buildMQTTBroker(cfg.MQTT)
	case config.BrokerKafka:
		return buildKafkaBroker(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
}

func buildMQTTBroker(m *config.MQTTConfig) (broker.Broker, error) {
	if m == nil {
		return nil, fmt.Errorf("mqtt broker selected but no mqtt configuration given")
	}
	topics := mqtt.DefaultTopics()
	if m.Topics.BodyPresentation != "" {
		topics.BodyPresentation = m.Topics.BodyPresentation
	}
	if m.Topics.HumanState != "" {
		topics.HumanState = m.Topics.HumanState
	}
	if m.Topics.RobotState != "" {
		topics.RobotState = m.Topics.RobotState
	}
	if m.Topics.CollisionNotification != "" {
		topics.CollisionNotification = m.Topics.CollisionNotification
	}
	return mqtt.Dial(mqtt.Config{
		BrokerURL: m.BrokerURL,
		ClientID:  m.ClientID,
		Username:  os.Getenv(m.UsernameEnv),
		Password:  os.Getenv(m.PasswordEnv),
		Topics:    topics,
	})
}

func buildKafkaBroker(k *config.KafkaConfig) (broker.Broker, error) {
	if k == nil {
		return nil, fmt.Errorf("kafka broker selected but no kafka configuration given")
	}
	cfg := kafka.Config{
		SeedBrokers: k.Brokers,
		Topics:      kafka.DefaultTopics(k.TopicPrefix),
		ConsumerID:  k.ConsumerGroup,
	}
	if k.SASL != nil {
		cfg.SASLUser = os.Getenv(k.SASL.UsernameEnv)
		cfg.SASLPass = os.Getenv(k.SASL.PasswordEnv)
	}
	if k.Offset == "start" {
		cfg.StartOffset = kgo.NewOffset().AtStart()
	} else if n, err := strconv.ParseInt(k.Offset, 10, 64); err == nil {
		cfg.StartOffset = kgo.NewOffset().At(n)
	} else {
		cfg.StartOffset = kgo.NewOffset().AtEnd()
	}
	return kafka.Dial(cfg)
}
