package config

import "fmt"

// Validate checks every field of a resolved Config for internal
// consistency: one method per sub-config, returning the first violation
// as a *ValidationError wrapping ErrInvalidValue or
// ErrMissingRequiredField.
func (c *Config) Validate() error {
	if !c.Scheduler.IsValid() {
		return NewValidationError("scheduler", fmt.Errorf("%w: %q", ErrInvalidValue, c.Scheduler))
	}
	if !c.Theme.IsValid() {
		return NewValidationError("theme", fmt.Errorf("%w: %q", ErrInvalidValue, c.Theme))
	}
	if c.Verbosity < 0 {
		return NewValidationError("verbosity", fmt.Errorf("%w: must be non-negative, got %d", ErrInvalidValue, c.Verbosity))
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if err := c.Retention.validate(); err != nil {
		return err
	}
	if err := c.Runtime.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	if !b.Kind.IsValid() {
		return NewValidationError("broker.kind", fmt.Errorf("%w: %q", ErrInvalidValue, b.Kind))
	}
	switch b.Kind {
	case BrokerMQTT:
		if b.MQTT == nil || b.MQTT.BrokerURL == "" {
			return NewValidationError("broker.mqtt.broker_url", ErrMissingRequiredField)
		}
	case BrokerKafka:
		if b.Kafka == nil || len(b.Kafka.Brokers) == 0 {
			return NewValidationError("broker.kafka.brokers", ErrMissingRequiredField)
		}
	}
	return nil
}

func (r *RetentionConfig) validate() error {
	if r.HistoryRetentionSeconds <= 0 {
		return NewValidationError("retention.history_retention_seconds", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.PurgeInterval <= 0 {
		return NewValidationError("retention.purge_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.EvictionCheckInterval <= 0 {
		return NewValidationError("retention.eviction_check_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (rt *RuntimeConfig) validate() error {
	if rt.WorkerCount <= 0 {
		return NewValidationError("runtime.worker_count", fmt.Errorf("%w: must be positive, got %d", ErrInvalidValue, rt.WorkerCount))
	}
	if !rt.Variant.IsValid() {
		return NewValidationError("runtime.variant", fmt.Errorf("%w: %q", ErrInvalidValue, rt.Variant))
	}
	if rt.Variant == JobVariantReuse {
		if !rt.BarrierKind.IsValid() {
			return NewValidationError("runtime.barrier_kind", fmt.Errorf("%w: %q", ErrInvalidValue, rt.BarrierKind))
		}
		if !rt.BarrierPolicy.IsValid() {
			return NewValidationError("runtime.barrier_policy", fmt.Errorf("%w: %q", ErrInvalidValue, rt.BarrierPolicy))
		}
	}
	return nil
}
