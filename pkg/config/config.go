// Package config implements Opera's layered configuration: a YAML file on
// disk merged with CLI-supplied overrides (scheduler mode, theme,
// verbosity), validated before the runtime starts.
package config

// Config is the fully resolved, validated configuration the daemon runs
// with.
type Config struct {
	// Scheduler, Theme, and Verbosity are CLI-only; they have
	// no YAML counterpart and are always set from the CLI overrides after
	// the file merge.
	Scheduler SchedulerMode `yaml:"-"`
	Theme     Theme         `yaml:"-"`
	Verbosity int           `yaml:"-"`

	Broker    *BrokerConfig    `yaml:"broker"`
	Retention *RetentionConfig `yaml:"retention"`
	Runtime   *RuntimeConfig   `yaml:"runtime"`
}

// fileConfig is the YAML-only subset of Config, used so Scheduler/
// Theme/Verbosity (which have no YAML tag, `yaml:"-"`) can never be set
// from a file — they are CLI-exclusive.
type fileConfig struct {
	Broker    *BrokerConfig    `yaml:"broker"`
	Retention *RetentionConfig `yaml:"retention"`
	Runtime   *RuntimeConfig   `yaml:"runtime"`
}
