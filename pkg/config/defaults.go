package config

// DefaultConfig returns Opera's built-in configuration: an in-memory
// broker, the standard retention windows, and a reuse-variant runtime
// pool, with CLI fields at their documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerNonblocking,
		Theme:     ThemeNone,
		Verbosity: 0,
		Broker:    DefaultBrokerConfig(),
		Retention: DefaultRetentionConfig(),
		Runtime:   DefaultRuntimeConfig(),
	}
}
