package config

import "dario.cat/mergo"

// mergeOverFileConfig merges a loaded YAML file's fields onto Opera's
// built-in defaults: any field the file leaves zero keeps the default.
// The file is the overlay, the built-ins are the base.
func mergeOverFileConfig(base *Config, file *fileConfig) error {
	if file.Broker != nil {
		if err := mergo.Merge(base.Broker, file.Broker, mergo.WithOverride); err != nil {
			return err
		}
	}
	if file.Retention != nil {
		if err := mergo.Merge(base.Retention, file.Retention, mergo.WithOverride); err != nil {
			return err
		}
	}
	if file.Runtime != nil {
		if err := mergo.Merge(base.Runtime, file.Runtime, mergo.WithOverride); err != nil {
			return err
		}
	}
	return nil
}

// CLIOverrides carries the scheduler/theme/verbosity flags parsed from the
// command line. They always win over both the file and the
// built-in defaults.
type CLIOverrides struct {
	Scheduler SchedulerMode
	Theme     Theme
	Verbosity int
}

func applyCLIOverrides(cfg *Config, o CLIOverrides) {
	if o.Scheduler != "" {
		cfg.Scheduler = o.Scheduler
	}
	if o.Theme != "" {
		cfg.Theme = o.Theme
	}
	cfg.Verbosity = o.Verbosity
}
