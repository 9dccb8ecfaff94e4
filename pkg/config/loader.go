package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates Opera's configuration. path may be empty, in
// which case the built-in defaults are used as-is (modulo cli); a missing
// file at a non-empty path is tolerated the same way — Opera has no
// mandatory configuration file, since every field has a sane zero-setup
// default (an in-memory broker).
//
// Steps: read file (if any) → expand environment variables → YAML-decode
// into the CLI-exclusion-enforcing fileConfig shape → merge onto
// DefaultConfig() → apply CLI overrides → validate.
func Load(path string, cli CLIOverrides) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("config: file not found, using built-in defaults", "path", path)
			} else {
				return nil, NewLoadError(path, err)
			}
		} else {
			data = ExpandEnv(data)
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
			}
			if err := mergeOverFileConfig(cfg, &fc); err != nil {
				return nil, NewLoadError(path, err)
			}
		}
	}

	applyCLIOverrides(cfg, cli)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
