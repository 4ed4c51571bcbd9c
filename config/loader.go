package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes all environment overrides
	EnvPrefix = "POSEMON_"
	// EnvConfigFile names the variable holding the config file path when no
	// path is given explicitly
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, the YAML file at path and
// environment variables.  If path is empty POSEMON_CONFIG is consulted, and
// if that is empty too no file is read.
//
// Environment keys map to config keys by trimming the prefix, lower casing
// and using a double underscore for nesting, so
// POSEMON_THRESHOLDS__STANDING sets thresholds.standing.
func Load(_ context.Context, path string) (*Config, error) {

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigFile {
			return ""
		}
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})

	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrLoadConfig, err)
	}

	cfg := New()

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
