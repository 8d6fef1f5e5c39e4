package config

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	envPrefix  = "GEOSIMPLIFY_"
	envConfig  = envPrefix + "CONFIG"
	dotEnvFile = ".env"
)

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment. Missing files are skipped and variables
// already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{dotEnvFile}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(ErrLoadConfig, "dotenv %s: %v", p, err)
		}
	}
	return nil
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GEOSIMPLIFY_CONFIG is set
//  3. env (prefix GEOSIMPLIFY_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(envConfig))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(ErrLoadConfig, "file %s: %v", path, err)
		}
	}

	// GEOSIMPLIFY_TOLERANCE_METERS -> tolerance_meters (flat keys).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrapf(ErrLoadConfig, "env: %v", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrapf(ErrLoadConfig, "unmarshal: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
