package config

import (
	"fmt"
	"os"
	"strings"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "AURA_"
	envConfig = "AURA_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if AURA_CONFIG is set
//  3. env (prefix AURA_)
func Load() (*Config, error) {
	return LoadFile(os.Getenv(envConfig))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("reading %s", path), fmt.Errorf("%w: %v", ErrLoadConfig, err))
		}
	}

	// AURA_DB_BACKEND -> db_backend. Keys are flat, so underscores are kept.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, apperrors.NewConfigurationError("reading environment", fmt.Errorf("%w: %v", ErrLoadConfig, err))
	}
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, apperrors.NewConfigurationError("decoding configuration", fmt.Errorf("%w: %v", ErrLoadConfig, err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
