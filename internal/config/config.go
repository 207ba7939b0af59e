package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/guessthat/cardcache/internal/domain"
)

// Config is the application configuration, loaded in layers: defaults,
// then an optional YAML file, then CARDCACHE_* environment variables,
// then command-line flags.
type Config struct {
	DBPath   string `koanf:"db_path" validate:"required"`
	PacksDir string `koanf:"packs_dir" validate:"required"`
	TurnSize int    `koanf:"turn_size" validate:"min=1"`

	Remote RemoteConfig `koanf:"remote"`
	Bucket BucketConfig `koanf:"bucket"`
}

// RemoteConfig describes the card-generation service.
type RemoteConfig struct {
	BaseURL        string `koanf:"base_url" validate:"required,url"`
	TimeoutSeconds int    `koanf:"timeout_seconds" validate:"min=1"`
}

// BucketConfig selects the current play bucket.
type BucketConfig struct {
	Language   string `koanf:"language" validate:"required"`
	Category   string `koanf:"category" validate:"required"`
	Difficulty string `koanf:"difficulty" validate:"required,oneof=easy medium hard"`
}

// PlayBucket converts the configured bucket into its domain form.
func (c Config) PlayBucket() domain.Bucket {
	return domain.Bucket{
		Language:   c.Bucket.Language,
		Category:   c.Bucket.Category,
		Difficulty: domain.Difficulty(c.Bucket.Difficulty),
	}
}

// Default returns the built-in configuration, matching the original
// de-CH family deck the game ships with.
func Default() Config {
	return Config{
		DBPath:   "guess-that.db",
		PacksDir: "packs",
		TurnSize: 10,
		Remote: RemoteConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 10,
		},
		Bucket: BucketConfig{
			Language:   "de-CH",
			Category:   "family",
			Difficulty: "medium",
		},
	}
}

var validate = validator.New()

// Load builds the configuration. path may be empty (no file layer);
// flags may be nil (no flag layer).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// CARDCACHE_REMOTE__BASE_URL -> remote.base_url; a double underscore
	// separates nesting levels so keys themselves can contain one.
	if err := k.Load(env.Provider("CARDCACHE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "CARDCACHE_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagToKey), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// flagToKey maps CLI flag names onto config keys. Flags that carry no
// config meaning (like --config itself) are dropped, and flags left at
// their defaults do not override file or env values.
func flagToKey(f *pflag.Flag) (string, interface{}) {
	if !f.Changed {
		return "", nil
	}
	switch f.Name {
	case "db":
		return "db_path", f.Value.String()
	case "packs-dir":
		return "packs_dir", f.Value.String()
	case "turn-size":
		return "turn_size", f.Value.String()
	case "remote-url":
		return "remote.base_url", f.Value.String()
	case "remote-timeout":
		return "remote.timeout_seconds", f.Value.String()
	case "lang":
		return "bucket.language", f.Value.String()
	case "category":
		return "bucket.category", f.Value.String()
	case "difficulty":
		return "bucket.difficulty", f.Value.String()
	}
	return "", nil
}
