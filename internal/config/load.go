// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every MoveX environment variable.
const EnvPrefix = "MOVEX_"

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is the YAML config path. When Explicit is false a missing file
	// is ignored.
	File     string
	Explicit bool

	// EnvFile is an optional dotenv file loaded before the environment is
	// read. Variables already set in the process win.
	EnvFile string

	// Flags holds command-line overrides. FlagKeys maps flag names to
	// config keys such as "server.addr"; flags not listed are ignored, as
	// are flags the user did not set.
	Flags    *pflag.FlagSet
	FlagKeys map[string]string
}

// unprefixed lists the conventional variable names honored without the
// MoveX prefix. The prefixed form wins when both are set.
type unprefixed struct {
	JWTSecret   string `env:"JWT_SECRET"`
	DatabaseURL string `env:"DATABASE_URL"`
	MongoURI    string `env:"MONGODB_URI"`
	RedisURL    string `env:"REDIS_URL"`
}

// Load builds the effective configuration from defaults, the config file,
// the environment and flags, in that order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if err := loadFile(&cfg, opts.File, opts.Explicit); err != nil {
		return nil, err
	}
	if err := loadEnv(&cfg, opts.EnvFile); err != nil {
		return nil, err
	}
	if err := loadFlags(&cfg, opts.Flags, opts.FlagKeys); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateDocument(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return unmarshal(k, cfg)
}

func loadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return oops.Code("CONFIG_ENV_FILE_FAILED").With("path", envFile).Wrap(err)
		}
	}

	var plain unprefixed
	if err := env.Parse(&plain); err != nil {
		return oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	setIf(&cfg.Auth.JWTSecret, plain.JWTSecret)
	setIf(&cfg.Storage.PostgresURL, plain.DatabaseURL)
	setIf(&cfg.Storage.MongoURI, plain.MongoURI)
	setIf(&cfg.Revocation.RedisURL, plain.RedisURL)

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}
	return nil
}

func loadFlags(cfg *Config, flags *pflag.FlagSet, keys map[string]string) error {
	if flags == nil || len(keys) == 0 {
		return nil
	}

	k := koanf.New(".")
	provider := posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, any) {
		key, ok := keys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
	}
	return unmarshal(k, cfg)
}

func unmarshal(k *koanf.Koanf, cfg *Config) error {
	// Lists replace the default rather than merge into it.
	if k.Exists("cors.allowed_origins") {
		cfg.CORS.AllowedOrigins = nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
