// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package config loads MoveX configuration. Sources are layered in order:
// built-in defaults, the YAML config file, the environment (after an
// optional .env file), and finally command-line flags.
package config

import (
	"net"
	"net/url"
	"slices"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
)

// Storage and revocation drivers.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"

	RevocationStore = "store"
	RevocationRedis = "redis"
)

// Duration is a time.Duration written as "90s" or "1h" in YAML, JSON and
// environment variables.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("value", string(text)).Wrap(err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// JSONSchema describes Duration as a Go duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration such as 30s, 5m or 1h",
	}
}

// Config is the complete MoveX configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server" json:"server" yaml:"server"`
	Log        LogConfig        `koanf:"log" json:"log" yaml:"log"`
	Auth       AuthConfig       `koanf:"auth" json:"auth" yaml:"auth"`
	Storage    StorageConfig    `koanf:"storage" json:"storage" yaml:"storage"`
	Revocation RevocationConfig `koanf:"revocation" json:"revocation" yaml:"revocation"`
	CORS       CORSConfig       `koanf:"cors" json:"cors" yaml:"cors"`
	Client     ClientConfig     `koanf:"client" json:"client" yaml:"client"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr            string   `koanf:"addr" json:"addr" yaml:"addr" env:"SERVER_ADDR" jsonschema:"description=API listen address"`
	MetricsAddr     string   `koanf:"metrics_addr" json:"metrics_addr" yaml:"metrics_addr" env:"METRICS_ADDR" jsonschema:"description=metrics and health listen address; empty disables it"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	SecureCookies   bool     `koanf:"secure_cookies" json:"secure_cookies" yaml:"secure_cookies" env:"SECURE_COOKIES" jsonschema:"description=mark the token cookie Secure"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format" yaml:"format" env:"LOG_FORMAT" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level" yaml:"level" env:"LOG_LEVEL" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// AuthConfig configures hashing and tokens.
type AuthConfig struct {
	JWTSecret     string   `koanf:"jwt_secret" json:"jwt_secret" yaml:"jwt_secret" env:"JWT_SECRET" jsonschema:"description=HS256 signing secret of at least 32 bytes"`
	BcryptCost    int      `koanf:"bcrypt_cost" json:"bcrypt_cost" yaml:"bcrypt_cost" env:"BCRYPT_COST" jsonschema:"minimum=4,maximum=31"`
	PruneInterval Duration `koanf:"prune_interval" json:"prune_interval" yaml:"prune_interval" env:"PRUNE_INTERVAL"`
}

// StorageConfig selects and configures the account store.
type StorageConfig struct {
	Driver        string `koanf:"driver" json:"driver" yaml:"driver" env:"STORAGE_DRIVER" jsonschema:"enum=postgres,enum=mongo,enum=memory"`
	PostgresURL   string `koanf:"postgres_url" json:"postgres_url" yaml:"postgres_url" env:"DATABASE_URL"`
	AutoMigrate   bool   `koanf:"auto_migrate" json:"auto_migrate" yaml:"auto_migrate" env:"AUTO_MIGRATE"`
	MongoURI      string `koanf:"mongo_uri" json:"mongo_uri" yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string `koanf:"mongo_database" json:"mongo_database" yaml:"mongo_database" env:"MONGO_DATABASE"`
}

// RevocationConfig selects where logged-out tokens are recorded.
type RevocationConfig struct {
	Driver   string `koanf:"driver" json:"driver" yaml:"driver" env:"REVOCATION_DRIVER" jsonschema:"enum=store,enum=redis"`
	RedisURL string `koanf:"redis_url" json:"redis_url" yaml:"redis_url" env:"REDIS_URL"`
}

// CORSConfig lists browser origins allowed to call the API. Entries may be
// glob patterns such as https://*.movex.app.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// ClientConfig configures the CLI client.
type ClientConfig struct {
	BaseURL     string   `koanf:"base_url" json:"base_url" yaml:"base_url" env:"BASE_URL"`
	SessionFile string   `koanf:"session_file" json:"session_file" yaml:"session_file" env:"SESSION_FILE" jsonschema:"description=token file; defaults to the XDG config directory"`
	Timeout     Duration `koanf:"timeout" json:"timeout" yaml:"timeout" env:"CLIENT_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			MetricsAddr:     "127.0.0.1:9100",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{Format: "json", Level: "info"},
		Auth: AuthConfig{
			BcryptCost:    auth.DefaultBcryptCost,
			PruneInterval: Duration(auth.DefaultPruneInterval),
		},
		Storage: StorageConfig{
			Driver:        StoragePostgres,
			AutoMigrate:   true,
			MongoDatabase: "movex",
		},
		Revocation: RevocationConfig{Driver: RevocationStore},
		CORS:       CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Client: ClientConfig{
			BaseURL: "http://localhost:3000",
			Timeout: Duration(15 * time.Second),
		},
	}
}

// ValidateServer checks the settings `movex serve` depends on.
func (c *Config) ValidateServer() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", "is required")
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return invalid("server.addr", "must be host:port")
	}
	if c.Server.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.Server.MetricsAddr); err != nil {
			return invalid("server.metrics_addr", "must be host:port")
		}
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "must be json or text")
	}
	if len(c.Auth.JWTSecret) < auth.MinTokenSecretLen {
		return invalid("auth.jwt_secret", "must be at least 32 bytes; set MOVEX_JWT_SECRET or JWT_SECRET")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return invalid("auth.bcrypt_cost", "must be between 4 and 31")
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	switch c.Revocation.Driver {
	case RevocationStore:
	case RevocationRedis:
		if c.Revocation.RedisURL == "" {
			return invalid("revocation.redis_url", "is required for the redis driver")
		}
	default:
		return invalid("revocation.driver", "must be store or redis")
	}
	return nil
}

// ValidateStorage checks the storage settings used by serve and migrate.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return invalid("storage.postgres_url", "is required for the postgres driver; set DATABASE_URL")
		}
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return invalid("storage.mongo_uri", "is required for the mongo driver")
		}
		if c.Storage.MongoDatabase == "" {
			return invalid("storage.mongo_database", "is required for the mongo driver")
		}
	case StorageMemory:
	default:
		return invalid("storage.driver", "must be postgres, mongo or memory")
	}
	return nil
}

// ValidateClient checks the settings the CLI client depends on.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("client.base_url", "must be an absolute http(s) URL; set MOVEX_BASE_URL")
	}
	if c.Client.Timeout <= 0 {
		return invalid("client.timeout", "must be positive")
	}
	return nil
}

// Redacted returns a copy with secrets and credentials in URLs masked.
func (c Config) Redacted() Config {
	const mask = "REDACTED"
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = mask
	}
	c.Storage.PostgresURL = redactURL(c.Storage.PostgresURL)
	c.Storage.MongoURI = redactURL(c.Storage.MongoURI)
	c.Revocation.RedisURL = redactURL(c.Revocation.RedisURL)
	c.CORS.AllowedOrigins = slices.Clone(c.CORS.AllowedOrigins)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "REDACTED"
	}
	return u.Redacted()
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, msg)
}
