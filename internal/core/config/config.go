package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/repoguard/internal/core/domain"
	natsbus "github.com/vietddude/repoguard/internal/infra/nats"
	redisclient "github.com/vietddude/repoguard/internal/infra/redis"
	"github.com/vietddude/repoguard/internal/infra/storage/sqlstore"
	"github.com/vietddude/repoguard/internal/resolve/retry"
)

// Blacklist backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig          `yaml:"server"`
	Logging      LoggingConfig         `yaml:"logging"`
	Retry        RetryConfig           `yaml:"retry"`
	Blacklist    BlacklistConfig       `yaml:"blacklist"`
	Redis        redisclient.Config    `yaml:"redis"`
	Database     sqlstore.Config       `yaml:"database"`
	NATS         natsbus.Config        `yaml:"nats"`
	Repositories []domain.RepositoryID `yaml:"repositories"`
}

// ServerConfig holds status server settings. A zero gRPC port disables
// the gRPC health service.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds the retry policy shared by every wrapped repository.
type RetryConfig struct {
	MaxRetries       int   `yaml:"max_retries"        env:"REPOSITORY_MAX_RETRIES"`
	InitialBackoffMs int64 `yaml:"initial_backoff_ms" env:"REPOSITORY_INITIAL_BACKOFF_MS"`
}

// Policy converts the configuration into a retry.Policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxRetries:     c.MaxRetries,
		InitialBackoff: time.Duration(c.InitialBackoffMs) * time.Millisecond,
	}
}

// BlacklistConfig selects where blacklist entries live. An empty session
// starts a new one.
type BlacklistConfig struct {
	Backend string `yaml:"backend"`
	Session string `yaml:"session"`
}

// Validate checks the settings Load cannot default.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Retry.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Blacklist.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis backend requires redis.url"))
		}
	case BackendSQL:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("sql backend requires database.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blacklist backend %q", c.Blacklist.Backend))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
