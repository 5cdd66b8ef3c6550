package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	natsbus "github.com/vietddude/repoguard/internal/infra/nats"
	"github.com/vietddude/repoguard/internal/infra/storage/sqlstore"
	"github.com/vietddude/repoguard/internal/resolve/retry"
)

// Load reads configuration from a YAML file. Environment variables are
// expanded in the file, then the retry settings are overridden by
// REPOSITORY_MAX_RETRIES and REPOSITORY_INITIAL_BACKOFF_MS when set.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*AppConfig, error) {
	// Retry settings where zero is meaningful are filled in before decoding
	// so an explicit 0 survives.
	cfg := AppConfig{Retry: defaultRetry()}
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&cfg.Retry); err != nil {
		return nil, fmt.Errorf("failed to parse retry environment: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used without a config file. The retry
// environment overrides still apply.
func Default() (*AppConfig, error) {
	cfg := AppConfig{Retry: defaultRetry()}
	if err := env.Parse(&cfg.Retry); err != nil {
		return nil, fmt.Errorf("failed to parse retry environment: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func defaultRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:       retry.DefaultMaxRetries,
		InitialBackoffMs: retry.DefaultInitialBackoff.Milliseconds(),
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Blacklist.Backend == "" {
		cfg.Blacklist.Backend = BackendMemory
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = sqlstore.DriverPgx
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = natsbus.DefaultSubject
	}
}
