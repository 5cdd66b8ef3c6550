package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/repoguard/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
	session string
)

var rootCmd = &cobra.Command{
	Use:   "repoguard",
	Short: "Retry and blacklisting layer for dependency repositories",
	Long: `repoguard retries failed repository calls with exponential backoff and
blacklists a remote repository for the rest of the session once a call keeps failing.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "blacklist session (overrides blacklist.session)")
}

// loadConfig reads the config file. A missing default config file falls back
// to built-in defaults; an explicitly named one must exist.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if session != "" {
		cfg.Blacklist.Session = session
	}
	return cfg, nil
}

func setupLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Logging.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		slogLevel = slog.LevelError
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// mustLoad loads the config and sets up logging, exiting on failure.
func mustLoad(cmd *cobra.Command) *config.AppConfig {
	cfg, err := loadConfig(cmd)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)
	return cfg
}
