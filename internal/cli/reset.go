package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/repoguard/internal/control"
	"github.com/vietddude/repoguard/internal/core/config"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the blacklist of a session",
	Long:  `Clear the blacklist of a session so its repositories are queried again. Requires --session or blacklist.session.`,
	Run:   runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	cfg := mustLoad(cmd)

	cleared, err := resetSession(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to reset blacklist", "error", err)
		os.Exit(1)
	}
	slog.Info("Blacklist cleared", "session", cfg.Blacklist.Session, "repositories", cleared)
}

// resetSession clears the session's backend and reports how many entries it held.
func resetSession(ctx context.Context, cfg *config.AppConfig) (int, error) {
	if err := requirePersistent(cfg); err != nil {
		return 0, err
	}
	if cfg.Blacklist.Session == "" {
		return 0, errors.New("a session is required (--session)")
	}

	backend, err := control.OpenBackend(ctx, cfg, cfg.Blacklist.Session)
	if err != nil {
		return 0, fmt.Errorf("open blacklist backend: %w", err)
	}
	defer func() {
		_ = backend.Close()
	}()

	entries, err := backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blacklist: %w", err)
	}
	if err := backend.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear blacklist: %w", err)
	}
	return len(entries), nil
}
