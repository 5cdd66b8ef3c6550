package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/repoguard/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a blacklist session and serve its status",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := mustLoad(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := control.NewSession(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start session", "error", err)
		os.Exit(1)
	}

	slog.Info("repoguard started", "config", cfgPath, "session", s.ID())

	runErr := s.Run(ctx)
	if err := s.Close(); err != nil {
		slog.Warn("Failed to close session", "error", err)
	}
	if runErr != nil {
		slog.Error("Session failed", "error", runErr)
		os.Exit(1)
	}
	slog.Info("repoguard stopped gracefully")
}
