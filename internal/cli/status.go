package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/repoguard/internal/control"
	"github.com/vietddude/repoguard/internal/core/config"
	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/infra/storage/sqlstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the blacklisted repositories of a session",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := mustLoad(cmd)

	if err := showStatus(context.Background(), cfg, os.Stdout); err != nil {
		slog.Error("Failed to show status", "error", err)
		os.Exit(1)
	}
}

// showStatus prints the entries of the configured session, or the known
// sessions of a SQL backend when no session is given.
func showStatus(ctx context.Context, cfg *config.AppConfig, out io.Writer) error {
	if err := requirePersistent(cfg); err != nil {
		return err
	}

	backend, err := control.OpenBackend(ctx, cfg, cfg.Blacklist.Session)
	if err != nil {
		return fmt.Errorf("open blacklist backend: %w", err)
	}
	defer func() {
		_ = backend.Close()
	}()

	if cfg.Blacklist.Session == "" {
		if backend.DB == nil {
			return errors.New("a session is required for the redis backend (--session)")
		}
		sessions, err := sqlstore.Sessions(ctx, backend.DB)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			_, _ = fmt.Fprintln(out, s)
		}
		return nil
	}

	entries, err := backend.List(ctx)
	if err != nil {
		return fmt.Errorf("list blacklist: %w", err)
	}
	printEntries(out, entries)
	return nil
}

func printEntries(out io.Writer, entries []domain.BlacklistEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "REPOSITORY\tBLACKLISTED\tCAUSE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.RepositoryID, e.BlacklistedAt.Format(time.RFC3339), e.Cause)
	}
	_ = w.Flush()
}

func requirePersistent(cfg *config.AppConfig) error {
	if cfg.Blacklist.Backend == config.BackendMemory {
		return fmt.Errorf("the %s backend does not outlive its process", config.BackendMemory)
	}
	return nil
}
