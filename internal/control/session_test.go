package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/repoguard/internal/core/config"
	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/infra/storage/sqlstore"
	"github.com/vietddude/repoguard/internal/repository/repositorytest"
	"github.com/vietddude/repoguard/internal/repository/result"
	"github.com/vietddude/repoguard/internal/status"
)

func noSleep(context.Context, time.Duration) error { return nil }

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(`
blacklist:
  session: test-session
repositories: [central]
`))
	require.NoError(t, err)
	cfg.Server.Port = 0 // any free port
	return cfg
}

func newSession(t *testing.T, cfg *config.AppConfig) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), cfg, WithSleep(noSleep))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionWrapSharesBlacklist(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, testConfig(t))
	assert.Equal(t, "test-session", s.ID())

	broken := repositorytest.NewRepository("central", "Maven Central")
	broken.Remote.ListFunc = func(context.Context, domain.ModuleDependency, *result.VersionListing) error {
		return errors.New("connection refused")
	}
	wrapped, err := s.Wrap(broken)
	require.NoError(t, err)

	dep := domain.ModuleDependency{Selector: domain.ModuleSelector{Group: "org.example", Module: "lib"}}
	var res result.VersionListing
	require.NoError(t, wrapped.RemoteAccess().ListModuleVersions(ctx, dep, &res))

	assert.Equal(t, 3, broken.Remote.Calls(repositorytest.OpListModuleVersions))
	assert.True(t, s.Registry().IsBlacklisted(ctx, "central"))

	report := s.Monitor().CheckHealth(ctx)
	assert.Equal(t, status.StatusCritical, report.SystemStatus)
	require.Len(t, report.Repositories, 1)
	assert.Equal(t, "connection refused", report.Repositories[0].Cause)
}

func TestSessionGRPCHealth(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Server.GRPCPort = 19090
	s := newSession(t, cfg)

	_, err := s.Wrap(repositorytest.NewRepository("google", "Google"))
	require.NoError(t, err)

	got, err := s.GRPCHealth().Check(ctx, "google")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, got)

	s.Registry().BlacklistRepository(ctx, "google", errors.New("503"))

	got, err = s.GRPCHealth().Check(ctx, "google")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, got)
}

func TestSessionSQLBackendSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Blacklist.Backend = config.BackendSQL
	cfg.Database = sqlstore.Config{Driver: sqlstore.DriverSQLite, URL: "file:" + t.TempDir() + "/blacklist.db"}

	first, err := NewSession(ctx, cfg, WithSleep(noSleep))
	require.NoError(t, err)
	first.Registry().BlacklistRepository(ctx, "central", errors.New("connection refused"))
	require.NoError(t, first.Close())

	second := newSession(t, cfg)
	assert.True(t, second.Registry().IsBlacklisted(ctx, "central"))
	assert.EqualError(t, second.Registry().Cause("central"), "connection refused")
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	s := newSession(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOpenBackendRejectsUnknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Blacklist.Backend = "etcd"
	_, err := OpenBackend(context.Background(), cfg, "s")
	assert.ErrorContains(t, err, `unknown blacklist backend "etcd"`)
}
