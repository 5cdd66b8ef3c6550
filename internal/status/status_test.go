package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	ctx := context.Background()
	registry := blacklist.NewRegistry(blacklist.WithSessionID("s1"))
	monitor := NewMonitor(registry)
	monitor.Track("central")
	monitor.Track("jcenter")
	handler := NewServer(monitor, 0).Handler()

	rec := get(t, handler, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	registry.BlacklistRepository(ctx, "jcenter", errors.New("connection refused"))

	rec = get(t, handler, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"degraded"}`, rec.Body.String())

	rec = get(t, handler, "/health/detailed")
	require.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "s1", report.Session)
	require.Len(t, report.Repositories, 2)
	assert.Equal(t, StatusHealthy, report.Repositories[0].Status)
	assert.Equal(t, StatusCritical, report.Repositories[1].Status)
	assert.Equal(t, "connection refused", report.Repositories[1].Cause)
	assert.NotNil(t, report.Repositories[1].BlacklistedAt)

	registry.BlacklistRepository(ctx, "central", errors.New("timeout"))
	rec = get(t, handler, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"critical"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewServer(NewMonitor(blacklist.NewRegistry()), 0).Handler()
	rec := get(t, handler, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "repoguard_blacklisted_repositories")
}

func TestGRPCHealthFollowsBlacklist(t *testing.T) {
	ctx := context.Background()
	g := NewGRPCHealth(0)
	registry := blacklist.NewRegistry(blacklist.WithListener(g))
	g.Track("central")

	status, err := g.Check(ctx, "central")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)

	registry.BlacklistRepository(ctx, "central", errors.New("boom"))

	status, err = g.Check(ctx, "central")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)

	_, err = g.Check(ctx, "unknown")
	assert.Error(t, err)
}
