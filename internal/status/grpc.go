package status

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

// GRPCHealth serves the standard gRPC health protocol with one service per
// repository. A blacklisted repository reports NOT_SERVING.
type GRPCHealth struct {
	health *health.Server
	server *grpc.Server
	port   int
}

var _ blacklist.Listener = (*GRPCHealth)(nil)

func NewGRPCHealth(port int) *GRPCHealth {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCHealth{health: hs, server: srv, port: port}
}

// Track reports id as serving.
func (g *GRPCHealth) Track(id domain.RepositoryID) {
	g.health.SetServingStatus(string(id), healthpb.HealthCheckResponse_SERVING)
}

// RepositoryBlacklisted marks the repository as not serving, whichever
// process tripped it.
func (g *GRPCHealth) RepositoryBlacklisted(_ context.Context, entry domain.BlacklistEntry, _ blacklist.Origin) {
	g.health.SetServingStatus(string(entry.RepositoryID), healthpb.HealthCheckResponse_NOT_SERVING)
}

// Check answers a health request without going through the network.
func (g *GRPCHealth) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Start listens on the configured port and serves until Stop.
func (g *GRPCHealth) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return g.server.Serve(lis)
}

// Stop flips every service to NOT_SERVING and stops the server.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
