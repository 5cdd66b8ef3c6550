package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/repoguard/internal/core/config"
	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/core/worker"
	natsbus "github.com/vietddude/repoguard/internal/infra/nats"
	redisclient "github.com/vietddude/repoguard/internal/infra/redis"
	"github.com/vietddude/repoguard/internal/infra/storage/sqlstore"
	"github.com/vietddude/repoguard/internal/repository"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
	"github.com/vietddude/repoguard/internal/resolve/errorhandling"
	"github.com/vietddude/repoguard/internal/resolve/retry"
	"github.com/vietddude/repoguard/internal/status"
)

const shutdownTimeout = 10 * time.Second

// Session owns the blacklist of one resolution session and everything that
// reports on it. Repositories wrapped by the same Session share the blacklist.
type Session struct {
	cfg        *config.AppConfig
	policy     retry.Policy
	registry   *blacklist.Registry
	backend    *Backend
	bus        *natsbus.Bus
	monitor    *status.Monitor
	httpServer *status.Server
	grpcHealth *status.GRPCHealth
	sleep      retry.SleepFunc
	log        *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithSleep replaces the backoff sleep of wrapped repositories.
func WithSleep(fn retry.SleepFunc) Option {
	return func(s *Session) { s.sleep = fn }
}

// NewSession connects the configured backend and peers.
func NewSession(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*Session, error) {
	s := &Session{cfg: cfg, policy: cfg.Retry.Policy(), log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}

	sessionID := cfg.Blacklist.Session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	backend, err := OpenBackend(ctx, cfg, sessionID)
	if err != nil {
		return nil, err
	}
	s.backend = backend

	regOpts := []blacklist.Option{
		blacklist.WithSessionID(sessionID),
		blacklist.WithLogger(s.log),
	}
	if backend.Backend != nil {
		regOpts = append(regOpts, blacklist.WithBackend(backend.Backend))
	}
	s.registry = blacklist.NewRegistry(regOpts...)

	if cfg.NATS.URL != "" {
		bus, err := natsbus.Connect(cfg.NATS, s.log)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		if err := bus.Subscribe(s.registry); err != nil {
			_ = bus.Close()
			_ = backend.Close()
			return nil, err
		}
		s.registry.AddListener(bus)
		s.bus = bus
		s.log.Info("Sharing blacklist with peers", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	s.monitor = status.NewMonitor(s.registry)
	s.httpServer = status.NewServer(s.monitor, cfg.Server.Port)
	if cfg.Server.GRPCPort > 0 {
		s.grpcHealth = status.NewGRPCHealth(cfg.Server.GRPCPort)
		s.registry.AddListener(s.grpcHealth)
	}
	for _, id := range cfg.Repositories {
		s.track(id)
	}

	s.log.Info("Session started",
		"session", sessionID,
		"backend", cfg.Blacklist.Backend,
		"max_retries", s.policy.MaxRetries,
		"initial_backoff", s.policy.InitialBackoff,
	)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.registry.SessionID()
}

// Registry returns the shared blacklist.
func (s *Session) Registry() *blacklist.Registry {
	return s.registry
}

// Monitor returns the health monitor.
func (s *Session) Monitor() *status.Monitor {
	return s.monitor
}

// GRPCHealth returns the gRPC health service, or nil when disabled.
func (s *Session) GRPCHealth() *status.GRPCHealth {
	return s.grpcHealth
}

// Wrap adds retries and blacklisting to repo.
func (s *Session) Wrap(repo repository.Repository) (*errorhandling.Repository, error) {
	opts := []errorhandling.Option{errorhandling.WithLogger(s.log)}
	if s.sleep != nil {
		opts = append(opts, errorhandling.WithSleep(s.sleep))
	}
	wrapped, err := errorhandling.NewRepository(repo, s.registry, s.policy, opts...)
	if err != nil {
		return nil, err
	}
	s.track(repo.ID())
	return wrapped, nil
}

func (s *Session) track(id domain.RepositoryID) {
	s.monitor.Track(id)
	if s.grpcHealth == nil {
		return
	}
	s.grpcHealth.Track(id)
	// Tripped before this process started.
	ctx := context.Background()
	if s.registry.IsBlacklisted(ctx, id) {
		s.grpcHealth.RepositoryBlacklisted(ctx, domain.BlacklistEntry{RepositoryID: id}, blacklist.OriginPeer)
	}
}

// Run serves the status endpoints until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.backend.DB != nil {
		s.backend.DB.StartMetricsCollector(ctx)
		if repo, ok := s.backend.Backend.(*sqlstore.BlacklistRepo); ok && s.cfg.Database.Retention > 0 {
			go worker.NewPruner(s.cfg.Database.Retention, repo).Start(ctx)
		}
	}

	g.Go(func() error {
		s.log.Info("Status server listening", "port", s.cfg.Server.Port)
		if err := s.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})
	if s.grpcHealth != nil {
		g.Go(func() error {
			s.log.Info("gRPC health listening", "port", s.cfg.Server.GRPCPort)
			if err := s.grpcHealth.Start(); err != nil {
				return fmt.Errorf("grpc health: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.grpcHealth != nil {
			s.grpcHealth.Stop()
		}
		return s.httpServer.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the backend and peer connections.
func (s *Session) Close() error {
	var errs []error
	if s.bus != nil {
		errs = append(errs, s.bus.Close())
	}
	errs = append(errs, s.backend.Close())
	return errors.Join(errs...)
}

// Backend is an opened blacklist backend together with the connection
// behind it. Backend is nil for the memory backend.
type Backend struct {
	blacklist.Backend
	DB    *sqlstore.DB
	Redis *goredis.Client
}

// OpenBackend connects the backend selected by cfg for session.
func OpenBackend(ctx context.Context, cfg *config.AppConfig, session string) (*Backend, error) {
	switch cfg.Blacklist.Backend {
	case config.BackendRedis:
		rdb, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Backend: redisclient.NewBlacklistStore(rdb, session, cfg.Redis.TTL),
			Redis:   rdb,
		}, nil
	case config.BackendSQL:
		db, err := sqlstore.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		return &Backend{Backend: sqlstore.NewBlacklistRepo(db, session), DB: db}, nil
	case config.BackendMemory, "":
		return &Backend{}, nil
	default:
		return nil, fmt.Errorf("unknown blacklist backend %q", cfg.Blacklist.Backend)
	}
}

// Close closes the connection behind the backend.
func (b *Backend) Close() error {
	switch {
	case b.DB != nil:
		return b.DB.Close()
	case b.Redis != nil:
		return b.Redis.Close()
	}
	return nil
}
