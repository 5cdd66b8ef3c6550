// Package errorhandling interposes retries and blacklisting between the
// resolution engine and a repository.
//
// The wrapped repository has the same contract as the delegate: callers can only
// tell the difference by its resilience. Local access retries but is never
// blacklisted; remote access trips the injected blacklister once an unexpected
// failure survives every retry.
package errorhandling

import (
	"fmt"
	"log/slog"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/repository"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
	"github.com/vietddude/repoguard/internal/resolve/retry"
)

// Repository is a repository.Repository with error handling.
type Repository struct {
	delegate repository.Repository
	local    *Access
	remote   *Access
}

var _ repository.Repository = (*Repository)(nil)

// Option configures the executors of a Repository.
type Option func(*options)

type options struct {
	log   *slog.Logger
	sleep retry.SleepFunc
}

// WithLogger sets the logger used by both accesses.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithSleep replaces the backoff sleep of both accesses.
func WithSleep(fn retry.SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// NewRepository wraps delegate. remote is the blacklister shared by every
// repository of the resolution session.
func NewRepository(
	delegate repository.Repository,
	remote blacklist.Blacklister,
	policy retry.Policy,
	opts ...Option,
) (*Repository, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	execOpts := []retry.ExecutorOption{retry.WithLogger(o.log.With("repository", delegate.Name()))}
	if o.sleep != nil {
		execOpts = append(execOpts, retry.WithSleep(o.sleep))
	}

	localExec, err := retry.NewExecutor(delegate.ID(), domain.AccessLocal, blacklist.NoOp, policy, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("wrap %s: %w", delegate.Name(), err)
	}
	remoteExec, err := retry.NewExecutor(delegate.ID(), domain.AccessRemote, remote, policy, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("wrap %s: %w", delegate.Name(), err)
	}

	return &Repository{
		delegate: delegate,
		local:    NewAccess(delegate.LocalAccess(), localExec),
		remote:   NewAccess(delegate.RemoteAccess(), remoteExec),
	}, nil
}

// Unwrap returns the delegate.
func (r *Repository) Unwrap() repository.Repository {
	return r.delegate
}

func (r *Repository) ID() domain.RepositoryID {
	return r.delegate.ID()
}

func (r *Repository) Name() string {
	return r.delegate.Name()
}

func (r *Repository) LocalAccess() repository.Access {
	return r.local
}

func (r *Repository) RemoteAccess() repository.Access {
	return r.remote
}

func (r *Repository) ArtifactCache() repository.ArtifactCache {
	return r.delegate.ArtifactCache()
}

func (r *Repository) MetadataSupplier() repository.MetadataSupplier {
	return r.delegate.MetadataSupplier()
}

func (r *Repository) String() string {
	if s, ok := r.delegate.(fmt.Stringer); ok {
		return s.String()
	}
	return r.delegate.Name()
}
