// Package blacklist implements the per-repository circuit breaker.
//
// A repository is blacklisted when an unexpected failure survives every retry.
// From then on every call against it is short-circuited until the store is
// recreated. There is no half-open state and no implicit reset.
package blacklist

import (
	"context"

	"github.com/vietddude/repoguard/internal/core/domain"
)

// Blacklister records and reports blacklisted repositories.
type Blacklister interface {
	// IsBlacklisted reports whether calls against id must be skipped
	IsBlacklisted(ctx context.Context, id domain.RepositoryID) bool

	// BlacklistRepository marks id as unusable. Marking an already blacklisted
	// repository is a no-op: the first cause wins.
	BlacklistRepository(ctx context.Context, id domain.RepositoryID, cause error)
}

type noOpBlacklister struct{}

func (noOpBlacklister) IsBlacklisted(context.Context, domain.RepositoryID) bool { return false }

func (noOpBlacklister) BlacklistRepository(context.Context, domain.RepositoryID, error) {}

// NoOp never blacklists anything. Used for local access.
var NoOp Blacklister = noOpBlacklister{}

// Backend persists blacklist entries so several processes can share them.
type Backend interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// Get returns the entry for id, or nil if the repository is not blacklisted
	Get(ctx context.Context, id domain.RepositoryID) (*domain.BlacklistEntry, error)

	// Put stores entry unless one already exists; it reports whether it was stored
	Put(ctx context.Context, entry domain.BlacklistEntry) (bool, error)

	// List returns all entries of the session
	List(ctx context.Context) ([]domain.BlacklistEntry, error)

	// Clear removes all entries of the session
	Clear(ctx context.Context) error
}

// Origin tells listeners where a newly recorded entry came from.
type Origin int

const (
	OriginLocal Origin = iota // Tripped by this process
	OriginPeer                // Learned from a backend or another worker
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "peer"
}

// Listener is notified once per repository when it becomes blacklisted.
type Listener interface {
	RepositoryBlacklisted(ctx context.Context, entry domain.BlacklistEntry, origin Origin)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, entry domain.BlacklistEntry, origin Origin)

func (f ListenerFunc) RepositoryBlacklisted(ctx context.Context, entry domain.BlacklistEntry, origin Origin) {
	f(ctx, entry, origin)
}
