package blacklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/metrics"
)

type record struct {
	entry domain.BlacklistEntry
	cause error
}

// Registry is the session-wide Blacklister. It is safe for concurrent use.
//
// Entries are cached in memory. When a Backend is configured, trips are written
// through to it and cache misses are looked up in it, so a trip by one worker
// becomes visible to the others. Backend errors fail open.
type Registry struct {
	mu        sync.RWMutex
	entries   map[domain.RepositoryID]record
	listeners []Listener

	sessionID string
	backend   Backend
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithBackend persists entries in b.
func WithBackend(b Backend) Option {
	return func(r *Registry) { r.backend = b }
}

// WithListener registers l for newly recorded entries.
func WithListener(l Listener) Option {
	return func(r *Registry) { r.listeners = append(r.listeners, l) }
}

// WithSessionID scopes entries to id instead of a random session.
func WithSessionID(id string) Option {
	return func(r *Registry) {
		if id != "" {
			r.sessionID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:   make(map[domain.RepositoryID]record),
		sessionID: uuid.NewString(),
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the session the entries belong to.
func (r *Registry) SessionID() string {
	return r.sessionID
}

// AddListener registers l after construction.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// IsBlacklisted implements Blacklister.
func (r *Registry) IsBlacklisted(ctx context.Context, id domain.RepositoryID) bool {
	r.mu.RLock()
	_, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return true
	}
	if r.backend == nil {
		return false
	}

	entry, err := r.backend.Get(ctx, id)
	if err != nil {
		metrics.BlacklistBackendErrorsTotal.WithLabelValues(r.backend.Name(), "get").Inc()
		r.log.Warn("Failed to read blacklist backend",
			"backend", r.backend.Name(), "repository", id, "error", err)
		return false
	}
	if entry == nil {
		return false
	}

	r.Learn(ctx, *entry)
	return true
}

// BlacklistRepository implements Blacklister.
func (r *Registry) BlacklistRepository(ctx context.Context, id domain.RepositoryID, cause error) {
	entry := domain.BlacklistEntry{
		RepositoryID:  id,
		SessionID:     r.sessionID,
		Cause:         causeString(cause),
		BlacklistedAt: r.now().UTC(),
	}
	if !r.record(entry, cause) {
		return
	}

	metrics.RepositoriesBlacklistedTotal.WithLabelValues(string(id)).Inc()
	r.log.Warn("Repository blacklisted, skipping it for the rest of the session",
		"repository", id, "session", r.sessionID, "error", cause)

	origin := OriginLocal
	if r.backend != nil {
		stored, err := r.backend.Put(ctx, entry)
		switch {
		case err != nil:
			metrics.BlacklistBackendErrorsTotal.WithLabelValues(r.backend.Name(), "put").Inc()
			r.log.Warn("Failed to persist blacklist entry",
				"backend", r.backend.Name(), "repository", id, "error", err)
		case !stored:
			r.log.Debug("Repository already blacklisted by another worker", "repository", id)
			if first := r.adoptStored(ctx, id); first != nil {
				entry, origin = *first, OriginPeer
			}
		}
	}

	r.notify(ctx, entry, origin)
}

// adoptStored replaces the local record of id with the entry another worker
// persisted first. It returns nil if that entry cannot be read.
func (r *Registry) adoptStored(ctx context.Context, id domain.RepositoryID) *domain.BlacklistEntry {
	first, err := r.backend.Get(ctx, id)
	if err != nil {
		metrics.BlacklistBackendErrorsTotal.WithLabelValues(r.backend.Name(), "get").Inc()
		r.log.Warn("Failed to read persisted blacklist entry",
			"backend", r.backend.Name(), "repository", id, "error", err)
		return nil
	}
	if first == nil {
		return nil
	}

	r.mu.Lock()
	r.entries[id] = record{entry: *first, cause: errors.New(first.Cause)}
	r.mu.Unlock()
	return first
}

// Learn records an entry observed elsewhere. It is never written back to the
// backend. It reports whether the entry was new.
func (r *Registry) Learn(ctx context.Context, entry domain.BlacklistEntry) bool {
	if !r.record(entry, errors.New(entry.Cause)) {
		return false
	}
	r.log.Info("Repository blacklisted by a peer",
		"repository", entry.RepositoryID, "session", entry.SessionID, "cause", entry.Cause)
	r.notify(ctx, entry, OriginPeer)
	return true
}

// Cause returns the error that blacklisted id, or nil.
func (r *Registry) Cause(id domain.RepositoryID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entries[id]
	if !ok {
		return nil
	}
	return rec.cause
}

// Entries returns every known entry ordered by blacklisting time. With a backend,
// entries recorded by other processes are included; if the backend cannot be
// read the local entries are returned together with the error.
func (r *Registry) Entries(ctx context.Context) ([]domain.BlacklistEntry, error) {
	r.mu.RLock()
	local := lo.MapToSlice(r.entries, func(_ domain.RepositoryID, rec record) domain.BlacklistEntry {
		return rec.entry
	})
	r.mu.RUnlock()

	var err error
	all := local
	if r.backend != nil {
		var remote []domain.BlacklistEntry
		remote, err = r.backend.List(ctx)
		if err != nil {
			metrics.BlacklistBackendErrorsTotal.WithLabelValues(r.backend.Name(), "list").Inc()
			err = fmt.Errorf("list %s backend: %w", r.backend.Name(), err)
		}
		all = lo.UniqBy(append(local, remote...), func(e domain.BlacklistEntry) domain.RepositoryID {
			return e.RepositoryID
		})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].BlacklistedAt.Equal(all[j].BlacklistedAt) {
			return all[i].RepositoryID < all[j].RepositoryID
		}
		return all[i].BlacklistedAt.Before(all[j].BlacklistedAt)
	})
	return all, err
}

func (r *Registry) record(entry domain.BlacklistEntry, cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.RepositoryID]; ok {
		return false
	}
	r.entries[entry.RepositoryID] = record{entry: entry, cause: cause}
	metrics.BlacklistedRepositories.Inc()
	return true
}

func (r *Registry) notify(ctx context.Context, entry domain.BlacklistEntry, origin Origin) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		l.RepositoryBlacklisted(ctx, entry, origin)
	}
}

func causeString(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}
