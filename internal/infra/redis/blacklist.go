package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

// BlacklistStore keeps the entries of one session in a single hash,
// one field per repository.
type BlacklistStore struct {
	rdb     *redis.Client
	session string
	ttl     time.Duration
}

var _ blacklist.Backend = (*BlacklistStore)(nil)

// NewBlacklistStore returns a store for session. A positive ttl expires the
// whole session hash after the last trip.
func NewBlacklistStore(rdb *redis.Client, session string, ttl time.Duration) *BlacklistStore {
	return &BlacklistStore{rdb: rdb, session: session, ttl: ttl}
}

func blacklistKey(session string) string {
	return fmt.Sprintf("repoguard:blacklist:%s", session)
}

func (s *BlacklistStore) Name() string { return "redis" }

// Get returns the entry for id, or nil.
func (s *BlacklistStore) Get(ctx context.Context, id domain.RepositoryID) (*domain.BlacklistEntry, error) {
	raw, err := s.rdb.HGet(ctx, blacklistKey(s.session), string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget failed: %w", err)
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores entry unless the repository is already in the hash.
func (s *BlacklistStore) Put(ctx context.Context, entry domain.BlacklistEntry) (bool, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("encode entry: %w", err)
	}

	key := blacklistKey(s.session)
	stored, err := s.rdb.HSetNX(ctx, key, string(entry.RepositoryID), raw).Result()
	if err != nil {
		return false, fmt.Errorf("hsetnx failed: %w", err)
	}
	if stored && s.ttl > 0 {
		if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
			return true, fmt.Errorf("expire failed: %w", err)
		}
	}
	return stored, nil
}

// List returns every entry of the session in no particular order.
func (s *BlacklistStore) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	fields, err := s.rdb.HGetAll(ctx, blacklistKey(s.session)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}

	entries := make([]domain.BlacklistEntry, 0, len(fields))
	for _, raw := range fields {
		entry, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear drops the session hash.
func (s *BlacklistStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, blacklistKey(s.session)).Err()
}

func decodeEntry(raw string) (domain.BlacklistEntry, error) {
	var entry domain.BlacklistEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return domain.BlacklistEntry{}, fmt.Errorf("decode entry: %w", err)
	}
	return entry, nil
}
