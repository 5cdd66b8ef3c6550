package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func entryAt(id domain.RepositoryID, cause string, ms int64) domain.BlacklistEntry {
	return domain.BlacklistEntry{RepositoryID: id, Cause: cause, BlacklistedAt: time.UnixMilli(ms).UTC()}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", URL: "x"})
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}

func TestBlacklistRepoFirstWins(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepo(openMemory(t), "s1")

	stored, err := repo.Put(ctx, entryAt("central", "connection refused", 1000))
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = repo.Put(ctx, entryAt("central", "timeout", 2000))
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := repo.Get(ctx, "central")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "connection refused", got.Cause)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, int64(1000), got.BlacklistedAt.UnixMilli())

	missing, err := repo.Get(ctx, "jcenter")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBlacklistRepoSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	s1 := NewBlacklistRepo(db, "s1")
	s2 := NewBlacklistRepo(db, "s2")

	_, err := s1.Put(ctx, entryAt("central", "boom", 1000))
	require.NoError(t, err)

	got, err := s2.Get(ctx, "central")
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := s2.Put(ctx, entryAt("central", "other", 2000))
	require.NoError(t, err)
	assert.True(t, stored)

	sessions, err := Sessions(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sessions)

	require.NoError(t, s1.Clear(ctx))
	entries, err := s1.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = s2.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBlacklistRepoListOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepo(openMemory(t), "s1")

	for _, e := range []domain.BlacklistEntry{
		entryAt("jcenter", "b", 3000),
		entryAt("central", "a", 1000),
		entryAt("google", "c", 1000),
	} {
		_, err := repo.Put(ctx, e)
		require.NoError(t, err)
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	ids := make([]domain.RepositoryID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.RepositoryID)
	}
	assert.Equal(t, []domain.RepositoryID{"central", "google", "jcenter"}, ids)
}

func TestRegistryOverSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	first := blacklist.NewRegistry(blacklist.WithSessionID("shared"), blacklist.WithBackend(NewBlacklistRepo(db, "shared")))
	second := blacklist.NewRegistry(blacklist.WithSessionID("shared"), blacklist.WithBackend(NewBlacklistRepo(db, "shared")))

	assert.False(t, second.IsBlacklisted(ctx, "central"))
	first.BlacklistRepository(ctx, "central", assert.AnError)

	assert.True(t, second.IsBlacklisted(ctx, "central"))
	assert.EqualError(t, second.Cause("central"), assert.AnError.Error())
}

func TestBlacklistRepoDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	s1 := NewBlacklistRepo(db, "s1")
	s2 := NewBlacklistRepo(db, "s2")
	running := NewBlacklistRepo(db, "running")

	_, err := s1.Put(ctx, entryAt("central", "old", 1000))
	require.NoError(t, err)
	_, err = s2.Put(ctx, entryAt("google", "new", 5000))
	require.NoError(t, err)

	n, err := running.DeleteOlderThan(ctx, time.UnixMilli(2000))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err := Sessions(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessions)
}

func TestBlacklistRepoDeleteOlderThanKeepsOwnSession(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	running := NewBlacklistRepo(db, "running")

	_, err := running.Put(ctx, entryAt("central", "connection refused", 1000))
	require.NoError(t, err)

	n, err := running.DeleteOlderThan(ctx, time.UnixMilli(10_000))
	require.NoError(t, err)
	assert.Zero(t, n)

	// A worker joining the session later still sees the trip.
	joined := blacklist.NewRegistry(blacklist.WithSessionID("running"), blacklist.WithBackend(NewBlacklistRepo(db, "running")))
	assert.True(t, joined.IsBlacklisted(ctx, "central"))
}
