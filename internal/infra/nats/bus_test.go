package nats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

func encode(t *testing.T, ev Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func TestHandleLearnsPeerEntries(t *testing.T) {
	ctx := context.Background()
	registry := blacklist.NewRegistry(blacklist.WithSessionID("s1"))
	bus := newBus(nil, "", "me", nil)

	entry := domain.BlacklistEntry{RepositoryID: "central", SessionID: "s1", Cause: "boom", BlacklistedAt: time.Now()}

	assert.True(t, bus.handle(ctx, registry, encode(t, Event{Publisher: "peer", Entry: entry})))
	assert.True(t, registry.IsBlacklisted(ctx, "central"))
	assert.EqualError(t, registry.Cause("central"), "boom")

	// Already known.
	assert.False(t, bus.handle(ctx, registry, encode(t, Event{Publisher: "peer", Entry: entry})))
}

func TestHandleIgnoresOwnAndForeignEvents(t *testing.T) {
	ctx := context.Background()
	registry := blacklist.NewRegistry(blacklist.WithSessionID("s1"))
	bus := newBus(nil, "", "me", nil)

	own := domain.BlacklistEntry{RepositoryID: "central", SessionID: "s1", Cause: "boom"}
	foreign := domain.BlacklistEntry{RepositoryID: "jcenter", SessionID: "s2", Cause: "boom"}

	assert.False(t, bus.handle(ctx, registry, encode(t, Event{Publisher: "me", Entry: own})))
	assert.False(t, bus.handle(ctx, registry, encode(t, Event{Publisher: "peer", Entry: foreign})))
	assert.False(t, bus.handle(ctx, registry, []byte("{")))

	assert.False(t, registry.IsBlacklisted(ctx, "central"))
	assert.False(t, registry.IsBlacklisted(ctx, "jcenter"))
}

func TestNewBusDefaultsSubject(t *testing.T) {
	assert.Equal(t, DefaultSubject, newBus(nil, "", "me", nil).subject)
	assert.Equal(t, "custom", newBus(nil, "custom", "me", nil).subject)
}

func TestBusSharesTripsBetweenProcesses(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	ctx := context.Background()
	cfg := Config{URL: url, Subject: "repoguard.test." + time.Now().Format("150405.000000")}

	busA, err := Connect(cfg, nil)
	require.NoError(t, err)
	defer busA.Close()
	busB, err := Connect(cfg, nil)
	require.NoError(t, err)
	defer busB.Close()

	a := blacklist.NewRegistry(blacklist.WithSessionID("shared"), blacklist.WithListener(busA))
	b := blacklist.NewRegistry(blacklist.WithSessionID("shared"), blacklist.WithListener(busB))
	require.NoError(t, busA.Subscribe(a))
	require.NoError(t, busB.Subscribe(b))
	require.NoError(t, busA.conn.Flush())
	require.NoError(t, busB.conn.Flush())

	a.BlacklistRepository(ctx, "central", errors.New("connection refused"))

	assert.Eventually(t, func() bool {
		return b.IsBlacklisted(ctx, "central")
	}, 5*time.Second, 20*time.Millisecond)
	assert.EqualError(t, b.Cause("central"), "connection refused")
}
