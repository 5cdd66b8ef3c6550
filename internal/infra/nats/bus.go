// Package nats shares blacklist trips between processes of the same session.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	natsio "github.com/nats-io/nats.go"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/metrics"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

// DefaultSubject carries blacklist events when none is configured.
const DefaultSubject = "repoguard.blacklist"

// Config holds NATS connection configuration.
type Config struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Event is the message published for every local trip.
type Event struct {
	Publisher string                `json:"publisher"`
	Entry     domain.BlacklistEntry `json:"entry"`
}

// Learner absorbs trips observed by peers.
type Learner interface {
	SessionID() string
	Learn(ctx context.Context, entry domain.BlacklistEntry) bool
}

// Bus publishes local trips and feeds peer trips into a Learner.
type Bus struct {
	conn     *natsio.Conn
	sub      *natsio.Subscription
	subject  string
	instance string
	log      *slog.Logger
}

var _ blacklist.Listener = (*Bus)(nil)

// Connect dials cfg.URL.
func Connect(cfg Config, log *slog.Logger) (*Bus, error) {
	instance := uuid.NewString()
	conn, err := natsio.Connect(cfg.URL,
		natsio.Name("repoguard-"+instance),
		natsio.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newBus(conn, cfg.Subject, instance, log), nil
}

func newBus(conn *natsio.Conn, subject, instance string, log *slog.Logger) *Bus {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		conn:     conn,
		subject:  subject,
		instance: instance,
		log:      log.With("subject", subject),
	}
}

// RepositoryBlacklisted publishes entries tripped in this process. Entries
// learned from peers are not echoed back.
func (b *Bus) RepositoryBlacklisted(_ context.Context, entry domain.BlacklistEntry, origin blacklist.Origin) {
	if origin != blacklist.OriginLocal {
		return
	}

	data, err := json.Marshal(Event{Publisher: b.instance, Entry: entry})
	if err != nil {
		b.log.Error("Failed to marshal blacklist event", "error", err)
		return
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		b.log.Warn("Failed to publish blacklist event", "repository", entry.RepositoryID, "error", err)
		return
	}
	metrics.PeerEventsTotal.WithLabelValues("out").Inc()
	b.log.Debug("Published blacklist event", "repository", entry.RepositoryID)
}

// Subscribe starts feeding peer events of l's session into l.
func (b *Bus) Subscribe(l Learner) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *natsio.Msg) {
		b.handle(context.Background(), l, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	b.sub = sub
	return nil
}

func (b *Bus) handle(ctx context.Context, l Learner, data []byte) bool {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		b.log.Warn("Dropping malformed blacklist event", "error", err)
		return false
	}
	if ev.Publisher == b.instance || ev.Entry.SessionID != l.SessionID() {
		return false
	}
	metrics.PeerEventsTotal.WithLabelValues("in").Inc()
	return l.Learn(ctx, ev.Entry)
}

// Close drains the subscription and closes the connection.
func (b *Bus) Close() error {
	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	deadline := time.Now().Add(5 * time.Second)
	for !b.conn.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
