package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/resolve/blacklist"
)

type blacklistRow struct {
	SessionID     string `db:"session_id"`
	RepositoryID  string `db:"repository_id"`
	Cause         string `db:"cause"`
	BlacklistedAt int64  `db:"blacklisted_at"`
}

func (r blacklistRow) entry() domain.BlacklistEntry {
	return domain.BlacklistEntry{
		RepositoryID:  domain.RepositoryID(r.RepositoryID),
		SessionID:     r.SessionID,
		Cause:         r.Cause,
		BlacklistedAt: time.UnixMilli(r.BlacklistedAt).UTC(),
	}
}

// BlacklistRepo stores the entries of one session in repository_blacklist.
type BlacklistRepo struct {
	db      *DB
	session string
}

var _ blacklist.Backend = (*BlacklistRepo)(nil)

func NewBlacklistRepo(db *DB, session string) *BlacklistRepo {
	return &BlacklistRepo{db: db, session: session}
}

func (r *BlacklistRepo) Name() string { return "sql" }

func (r *BlacklistRepo) Get(ctx context.Context, id domain.RepositoryID) (*domain.BlacklistEntry, error) {
	var row blacklistRow
	query := r.db.Rebind(`SELECT session_id, repository_id, cause, blacklisted_at
		FROM repository_blacklist WHERE session_id = ? AND repository_id = ?`)
	err := r.db.GetContext(ctx, &row, query, r.session, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blacklist entry: %w", err)
	}
	entry := row.entry()
	return &entry, nil
}

// Put inserts entry; an existing row for the repository is left untouched.
func (r *BlacklistRepo) Put(ctx context.Context, entry domain.BlacklistEntry) (bool, error) {
	query := r.db.Rebind(`INSERT INTO repository_blacklist
		(session_id, repository_id, cause, blacklisted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, repository_id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, query,
		r.session, string(entry.RepositoryID), entry.Cause, entry.BlacklistedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert blacklist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert blacklist entry: %w", err)
	}
	return n == 1, nil
}

func (r *BlacklistRepo) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	var rows []blacklistRow
	query := r.db.Rebind(`SELECT session_id, repository_id, cause, blacklisted_at
		FROM repository_blacklist WHERE session_id = ?
		ORDER BY blacklisted_at, repository_id`)
	if err := r.db.SelectContext(ctx, &rows, query, r.session); err != nil {
		return nil, fmt.Errorf("list blacklist entries: %w", err)
	}

	entries := make([]domain.BlacklistEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (r *BlacklistRepo) Clear(ctx context.Context) error {
	query := r.db.Rebind(`DELETE FROM repository_blacklist WHERE session_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, r.session); err != nil {
		return fmt.Errorf("clear blacklist: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries recorded before threshold by other sessions.
// Entries of r's own session stay until the session is reset.
func (r *BlacklistRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM repository_blacklist WHERE blacklisted_at < ? AND session_id <> ?`)
	res, err := r.db.ExecContext(ctx, query, threshold.UnixMilli(), r.session)
	if err != nil {
		return 0, fmt.Errorf("prune blacklist: %w", err)
	}
	return res.RowsAffected()
}

// Sessions returns the sessions that have at least one entry.
func Sessions(ctx context.Context, db *DB) ([]string, error) {
	var sessions []string
	err := db.SelectContext(ctx, &sessions,
		`SELECT DISTINCT session_id FROM repository_blacklist ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
