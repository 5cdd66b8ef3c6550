// Package status reports which repositories of a session are usable.
package status

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/repoguard/internal/core/domain"
)

// SystemStatus represents the health of the session or of one repository.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// RepositoryHealth describes one repository.
type RepositoryHealth struct {
	RepositoryID  domain.RepositoryID `json:"repository_id"`
	Status        SystemStatus        `json:"status"`
	Cause         string              `json:"cause,omitempty"`
	BlacklistedAt *time.Time          `json:"blacklisted_at,omitempty"`
}

// Report is the detailed health of a session.
type Report struct {
	SystemStatus SystemStatus       `json:"system_status"`
	Session      string             `json:"session"`
	Repositories []RepositoryHealth `json:"repositories"`
	Error        string             `json:"error,omitempty"`
}

// Source lists the blacklisted repositories of a session.
type Source interface {
	SessionID() string
	Entries(ctx context.Context) ([]domain.BlacklistEntry, error)
}

// Monitor builds reports from a Source and the repositories in use.
type Monitor struct {
	source  Source
	mu      sync.RWMutex
	tracked map[domain.RepositoryID]struct{}
}

func NewMonitor(source Source) *Monitor {
	return &Monitor{source: source, tracked: make(map[domain.RepositoryID]struct{})}
}

// Track adds a repository that is reported healthy until blacklisted.
func (m *Monitor) Track(id domain.RepositoryID) {
	m.mu.Lock()
	m.tracked[id] = struct{}{}
	m.mu.Unlock()
}

// CheckHealth reports every tracked or blacklisted repository. The session is
// critical when no tracked repository is usable and degraded when some are not.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	report := Report{SystemStatus: StatusHealthy, Session: m.source.SessionID()}

	entries, err := m.source.Entries(ctx)
	if err != nil {
		report.Error = err.Error()
	}

	byID := make(map[domain.RepositoryID]RepositoryHealth, len(entries))
	for _, e := range entries {
		at := e.BlacklistedAt
		byID[e.RepositoryID] = RepositoryHealth{
			RepositoryID:  e.RepositoryID,
			Status:        StatusCritical,
			Cause:         e.Cause,
			BlacklistedAt: &at,
		}
	}

	m.mu.RLock()
	healthy := 0
	for id := range m.tracked {
		if _, ok := byID[id]; !ok {
			byID[id] = RepositoryHealth{RepositoryID: id, Status: StatusHealthy}
			healthy++
		}
	}
	tracked := len(m.tracked)
	m.mu.RUnlock()

	for _, h := range byID {
		report.Repositories = append(report.Repositories, h)
	}
	sort.Slice(report.Repositories, func(i, j int) bool {
		return report.Repositories[i].RepositoryID < report.Repositories[j].RepositoryID
	})

	switch {
	case tracked > 0 && healthy == 0:
		report.SystemStatus = StatusCritical
	case len(entries) > 0:
		report.SystemStatus = StatusDegraded
	}
	return report
}
