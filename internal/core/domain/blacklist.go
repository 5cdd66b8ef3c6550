package domain

import "time"

// BlacklistEntry records why and when a repository was blacklisted.
type BlacklistEntry struct {
	RepositoryID  RepositoryID `json:"repository_id"`
	SessionID     string       `json:"session_id"`
	Cause         string       `json:"cause"`
	BlacklistedAt time.Time    `json:"blacklisted_at"`
}
