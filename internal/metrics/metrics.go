package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolveAttemptsTotal tracks delegate invocations per repository, access and operation
	ResolveAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoguard_resolve_attempts_total",
			Help: "Total number of delegate resolution attempts",
		},
		[]string{"repository", "access", "operation"},
	)

	// ResolveRetriesTotal tracks attempts that were followed by a backoff and a retry
	ResolveRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoguard_resolve_retries_total",
			Help: "Total number of retries after unexpected resolution errors",
		},
		[]string{"repository", "access", "operation"},
	)

	// ResolveFailuresTotal tracks failures written to result sinks by kind
	// (terminal, exhausted, skipped, aborted)
	ResolveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoguard_resolve_failures_total",
			Help: "Total number of resolution failures by kind",
		},
		[]string{"repository", "access", "operation", "kind"},
	)

	// BackoffSeconds tracks backoff delays slept before retries
	BackoffSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repoguard_backoff_seconds",
			Help:    "Backoff delay before a retry in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"repository", "access"},
	)

	// RepositoriesBlacklistedTotal tracks breaker trips
	RepositoriesBlacklistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoguard_repositories_blacklisted_total",
			Help: "Total number of repositories blacklisted after exhausting retries",
		},
		[]string{"repository"},
	)

	// BlacklistedRepositories is the number of repositories currently blacklisted in this process
	BlacklistedRepositories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repoguard_blacklisted_repositories",
			Help: "Number of repositories currently blacklisted",
		},
	)

	// BlacklistBackendErrorsTotal tracks failures talking to the persistent blacklist backend
	BlacklistBackendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoguard_blacklist_backend_errors_total",
			Help: "Total number of blacklist backend errors",
		},
		[]string{"backend", "op"},
	)

	// DBConnectionPoolUsage tracks connection pool usage of the SQL blacklist backend
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repoguard_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)

	// PeerEventsTotal tracks blacklist events exchanged with peer processes
	PeerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoguard_peer_events_total",
			Help: "Total number of blacklist events published to or received from peers",
		},
		[]string{"direction"},
	)
)
