// Package result provides the write-once sinks that resolution operations fill.
package result

import "github.com/vietddude/repoguard/internal/core/domain"

// Result holds either a resolved value, a single failure, or nothing yet.
// Only the first write is kept.
type Result[T any, E error] struct {
	set     bool
	failed  bool
	value   T
	failure E
}

// Resolved records a successful value. It returns false if the result was already set.
func (r *Result[T, E]) Resolved(v T) bool {
	if r.set {
		return false
	}
	r.set = true
	r.value = v
	return true
}

// Failed records a failure. It returns false if the result was already set.
func (r *Result[T, E]) Failed(err E) bool {
	if r.set {
		return false
	}
	r.set = true
	r.failed = true
	r.failure = err
	return true
}

// HasResult reports whether anything was written.
func (r *Result[T, E]) HasResult() bool {
	return r.set
}

// Value returns the resolved value and whether the result holds one.
func (r *Result[T, E]) Value() (T, bool) {
	return r.value, r.set && !r.failed
}

// Failure returns the recorded failure and whether the result holds one.
func (r *Result[T, E]) Failure() (E, bool) {
	return r.failure, r.failed
}

// Operation-specific sinks.
type (
	VersionListing     = Result[[]string, *domain.ModuleVersionResolveError]
	ComponentMetadata  = Result[*domain.ComponentMetadata, *domain.ModuleVersionResolveError]
	ArtifactSet        = Result[[]domain.ArtifactMetadata, *domain.ArtifactResolveError]
	ComponentArtifacts = Result[domain.ComponentArtifacts, *domain.ArtifactResolveError]
	Artifact           = Result[domain.ResolvedArtifact, *domain.ArtifactResolveError]
)
