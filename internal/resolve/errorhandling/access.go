package errorhandling

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/repository"
	"github.com/vietddude/repoguard/internal/repository/result"
	"github.com/vietddude/repoguard/internal/resolve/retry"
)

// Operation names used in logs and metrics.
const (
	OpListModuleVersions       = "list_module_versions"
	OpResolveComponentMetadata = "resolve_component_metadata"
	OpResolveArtifactsWithType = "resolve_artifacts_with_type"
	OpResolveArtifacts         = "resolve_artifacts"
	OpResolveArtifact          = "resolve_artifact"
)

// Access wraps a repository.Access with retries and blacklisting.
//
// Its methods never return an error: every failure, including the synthetic
// one for a blacklisted repository, is written to the result.
type Access struct {
	delegate repository.Access
	exec     *retry.Executor
}

var _ repository.Access = (*Access)(nil)

// NewAccess wraps delegate. All calls go through exec.
func NewAccess(delegate repository.Access, exec *retry.Executor) *Access {
	return &Access{delegate: delegate, exec: exec}
}

func (a *Access) String() string {
	return fmt.Sprintf("error handling > %v", a.delegate)
}

// ListModuleVersions implements repository.Access.
func (a *Access) ListModuleVersions(
	ctx context.Context,
	dep domain.ModuleDependency,
	res *result.VersionListing,
) error {
	retry.Run(ctx, a.exec, res, retry.Call[*domain.ModuleVersionResolveError]{
		Operation: OpListModuleVersions,
		Attempt: func(ctx context.Context) retry.Outcome[*domain.ModuleVersionResolveError] {
			var scratch result.VersionListing
			if err := a.delegate.ListModuleVersions(ctx, dep, &scratch); err != nil {
				return retry.Unexpected[*domain.ModuleVersionResolveError](err)
			}
			return settle(&scratch, res)
		},
		Classify: func(cause error) *domain.ModuleVersionResolveError {
			if errors.Is(cause, domain.ErrRepositoryBlacklisted) {
				return domain.SkippedModuleVersionError(dep.Selector)
			}
			return domain.NewVersionListingError(dep.Selector, cause)
		},
	})
	return nil
}

// ResolveComponentMetadata implements repository.Access.
func (a *Access) ResolveComponentMetadata(
	ctx context.Context,
	id domain.ComponentID,
	req domain.MetadataRequest,
	res *result.ComponentMetadata,
) error {
	retry.Run(ctx, a.exec, res, retry.Call[*domain.ModuleVersionResolveError]{
		Operation: OpResolveComponentMetadata,
		Attempt: func(ctx context.Context) retry.Outcome[*domain.ModuleVersionResolveError] {
			var scratch result.ComponentMetadata
			if err := a.delegate.ResolveComponentMetadata(ctx, id, req, &scratch); err != nil {
				return retry.Unexpected[*domain.ModuleVersionResolveError](err)
			}
			return settle(&scratch, res)
		},
		Classify: func(cause error) *domain.ModuleVersionResolveError {
			if errors.Is(cause, domain.ErrRepositoryBlacklisted) {
				return domain.SkippedModuleVersionError(id)
			}
			return domain.NewModuleVersionResolveError(id, cause)
		},
	})
	return nil
}

// ResolveArtifactsWithType implements repository.Access.
func (a *Access) ResolveArtifactsWithType(
	ctx context.Context,
	component *domain.ComponentMetadata,
	typ domain.ArtifactType,
	res *result.ArtifactSet,
) error {
	retry.Run(ctx, a.exec, res, retry.Call[*domain.ArtifactResolveError]{
		Operation: OpResolveArtifactsWithType,
		Attempt: func(ctx context.Context) retry.Outcome[*domain.ArtifactResolveError] {
			var scratch result.ArtifactSet
			if err := a.delegate.ResolveArtifactsWithType(ctx, component, typ, &scratch); err != nil {
				return retry.Unexpected[*domain.ArtifactResolveError](err)
			}
			return settle(&scratch, res)
		},
		Classify: componentArtifactsFailure(component),
	})
	return nil
}

// ResolveArtifacts implements repository.Access.
func (a *Access) ResolveArtifacts(
	ctx context.Context,
	component *domain.ComponentMetadata,
	res *result.ComponentArtifacts,
) error {
	retry.Run(ctx, a.exec, res, retry.Call[*domain.ArtifactResolveError]{
		Operation: OpResolveArtifacts,
		Attempt: func(ctx context.Context) retry.Outcome[*domain.ArtifactResolveError] {
			var scratch result.ComponentArtifacts
			if err := a.delegate.ResolveArtifacts(ctx, component, &scratch); err != nil {
				return retry.Unexpected[*domain.ArtifactResolveError](err)
			}
			return settle(&scratch, res)
		},
		Classify: componentArtifactsFailure(component),
	})
	return nil
}

// ResolveArtifact implements repository.Access. Unlike the other operations a
// failure reported by the delegate is retried, except "artifact not found",
// which ends the call without touching the blacklist.
func (a *Access) ResolveArtifact(
	ctx context.Context,
	artifact domain.ArtifactMetadata,
	res *result.Artifact,
) error {
	retry.Run(ctx, a.exec, res, retry.Call[*domain.ArtifactResolveError]{
		Operation: OpResolveArtifact,
		Attempt: func(ctx context.Context) retry.Outcome[*domain.ArtifactResolveError] {
			var scratch result.Artifact
			if err := a.delegate.ResolveArtifact(ctx, artifact, &scratch); err != nil {
				return retry.Unexpected[*domain.ArtifactResolveError](err)
			}
			if failure, failed := scratch.Failure(); failed {
				if errors.Is(failure, domain.ErrArtifactNotFound) {
					return retry.Terminal(failure)
				}
				return retry.Retryable(failure)
			}
			return settle(&scratch, res)
		},
		Classify: func(cause error) *domain.ArtifactResolveError {
			if errors.Is(cause, domain.ErrRepositoryBlacklisted) {
				return domain.SkippedArtifactError(artifact.ID)
			}
			return domain.NewArtifactDownloadError(artifact.ID, cause)
		},
	})
	return nil
}

// EstimateMetadataFetchingCost implements repository.Access.
func (a *Access) EstimateMetadataFetchingCost(id domain.ComponentID) domain.FetchCost {
	return a.delegate.EstimateMetadataFetchingCost(id)
}

// settle copies what the delegate wrote in one attempt into the caller's result.
// A failure reported by the delegate (rather than returned) is passed through
// as is: it is neither retried nor blacklisting.
func settle[T any, E error](scratch, res *result.Result[T, E]) retry.Outcome[E] {
	if failure, failed := scratch.Failure(); failed {
		return retry.Terminal(failure)
	}
	if v, ok := scratch.Value(); ok {
		res.Resolved(v)
	}
	return retry.Success[E]()
}

func componentArtifactsFailure(component *domain.ComponentMetadata) func(error) *domain.ArtifactResolveError {
	return func(cause error) *domain.ArtifactResolveError {
		if errors.Is(cause, domain.ErrRepositoryBlacklisted) {
			return domain.SkippedArtifactError(component.ID)
		}
		return domain.NewArtifactResolveError(component.ID, cause)
	}
}
