// Package repositorytest provides a scriptable in-memory repository for tests.
package repositorytest

import (
	"context"
	"sync"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/repository"
	"github.com/vietddude/repoguard/internal/repository/result"
)

// Operation names used by Access.Calls.
const (
	OpListModuleVersions       = "ListModuleVersions"
	OpResolveComponentMetadata = "ResolveComponentMetadata"
	OpResolveArtifactsWithType = "ResolveArtifactsWithType"
	OpResolveArtifacts         = "ResolveArtifacts"
	OpResolveArtifact          = "ResolveArtifact"
)

// Repository is a fake repository.Repository.
type Repository struct {
	RepoID   domain.RepositoryID
	RepoName string
	Local    *Access
	Remote   *Access
	Cache    *repository.MemoryArtifactCache
	Supplier repository.MetadataSupplier
}

// NewRepository creates a fake whose operations all succeed with empty values.
func NewRepository(id domain.RepositoryID, name string) *Repository {
	return &Repository{
		RepoID:   id,
		RepoName: name,
		Local:    &Access{Label: name + " (local)"},
		Remote:   &Access{Label: name + " (remote)"},
		Cache:    repository.NewMemoryArtifactCache(),
	}
}

func (r *Repository) ID() domain.RepositoryID                       { return r.RepoID }
func (r *Repository) Name() string                                  { return r.RepoName }
func (r *Repository) LocalAccess() repository.Access                { return r.Local }
func (r *Repository) RemoteAccess() repository.Access               { return r.Remote }
func (r *Repository) ArtifactCache() repository.ArtifactCache       { return r.Cache }
func (r *Repository) MetadataSupplier() repository.MetadataSupplier { return r.Supplier }
func (r *Repository) String() string                                { return r.RepoName }

// Access is a fake repository.Access. Nil funcs resolve to zero values.
type Access struct {
	Label string
	Cost  domain.FetchCost

	ListFunc              func(ctx context.Context, dep domain.ModuleDependency, res *result.VersionListing) error
	MetadataFunc          func(ctx context.Context, id domain.ComponentID, req domain.MetadataRequest, res *result.ComponentMetadata) error
	ArtifactsWithTypeFunc func(ctx context.Context, c *domain.ComponentMetadata, typ domain.ArtifactType, res *result.ArtifactSet) error
	ArtifactsFunc         func(ctx context.Context, c *domain.ComponentMetadata, res *result.ComponentArtifacts) error
	ArtifactFunc          func(ctx context.Context, a domain.ArtifactMetadata, res *result.Artifact) error

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times op was invoked.
func (a *Access) Calls(op string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (a *Access) TotalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, n := range a.calls {
		total += n
	}
	return total
}

func (a *Access) record(op string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[op]++
}

func (a *Access) String() string { return a.Label }

func (a *Access) ListModuleVersions(
	ctx context.Context,
	dep domain.ModuleDependency,
	res *result.VersionListing,
) error {
	a.record(OpListModuleVersions)
	if a.ListFunc != nil {
		return a.ListFunc(ctx, dep, res)
	}
	res.Resolved([]string{})
	return nil
}

func (a *Access) ResolveComponentMetadata(
	ctx context.Context,
	id domain.ComponentID,
	req domain.MetadataRequest,
	res *result.ComponentMetadata,
) error {
	a.record(OpResolveComponentMetadata)
	if a.MetadataFunc != nil {
		return a.MetadataFunc(ctx, id, req, res)
	}
	res.Resolved(&domain.ComponentMetadata{ID: id, Status: "release"})
	return nil
}

func (a *Access) ResolveArtifactsWithType(
	ctx context.Context,
	c *domain.ComponentMetadata,
	typ domain.ArtifactType,
	res *result.ArtifactSet,
) error {
	a.record(OpResolveArtifactsWithType)
	if a.ArtifactsWithTypeFunc != nil {
		return a.ArtifactsWithTypeFunc(ctx, c, typ, res)
	}
	res.Resolved([]domain.ArtifactMetadata{})
	return nil
}

func (a *Access) ResolveArtifacts(
	ctx context.Context,
	c *domain.ComponentMetadata,
	res *result.ComponentArtifacts,
) error {
	a.record(OpResolveArtifacts)
	if a.ArtifactsFunc != nil {
		return a.ArtifactsFunc(ctx, c, res)
	}
	res.Resolved(domain.ComponentArtifacts{Component: c.ID})
	return nil
}

func (a *Access) ResolveArtifact(
	ctx context.Context,
	artifact domain.ArtifactMetadata,
	res *result.Artifact,
) error {
	a.record(OpResolveArtifact)
	if a.ArtifactFunc != nil {
		return a.ArtifactFunc(ctx, artifact, res)
	}
	res.Resolved(domain.ResolvedArtifact{ID: artifact.ID})
	return nil
}

func (a *Access) EstimateMetadataFetchingCost(domain.ComponentID) domain.FetchCost {
	return a.Cost
}
