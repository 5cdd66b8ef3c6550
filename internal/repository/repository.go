// Package repository defines the contract between the resolution engine and the
// repositories it queries.
//
// A returned error from an Access method means the call itself broke (I/O, protocol,
// a bug in the repository). Expected negative results such as a missing artifact are
// written to the result sink instead.
package repository

import (
	"context"

	"github.com/vietddude/repoguard/internal/core/domain"
	"github.com/vietddude/repoguard/internal/repository/result"
)

// Repository is a source of module components with a local and a remote view.
type Repository interface {
	// ID returns the stable repository identity
	ID() domain.RepositoryID

	// Name returns the display name
	Name() string

	// LocalAccess returns the cached/local view
	LocalAccess() Access

	// RemoteAccess returns the network view
	RemoteAccess() Access

	// ArtifactCache returns the in-memory cache of resolved artifacts
	ArtifactCache() ArtifactCache

	// MetadataSupplier returns the rule supplying extra metadata, or nil
	MetadataSupplier() MetadataSupplier
}

// Access exposes the resolution operations of one repository view.
type Access interface {
	// ListModuleVersions lists the versions available for a dependency
	ListModuleVersions(ctx context.Context, dep domain.ModuleDependency, res *result.VersionListing) error

	// ResolveComponentMetadata resolves the metadata of one component version
	ResolveComponentMetadata(
		ctx context.Context,
		id domain.ComponentID,
		req domain.MetadataRequest,
		res *result.ComponentMetadata,
	) error

	// ResolveArtifactsWithType resolves the artifacts of a given type (sources, javadoc, ...)
	ResolveArtifactsWithType(
		ctx context.Context,
		component *domain.ComponentMetadata,
		typ domain.ArtifactType,
		res *result.ArtifactSet,
	) error

	// ResolveArtifacts resolves the full artifact bundle of a component
	ResolveArtifacts(ctx context.Context, component *domain.ComponentMetadata, res *result.ComponentArtifacts) error

	// ResolveArtifact fetches a single artifact
	ResolveArtifact(ctx context.Context, artifact domain.ArtifactMetadata, res *result.Artifact) error

	// EstimateMetadataFetchingCost estimates the cost of resolving metadata for id
	EstimateMetadataFetchingCost(id domain.ComponentID) domain.FetchCost
}

// MetadataSupplier contributes metadata for components without fetching descriptors.
type MetadataSupplier interface {
	SupplyMetadata(ctx context.Context, id domain.ComponentID) (domain.SuppliedMetadata, error)
}
