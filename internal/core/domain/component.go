package domain

import "fmt"

// ModuleSelector selects a module by group, name and version constraint.
type ModuleSelector struct {
	Group   string
	Module  string
	Version string // constraint, e.g. "1.+" or "[1.0,2.0)"
}

func (s ModuleSelector) String() string {
	if s.Version == "" {
		return fmt.Sprintf("%s:%s", s.Group, s.Module)
	}
	return fmt.Sprintf("%s:%s:%s", s.Group, s.Module, s.Version)
}

// ModuleDependency is a declared dependency whose versions are listed.
type ModuleDependency struct {
	Selector   ModuleSelector
	Transitive bool
}

// ComponentID identifies one version of a module.
type ComponentID struct {
	Group   string
	Module  string
	Version string
}

func (id ComponentID) String() string {
	return fmt.Sprintf("%s:%s:%s", id.Group, id.Module, id.Version)
}

// ArtifactType is a kind of auxiliary artifact resolved for a component.
type ArtifactType string

const (
	ArtifactTypeSources       ArtifactType = "sources"
	ArtifactTypeJavadoc       ArtifactType = "javadoc"
	ArtifactTypeIvyDescriptor ArtifactType = "ivy-descriptor"
	ArtifactTypeMavenPOM      ArtifactType = "maven-pom"
)

// ArtifactID identifies a single file of a component.
type ArtifactID struct {
	Component  ComponentID
	Name       string
	Type       string
	Extension  string
	Classifier string
}

func (id ArtifactID) String() string {
	file := id.Name
	if id.Classifier != "" {
		file += "-" + id.Classifier
	}
	if id.Extension != "" {
		file += "." + id.Extension
	}
	return fmt.Sprintf("%s (%s)", file, id.Component)
}

// ArtifactMetadata describes an artifact as published in component metadata.
type ArtifactMetadata struct {
	ID ArtifactID
}

// MetadataRequest carries caller overrides for a metadata resolution.
type MetadataRequest struct {
	Changing  bool
	Artifacts []ArtifactMetadata
}

// ComponentMetadata is the resolved metadata of one component version.
type ComponentMetadata struct {
	ID        ComponentID
	Status    string
	Changing  bool
	Source    string
	Artifacts []ArtifactMetadata
}

// ComponentArtifacts is the full set of artifacts a component publishes.
type ComponentArtifacts struct {
	Component ComponentID
	Artifacts []ArtifactMetadata
}

// ResolvedArtifact is an artifact materialised on disk.
type ResolvedArtifact struct {
	ID   ArtifactID
	Path string
	Size int64
}

// SuppliedMetadata is what a metadata supplier rule contributes for a component.
type SuppliedMetadata struct {
	Status       string
	StatusScheme []string
}
