package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SkippedMessage is reported for every call against a blacklisted repository.
const SkippedMessage = "Skipped due to earlier error"

var (
	// ErrRepositoryBlacklisted is the sentinel handed to failure classifiers when a
	// call is short-circuited. Failures built from it match it with errors.Is.
	ErrRepositoryBlacklisted = errors.New("repository blacklisted")

	// ErrArtifactNotFound matches artifact failures that mean "not present here".
	ErrArtifactNotFound = errors.New("artifact not found")
)

// ModuleVersionResolveError is the failure of version listing or metadata resolution.
type ModuleVersionResolveError struct {
	Target  string
	Message string
	Cause   error

	skipped bool
}

// NewModuleVersionResolveError reports that target could not be resolved because of cause.
func NewModuleVersionResolveError(target fmt.Stringer, cause error) *ModuleVersionResolveError {
	return &ModuleVersionResolveError{
		Target:  target.String(),
		Message: fmt.Sprintf("Could not resolve %s.", target),
		Cause:   cause,
	}
}

// NewVersionListingError reports a failed version listing for selector.
func NewVersionListingError(selector ModuleSelector, cause error) *ModuleVersionResolveError {
	return &ModuleVersionResolveError{
		Target:  selector.String(),
		Message: fmt.Sprintf("Failed to list versions for %s:%s.", selector.Group, selector.Module),
		Cause:   cause,
	}
}

// SkippedModuleVersionError is reported instead of contacting a blacklisted repository.
func SkippedModuleVersionError(target fmt.Stringer) *ModuleVersionResolveError {
	return &ModuleVersionResolveError{
		Target:  target.String(),
		Message: SkippedMessage,
		skipped: true,
	}
}

func (e *ModuleVersionResolveError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *ModuleVersionResolveError) Unwrap() error {
	return e.Cause
}

func (e *ModuleVersionResolveError) Is(target error) bool {
	return target == ErrRepositoryBlacklisted && e.skipped
}

// ArtifactResolveError is the failure of any artifact resolution.
type ArtifactResolveError struct {
	Target    string
	Message   string
	Cause     error
	Locations []string

	notFound bool
	skipped  bool
}

// NewArtifactResolveError reports that the artifacts of a component could not be determined.
func NewArtifactResolveError(component ComponentID, cause error) *ArtifactResolveError {
	return &ArtifactResolveError{
		Target:  component.String(),
		Message: fmt.Sprintf("Could not determine artifacts for %s", component),
		Cause:   cause,
	}
}

// NewArtifactDownloadError reports that a single artifact could not be fetched.
func NewArtifactDownloadError(artifact ArtifactID, cause error) *ArtifactResolveError {
	return &ArtifactResolveError{
		Target:  artifact.String(),
		Message: fmt.Sprintf("Could not download %s", artifact),
		Cause:   cause,
	}
}

// NewArtifactNotFoundError reports that artifact is absent from every searched location.
func NewArtifactNotFoundError(artifact ArtifactID, locations ...string) *ArtifactResolveError {
	return &ArtifactResolveError{
		Target:    artifact.String(),
		Message:   fmt.Sprintf("Could not find %s.", artifact),
		Locations: locations,
		notFound:  true,
	}
}

// SkippedArtifactError is reported instead of contacting a blacklisted repository.
func SkippedArtifactError(target fmt.Stringer) *ArtifactResolveError {
	return &ArtifactResolveError{
		Target:  target.String(),
		Message: SkippedMessage,
		skipped: true,
	}
}

func (e *ArtifactResolveError) Error() string {
	msg := e.Message
	if len(e.Locations) > 0 {
		msg += " Searched in the following locations: " + strings.Join(e.Locations, ", ")
	}
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *ArtifactResolveError) Unwrap() error {
	return e.Cause
}

func (e *ArtifactResolveError) Is(target error) bool {
	switch target {
	case ErrArtifactNotFound:
		return e.notFound
	case ErrRepositoryBlacklisted:
		return e.skipped
	}
	return false
}
