package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionListingError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	sel := ModuleSelector{Group: "org.example", Module: "lib", Version: "1.+"}

	err := NewVersionListingError(sel, cause)

	assert.Equal(t, "Failed to list versions for org.example:lib.: connection reset by peer", err.Error())
	assert.Equal(t, "org.example:lib:1.+", err.Target)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRepositoryBlacklisted)
}

func TestSkippedErrorsMatchSentinel(t *testing.T) {
	id := ComponentID{Group: "g", Module: "m", Version: "1.0"}

	var mv error = SkippedModuleVersionError(id)
	var art error = SkippedArtifactError(id)

	assert.Equal(t, SkippedMessage, mv.Error())
	assert.Equal(t, SkippedMessage, art.Error())
	assert.ErrorIs(t, mv, ErrRepositoryBlacklisted)
	assert.ErrorIs(t, art, ErrRepositoryBlacklisted)
	assert.NotErrorIs(t, art, ErrArtifactNotFound)
}

func TestArtifactNotFoundError(t *testing.T) {
	id := ArtifactID{
		Component: ComponentID{Group: "g", Module: "m", Version: "1.0"},
		Name:      "m",
		Extension: "jar",
	}

	err := NewArtifactNotFoundError(id, "https://repo.example.com/g/m/1.0/m-1.0.jar")
	wrapped := fmt.Errorf("resolve: %w", err)

	assert.ErrorIs(t, wrapped, ErrArtifactNotFound)
	assert.Contains(t, err.Error(), "Could not find m.jar (g:m:1.0).")
	assert.Contains(t, err.Error(), "https://repo.example.com/g/m/1.0/m-1.0.jar")

	var target *ArtifactResolveError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, id.String(), target.Target)
}

func TestArtifactDownloadErrorIsNotNotFound(t *testing.T) {
	id := ArtifactID{Component: ComponentID{Group: "g", Module: "m", Version: "1.0"}, Name: "m"}
	err := NewArtifactDownloadError(id, errors.New("502 Bad Gateway"))

	assert.NotErrorIs(t, err, ErrArtifactNotFound)
	assert.Equal(t, "Could not download m (g:m:1.0): 502 Bad Gateway", err.Error())
}
