package result

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/repoguard/internal/core/domain"
)

func TestResultIsWriteOnce(t *testing.T) {
	var res VersionListing

	assert.False(t, res.HasResult())
	require.True(t, res.Resolved([]string{"1.0", "1.1"}))
	assert.False(t, res.Resolved([]string{"2.0"}))
	assert.False(t, res.Failed(domain.NewVersionListingError(domain.ModuleSelector{}, errors.New("late"))))

	versions, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, []string{"1.0", "1.1"}, versions)

	_, failed := res.Failure()
	assert.False(t, failed)
}

func TestResultFailure(t *testing.T) {
	var res Artifact
	id := domain.ArtifactID{Name: "lib", Extension: "jar"}

	require.True(t, res.Failed(domain.NewArtifactNotFoundError(id)))
	assert.True(t, res.HasResult())

	_, ok := res.Value()
	assert.False(t, ok)

	failure, failed := res.Failure()
	require.True(t, failed)
	assert.ErrorIs(t, failure, domain.ErrArtifactNotFound)
}
