package repository

import (
	"sync"

	"github.com/vietddude/repoguard/internal/core/domain"
)

// ArtifactCache keeps artifacts resolved during a session.
type ArtifactCache interface {
	Get(id domain.ArtifactID) (domain.ResolvedArtifact, bool)
	Put(artifact domain.ResolvedArtifact)
	Len() int
}

// MemoryArtifactCache is a concurrency-safe ArtifactCache.
type MemoryArtifactCache struct {
	mu        sync.RWMutex
	artifacts map[domain.ArtifactID]domain.ResolvedArtifact
}

func NewMemoryArtifactCache() *MemoryArtifactCache {
	return &MemoryArtifactCache{
		artifacts: make(map[domain.ArtifactID]domain.ResolvedArtifact),
	}
}

func (c *MemoryArtifactCache) Get(id domain.ArtifactID) (domain.ResolvedArtifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.artifacts[id]
	return a, ok
}

func (c *MemoryArtifactCache) Put(artifact domain.ResolvedArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts[artifact.ID] = artifact
}

func (c *MemoryArtifactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.artifacts)
}
