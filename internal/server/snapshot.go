package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"bulliondeals/internal/models"
)

const snapshotKey = "catalog"

// Source builds a fresh catalog. catalog.Builder satisfies it.
type Source interface {
	Build(ctx context.Context) (*models.Catalog, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (*models.Catalog, error)

// Build calls f.
func (f SourceFunc) Build(ctx context.Context) (*models.Catalog, error) {
	return f(ctx)
}

// Snapshots hands out the current catalog, rebuilding it from the source once
// the cached copy is older than the TTL. Concurrent callers that find the
// cache empty share a single rebuild.
type Snapshots struct {
	source Source
	ttl    time.Duration
	cache  *cache.Cache
	mu     sync.Mutex
}

// NewSnapshots creates a snapshot cache over source.
func NewSnapshots(source Source, ttl time.Duration) *Snapshots {
	return &Snapshots{
		source: source,
		ttl:    ttl,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Current returns the cached catalog or builds a new one.
func (s *Snapshots) Current(ctx context.Context) (*models.Catalog, error) {
	if cat, ok := s.cached(); ok {
		return cat, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cat, ok := s.cached(); ok {
		return cat, nil
	}

	cat, err := s.source.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild catalog: %w", err)
	}

	s.Store(cat)

	return cat, nil
}

// Store replaces the cached catalog, restarting its TTL.
func (s *Snapshots) Store(cat *models.Catalog) {
	s.cache.Set(snapshotKey, cat, s.ttl)
}

// Invalidate drops the cached catalog so the next Current rebuilds.
func (s *Snapshots) Invalidate() {
	s.cache.Delete(snapshotKey)
}

func (s *Snapshots) cached() (*models.Catalog, bool) {
	v, ok := s.cache.Get(snapshotKey)
	if !ok {
		return nil, false
	}

	cat, ok := v.(*models.Catalog)

	return cat, ok
}
