// Package model adapts a prebuilt vecgo index snapshot to the similarity
// index port.
package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/foodlens/foodlens/internal/domain"
	"github.com/hupe1980/vecgo"
)

// Index is a read-only nearest-neighbor index over the restaurant feature
// space. It is loaded once at process start and shared across concurrent
// requests; queries never mutate it, so no mutual exclusion is needed.
type Index struct {
	db *vecgo.Vecgo[string]
}

// Open loads an index snapshot produced by the offline training pipeline.
// Startup fails hard when the snapshot cannot be loaded.
func Open(path string) (*Index, error) {
	db, err := vecgo.NewFromFile[string](path)
	if err != nil {
		return nil, fmt.Errorf("load index snapshot %q: %w", path, err)
	}
	return &Index{db: db}, nil
}

// New wraps an already-built vecgo instance. Used by tests and index tooling.
func New(db *vecgo.Vecgo[string]) *Index {
	return &Index{db: db}
}

// Query returns up to k candidates ordered ascending by difference. The dense
// result IDs are positions in [0, N); translating them to restaurant
// identifiers is the caller's job.
func (i *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.CandidateMatch, error) {
	if k <= 0 {
		return nil, nil
	}

	results, err := i.db.KNNSearch(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	matches := make([]domain.CandidateMatch, len(results))
	for n, r := range results {
		matches[n] = domain.CandidateMatch{
			Index:      int(r.ID),
			Difference: float64(r.Distance),
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Difference < matches[b].Difference
	})
	return matches, nil
}

// Close unmaps the snapshot. Called once at process shutdown.
func (i *Index) Close() error {
	return i.db.Close()
}
