package port

import (
	"context"

	"github.com/foodlens/foodlens/internal/domain"
)

// SimilarityIndex is the pre-built nearest-neighbor structure over the feature
// space. It is loaded once at process start, immutable afterwards, and safe
// for concurrent read queries.
type SimilarityIndex interface {
	// Query returns up to k candidates ordered ascending by difference. When k
	// exceeds the number of indexed items, every item is returned.
	Query(ctx context.Context, vector []float32, k int) ([]domain.CandidateMatch, error)
}

// Recommender computes the ranked recommendation list for a user at a
// position. Implemented by the recommendation service; consumed by handlers.
type Recommender interface {
	Recommend(ctx context.Context, userID string, req domain.RecommendationRequest) ([]domain.Recommendation, error)
}
