package port

import (
	"context"

	"github.com/foodlens/foodlens/internal/domain"
	"github.com/foodlens/foodlens/internal/geo"
)

// FeatureStore fetches a user's stored feature vector.
type FeatureStore interface {
	// GetUserFeatures returns ErrUserNotFound when the user has no stored vector.
	GetUserFeatures(ctx context.Context, userID string) (*domain.UserFeatures, error)
}

// RestaurantStore fetches restaurant locations for candidate evaluation.
type RestaurantStore interface {
	// GetRestaurantsByID returns the restaurants that exist among ids, keyed by
	// identifier. Missing identifiers are simply absent from the map.
	GetRestaurantsByID(ctx context.Context, ids []string) (map[string]domain.Restaurant, error)

	// ListRestaurantsInBox returns every restaurant whose coordinates fall
	// inside the box. The box is a prefilter; callers re-check the exact
	// geodesic distance.
	ListRestaurantsInBox(ctx context.Context, box geo.BoundingBox) ([]domain.Restaurant, error)
}

// AuditWriter durably records a served request and its emitted recommendations.
type AuditWriter interface {
	// RecordPrediction writes the audit row and all artifact rows as one
	// atomic unit: either everything lands or nothing does.
	RecordPrediction(ctx context.Context, audit *domain.RequestAudit, artifacts []domain.PredictionArtifact) error
}
