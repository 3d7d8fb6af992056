package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/foodlens/foodlens/internal/domain"
	"github.com/foodlens/foodlens/internal/geo"
	"github.com/foodlens/foodlens/internal/port"
	"github.com/foodlens/foodlens/pkg/config"
)

// RecommendService orchestrates the recommendation pipeline: load the user's
// feature vector, query the similarity index, intersect with the geographic
// radius, rank, and durably record the decision.
type RecommendService struct {
	features    port.FeatureStore
	restaurants port.RestaurantStore
	index       port.SimilarityIndex
	audit       port.AuditWriter
	strategy    string
}

// NewRecommendService creates the recommendation engine. strategy is one of
// config.StrategyBounded or config.StrategyFull and is fixed for the process
// lifetime.
func NewRecommendService(
	features port.FeatureStore,
	restaurants port.RestaurantStore,
	index port.SimilarityIndex,
	audit port.AuditWriter,
	strategy string,
) (*RecommendService, error) {
	switch strategy {
	case config.StrategyBounded, config.StrategyFull:
	default:
		return nil, fmt.Errorf("unknown candidate strategy %q", strategy)
	}
	return &RecommendService{
		features:    features,
		restaurants: restaurants,
		index:       index,
		audit:       audit,
		strategy:    strategy,
	}, nil
}

// Recommend computes the ranked recommendation list for userID at the request
// position. The request must already be validated. The result is only
// returned after the audit transaction commits; a persistence failure fails
// the whole request even though the ranking was computed.
func (s *RecommendService) Recommend(ctx context.Context, userID string, req domain.RecommendationRequest) ([]domain.Recommendation, error) {
	feats, err := s.features.GetUserFeatures(ctx, userID)
	if err != nil {
		if errors.Is(err, port.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user features: %w", err)
	}

	origin := geo.Point{Latitude: req.Latitude, Longitude: req.Longitude}

	var recs []domain.Recommendation
	if s.strategy == config.StrategyFull {
		recs, err = s.fullCandidates(ctx, feats.Vector, origin, req)
	} else {
		recs, err = s.boundedCandidates(ctx, feats.Vector, origin, req)
	}
	if err != nil {
		return nil, err
	}

	rank(recs, req.SortDis)
	if len(recs) > req.Size {
		recs = recs[:req.Size]
	}

	audit := &domain.RequestAudit{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Size:      req.Size,
		MaxDis:    req.MaxDis,
		SortDis:   req.SortDis,
	}
	artifacts := make([]domain.PredictionArtifact, len(recs))
	for i, r := range recs {
		artifacts[i] = domain.PredictionArtifact{
			RequestID:    audit.RequestID,
			RestaurantID: r.ID,
			Difference:   r.Difference,
			Displacement: r.Displacement,
		}
	}
	if err := s.audit.RecordPrediction(ctx, audit, artifacts); err != nil {
		return nil, fmt.Errorf("record prediction: %w", err)
	}

	slog.Info("recommendation served",
		"request_id", audit.RequestID,
		"user_id", userID,
		"strategy", s.strategy,
		"results", len(recs),
	)
	return recs, nil
}

// boundedCandidates queries the index for exactly req.Size neighbors and keeps
// the ones within the radius. Can under-fill when nearby restaurants are not
// similarity-close.
func (s *RecommendService) boundedCandidates(ctx context.Context, vector []float32, origin geo.Point, req domain.RecommendationRequest) ([]domain.Recommendation, error) {
	matches, err := s.index.Query(ctx, vector, req.Size)
	if err != nil {
		return nil, fmt.Errorf("query similarity index: %w", err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		id, err := domain.FormatRestaurantID(m.Index)
		if err != nil {
			return nil, fmt.Errorf("translate candidate: %w", err)
		}
		ids[i] = id
	}

	restaurants, err := s.restaurants.GetRestaurantsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	recs := make([]domain.Recommendation, 0, len(matches))
	for i, m := range matches {
		r, ok := restaurants[ids[i]]
		if !ok {
			continue
		}
		d := geo.DistanceMeters(origin, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
		if d > req.MaxDis {
			continue
		}
		recs = append(recs, domain.Recommendation{
			ID:           r.ID,
			Difference:   domain.RoundDifference(m.Difference),
			Displacement: d,
		})
	}
	return recs, nil
}

// fullCandidates determines the geographically eligible set first, then
// queries the index for as many neighbors as there are eligible restaurants,
// so every one of them gets scored. The bounding box is only a store-side
// prefilter; eligibility is decided by the exact geodesic distance.
func (s *RecommendService) fullCandidates(ctx context.Context, vector []float32, origin geo.Point, req domain.RecommendationRequest) ([]domain.Recommendation, error) {
	box := geo.NewBoundingBox(origin, float64(req.MaxDis))
	nearby, err := s.restaurants.ListRestaurantsInBox(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	eligible := make(map[string]int, len(nearby))
	for _, r := range nearby {
		d := geo.DistanceMeters(origin, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
		if d <= req.MaxDis {
			eligible[r.ID] = d
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	matches, err := s.index.Query(ctx, vector, len(eligible))
	if err != nil {
		return nil, fmt.Errorf("query similarity index: %w", err)
	}

	recs := make([]domain.Recommendation, 0, len(eligible))
	for _, m := range matches {
		id, err := domain.FormatRestaurantID(m.Index)
		if err != nil {
			return nil, fmt.Errorf("translate candidate: %w", err)
		}
		d, ok := eligible[id]
		if !ok {
			continue
		}
		recs = append(recs, domain.Recommendation{
			ID:           id,
			Difference:   domain.RoundDifference(m.Difference),
			Displacement: d,
		})
	}
	return recs, nil
}

// rank orders recommendations ascending by displacement or by difference.
// sort.SliceStable keeps the order deterministic for ties: the input arrives
// in index order (ascending difference), which is stable across identical
// requests.
func rank(recs []domain.Recommendation, sortDis int) {
	if sortDis == domain.SortByDisplacement {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Displacement < recs[j].Displacement })
		return
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Difference < recs[j].Difference })
}
