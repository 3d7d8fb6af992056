package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlens/foodlens/internal/domain"
	"github.com/foodlens/foodlens/internal/geo"
	"github.com/foodlens/foodlens/internal/port"
	"github.com/foodlens/foodlens/pkg/config"
)

// --- stubs ---

type stubFeatures struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubFeatures) GetUserFeatures(_ context.Context, userID string) (*domain.UserFeatures, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.UserFeatures{UserID: userID, Vector: s.vector}, nil
}

type stubRestaurants struct {
	byID   map[string]domain.Restaurant
	gotIDs []string
	err    error
}

func (s *stubRestaurants) GetRestaurantsByID(_ context.Context, ids []string) (map[string]domain.Restaurant, error) {
	s.gotIDs = ids
	if s.err != nil {
		return nil, s.err
	}
	found := make(map[string]domain.Restaurant)
	for _, id := range ids {
		if r, ok := s.byID[id]; ok {
			found[id] = r
		}
	}
	return found, nil
}

func (s *stubRestaurants) ListRestaurantsInBox(_ context.Context, box geo.BoundingBox) ([]domain.Restaurant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Restaurant
	for _, r := range s.byID {
		if box.Contains(geo.Point{Latitude: r.Latitude, Longitude: r.Longitude}) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubIndex struct {
	matches []domain.CandidateMatch
	err     error
	gotK    int
	calls   int
}

func (s *stubIndex) Query(_ context.Context, _ []float32, k int) ([]domain.CandidateMatch, error) {
	s.calls++
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.matches) {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

type recordingAudit struct {
	audits    []*domain.RequestAudit
	artifacts [][]domain.PredictionArtifact
	err       error
}

func (s *recordingAudit) RecordPrediction(_ context.Context, audit *domain.RequestAudit, artifacts []domain.PredictionArtifact) error {
	if s.err != nil {
		return s.err
	}
	s.audits = append(s.audits, audit)
	s.artifacts = append(s.artifacts, artifacts)
	return nil
}

// --- fixture ---

// Restaurants placed north of the origin on the same meridian, spaced so the
// first two are inside a 5000m radius and the third is well outside.
var (
	testOrigin = geo.Point{Latitude: 13.7563, Longitude: 100.5018}

	testRestaurants = map[string]domain.Restaurant{
		"r0001": {ID: "r0001", Latitude: 13.7663, Longitude: 100.5018}, // ~1.1km
		"r0002": {ID: "r0002", Latitude: 13.7763, Longitude: 100.5018}, // ~2.2km
		"r0003": {ID: "r0003", Latitude: 13.8563, Longitude: 100.5018}, // ~11km
	}

	testMatches = []domain.CandidateMatch{
		{Index: 3, Difference: 1.04},
		{Index: 2, Difference: 5.01},
		{Index: 1, Difference: 10.06},
	}
)

type fixture struct {
	features    *stubFeatures
	restaurants *stubRestaurants
	index       *stubIndex
	audit       *recordingAudit
}

func newFixture() *fixture {
	return &fixture{
		features:    &stubFeatures{vector: []float32{0.1, 0.2, 0.3}},
		restaurants: &stubRestaurants{byID: testRestaurants},
		index:       &stubIndex{matches: testMatches},
		audit:       &recordingAudit{},
	}
}

func (f *fixture) service(t *testing.T, strategy string) *RecommendService {
	t.Helper()
	svc, err := NewRecommendService(f.features, f.restaurants, f.index, f.audit, strategy)
	require.NoError(t, err)
	return svc
}

func testRequest(sortDis int) domain.RecommendationRequest {
	return domain.RecommendationRequest{
		Latitude:  testOrigin.Latitude,
		Longitude: testOrigin.Longitude,
		Size:      20,
		MaxDis:    5000,
		SortDis:   sortDis,
	}
}

// --- tests ---

func TestNewRecommendServiceRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := NewRecommendService(f.features, f.restaurants, f.index, f.audit, "greedy")
	assert.Error(t, err)
}

func TestRecommendSortsByDifference(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	recs, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDifference))
	require.NoError(t, err)

	// r0003 is closest in feature space but beyond the radius.
	require.Len(t, recs, 2)
	assert.Equal(t, "r0002", recs[0].ID)
	assert.Equal(t, 5.0, recs[0].Difference)
	assert.Equal(t, "r0001", recs[1].ID)
	assert.Equal(t, 10.1, recs[1].Difference)
}

func TestRecommendSortsByDisplacement(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	recs, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, "r0001", recs[0].ID)
	assert.Equal(t, "r0002", recs[1].ID)
	assert.LessOrEqual(t, recs[0].Displacement, recs[1].Displacement)
}

func TestRecommendEnforcesRadius(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	recs, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	require.NoError(t, err)

	for _, r := range recs {
		assert.LessOrEqual(t, r.Displacement, 5000)
		assert.NotEqual(t, "r0003", r.ID)
	}
}

func TestRecommendDisplacementIsExactGeodesic(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	recs, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	for _, rec := range recs {
		r := testRestaurants[rec.ID]
		want := geo.DistanceMeters(testOrigin, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
		assert.Equal(t, want, rec.Displacement)
	}
}

func TestRecommendBoundedQueriesSizeNeighbors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	req := testRequest(domain.SortByDisplacement)
	req.Size = 2

	_, err := svc.Recommend(context.Background(), "u01130", req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.index.gotK)
}

func TestRecommendUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.features.err = port.ErrUserNotFound
	svc := f.service(t, config.StrategyBounded)

	_, err := svc.Recommend(context.Background(), "nonexistent_user", testRequest(domain.SortByDisplacement))
	assert.ErrorIs(t, err, port.ErrUserNotFound)

	// Nothing downstream runs and nothing is recorded.
	assert.Zero(t, f.index.calls)
	assert.Empty(t, f.audit.audits)
}

func TestRecommendFailsOnUnrepresentableIndex(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.index.matches = []domain.CandidateMatch{{Index: 10000, Difference: 1.0}}
	svc := f.service(t, config.StrategyBounded)

	_, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	assert.Error(t, err)
	assert.Empty(t, f.audit.audits)
}

func TestRecommendPersistsAuditAndArtifacts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	req := testRequest(domain.SortByDifference)
	recs, err := svc.Recommend(context.Background(), "u01130", req)
	require.NoError(t, err)

	require.Len(t, f.audit.audits, 1)
	audit := f.audit.audits[0]
	assert.NotEmpty(t, audit.RequestID)
	assert.Equal(t, "u01130", audit.UserID)
	assert.Equal(t, req.Latitude, audit.Latitude)
	assert.Equal(t, req.Longitude, audit.Longitude)
	assert.Equal(t, req.Size, audit.Size)
	assert.Equal(t, req.MaxDis, audit.MaxDis)
	assert.Equal(t, req.SortDis, audit.SortDis)

	require.Len(t, f.audit.artifacts[0], len(recs))
	for i, a := range f.audit.artifacts[0] {
		assert.Equal(t, audit.RequestID, a.RequestID)
		assert.Equal(t, recs[i].ID, a.RestaurantID)
		assert.Equal(t, recs[i].Difference, a.Difference)
		assert.Equal(t, recs[i].Displacement, a.Displacement)
	}
}

func TestRecommendReplayIsDeterministic(t *testing.T) {
	t.Parallel()

	f := newFixture()
	svc := f.service(t, config.StrategyBounded)

	req := testRequest(domain.SortByDifference)
	first, err := svc.Recommend(context.Background(), "u01130", req)
	require.NoError(t, err)
	second, err := svc.Recommend(context.Background(), "u01130", req)
	require.NoError(t, err)

	// Same ranked content, but distinct audit records.
	assert.Equal(t, first, second)
	require.Len(t, f.audit.audits, 2)
	assert.NotEqual(t, f.audit.audits[0].RequestID, f.audit.audits[1].RequestID)
}

func TestRecommendPersistenceFailureFailsRequest(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.audit.err = errors.New("connection reset")
	svc := f.service(t, config.StrategyBounded)

	_, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	assert.ErrorContains(t, err, "record prediction")
}

func TestRecommendFullStrategyScoresAllEligible(t *testing.T) {
	t.Parallel()

	f := newFixture()
	// Both eligible restaurants are also the index's nearest neighbors here.
	f.index.matches = []domain.CandidateMatch{
		{Index: 2, Difference: 5.01},
		{Index: 1, Difference: 10.06},
		{Index: 3, Difference: 12.2},
	}
	svc := f.service(t, config.StrategyFull)

	recs, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDifference))
	require.NoError(t, err)

	// Two restaurants survive the exact geodesic check, so the index is asked
	// for exactly two neighbors.
	assert.Equal(t, 2, f.index.gotK)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.LessOrEqual(t, r.Displacement, 5000)
	}
}

func TestRecommendFullStrategyCapsAtSize(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.index.matches = []domain.CandidateMatch{
		{Index: 1, Difference: 10.06},
		{Index: 2, Difference: 5.01},
		{Index: 3, Difference: 12.2},
	}
	svc := f.service(t, config.StrategyFull)

	req := testRequest(domain.SortByDisplacement)
	req.Size = 1

	recs, err := svc.Recommend(context.Background(), "u01130", req)
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "r0001", recs[0].ID) // nearest wins under sort_dis=1
	require.Len(t, f.audit.artifacts[0], 1)
}

func TestRecommendFullStrategyEmptyRadius(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.restaurants.byID = map[string]domain.Restaurant{}
	svc := f.service(t, config.StrategyFull)

	recs, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	require.NoError(t, err)

	assert.Empty(t, recs)
	assert.Zero(t, f.index.calls)
	// The served request is still audited, with zero artifacts.
	require.Len(t, f.audit.audits, 1)
	assert.Empty(t, f.audit.artifacts[0])
}

func TestRecommendDependencyFailureSurfaces(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.index.err = errors.New("index corrupted")
	svc := f.service(t, config.StrategyBounded)

	_, err := svc.Recommend(context.Background(), "u01130", testRequest(domain.SortByDisplacement))
	assert.ErrorContains(t, err, "query similarity index")
	assert.Empty(t, f.audit.audits)
}
