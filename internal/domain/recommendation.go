package domain

import (
	"fmt"
	"math"
)

// Default request parameters.
const (
	DefaultSize    = 20
	DefaultMaxDis  = 5000
	DefaultSortDis = 1
)

// Sort modes for the recommendation list.
const (
	SortByDifference   = 0 // ascending similarity score
	SortByDisplacement = 1 // ascending distance from the requester
)

// RecommendationRequest carries the validated parameters of a recommendation
// request. Invalid values are rejected at the boundary before the engine runs.
type RecommendationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Size      int     `json:"size"`
	MaxDis    int     `json:"max_dis"`
	SortDis   int     `json:"sort_dis"`
}

// Validate reports the first out-of-range parameter, if any.
func (r RecommendationRequest) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 || math.IsNaN(r.Latitude) {
		return fmt.Errorf("latitude %v outside range [-90, 90]", r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 || math.IsNaN(r.Longitude) {
		return fmt.Errorf("longitude %v outside range [-180, 180]", r.Longitude)
	}
	if r.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", r.Size)
	}
	if r.MaxDis <= 0 {
		return fmt.Errorf("max_dis must be positive, got %d", r.MaxDis)
	}
	if r.SortDis != SortByDifference && r.SortDis != SortByDisplacement {
		return fmt.Errorf("sort_dis must be 0 or 1, got %d", r.SortDis)
	}
	return nil
}

// CandidateMatch pairs a dense similarity-index position with its similarity
// score ("difference", lower means more similar). Transient; never persisted.
type CandidateMatch struct {
	Index      int
	Difference float64
}

// Recommendation is the engine's output unit and the persisted artifact unit.
// Difference is rounded to one decimal and Displacement is whole meters;
// downstream consumers depend on this exact formatting.
type Recommendation struct {
	ID           string  `json:"id"`
	Difference   float64 `json:"difference"`
	Displacement int     `json:"displacement"`
}

// RoundDifference applies the one-decimal wire rounding to a raw index score.
func RoundDifference(score float64) float64 {
	return math.Round(score*10) / 10
}
