package domain

import "time"

// RequestAudit records the parameters of a served recommendation request.
// One row per request, append-only, never mutated after commit.
type RequestAudit struct {
	RequestID string    `json:"request_id" db:"request_id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Latitude  float64   `json:"latitude"   db:"latitude"`
	Longitude float64   `json:"longitude"  db:"longitude"`
	Size      int       `json:"size"       db:"size"`
	MaxDis    int       `json:"max_dis"    db:"max_dis"`
	SortDis   int       `json:"sort_dis"   db:"sort_dis"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PredictionArtifact is one emitted recommendation as durably recorded for
// audit and replay. Zero or more per request, always committed in the same
// transaction as their RequestAudit row.
type PredictionArtifact struct {
	ID           int64     `json:"id"            db:"id"`
	RequestID    string    `json:"request_id"    db:"request_id"`
	RestaurantID string    `json:"restaurant_id" db:"restaurant_id"`
	Difference   float64   `json:"difference"    db:"difference"`
	Displacement int       `json:"displacement"  db:"displacement"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
}
