package domain

// UserFeatures is a user's latent preference profile: a fixed-length vector
// produced by the external training pipeline. The vector length always equals
// the dimensionality the similarity index was built with.
type UserFeatures struct {
	UserID string    `json:"user_id" db:"user_id"`
	Vector []float32 `json:"-"`
}
