package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/foodlens/foodlens/internal/domain"
	"github.com/foodlens/foodlens/internal/geo"
	"github.com/foodlens/foodlens/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db  *sql.DB
	dim int

	// featureQuery is built once: selecting 1000 columns per request is hot
	// enough that rebuilding the statement text every call shows up.
	featureQuery string
}

// NewPostgresStore opens a connection and returns a store instance. dim is the
// feature dimensionality shared with the similarity index.
func NewPostgresStore(databaseURL string, dim int) (*PostgresStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimension must be positive, got %d", dim)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db, dim: dim, featureQuery: featureQuery(dim)}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// featureQuery builds the positional select over the wide feature schema.
func featureQuery(dim int) string {
	cols := make([]string, dim)
	for i := range cols {
		cols[i] = fmt.Sprintf("feature_%d", i)
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM user_features WHERE user_id = $1"
}

// EnsureSchema creates the core-owned audit tables. The ingestion-owned
// user_features and restaurants tables are not touched here.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS request_params (
			request_id TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			latitude   DOUBLE PRECISION NOT NULL,
			longitude  DOUBLE PRECISION NOT NULL,
			size       INTEGER NOT NULL,
			max_dis    INTEGER NOT NULL,
			sort_dis   INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS prediction_artifacts (
			id            BIGSERIAL PRIMARY KEY,
			request_id    TEXT NOT NULL REFERENCES request_params (request_id),
			restaurant_id TEXT NOT NULL,
			difference    DOUBLE PRECISION NOT NULL,
			displacement  INTEGER NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Feature store ---

// GetUserFeatures reads a user's feature vector by positional column scan.
func (s *PostgresStore) GetUserFeatures(ctx context.Context, userID string) (*domain.UserFeatures, error) {
	raw := make([]float64, s.dim)
	dest := make([]any, s.dim)
	for i := range raw {
		dest[i] = &raw[i]
	}

	err := s.db.QueryRowContext(ctx, s.featureQuery, userID).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user features: %w", err)
	}

	vector := make([]float32, s.dim)
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return &domain.UserFeatures{UserID: userID, Vector: vector}, nil
}

// --- Restaurant store ---

// GetRestaurantsByID returns the restaurants that exist among ids, keyed by
// identifier.
func (s *PostgresStore) GetRestaurantsByID(ctx context.Context, ids []string) (map[string]domain.Restaurant, error) {
	if len(ids) == 0 {
		return map[string]domain.Restaurant{}, nil
	}

	query := `SELECT restaurant_id, latitude, longitude
	          FROM restaurants WHERE restaurant_id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make(map[string]domain.Restaurant, len(ids))
	for rows.Next() {
		var r domain.Restaurant
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		restaurants[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get restaurants: %w", err)
	}
	return restaurants, nil
}

// ListRestaurantsInBox returns every restaurant inside the bounding box. The
// box is only a store-side prefilter; the engine re-checks the exact geodesic
// distance before emitting anything.
func (s *PostgresStore) ListRestaurantsInBox(ctx context.Context, box geo.BoundingBox) ([]domain.Restaurant, error) {
	query := `SELECT restaurant_id, latitude, longitude
	          FROM restaurants
	          WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`
	if box.Wraps() {
		// The longitude band crosses the antimeridian and splits into two
		// ranges meeting at 180.
		query = `SELECT restaurant_id, latitude, longitude
		          FROM restaurants
		          WHERE latitude BETWEEN $1 AND $2 AND (longitude >= $3 OR longitude <= $4)`
	}

	rows, err := s.db.QueryContext(ctx, query,
		box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude,
	)
	if err != nil {
		return nil, fmt.Errorf("list restaurants in box: %w", err)
	}
	defer rows.Close()

	var restaurants []domain.Restaurant
	for rows.Next() {
		var r domain.Restaurant
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list restaurants in box: %w", err)
	}
	return restaurants, nil
}

// --- Audit writer ---

// RecordPrediction writes the request audit row and all artifact rows in one
// transaction. A partial artifact set is never visible: either everything
// commits or everything rolls back.
func (s *PostgresStore) RecordPrediction(ctx context.Context, audit *domain.RequestAudit, artifacts []domain.PredictionArtifact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO request_params (request_id, user_id, latitude, longitude, size, max_dis, sort_dis)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		audit.RequestID, audit.UserID, audit.Latitude, audit.Longitude,
		audit.Size, audit.MaxDis, audit.SortDis,
	)
	if err != nil {
		return fmt.Errorf("insert request params: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO prediction_artifacts (request_id, restaurant_id, difference, displacement)
		 VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range artifacts {
		if _, err := stmt.ExecContext(ctx,
			a.RequestID, a.RestaurantID, a.Difference, a.Displacement,
		); err != nil {
			return fmt.Errorf("insert prediction artifact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prediction: %w", err)
	}
	return nil
}
