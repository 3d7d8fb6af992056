package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/foodlens/foodlens/internal/domain"
	"github.com/foodlens/foodlens/internal/port"
)

// RecommendHandler handles the recommendation endpoint.
type RecommendHandler struct {
	recommender port.Recommender
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(recommender port.Recommender) *RecommendHandler {
	return &RecommendHandler{recommender: recommender}
}

// Register sets up recommendation routes.
func (h *RecommendHandler) Register(router fiber.Router) {
	router.Get("/recommend/:user_id", h.Recommend)
}

// Recommend returns ranked restaurant recommendations for a user at a
// position. Malformed parameters are rejected here, before the engine or any
// store is touched.
func (h *RecommendHandler) Recommend(c fiber.Ctx) error {
	userID := c.Params("user_id")

	req, err := parseRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	recs, err := h.recommender.Recommend(c.Context(), userID, *req)
	if err != nil {
		if errors.Is(err, port.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		// Internal detail stays server-side.
		slog.Error("recommendation failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return c.JSON(fiber.Map{"restaurants": recs})
}

func parseRequest(c fiber.Ctx) (*domain.RecommendationRequest, error) {
	lat, err := requiredFloat(c, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := requiredFloat(c, "longitude")
	if err != nil {
		return nil, err
	}
	size, err := optionalInt(c, "size", domain.DefaultSize)
	if err != nil {
		return nil, err
	}
	maxDis, err := optionalInt(c, "max_dis", domain.DefaultMaxDis)
	if err != nil {
		return nil, err
	}
	sortDis, err := optionalInt(c, "sort_dis", domain.DefaultSortDis)
	if err != nil {
		return nil, err
	}

	req := domain.RecommendationRequest{
		Latitude:  lat,
		Longitude: lon,
		Size:      size,
		MaxDis:    maxDis,
		SortDis:   sortDis,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func requiredFloat(c fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

// optionalInt accepts integral floats ("50.0") for compatibility with clients
// that send every number with a decimal point.
func optionalInt(c fiber.Ctx, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int(v), nil
}
