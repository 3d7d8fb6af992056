package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/foodlens/foodlens/internal/adapter/model"
	"github.com/foodlens/foodlens/internal/adapter/store"
	"github.com/foodlens/foodlens/internal/handler"
	"github.com/foodlens/foodlens/internal/service"
	"github.com/foodlens/foodlens/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting FoodLens",
		"port", cfg.Port,
		"index_snapshot", cfg.IndexSnapshotPath,
		"dimension", cfg.FeatureDimension,
		"strategy", cfg.CandidateStrategy,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL, cfg.FeatureDimension)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.EnsureSchema(context.Background()); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// ── Similarity index ─────────────────────────────────────────────────
	// Loaded once, read-only for the process lifetime. A missing or corrupt
	// snapshot is fatal: serving without a model is worse than not serving.
	index, err := model.Open(cfg.IndexSnapshotPath)
	if err != nil {
		slog.Error("failed to load similarity index", "error", err)
		os.Exit(1)
	}
	defer index.Close()

	// ── Services ─────────────────────────────────────────────────────────
	recommendService, err := service.NewRecommendService(pgStore, pgStore, index, pgStore, cfg.CandidateStrategy)
	if err != nil {
		slog.Error("failed to build recommendation service", "error", err)
		os.Exit(1)
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		JSONEncoder:  gojson.Marshal,
		JSONDecoder:  gojson.Unmarshal,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "OPTIONS"},
	}))

	// Health check
	app.Get("/healthcheck", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "OK",
			"message": "Application is healthy",
		})
	})

	recommendHandler := handler.NewRecommendHandler(recommendService)
	recommendHandler.Register(app)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
