package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/skialp/skialp-backend/internal/api/http"
	"github.com/skialp/skialp-backend/internal/avalanche"
	"github.com/skialp/skialp-backend/internal/config"
	"github.com/skialp/skialp-backend/internal/forecast"
	"github.com/skialp/skialp-backend/internal/geocode"
	"github.com/skialp/skialp-backend/internal/meteogram"
	"github.com/skialp/skialp-backend/internal/peaks"
	"github.com/skialp/skialp-backend/internal/report"
	"github.com/skialp/skialp-backend/internal/summary"
)

func main() {
	// Load configuration. Startup fails fast on missing secrets.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound collaborator calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Geocoding backend.
	var geocoder geocode.Geocoder
	switch cfg.GeocoderBackend {
	case "google":
		geocoder, err = geocode.NewGoogleGeocoder(cfg.GoogleAPIKey)
		if err != nil {
			log.Fatalf("failed to configure google geocoder: %v", err)
		}
	default:
		geocoder = geocode.NewNominatimGeocoder(httpClient, cfg.NominatimBaseURL)
	}

	// Language model client, shared by the conditions summarizer and the
	// optional live bulletin path.
	llm, err := summary.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, nil)
	if err != nil {
		log.Fatalf("failed to configure language model client: %v", err)
	}

	// Avalanche source resolution: static table unless the live path is on.
	var avalancheResolver avalanche.Resolver = avalanche.StaticResolver{}
	if cfg.AvalancheLiveBulletins {
		avalancheResolver = avalanche.NewLiveResolver(httpClient, cfg.SerpAPIKey, "", llm)
		log.Println("avalanche: live bulletin path enabled")
	}

	// Core service orchestrating the external collaborators.
	service := report.NewService(
		geocoder,
		forecast.NewOpenMeteoClient(httpClient, cfg.ForecastBaseURL),
		meteogram.NewMeteoblueClient(httpClient, cfg.MeteoblueAPIKey, cfg.MeteogramBaseURL),
		peaks.NewOverpassFinder(httpClient, cfg.OverpassBaseURL, cfg.PeakRadiusKm),
		llm,
		avalancheResolver,
	)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "skialp-backend",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          120 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Global middleware. The frontend is served from another origin, so
	// CORS stays wide open; there is no auth on this service.
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "*",
	}))

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skialp-backend",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
