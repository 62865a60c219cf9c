package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/aellstrom/pollenpulsen/internal/api/http"
	"github.com/aellstrom/pollenpulsen/internal/config"
	"github.com/aellstrom/pollenpulsen/internal/pollen"
	"github.com/aellstrom/pollenpulsen/internal/scheduler"
	"github.com/aellstrom/pollenpulsen/pkg/log"
)

func main() {
	logger := log.New(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}

	client := pollen.NewClient(pollen.ClientConfig{
		BaseURL:    cfg.BaseURL,
		RegionID:   cfg.RegionID,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:     logger,
	})

	coordinator := pollen.NewCoordinator(pollen.CoordinatorConfig{
		Client: client,
		Logger: logger,
	})

	// Resolve the region display name once for the views. Falling back to
	// the raw id keeps startup working when the catalog is unreachable.
	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	regionName := cfg.RegionID
	if regions, err := client.FetchRegions(startupCtx); err != nil {
		logger.Warnw("failed to fetch region names", "error", err)
	} else if name, ok := regions[cfg.RegionID]; ok {
		regionName = name
	}

	// First refresh. A failure here is logged, not fatal: the upstream may
	// recover before the next scheduled cycle.
	if err := coordinator.Refresh(startupCtx); err != nil {
		logger.Errorw("initial refresh failed", "error", err)
	}
	cancel()

	sched := scheduler.New(cfg.FetchInterval(), coordinator.Refresh, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	measurements := make(map[string]*pollen.MeasurementView, len(cfg.PollenTypes))
	for _, typeID := range cfg.PollenTypes {
		measurements[typeID] = pollen.NewMeasurementView(coordinator, typeID, regionName)
	}

	app := fiber.New(fiber.Config{
		AppName:               "pollenpulsen",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "pollenpulsen",
			"state":   coordinator.State().String(),
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Coordinator:  coordinator,
		Client:       client,
		Forecast:     pollen.NewForecastView(coordinator, regionName),
		Measurements: measurements,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorw("fiber server stopped", "error", err)
		}
	}()

	logger.Infow("pollenpulsen started",
		"region", cfg.RegionID, "interval_hours", cfg.FetchIntervalHours, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorw("error during shutdown", "error", err)
	}
}
