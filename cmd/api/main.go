package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-engine/internal/config"
	"github.com/fairyhunter13/flash-sale-engine/internal/coordinator"
	"github.com/fairyhunter13/flash-sale-engine/internal/handler"
	"github.com/fairyhunter13/flash-sale-engine/internal/repository"
	"github.com/fairyhunter13/flash-sale-engine/internal/service"
	appvalidator "github.com/fairyhunter13/flash-sale-engine/internal/validator"
	"github.com/fairyhunter13/flash-sale-engine/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Redis client with retry
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to coordinator")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Flash Sale Engine",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.Max,
		Expiration: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}))

	// Initialize validator with custom rules
	validate := appvalidator.New()

	// Initialize purchase components (layered architecture)
	fc := coordinator.New(redisClient, cfg.Redis.StockPrefix, cfg.Redis.MarkPrefix, cfg.Redis.MarkTTLDuration())
	saleRepo := repository.NewSaleRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	purchaseService := service.NewPurchaseService(saleRepo, orderRepo, fc, cfg.Sale.DefaultID)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService, validate)
	saleHandler := handler.NewSaleHandler(purchaseService, validate)

	// Seed the coordinator counter for the default sale. A failure here is not
	// fatal: the counter can be re-seeded via the admin stock/init endpoint.
	if err := purchaseService.Bootstrap(ctx); err != nil {
		log.Error().Err(err).Msg("stock bootstrap failed, continuing without seeded counter")
	}

	// Health and metrics
	healthHandler := handler.NewHealthHandler(pool, fc)
	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Purchase routes
	app.Post("/api/purchase", purchaseHandler.Purchase)
	app.Get("/api/purchases/:user_id", purchaseHandler.GetUserPurchase)
	app.Get("/api/sale/status", saleHandler.GetStatus)
	app.Get("/api/sale/stats", saleHandler.GetStats)

	// Admin routes
	app.Post("/api/admin/reset", saleHandler.Reset)
	app.Post("/api/admin/sale/window", saleHandler.UpdateWindow)
	app.Post("/api/admin/stock/init", saleHandler.InitStock)
	app.Post("/api/admin/marks/recover", saleHandler.RecoverMarks)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close external connections AFTER server shutdown (even if it timed out)
	log.Info().Msg("closing connections...")
	pool.Close()
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("error closing coordinator client")
	}
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
