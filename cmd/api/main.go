package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/cartsync/internal/commerce"
	"github.com/fairyhunter13/cartsync/internal/config"
	"github.com/fairyhunter13/cartsync/internal/handler"
	"github.com/fairyhunter13/cartsync/internal/kv"
	"github.com/fairyhunter13/cartsync/internal/reconciler"
	"github.com/fairyhunter13/cartsync/internal/store"
	"github.com/fairyhunter13/cartsync/internal/validator"
	"github.com/fairyhunter13/cartsync/pkg/database"
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

	// Select the persistence backend
	kvStore, pool, err := newKVStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize persistence backend")
	}

	// Remote commerce API client
	client := commerce.NewClient(cfg.Commerce.BaseURL, time.Duration(cfg.Commerce.Timeout)*time.Second)

	// Cart store restores persisted state at startup
	cartStore, err := store.New(ctx, kvStore, client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to restore cart state")
	}

	// Reconciler keeps an attached coupon consistent with cart edits.
	// Kick once: a coupon restored from persistence may be stale.
	rec := reconciler.New(cartStore, client, cfg.Reconcile.Window())
	rec.Kick()

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Cartsync",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Handlers
	cartHandler := handler.NewCartHandler(cartStore, validate)
	checkoutHandler := handler.NewCheckoutHandler(cartStore, client)
	healthHandler := handler.NewHealthHandler(kvStore)

	app.Get("/health", healthHandler.Check)

	// Cart routes
	app.Get("/api/cart", cartHandler.GetCart)
	app.Post("/api/cart/items", cartHandler.AddItem)
	app.Patch("/api/cart/items/:lineID", cartHandler.AdjustQuantity)
	app.Delete("/api/cart/items/:lineID", cartHandler.RemoveItem)
	app.Delete("/api/cart", cartHandler.ClearCart)
	app.Post("/api/cart/coupon", cartHandler.ApplyCoupon)
	app.Delete("/api/cart/coupon", cartHandler.RemoveCoupon)
	app.Post("/api/checkout", checkoutHandler.Checkout)

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

	// Stop the reconciler before the store so no revalidation lands on a
	// closing store, then drain pending persistence writes.
	rec.Close()
	cartStore.Close()

	if pool != nil {
		log.Info().Msg("closing database connections...")
		pool.Close()
	}
	log.Info().Msg("server stopped")
}

// newKVStore builds the configured persistence backend. The returned pool
// is nil for the in-memory backend.
func newKVStore(ctx context.Context, cfg *config.Config) (kv.Store, *pgxpool.Pool, error) {
	switch cfg.Persist.Backend {
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
		if err != nil {
			return nil, nil, err
		}
		pg := kv.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool, nil
	default:
		log.Info().Str("backend", cfg.Persist.Backend).Msg("using in-memory persistence, cart will not survive restarts")
		return kv.NewMemory(), nil, nil
	}
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
