package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carelog/carelog/internal/config"
	"github.com/carelog/carelog/internal/domain/labresult"
	"github.com/carelog/carelog/internal/domain/reference"
	"github.com/carelog/carelog/internal/domain/sources"
	"github.com/carelog/carelog/internal/domain/timeline"
	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/internal/platform/blobstore"
	"github.com/carelog/carelog/internal/platform/cache"
	"github.com/carelog/carelog/internal/platform/db"
	"github.com/carelog/carelog/internal/platform/middleware"
	"github.com/carelog/carelog/internal/platform/notification"
	"github.com/carelog/carelog/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carelog-server",
		Short: "Patient record aggregation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Timeline cache (optional; nil when REDIS_URL is unset)
	tlCache, err := cache.New(ctx, cfg.RedisURL, time.Duration(cfg.TimelineTTL)*time.Second, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if tlCache != nil {
		defer tlCache.Close()
		logger.Info().Msg("timeline cache enabled")
	}

	// Blob storage
	blobs, err := blobstore.NewDiskStore(cfg.BlobDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blob storage")
	}

	// Metrics
	metrics := telemetry.New()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// Audit and metrics middleware
	e.Use(middleware.Audit(logger))
	e.Use(metrics.Middleware())

	// Services
	notifier := notification.NewEngine(notification.LogSender{Logger: logger}, logger)

	referenceRepo := reference.NewRepoPG(pool)
	referenceSvc := reference.NewService(referenceRepo, logger)

	timelineRepo := timeline.NewRepoPG(pool)
	sourceLoader := sources.NewRepoPG(pool)
	timelineSvc := timeline.NewService(timelineRepo, sourceLoader, timeline.DefaultKindDefaults(), tlCache, metrics, logger)

	labRepo := labresult.NewRepoPG(pool)
	labSvc := labresult.NewService(labRepo, blobs, auth.RoleClinicianChecker{}, notifier, timelineSvc, referenceSvc, metrics, logger)

	// Routes
	apiV1 := e.Group("/api/v1")
	timeline.NewHandler(timelineSvc).RegisterRoutes(apiV1)
	labresult.NewHandler(labSvc).RegisterRoutes(apiV1)
	reference.NewHandler(referenceSvc).RegisterRoutes(apiV1)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := db.Health(c.Request().Context(), pool, 2*time.Second); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Prometheus scrape endpoint
	e.GET("/metrics", metrics.Handler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
