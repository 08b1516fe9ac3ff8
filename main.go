package main

import (
	// standard library
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// third-party
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	// internal
	"github.com/rmitchellscott/ditherbox/internal/config"
	"github.com/rmitchellscott/ditherbox/internal/dither"
	"github.com/rmitchellscott/ditherbox/internal/handlers"
	"github.com/rmitchellscott/ditherbox/internal/imageprocessing"
	"github.com/rmitchellscott/ditherbox/internal/logging"
	"github.com/rmitchellscott/ditherbox/internal/middleware"
	"github.com/rmitchellscott/ditherbox/internal/palettes"
	"github.com/rmitchellscott/ditherbox/internal/rendering"
	"github.com/rmitchellscott/ditherbox/internal/version"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg := config.Load()
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	registry, err := palettes.NewRegistry()
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to load palette presets", "error", err)
		os.Exit(1)
	}
	if cfg.PalettesFile != "" {
		if err := registry.LoadFile(cfg.PalettesFile); err != nil {
			logging.ErrorWithComponent(logging.ComponentStartup, "Failed to load palette file", "path", cfg.PalettesFile, "error", err)
			os.Exit(1)
		}
	}
	if _, err := registry.Resolve(cfg.DefaultPalette); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid DITHER_PALETTE", "value", cfg.DefaultPalette, "error", err)
		os.Exit(1)
	}

	if err := dither.CheckBayerOrder(cfg.BayerOrder); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid DITHER_BAYER_ORDER", "value", cfg.BayerOrder, "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "dither" {
		os.Exit(runDitherCommand(cfg, registry, os.Args[2:]))
	}

	logging.InfoWithComponent(logging.ComponentStartup, "Starting ditherbox", "version", version.String())

	pool := rendering.NewWorkerPool(cfg.Workers, cfg.QueueSize, rendering.DitherImageJob)
	pool.Start()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	// Browser clients upload straight from the page
	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowCredentials = cfg.CORSCredentials
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "X-Dither-Algorithm", "X-Dither-Duration-Ms"}
	router.Use(cors.New(corsConfig))

	stopCleanup := make(chan struct{})
	rateLimiter := middleware.NewClientRateLimiter(cfg.RateLimitPerMinute)
	rateLimiter.StartCleanup(10*time.Minute, stopCleanup)

	api := handlers.NewHandler(cfg, pool, registry)
	api.RegisterRoutes(router,
		rateLimiter.RateLimit(),
		middleware.RequestSizeLimit(cfg.MaxUploadBytes),
	)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logging.InfoWithComponent(logging.ComponentStartup, "Listening", "address", addr,
			"workers", cfg.Workers, "default_algorithm", imageprocessing.ParseAlgorithm(cfg.DefaultAlgorithm))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.InfoWithComponent(logging.ComponentShutdown, "Shutting down server and worker pool")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.ErrorWithComponent(logging.ComponentShutdown, "Server forced to shutdown", "error", err)
	}
	close(stopCleanup)
	pool.Stop()

	logging.InfoWithComponent(logging.ComponentShutdown, "Server and worker pool stopped")
}

// runDitherCommand handles `ditherbox dither <in> <out> [algorithm]`
func runDitherCommand(cfg config.Config, registry *palettes.Registry, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ditherbox dither <input> <output.png> [algorithm]")
		return 2
	}

	algorithm := cfg.DefaultAlgorithm
	if len(args) > 2 {
		algorithm = args[2]
	}

	palette, err := registry.Resolve(cfg.DefaultPalette)
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentCLI, "Invalid palette", "error", err)
		return 1
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentCLI, "Failed to read input", "path", args[0], "error", err)
		return 1
	}

	start := time.Now()
	out, err := imageprocessing.DitherImage(data, algorithm, imageprocessing.Options{
		Palette:    palette,
		BayerOrder: cfg.BayerOrder,
		MaxPixels:  cfg.MaxPixels,
	})
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentCLI, "Dithering failed", "path", args[0], "error", err)
		return 1
	}

	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		logging.ErrorWithComponent(logging.ComponentCLI, "Failed to write output", "path", args[1], "error", err)
		return 1
	}

	logging.InfoWithComponent(logging.ComponentCLI, "Image dithered",
		"input", args[0],
		"output", args[1],
		"algorithm", imageprocessing.ParseAlgorithm(algorithm),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return 0
}
