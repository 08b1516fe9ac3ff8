package config

import (
	"runtime"
	"time"
)

// Config holds the service settings read from the environment
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	// Request defaults. DefaultPalette is a preset name or a
	// comma-separated hex list.
	DefaultAlgorithm string
	DefaultPalette   string
	BayerOrder       int
	PalettesFile     string

	MaxUploadBytes     int64
	MaxPixels          int
	Workers            int
	QueueSize          int
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	CORSCredentials    bool
}

// Load reads the configuration from the environment
func Load() Config {
	workers := GetInt("DITHER_WORKERS", runtime.NumCPU())
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	maxUploadMB := GetInt("MAX_UPLOAD_MB", 10)
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}

	return Config{
		Port:               Get("PORT", "8000"),
		GinMode:            Get("GIN_MODE", ""),
		LogLevel:           Get("LOG_LEVEL", "info"),
		LogFormat:          Get("LOG_FORMAT", "text"),
		DefaultAlgorithm:   Get("DITHER_ALGORITHM", "FloydSteinberg"),
		DefaultPalette:     Get("DITHER_PALETTE", "default"),
		BayerOrder:         GetInt("DITHER_BAYER_ORDER", 8),
		PalettesFile:       Get("PALETTES_FILE", ""),
		MaxUploadBytes:     int64(maxUploadMB) << 20,
		MaxPixels:          GetInt("MAX_PIXELS", 16_000_000),
		Workers:            workers,
		QueueSize:          GetInt("DITHER_QUEUE_SIZE", 64),
		RateLimitPerMinute: GetInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    GetDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		CORSAllowedOrigins: GetList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSCredentials:    GetBool("CORS_ALLOW_CREDENTIALS", false),
	}
}
