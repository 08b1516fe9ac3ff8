package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/ditherbox/internal/config"
	"github.com/rmitchellscott/ditherbox/internal/imageprocessing"
	"github.com/rmitchellscott/ditherbox/internal/palettes"
	"github.com/rmitchellscott/ditherbox/internal/rendering"
	"github.com/rmitchellscott/ditherbox/internal/version"
)

// Handler serves the dithering API
type Handler struct {
	cfg      config.Config
	pool     *rendering.WorkerPool
	palettes *palettes.Registry
}

// NewHandler wires the API to a running worker pool and palette registry
func NewHandler(cfg config.Config, pool *rendering.WorkerPool, registry *palettes.Registry) *Handler {
	return &Handler{
		cfg:      cfg,
		pool:     pool,
		palettes: registry,
	}
}

// RegisterRoutes mounts every endpoint on router
func (h *Handler) RegisterRoutes(router gin.IRouter, ditherMiddleware ...gin.HandlerFunc) {
	router.GET("/healthz", h.HealthHandler)

	api := router.Group("/api")
	{
		api.POST("/dither", append(ditherMiddleware, h.DitherHandler)...) // POST /api/dither - dither an uploaded image
		api.GET("/dither/algorithms", h.AlgorithmsHandler)                // GET /api/dither/algorithms - list algorithms
		api.GET("/palettes", h.PalettesHandler)                           // GET /api/palettes - list palette presets
		api.GET("/status", h.StatusHandler)                               // GET /api/status - worker pool metrics
		api.GET("/version", h.VersionHandler)                             // GET /api/version - build information
	}
}

// HealthHandler reports liveness
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AlgorithmsHandler lists the accepted algorithm names
func (h *Handler) AlgorithmsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"algorithms":  imageprocessing.Algorithms(),
		"default":     imageprocessing.ParseAlgorithm(h.cfg.DefaultAlgorithm),
		"bayer_order": h.cfg.BayerOrder,
	})
}

// PalettesHandler lists palette presets as hex colors
func (h *Handler) PalettesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"palettes": h.palettes.All(),
		"default":  h.cfg.DefaultPalette,
	})
}

// StatusHandler returns worker pool metrics
func (h *Handler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pool": h.pool.GetMetrics(),
	})
}

// VersionHandler returns build information
func (h *Handler) VersionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
