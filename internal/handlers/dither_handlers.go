package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rmitchellscott/ditherbox/internal/dither"
	"github.com/rmitchellscott/ditherbox/internal/imageprocessing"
	"github.com/rmitchellscott/ditherbox/internal/logging"
	"github.com/rmitchellscott/ditherbox/internal/middleware"
	"github.com/rmitchellscott/ditherbox/internal/rendering"
)

// DitherRequest holds the form fields of POST /api/dither. The image itself
// is the multipart file field "file".
type DitherRequest struct {
	Algorithm  string `form:"algorithm"`
	Palette    string `form:"palette" binding:"max=4096"`
	BayerOrder int    `form:"bayer_order" binding:"omitempty,min=1,max=64"`
}

// DitherHandler dithers an uploaded image and responds with PNG bytes
func (h *Handler) DitherHandler(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	var req DitherRequest
	if err := c.ShouldBind(&req); err != nil {
		if status, ok := bodyErrorStatus(err); ok {
			c.JSON(status, gin.H{"error": "Request payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrorMessage(err)})
		return
	}

	data, err := readUpload(c)
	if err != nil {
		if status, ok := bodyErrorStatus(err); ok {
			c.JSON(status, gin.H{"error": "Request payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image file is required in the \"file\" field"})
		return
	}

	paletteValue := req.Palette
	if paletteValue == "" {
		paletteValue = h.cfg.DefaultPalette
	}
	palette, err := h.palettes.Resolve(paletteValue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = h.cfg.DefaultAlgorithm
	}
	bayerOrder := req.BayerOrder
	if bayerOrder == 0 {
		bayerOrder = h.cfg.BayerOrder
	}

	jobID, err := uuid.Parse(requestID)
	if err != nil {
		jobID = uuid.New()
	}

	result, err := h.pool.Submit(c.Request.Context(), rendering.DitherJob{
		ID:        jobID,
		Data:      data,
		Algorithm: algorithm,
		Options: imageprocessing.Options{
			Palette:    palette,
			BayerOrder: bayerOrder,
			MaxPixels:  h.cfg.MaxPixels,
		},
	})
	if err != nil {
		h.writeDitherError(c, jobID, algorithm, err)
		return
	}

	logging.InfoWithComponent(logging.ComponentAPIDither, "Image dithered",
		"job_id", jobID,
		"algorithm", imageprocessing.ParseAlgorithm(algorithm),
		"colors", len(palette),
		"input_bytes", len(data),
		"output_bytes", len(result.PNG),
		"duration_ms", result.DurationMs,
	)

	c.Header("X-Dither-Algorithm", imageprocessing.ParseAlgorithm(algorithm))
	c.Header("X-Dither-Duration-Ms", strconv.Itoa(result.DurationMs))
	c.Data(http.StatusOK, "image/png", result.PNG)
}

func readUpload(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func bodyErrorStatus(err error) (int, bool) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, true
	}
	return 0, false
}

func (h *Handler) writeDitherError(c *gin.Context, jobID uuid.UUID, algorithm string, err error) {
	var decodeErr *dither.DecodeError
	var cfgErr *dither.ConfigurationError
	var tooLarge *imageprocessing.ImageTooLargeError

	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error()})
	case errors.As(err, &tooLarge):
		logging.WarnWithComponent(logging.ComponentAPIDither, "Image exceeds pixel limit", "job_id", jobID, "width", tooLarge.Width, "height", tooLarge.Height)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLarge.Error()})
	case errors.As(err, &decodeErr):
		logging.WarnWithComponent(logging.ComponentAPIDither, "Failed to decode upload", "job_id", jobID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dithering failed: " + err.Error()})
	case errors.Is(err, rendering.ErrQueueFull), errors.Is(err, rendering.ErrPoolStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logging.WarnWithComponent(logging.ComponentAPIDither, "Dither request abandoned", "job_id", jobID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
	default:
		logging.ErrorWithComponent(logging.ComponentAPIDither, "Dithering failed", "job_id", jobID, "algorithm", algorithm, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dithering failed: " + err.Error()})
	}
}
