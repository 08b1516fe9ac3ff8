package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/rmitchellscott/ditherbox/internal/config"
	"github.com/rmitchellscott/ditherbox/internal/middleware"
	"github.com/rmitchellscott/ditherbox/internal/palettes"
	"github.com/rmitchellscott/ditherbox/internal/rendering"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		DefaultAlgorithm: "FloydSteinberg",
		DefaultPalette:   "default",
		BayerOrder:       8,
		MaxUploadBytes:   1 << 20,
	}
}

func newTestRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()

	registry, err := palettes.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	pool := rendering.NewWorkerPool(2, 8, nil)
	pool.Start()
	t.Cleanup(pool.Stop)

	router := gin.New()
	router.Use(middleware.RequestID())
	NewHandler(cfg, pool, registry).RegisterRoutes(router, middleware.RequestSizeLimit(cfg.MaxUploadBytes))
	return router
}

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func ditherRequest(t *testing.T, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		fw, err := mw.CreateFormFile("file", "upload.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(file)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/dither", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeColors(t *testing.T, data []byte) (image.Rectangle, map[color.RGBA]int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	counts := make(map[color.RGBA]int)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			counts[color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)]++
		}
	}
	return b, counts
}

func TestDitherHandler(t *testing.T) {
	router := newTestRouter(t, testConfig())
	cream := color.RGBA{R: 254, G: 241, B: 220, A: 255}

	tests := []struct {
		name          string
		fields        map[string]string
		input         color.Color
		wantAlgorithm string
		wantColors    map[color.RGBA]int
	}{
		{
			name:          "default algorithm keeps black",
			input:         color.Black,
			wantAlgorithm: "FloydSteinberg",
			wantColors:    map[color.RGBA]int{{A: 255}: 4},
		},
		{
			name:          "bayer turns white cream",
			fields:        map[string]string{"algorithm": "Bayer", "bayer_order": "2"},
			input:         color.White,
			wantAlgorithm: "Bayer",
			wantColors:    map[color.RGBA]int{cream: 4},
		},
		{
			name:          "unknown algorithm falls back",
			fields:        map[string]string{"algorithm": "Stucki"},
			input:         color.Black,
			wantAlgorithm: "FloydSteinberg",
			wantColors:    map[color.RGBA]int{{A: 255}: 4},
		},
		{
			name:          "very long unknown algorithm falls back",
			fields:        map[string]string{"algorithm": strings.Repeat("x", 300)},
			input:         color.Black,
			wantAlgorithm: "FloydSteinberg",
			wantColors:    map[color.RGBA]int{{A: 255}: 4},
		},
		{
			name:          "custom hex palette",
			fields:        map[string]string{"algorithm": "Sierra", "palette": "#ff0000,#0000ff"},
			input:         color.RGBA{R: 250, A: 255},
			wantAlgorithm: "Sierra",
			wantColors:    map[color.RGBA]int{{R: 255, A: 255}: 4},
		},
		{
			name:          "palette preset",
			fields:        map[string]string{"algorithm": "Atkinson", "palette": "mono"},
			input:         color.White,
			wantAlgorithm: "Atkinson",
			wantColors:    map[color.RGBA]int{{R: 255, G: 255, B: 255, A: 255}: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, ditherRequest(t, testPNG(t, 2, 2, tt.input), tt.fields))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %q", ct)
			}
			if got := w.Header().Get("X-Dither-Algorithm"); got != tt.wantAlgorithm {
				t.Errorf("X-Dither-Algorithm = %q, want %q", got, tt.wantAlgorithm)
			}

			bounds, counts := decodeColors(t, w.Body.Bytes())
			if bounds.Dx() != 2 || bounds.Dy() != 2 {
				t.Errorf("output is %dx%d, want 2x2", bounds.Dx(), bounds.Dy())
			}
			if diff := cmp.Diff(tt.wantColors, counts); diff != "" {
				t.Errorf("colors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDitherHandlerErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 4096
	cfg.MaxPixels = 64
	router := newTestRouter(t, cfg)

	tests := []struct {
		name     string
		file     []byte
		fields   map[string]string
		wantCode int
	}{
		{
			name:     "missing file",
			fields:   map[string]string{"algorithm": "Bayer"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed image",
			file:     []byte("this is not an image"),
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "bad palette",
			file:     testPNG(t, 2, 2, color.White),
			fields:   map[string]string{"palette": "#nothex"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "single color palette with bayer",
			file:     testPNG(t, 2, 2, color.White),
			fields:   map[string]string{"algorithm": "Bayer", "palette": "#ffffff"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bayer order not a power of two",
			file:     testPNG(t, 2, 2, color.White),
			fields:   map[string]string{"algorithm": "Bayer", "bayer_order": "6"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bayer order out of range",
			file:     testPNG(t, 2, 2, color.White),
			fields:   map[string]string{"bayer_order": "128"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed hex palette",
			file:     testPNG(t, 2, 2, color.White),
			fields:   map[string]string{"palette": "#12345g"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "too many pixels",
			file:     testPNG(t, 16, 16, color.White),
			wantCode: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "upload too large",
			file:     bytes.Repeat([]byte{0xff}, 8192),
			wantCode: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, ditherRequest(t, tt.file, tt.fields))

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantCode, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body["error"] == "" || body["error"] == nil {
				t.Errorf("error body has no message: %v", body)
			}
		})
	}
}

func TestDiscoveryEndpoints(t *testing.T) {
	router := newTestRouter(t, testConfig())

	t.Run("algorithms", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dither/algorithms", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var body struct {
			Algorithms []string `json:"algorithms"`
			Default    string   `json:"default"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if diff := cmp.Diff([]string{"FloydSteinberg", "Atkinson", "Sierra", "Bayer"}, body.Algorithms); diff != "" {
			t.Errorf("algorithms mismatch (-want +got):\n%s", diff)
		}
		if body.Default != "FloydSteinberg" {
			t.Errorf("default = %q", body.Default)
		}
	})

	t.Run("palettes", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/palettes", nil))
		var body struct {
			Palettes map[string][]string `json:"palettes"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if diff := cmp.Diff([]string{"#000000", "#fef1dc"}, body.Palettes["default"]); diff != "" {
			t.Errorf("default palette mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("status", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		var body struct {
			Pool rendering.WorkerMetrics `json:"pool"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Pool.ActiveWorkers < 0 {
			t.Errorf("unexpected metrics: %+v", body.Pool)
		}
	})

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})
}
