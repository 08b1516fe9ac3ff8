package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGetFileFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette")
	if err := os.WriteFile(path, []byte("  mono\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("DITHER_PALETTE", "")
	t.Setenv("DITHER_PALETTE_FILE", path)

	if got := Get("DITHER_PALETTE", "default"); got != "mono" {
		t.Errorf("Get() = %q, want %q", got, "mono")
	}

	t.Setenv("DITHER_PALETTE", "gameboy")
	if got := Get("DITHER_PALETTE", "default"); got != "gameboy" {
		t.Errorf("Get() = %q, env should win over file", got)
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_BAD_INT", "twelve")
	t.Setenv("TEST_BOOL", "Yes")
	t.Setenv("TEST_DURATION", "45s")
	t.Setenv("TEST_LIST", " a, ,b ,c")

	if got := GetInt("TEST_INT", 1); got != 12 {
		t.Errorf("GetInt = %d", got)
	}
	if got := GetInt("TEST_BAD_INT", 1); got != 1 {
		t.Errorf("GetInt with bad value = %d, want default", got)
	}
	if got := GetBool("TEST_BOOL", false); !got {
		t.Errorf("GetBool = false")
	}
	if got := GetDuration("TEST_DURATION", time.Second); got != 45*time.Second {
		t.Errorf("GetDuration = %v", got)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, GetList("TEST_LIST", nil)); diff != "" {
		t.Errorf("GetList mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DITHER_ALGORITHM", "DITHER_PALETTE", "DITHER_BAYER_ORDER", "MAX_UPLOAD_MB", "CORS_ALLOWED_ORIGINS", "CORS_ALLOW_CREDENTIALS", "MAX_PIXELS"} {
		t.Setenv(key+"_FILE", "")
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8000" || cfg.DefaultAlgorithm != "FloydSteinberg" || cfg.DefaultPalette != "default" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.BayerOrder != 8 {
		t.Errorf("BayerOrder = %d, want 8", cfg.BayerOrder)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxPixels != 16_000_000 {
		t.Errorf("MaxPixels = %d", cfg.MaxPixels)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if diff := cmp.Diff([]string{"*"}, cfg.CORSAllowedOrigins); diff != "" {
		t.Errorf("CORSAllowedOrigins mismatch (-want +got):\n%s", diff)
	}
	if cfg.CORSCredentials {
		t.Errorf("CORSCredentials should default to false")
	}
}
