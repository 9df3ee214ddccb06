package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CATALOG_PATH", "SCREENSHOT_DIR", "THUMBNAIL_DIR", "TEMPLATE_PATH", "OUTPUT_PATH",
		"VIEWPORT_WIDTH", "VIEWPORT_HEIGHT", "THUMBNAIL_WIDTH", "THUMBNAIL_HEIGHT",
		"MAX_CONCURRENCY", "CAPTURE_INTERVAL", "POSTGRES_HOST", "S3_BUCKET",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"CatalogPath", cfg.CatalogPath, "data/data.csv"},
		{"ScreenshotDir", cfg.ScreenshotDir, "processing/screenshots"},
		{"ThumbnailDir", cfg.ThumbnailDir, "processing/screenshot_thumbnails"},
		{"TemplatePath", cfg.TemplatePath, "templates/index.htm"},
		{"OutputPath", cfg.OutputPath, "index.html"},
		{"ViewportWidth", cfg.ViewportWidth, 1200},
		{"ViewportHeight", cfg.ViewportHeight, 800},
		{"ThumbnailWidth", cfg.ThumbnailWidth, 600},
		{"ThumbnailHeight", cfg.ThumbnailHeight, 400},
		{"MaxConcurrency", cfg.MaxConcurrency, 1},
		{"CaptureInterval", cfg.CaptureInterval, time.Duration(0)},
		{"PostgresEnabled", cfg.PostgresEnabled(), false},
		{"S3Enabled", cfg.S3Enabled(), false},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_CONCURRENCY", "4")
	t.Setenv("NAVIGATION_TIMEOUT", "15s")
	t.Setenv("CAPTURE_INTERVAL", "250ms")
	t.Setenv("ABORT_ON_CAPTURE_ERROR", "true")
	t.Setenv("POSTGRES_HOST", "db")

	cfg := Load()
	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency: got %d, want 4", cfg.MaxConcurrency)
	}
	if cfg.NavigationTimeout != 15*time.Second {
		t.Errorf("NavigationTimeout: got %v, want 15s", cfg.NavigationTimeout)
	}
	if cfg.CaptureInterval != 250*time.Millisecond {
		t.Errorf("CaptureInterval: got %v, want 250ms", cfg.CaptureInterval)
	}
	if !cfg.AbortOnCaptureError {
		t.Error("AbortOnCaptureError should be true")
	}
	if !cfg.PostgresEnabled() {
		t.Error("PostgresEnabled should be true when POSTGRES_HOST is set")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("THUMBNAIL_WIDTH", "wide")
	t.Setenv("ABORT_ON_CAPTURE_ERROR", "maybe")

	cfg := Load()
	if cfg.ThumbnailWidth != 600 {
		t.Errorf("ThumbnailWidth: got %d, want fallback 600", cfg.ThumbnailWidth)
	}
	if cfg.AbortOnCaptureError {
		t.Error("AbortOnCaptureError should fall back to false")
	}
}
