package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes a YAML file into a temp directory
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvMetricsAddr, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvMetricsAddr, "")

	path := writeConfig(t, `
log_level: debug
history_limit: 20
upload_budget: 2ms
max_concurrent_loads: 8
ocr_language: deu
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HistoryLimit != 20 {
		t.Errorf("HistoryLimit: got %d, want 20", cfg.HistoryLimit)
	}
	if cfg.UploadBudget != 2*time.Millisecond {
		t.Errorf("UploadBudget: got %v, want 2ms", cfg.UploadBudget)
	}
	if cfg.MaxConcurrentLoads != 8 {
		t.Errorf("MaxConcurrentLoads: got %d, want 8", cfg.MaxConcurrentLoads)
	}
	if cfg.OCRLanguage != "deu" {
		t.Errorf("OCRLanguage: got %q, want deu", cfg.OCRLanguage)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v, want debug", cfg.Level())
	}
	// untouched fields keep their defaults
	if cfg.TickInterval != Default().TickInterval {
		t.Errorf("TickInterval: got %v, want default", cfg.TickInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvMetricsAddr, ":9101")

	path := writeConfig(t, "log_level: debug\nmetrics_addr: \":9000\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel: got %q, want error", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9101" {
		t.Errorf("MetricsAddr: got %q, want :9101", cfg.MetricsAddr)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvMetricsAddr, "")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := Load(writeConfig(t, "history_limit: [1, 2\n")); err == nil {
		t.Error("malformed YAML should fail")
	}

	tests := []struct {
		name string
		body string
	}{
		{"bad level", "log_level: loud\n"},
		{"zero budget", "upload_budget: 0s\n"},
		{"negative chunk", "upload_chunk_size: -1\n"},
		{"zero loads", "max_concurrent_loads: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
