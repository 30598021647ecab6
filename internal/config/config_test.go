package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Export.Quality != 92 || cfg.Export.Workers != 4 {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Export.FetchTimeout != 12*time.Second || cfg.Board.TTL != 2*time.Hour {
		t.Errorf("durations = %v, %v", cfg.Export.FetchTimeout, cfg.Board.TTL)
	}
	if cfg.Upload.MaxBytes != 20<<20 {
		t.Errorf("max bytes = %d", cfg.Upload.MaxBytes)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodmap.yaml")
	data := []byte("export:\n  quality: 80\n  footer_qr: https://example.com\nlogging:\n  format: json\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOODMAP_EXPORT_WORKERS", "2")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export.Quality != 80 || cfg.Export.FooterQR != "https://example.com" {
		t.Errorf("file values not applied: %+v", cfg.Export)
	}
	if cfg.Export.Workers != 2 {
		t.Errorf("env override not applied: workers = %d", cfg.Export.Workers)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("PORT not applied: %q", cfg.Server.Addr)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q", cfg.Logging.Format)
	}

	comp := cfg.Compositor()
	if comp.Quality != 80 || comp.Workers != 2 || comp.FooterQR != "https://example.com" {
		t.Errorf("compositor = %+v", comp)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Upload:  UploadConfig{MaxBytes: 1},
			Export:  ExportConfig{Quality: 92, Workers: 1},
			Logging: LoggingConfig{Format: "text"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"quality zero", func(c *Config) { c.Export.Quality = 0 }, true},
		{"quality high", func(c *Config) { c.Export.Quality = 101 }, true},
		{"no workers", func(c *Config) { c.Export.Workers = 0 }, true},
		{"no upload size", func(c *Config) { c.Upload.MaxBytes = 0 }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
