// Package config loads server and CLI settings from defaults, an optional
// YAML file and MOODMAP_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	imagepkg "github.com/youruser/moodmap/internal/image"
)

type Config struct {
	Server  ServerConfig
	Upload  UploadConfig
	Export  ExportConfig
	Board   BoardConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Addr string
	Mode string // gin mode: debug, release, test
}

type UploadConfig struct {
	MaxBytes int64
}

type ExportConfig struct {
	Quality       int
	Workers       int
	FetchTimeout  time.Duration
	DecodeTimeout time.Duration
	FooterQR      string
}

type BoardConfig struct {
	TTL time.Duration
}

type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text, json
	File       string // empty logs to stderr
	MaxSize    int    // MB
	MaxBackups int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("upload.max_bytes", 20<<20)
	v.SetDefault("export.quality", imagepkg.DefaultQuality)
	v.SetDefault("export.workers", imagepkg.DefaultWorkers)
	v.SetDefault("export.fetch_timeout", "12s")
	v.SetDefault("export.decode_timeout", "0s")
	v.SetDefault("export.footer_qr", "")
	v.SetDefault("board.ttl", "2h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)
}

// Load reads path when non-empty, then applies environment overrides such
// as MOODMAP_SERVER_ADDR. PORT, if set, wins over server.addr.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("moodmap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
			Mode: v.GetString("server.mode"),
		},
		Upload: UploadConfig{MaxBytes: v.GetInt64("upload.max_bytes")},
		Export: ExportConfig{
			Quality:       v.GetInt("export.quality"),
			Workers:       v.GetInt("export.workers"),
			FetchTimeout:  v.GetDuration("export.fetch_timeout"),
			DecodeTimeout: v.GetDuration("export.decode_timeout"),
			FooterQR:      v.GetString("export.footer_qr"),
		},
		Board: BoardConfig{TTL: v.GetDuration("board.ttl")},
		Logging: LoggingConfig{
			Level:      v.GetString("logging.level"),
			Format:     v.GetString("logging.format"),
			File:       v.GetString("logging.file"),
			MaxSize:    v.GetInt("logging.max_size"),
			MaxBackups: v.GetInt("logging.max_backups"),
		},
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		return fmt.Errorf("export.quality must be 1-100, got %d", c.Export.Quality)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be positive, got %d", c.Export.Workers)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Compositor builds a compositor configured from c.Export.
func (c *Config) Compositor() *imagepkg.Compositor {
	comp := imagepkg.New(nil)
	comp.Quality = c.Export.Quality
	comp.Workers = c.Export.Workers
	comp.DecodeTimeout = c.Export.DecodeTimeout
	comp.FooterQR = c.Export.FooterQR
	return comp
}
