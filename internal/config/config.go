package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int     `envconfig:"PORT" default:"8080"`
	DatabaseURL    string  `envconfig:"DATABASE_URL"`
	CanvasSize     float64 `envconfig:"CANVAS_SIZE" default:"512"`
	Background     string  `envconfig:"BACKGROUND" default:"#ffffff"`
	FontCatalog    string  `envconfig:"FONT_CATALOG"`
	ThumbnailSize  int     `envconfig:"THUMBNAIL_SIZE" default:"128"`
	ExportDir      string  `envconfig:"EXPORT_DIR"`
	SeedSamples    bool    `envconfig:"SEED_SAMPLES" default:"true"`
	AllowedOrigins string  `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CanvasSize <= 0 {
		return nil, fmt.Errorf("CANVAS_SIZE must be positive, got %v", cfg.CanvasSize)
	}
	if cfg.ThumbnailSize <= 0 {
		return nil, fmt.Errorf("THUMBNAIL_SIZE must be positive, got %d", cfg.ThumbnailSize)
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginPatterns strips the scheme from each origin, the form the websocket
// accept check matches against.
func (c *Config) OriginPatterns() []string {
	origins := c.Origins()
	out := make([]string, len(origins))
	for i, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out[i] = o
	}
	return out
}

func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
