package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gcslaoli/protectimg"
)

//go:embed sample_config.toml
var sampleConfig string

// Watermark mirrors protectimg.WatermarkPattern with a hex colour.
type Watermark struct {
	Text             string  `toml:"text"`
	Opacity          float64 `toml:"opacity"`
	RotationDegrees  float64 `toml:"rotation_degrees"`
	HorizontalPeriod int     `toml:"horizontal_period"`
	VerticalPeriod   int     `toml:"vertical_period"`
	FontSize         float64 `toml:"font_size"`
	Color            string  `toml:"color"`
}

// Loader contains HTTP fetch settings.
type Loader struct {
	Origin         string `toml:"origin"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBytes       int64  `toml:"max_bytes"`
	MaxPixels      int64  `toml:"max_pixels"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for protectimg.
type Config struct {
	Watermark Watermark `toml:"watermark"`
	Loader    Loader    `toml:"loader"`
	Logging   Logging   `toml:"logging"`
}

// SampleConfig returns the annotated sample configuration file.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/protectimg/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the resolved path, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Encode renders the config as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

// Pattern converts the watermark section into a render pattern.
func (c *Config) Pattern() (protectimg.WatermarkPattern, error) {
	col, err := parseHexColor(c.Watermark.Color)
	if err != nil {
		return protectimg.WatermarkPattern{}, fmt.Errorf("watermark.color: %w", err)
	}
	return protectimg.WatermarkPattern{
		Text:             c.Watermark.Text,
		Opacity:          c.Watermark.Opacity,
		RotationDegrees:  c.Watermark.RotationDegrees,
		HorizontalPeriod: c.Watermark.HorizontalPeriod,
		VerticalPeriod:   c.Watermark.VerticalPeriod,
		FontSize:         c.Watermark.FontSize,
		Color:            col,
	}, nil
}

// LoaderOptions converts the loader section into HTTPLoader options.
func (c *Config) LoaderOptions() []protectimg.LoaderOption {
	return []protectimg.LoaderOption{
		protectimg.WithHTTPClient(&http.Client{Timeout: time.Duration(c.Loader.TimeoutSeconds) * time.Second}),
		protectimg.WithOrigin(c.Loader.Origin),
		protectimg.WithUserAgent(c.Loader.UserAgent),
		protectimg.WithMaxBytes(c.Loader.MaxBytes),
		protectimg.WithMaxPixels(c.Loader.MaxPixels),
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("protectimg.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
