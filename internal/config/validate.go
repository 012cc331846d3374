package config

import (
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatermark(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWatermark() error {
	pattern, err := c.Pattern()
	if err != nil {
		return err
	}
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("watermark: %w", err)
	}
	return nil
}

func (c *Config) validateLoader() error {
	u, err := url.Parse(c.Loader.Origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("loader.origin must be an absolute origin such as https://example.com, got %q", c.Loader.Origin)
	}
	if c.Loader.TimeoutSeconds < 0 {
		return errors.New("loader.timeout_seconds must be zero or positive")
	}
	if c.Loader.MaxBytes < 0 {
		return errors.New("loader.max_bytes must be positive")
	}
	if c.Loader.MaxPixels < 0 {
		return errors.New("loader.max_pixels must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// parseHexColor accepts #rrggbb or #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
