package config

import (
	"os"
	"strings"
)

// Environment overrides applied after the file is read.
const (
	envWatermarkText = "PROTECTIMG_WATERMARK_TEXT"
	envOrigin        = "PROTECTIMG_ORIGIN"
)

func (c *Config) normalize() {
	if v := strings.TrimSpace(os.Getenv(envWatermarkText)); v != "" {
		c.Watermark.Text = v
	}
	if v := strings.TrimSpace(os.Getenv(envOrigin)); v != "" {
		c.Loader.Origin = v
	}

	c.Watermark.Color = strings.ToLower(strings.TrimSpace(c.Watermark.Color))
	if c.Watermark.Color == "" {
		c.Watermark.Color = defaultColor
	}

	c.Loader.Origin = strings.TrimRight(strings.TrimSpace(c.Loader.Origin), "/")
	c.Loader.UserAgent = strings.TrimSpace(c.Loader.UserAgent)
	if c.Loader.UserAgent == "" {
		c.Loader.UserAgent = defaultUserAgent
	}
	if c.Loader.MaxBytes == 0 {
		c.Loader.MaxBytes = defaultMaxBytes
	}
	if c.Loader.MaxPixels == 0 {
		c.Loader.MaxPixels = defaultMaxPixels
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
