package config

import "github.com/gcslaoli/protectimg"

const (
	defaultColor          = "#ffffff"
	defaultOrigin         = "http://localhost"
	defaultUserAgent      = "protectimg/0.1.0"
	defaultTimeoutSeconds = 60
	defaultMaxBytes       = 32 << 20
	defaultMaxPixels      = 64 << 20
	defaultLogFormat      = "auto"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Watermark: Watermark{
			Text:             protectimg.DefaultWatermarkText,
			Opacity:          protectimg.DefaultWatermarkOpacity,
			RotationDegrees:  protectimg.DefaultRotationDegrees,
			HorizontalPeriod: protectimg.DefaultHorizontalPeriod,
			VerticalPeriod:   protectimg.DefaultVerticalPeriod,
			FontSize:         protectimg.DefaultWatermarkFontSize,
			Color:            defaultColor,
		},
		Loader: Loader{
			Origin:         defaultOrigin,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxBytes:       defaultMaxBytes,
			MaxPixels:      defaultMaxPixels,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
