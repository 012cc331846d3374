// Package config loads, normalizes, and validates protectimg configuration.
//
// It supplies defaults, expands tilde paths, reads TOML files, and honours a
// small set of environment overrides. Conversion helpers turn the validated
// values into the watermark pattern and loader options the library consumes.
package config
