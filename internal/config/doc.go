// Package config loads, normalizes, and validates slyce configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and canonicalizes the enum-like sampling
// settings. The Config type centralizes every knob the CLI and the processor
// need, from the default cross-section layout to encoder tuning and the
// external ffmpeg/ffprobe binaries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum spellings, and clear validation errors.
package config
