// Package config loads, normalizes, and validates flightstrip configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// FLIGHTSTRIP_ROOT (a .env file in the working directory is read first). The
// Config type centralizes every knob the inference pipeline, naming cache, and
// CLI need, so the processing root, cache backend, and inference limits are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
