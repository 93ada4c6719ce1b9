// Package config loads, normalizes, and validates capgate configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CAPGATE_ORT_LIB_PATH. The Config type centralizes the gate, VAD, normalizer
// and output knobs so the CLI and pipeline read them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical tier names, and clear validation errors.
package config
