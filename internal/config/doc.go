// Package config loads, normalizes, and validates blurry configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the export
// layout policy, detector and codec settings, and the execution mode so the
// CLI and the redaction runner discover them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
