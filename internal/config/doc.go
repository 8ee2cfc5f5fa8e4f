// Package config loads, normalizes, and validates runbox configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RUNBOX_IMAGE. The Config type centralizes every knob the launcher and CLI
// need, so the working directory layout, watcher timing, and container
// runtime settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
