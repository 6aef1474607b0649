// Package config loads, normalizes, and validates shutter configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHUTTER_EXIFTOOL. The Config type centralizes every knob the scanner,
// duplicate resolver, and placement pipeline need; components receive their
// settings from it through constructors rather than package state.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, lowercase extensions, and clear validation errors.
package config
