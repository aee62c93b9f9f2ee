// Package config loads, normalizes, and validates bracketeer configuration.
//
// It supplies defaults for the detection tolerances, expands user paths
// (including tilde shortcuts), reads TOML files, and honours the
// BRACKETEER_PATTERN environment fallback. Commands obtain every knob through
// this package so the segmenter, scanner, and organizer see sanitized values
// and clear validation errors.
package config
