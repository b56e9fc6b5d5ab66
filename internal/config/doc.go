// Package config loads, normalizes, and validates bpmsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VLC_PASSWORD. The Config type centralizes every knob the daemon and CLI
// need: the watched directory, the filename to template mapping, the player
// endpoint, sync loop timing, and log routing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, compiled-and-checked templates, and clear validation
// errors.
package config
