// Package config loads, normalizes, and validates SAM configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SAM_WORKDIR and SAM_ALLOWED_IDS. The Config type centralizes every knob
// the daemon and CLI need: where sessions live, who may talk to the bot,
// how hard images are compressed, and where the chat bridge listens.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical allow-list addresses, and clear validation errors.
package config
