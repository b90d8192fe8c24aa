// Package config loads carrel's settings.
//
// # Resolution
//
// Load applies, in order:
//
//  1. Built-in defaults
//  2. ~/.config/carrel/config.toml, or the explicit path given
//  3. A .env file in the working directory, if present
//  4. CARREL_* environment variables
//
// A missing config file is not an error. Empty or non-positive values fall
// back to defaults.
//
// # TOML Format
//
//	server = "192.168.0.104:5000"
//	poll_seconds = 3
//	timeout_seconds = 10
//	log_level = "info"
//	log_file = "~/.local/share/carrel/carrel.log"
//	default_minutes = 120
//
// The server address may omit the scheme; http is assumed.
package config
