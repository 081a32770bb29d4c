// Package config loads the server settings from defaults, an optional
// config.yaml, a .env file and PILLBOX_* environment variables, validates
// them, and can watch the config file for live changes.
package config
