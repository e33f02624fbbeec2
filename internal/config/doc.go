// Package config loads and validates the cinelog TOML configuration.
package config
