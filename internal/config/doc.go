// Package config loads, validates, and exposes the application
// configuration from environment variables and optional config files.
package config
