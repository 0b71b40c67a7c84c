// Package config loads sitescout settings from the environment (with an
// optional .env file) and an optional YAML overlay, and validates them.
// The same Config drives both the CLI and the HTTP server.
package config
