// Package config loads, validates, and normalizes beacon configuration from
// TOML files, providing defaults suitable for local operation.
package config
