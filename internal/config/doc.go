// Package config loads and validates the YAML configuration shared by the
// streamer and uploader binaries.
package config
