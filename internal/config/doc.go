// Package config loads flume configuration from JSON or YAML files with
// FLUME_* environment overlays, and resolves the OS-specific default data
// directory.
package config
