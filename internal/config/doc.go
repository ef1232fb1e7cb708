// Package config loads and validates application configuration in
// three layers: built-in defaults, an optional YAML file, then
// environment variables (APPGATE prefix), which win for every field.
// The resulting Config is constructed once at startup and
// passed by reference; nothing in the request path reads the process
// environment directly.
package config
