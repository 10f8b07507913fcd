// Package config loads, normalises and validates the application
// configuration. Values come from a YAML file and can be overridden by
// PROMPTTICK_-prefixed environment variables; adapter sections are typed so
// each backend validates its settings once at construction.
package config
