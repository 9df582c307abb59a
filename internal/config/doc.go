// Package config loads the classification rules and reply templates from a
// YAML file.
//
// Configuration is read once at process start and validated eagerly: an
// unreadable file, an invalid subject pattern or a dangling template
// reference is a fatal startup error, never a per-message error. The loaded
// Config is immutable for the duration of the run.
package config
