// Package logging provides slog attribute helpers and key constants
// shared across the server, so log fields stay consistently named
// between tool handlers, the instrumentation layer, and startup code.
package logging
