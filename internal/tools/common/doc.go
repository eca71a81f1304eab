// Package common provides shared utilities for MCP tool implementations.
// It contains the instrumentation wrapper and the uniform result helpers
// used across all tool packages to avoid code duplication and ensure
// consistent behavior.
package common
