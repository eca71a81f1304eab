// Package server provides the MCP server context, health checks, and
// the dedicated metrics server for the scrum-mcp application.
//
// # Key Components
//
// ServerContext carries the shared Jira API client, the custom field
// configuration (story points and sprint membership), and the
// observability hooks (metrics recorder, audit logger) that tool
// handlers use. All handlers share a single client for the lifetime of
// the server; credentials are fixed at startup from the environment.
//
// HealthChecker exposes Kubernetes-style probes:
//   - /healthz: liveness (process is running)
//   - /readyz: readiness (accepting traffic, not shutting down)
//   - /healthz/detailed: uptime, status, and configured custom field ids
//
// MetricsServer serves Prometheus metrics on a dedicated port, keeping
// operational metrics off the main MCP transport.
package server
