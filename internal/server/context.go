package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/scrum-mcp/scrum-mcp/internal/config"
	"github.com/scrum-mcp/scrum-mcp/internal/instrumentation"
	"github.com/scrum-mcp/scrum-mcp/internal/jira"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx              context.Context
	cancel           context.CancelFunc
	jiraClient       *jira.Client
	storyPointsField string
	sprintField      string
	metrics          *instrumentation.Metrics
	auditLogger      *instrumentation.AuditLogger
	mu               sync.RWMutex
	shutdown         bool
}

// NewServerContext creates a new server context wired to a single Jira
// backend. The client is shared by all tool handlers for the lifetime
// of the server.
func NewServerContext(ctx context.Context, client *jira.Client, cfg config.Config) (*ServerContext, error) {
	if client == nil {
		return nil, fmt.Errorf("jira client is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:              shutdownCtx,
		cancel:           cancel,
		jiraClient:       client,
		storyPointsField: cfg.StoryPointsField,
		sprintField:      cfg.SprintField,
		shutdown:         false,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// JiraClient returns the shared Jira API client.
func (sc *ServerContext) JiraClient() *jira.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.jiraClient
}

// SetJiraClient replaces the Jira API client. Used by tests to point
// handlers at a fake backend.
func (sc *ServerContext) SetJiraClient(client *jira.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.jiraClient = client
}

// StoryPointsField returns the custom field id that carries story
// point estimates.
func (sc *ServerContext) StoryPointsField() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.storyPointsField
}

// SprintField returns the custom field id that carries sprint
// membership on an issue.
func (sc *ServerContext) SprintField() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.sprintField
}

// Metrics returns the metrics recorder, or nil when instrumentation
// is not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is
// not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger used by tool handlers.
func (sc *ServerContext) SetAuditLogger(logger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
