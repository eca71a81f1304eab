package logging

import (
	"fmt"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyTool      = "tool"
	KeyBoard     = "board_id"
	KeySprint    = "sprint_id"
	KeyIssue     = "issue_key"
	KeyProject   = "project"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from the instrumentation
// package to avoid circular dependencies (instrumentation imports
// logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Board returns a slog attribute for a board id.
func Board(boardID int) slog.Attr {
	return slog.Int(KeyBoard, boardID)
}

// SprintID returns a slog attribute for a sprint id.
func SprintID(sprintID int) slog.Attr {
	return slog.Int(KeySprint, sprintID)
}

// Issue returns a slog attribute for an issue key.
func Issue(issueKey string) slog.Attr {
	return slog.String(KeyIssue, issueKey)
}

// Project returns a slog attribute for a project key.
func Project(projectKey string) slog.Attr {
	return slog.String(KeyProject, projectKey)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted
// from output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
