// Package sprint_tools provides MCP tools for sprint-level scrum
// operations against a Jira backend.
//
// # Available Tools
//
//   - jira_get_sprint_details: List sprints on a board with per-sprint
//     issues and completion metrics
//   - jira_create_sprint: Create a sprint with normalized start/end dates
//   - jira_add_issue_to_sprint: Move an issue into a sprint
//   - jira_generate_sprint_report: Build a completion report for a sprint
//
// Every tool returns a JSON record as tool text. Backend failures are
// caught at the handler boundary and returned as {"error": "<message>"}
// so callers always receive a parseable record.
package sprint_tools
