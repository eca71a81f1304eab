// Package issue_tools provides MCP tools for working with individual
// Jira issues and project backlogs:
//
//   - jira_get_issue_details: full issue record including comments and
//     change history
//   - jira_create_issue: create an issue with optional assignee,
//     priority, labels, and story points
//   - jira_update_issue_status: move an issue through its workflow by
//     transition name
//   - jira_assign_issue: assign an issue to a user
//   - jira_get_project_backlog: list issues not assigned to any sprint
//
// Failed calls return a JSON record with a single "error" key and the
// result flagged as an error. Transition requests naming an
// unavailable transition are not errors; they return a success=false
// record listing the transitions the issue currently allows.
package issue_tools
