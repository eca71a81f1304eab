// Package jira provides a typed client for the Jira REST and Agile
// APIs.
//
// This package wraps the endpoints the scrum tools need:
//   - Sprint inspection and creation (Agile API)
//   - JQL issue search
//   - Issue fetch with comments and change history
//   - Issue creation, assignment, and workflow transitions
//   - The backend-native sprint report
//
// # Authentication
//
// Requests are authenticated with HTTP basic auth (username + API
// token) supplied at client construction. A single Client is created
// at process start and shared by all tool handlers.
//
// # Optional fields
//
// Jira records omit fields freely (unassigned issues, empty sprint
// goals, instance-specific custom fields). Accessors on Issue and
// IssueFields resolve these with documented defaults so handler logic
// never deals with missing-field ambiguity: AssigneeName returns
// "Unassigned", StoryPoints reports presence explicitly, and custom
// field ids are passed in from configuration rather than hardcoded.
//
// # Example Usage
//
//	client, err := jira.NewClient(cfg.URL, cfg.Username, cfg.APIToken)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sprints, err := client.Sprints(ctx, 42, "active")
//	if err != nil {
//	    log.Fatal(err)
//	}
package jira
