package issue_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/scrum-mcp/scrum-mcp/internal/instrumentation"
	"github.com/scrum-mcp/scrum-mcp/internal/jira"
	"github.com/scrum-mcp/scrum-mcp/internal/scrum"
	"github.com/scrum-mcp/scrum-mcp/internal/server"
	"github.com/scrum-mcp/scrum-mcp/internal/tools/common"
)

// commentRecord is a single issue comment in the detail record.
type commentRecord struct {
	Author  string `json:"author"`
	Body    string `json:"body"`
	Created string `json:"created"`
}

// historyItemRecord is one field change within a changelog entry.
type historyItemRecord struct {
	Field     string `json:"field"`
	FromValue string `json:"from_value"`
	ToValue   string `json:"to_value"`
}

// historyRecord is one changelog entry with its field changes.
type historyRecord struct {
	Author  string              `json:"author"`
	Created string              `json:"created"`
	Items   []historyItemRecord `json:"items"`
}

// issueDetail is the record returned by jira_get_issue_details.
// StoryPoints and Sprint are null when the custom fields are absent.
type issueDetail struct {
	Key         string          `json:"key"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Assignee    string          `json:"assignee"`
	Reporter    string          `json:"reporter"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	Priority    string          `json:"priority"`
	IssueType   string          `json:"issue_type"`
	StoryPoints any             `json:"story_points"`
	Sprint      any             `json:"sprint"`
	Components  []string        `json:"components"`
	Labels      []string        `json:"labels"`
	Comments    []commentRecord `json:"comments"`
	History     []historyRecord `json:"history"`
}

// RegisterIssueTools registers all issue-related tools with the MCP server.
func RegisterIssueTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getIssueDetailsTool := mcp.NewTool("jira_get_issue_details",
		mcp.WithDescription("Get detailed information about a Jira issue, including comments and change history"),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("The Jira issue key (e.g., 'PROJ-123')"),
		),
	)
	s.AddTool(getIssueDetailsTool, common.InstrumentedToolHandlerWithOperation(
		"jira_get_issue_details", instrumentation.OperationGet, sc, GetIssueDetailsHandler(sc)))

	createIssueTool := mcp.NewTool("jira_create_issue",
		mcp.WithDescription("Create a new Jira issue"),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("The project key (e.g., 'PROJ')"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Issue summary"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Issue description"),
		),
		mcp.WithString("issue_type",
			mcp.Required(),
			mcp.Description("Issue type (e.g., 'Story', 'Bug', 'Task')"),
		),
		mcp.WithString("assignee",
			mcp.Description("Username to assign the issue to (optional)"),
		),
		mcp.WithString("priority",
			mcp.Description("Issue priority (optional)"),
		),
		mcp.WithArray("labels",
			mcp.Description("Labels to apply to the issue (optional)"),
		),
		mcp.WithNumber("story_points",
			mcp.Description("Story point estimate (optional)"),
		),
	)
	s.AddTool(createIssueTool, common.InstrumentedToolHandlerWithOperation(
		"jira_create_issue", instrumentation.OperationCreate, sc, CreateIssueHandler(sc)))

	updateIssueStatusTool := mcp.NewTool("jira_update_issue_status",
		mcp.WithDescription("Move a Jira issue through its workflow by transition name"),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("The Jira issue key (e.g., 'PROJ-123')"),
		),
		mcp.WithString("transition_to",
			mcp.Required(),
			mcp.Description("Name of the workflow transition (e.g., 'In Progress', 'Done')"),
		),
	)
	s.AddTool(updateIssueStatusTool, common.InstrumentedToolHandlerWithOperation(
		"jira_update_issue_status", instrumentation.OperationTransition, sc, UpdateIssueStatusHandler(sc)))

	assignIssueTool := mcp.NewTool("jira_assign_issue",
		mcp.WithDescription("Assign a Jira issue to a user"),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("The Jira issue key (e.g., 'PROJ-123')"),
		),
		mcp.WithString("assignee",
			mcp.Required(),
			mcp.Description("Username to assign the issue to"),
		),
	)
	s.AddTool(assignIssueTool, common.InstrumentedToolHandlerWithOperation(
		"jira_assign_issue", instrumentation.OperationAssign, sc, AssignIssueHandler(sc)))

	getProjectBacklogTool := mcp.NewTool("jira_get_project_backlog",
		mcp.WithDescription("List the backlog of a project: issues not assigned to any sprint, in rank order"),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("The project key (e.g., 'PROJ')"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of issues to return (default: 50)"),
		),
	)
	s.AddTool(getProjectBacklogTool, common.InstrumentedToolHandlerWithOperation(
		"jira_get_project_backlog", instrumentation.OperationSearch, sc, GetProjectBacklogHandler(sc)))

	return nil
}

// GetIssueDetailsHandler returns the handler for jira_get_issue_details.
// The issue is fetched twice: once for the plain record with comments,
// once expanded for the changelog.
func GetIssueDetailsHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		issueKey, ok := args["issue_key"].(string)
		if !ok || issueKey == "" {
			return common.ErrorResult("issue_key is required"), nil
		}

		client := sc.JiraClient()

		issue, err := client.Issue(ctx, issueKey, "")
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		expanded, err := client.Issue(ctx, issueKey, "changelog")
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		comments := make([]commentRecord, 0, len(issue.Comments()))
		for _, c := range issue.Comments() {
			comments = append(comments, commentRecord{
				Author:  c.Author.DisplayName,
				Body:    c.Body,
				Created: c.Created,
			})
		}

		history := make([]historyRecord, 0)
		if expanded.Changelog != nil {
			for _, h := range expanded.Changelog.Histories {
				items := make([]historyItemRecord, 0, len(h.Items))
				for _, item := range h.Items {
					items = append(items, historyItemRecord{
						Field:     item.Field,
						FromValue: item.FromString,
						ToValue:   item.ToString,
					})
				}
				history = append(history, historyRecord{
					Author:  h.Author.DisplayName,
					Created: h.Created,
					Items:   items,
				})
			}
		}

		detail := issueDetail{
			Key:         issue.Key,
			Summary:     issue.Fields.Summary,
			Description: issue.Fields.Description,
			Status:      issue.StatusName(),
			Assignee:    issue.AssigneeName(),
			Reporter:    issue.ReporterName(),
			Created:     issue.Fields.Created,
			Updated:     issue.Fields.Updated,
			Priority:    issue.PriorityName(),
			IssueType:   issue.TypeName(),
			Sprint:      issue.Fields.SprintValue(sc.SprintField()),
			Components:  issue.ComponentNames(),
			Labels:      issue.Fields.Labels,
			Comments:    comments,
			History:     history,
		}
		if points, ok := issue.Fields.StoryPoints(sc.StoryPointsField()); ok {
			detail.StoryPoints = points
		}
		if detail.Labels == nil {
			detail.Labels = []string{}
		}

		return common.JSONResult(detail)
	}
}

// CreateIssueHandler returns the handler for jira_create_issue.
// Optional fields enter the backend payload only when the caller
// supplied them.
func CreateIssueHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectKey, ok := args["project_key"].(string)
		if !ok || projectKey == "" {
			return common.ErrorResult("project_key is required"), nil
		}
		summary, ok := args["summary"].(string)
		if !ok || summary == "" {
			return common.ErrorResult("summary is required"), nil
		}
		description, ok := args["description"].(string)
		if !ok || description == "" {
			return common.ErrorResult("description is required"), nil
		}
		issueType, ok := args["issue_type"].(string)
		if !ok || issueType == "" {
			return common.ErrorResult("issue_type is required"), nil
		}

		fields := map[string]any{
			"project":     map[string]string{"key": projectKey},
			"issuetype":   map[string]string{"name": issueType},
			"summary":     summary,
			"description": description,
		}
		if assignee, ok := args["assignee"].(string); ok && assignee != "" {
			fields["assignee"] = map[string]string{"name": assignee}
		}
		if priority, ok := args["priority"].(string); ok && priority != "" {
			fields["priority"] = map[string]string{"name": priority}
		}
		if rawLabels, ok := args["labels"].([]any); ok {
			labels := make([]string, 0, len(rawLabels))
			for _, l := range rawLabels {
				if label, ok := l.(string); ok {
					labels = append(labels, label)
				}
			}
			fields["labels"] = labels
		}
		if points, ok := args["story_points"].(float64); ok {
			fields[sc.StoryPointsField()] = points
		}

		created, err := sc.JiraClient().CreateIssue(ctx, fields)
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		return common.JSONResult(map[string]any{
			"key":     created.Key,
			"self":    created.Self,
			"summary": summary,
			"message": fmt.Sprintf("Successfully created issue %s", created.Key),
		})
	}
}

// UpdateIssueStatusHandler returns the handler for
// jira_update_issue_status. Transition names match case-insensitively.
// Naming a transition the issue does not currently allow is reported
// as success=false with the available transitions, not as an error.
func UpdateIssueStatusHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		issueKey, ok := args["issue_key"].(string)
		if !ok || issueKey == "" {
			return common.ErrorResult("issue_key is required"), nil
		}
		transitionTo, ok := args["transition_to"].(string)
		if !ok || transitionTo == "" {
			return common.ErrorResult("transition_to is required"), nil
		}

		client := sc.JiraClient()

		transitions, err := client.Transitions(ctx, issueKey)
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		var match *jira.Transition
		for i := range transitions {
			if strings.EqualFold(transitions[i].Name, transitionTo) {
				match = &transitions[i]
				break
			}
		}
		if match == nil {
			names := make([]string, 0, len(transitions))
			for _, t := range transitions {
				names = append(names, t.Name)
			}
			return common.JSONResult(map[string]any{
				"success": false,
				"message": fmt.Sprintf("Cannot transition to '%s'. Available transitions: %s",
					transitionTo, strings.Join(names, ", ")),
			})
		}

		if err := client.DoTransition(ctx, issueKey, match.ID); err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		return common.JSONResult(map[string]any{
			"success":    true,
			"key":        issueKey,
			"new_status": transitionTo,
			"message":    fmt.Sprintf("Successfully updated %s status to %s", issueKey, transitionTo),
		})
	}
}

// AssignIssueHandler returns the handler for jira_assign_issue.
func AssignIssueHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		issueKey, ok := args["issue_key"].(string)
		if !ok || issueKey == "" {
			return common.ErrorResult("issue_key is required"), nil
		}
		assignee, ok := args["assignee"].(string)
		if !ok || assignee == "" {
			return common.ErrorResult("assignee is required"), nil
		}

		if err := sc.JiraClient().AssignIssue(ctx, issueKey, assignee); err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		return common.JSONResult(map[string]any{
			"success":  true,
			"key":      issueKey,
			"assignee": assignee,
			"message":  fmt.Sprintf("Successfully assigned %s to %s", issueKey, assignee),
		})
	}
}

// GetProjectBacklogHandler returns the handler for
// jira_get_project_backlog. The backlog is every issue in the project
// with no sprint assignment, in rank order.
func GetProjectBacklogHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectKey, ok := args["project_key"].(string)
		if !ok || projectKey == "" {
			return common.ErrorResult("project_key is required"), nil
		}

		maxResults := 50
		if maxVal, ok := args["max_results"].(float64); ok && maxVal > 0 {
			maxResults = int(maxVal)
		}

		jql := fmt.Sprintf("project = %s AND sprint is EMPTY ORDER BY Rank ASC", projectKey)
		results, err := sc.JiraClient().SearchIssues(ctx, jql, jira.SearchOptions{MaxResults: maxResults})
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		items := make([]scrum.BacklogItem, 0, len(results.Issues))
		for i := range results.Issues {
			items = append(items, scrum.SummarizeBacklog(&results.Issues[i], sc.StoryPointsField()))
		}

		return common.JSONResult(map[string]any{
			"project":       projectKey,
			"backlog_count": len(items),
			"backlog_items": items,
		})
	}
}
