package sprint_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/scrum-mcp/scrum-mcp/internal/instrumentation"
	"github.com/scrum-mcp/scrum-mcp/internal/jira"
	"github.com/scrum-mcp/scrum-mcp/internal/scrum"
	"github.com/scrum-mcp/scrum-mcp/internal/server"
	"github.com/scrum-mcp/scrum-mcp/internal/tools/batch"
	"github.com/scrum-mcp/scrum-mcp/internal/tools/common"
)

// Sprint-state filter values accepted by jira_get_sprint_details.
var validSprintStates = map[string]bool{
	"active": true,
	"future": true,
	"closed": true,
}

// nullable maps an empty string to JSON null, matching the backend's
// optional timestamp semantics.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// sprintDetail is the per-sprint record returned by
// jira_get_sprint_details.
type sprintDetail struct {
	ID        int                  `json:"id"`
	Name      string               `json:"name"`
	State     string               `json:"state"`
	StartDate any                  `json:"start_date"`
	EndDate   any                  `json:"end_date"`
	Goal      string               `json:"goal"`
	Issues    []scrum.IssueSummary `json:"issues"`
	Metrics   scrum.SprintMetrics  `json:"metrics"`
}

// RegisterSprintTools registers all sprint-related tools with the MCP server.
func RegisterSprintTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getSprintDetailsTool := mcp.NewTool("jira_get_sprint_details",
		mcp.WithDescription("Get details about sprints for a specific board, including per-sprint issues and completion metrics"),
		mcp.WithNumber("board_id",
			mcp.Required(),
			mcp.Description("The ID of the Jira board"),
		),
		mcp.WithString("sprint_state",
			mcp.Description("State of sprints to fetch: active, future, or closed (default: active)"),
		),
	)
	s.AddTool(getSprintDetailsTool, common.InstrumentedToolHandlerWithOperation(
		"jira_get_sprint_details", instrumentation.OperationSearch, sc, GetSprintDetailsHandler(sc)))

	createSprintTool := mcp.NewTool("jira_create_sprint",
		mcp.WithDescription("Create a new sprint on a board"),
		mcp.WithNumber("board_id",
			mcp.Required(),
			mcp.Description("The ID of the Jira board"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the sprint"),
		),
		mcp.WithString("start_date",
			mcp.Required(),
			mcp.Description("Start date in format 'YYYY-MM-DD'"),
		),
		mcp.WithString("end_date",
			mcp.Required(),
			mcp.Description("End date in format 'YYYY-MM-DD'"),
		),
		mcp.WithString("goal",
			mcp.Description("Sprint goal (optional)"),
		),
	)
	s.AddTool(createSprintTool, common.InstrumentedToolHandlerWithOperation(
		"jira_create_sprint", instrumentation.OperationCreate, sc, CreateSprintHandler(sc)))

	addIssueToSprintTool := mcp.NewTool("jira_add_issue_to_sprint",
		mcp.WithDescription("Add one or more Jira issues to a sprint"),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("The Jira issue key (e.g., 'PROJ-123') or an array of issue keys"),
		),
		mcp.WithNumber("sprint_id",
			mcp.Required(),
			mcp.Description("The ID of the sprint"),
		),
	)
	s.AddTool(addIssueToSprintTool, common.InstrumentedToolHandlerWithOperation(
		"jira_add_issue_to_sprint", instrumentation.OperationUpdate, sc, AddIssueToSprintHandler(sc)))

	generateSprintReportTool := mcp.NewTool("jira_generate_sprint_report",
		mcp.WithDescription("Generate a completion report for a sprint"),
		mcp.WithNumber("board_id",
			mcp.Required(),
			mcp.Description("The ID of the Jira board"),
		),
		mcp.WithNumber("sprint_id",
			mcp.Required(),
			mcp.Description("The ID of the sprint"),
		),
	)
	s.AddTool(generateSprintReportTool, common.InstrumentedToolHandlerWithOperation(
		"jira_generate_sprint_report", instrumentation.OperationReport, sc, GenerateSprintReportHandler(sc)))

	return nil
}

// GetSprintDetailsHandler returns the handler for jira_get_sprint_details.
func GetSprintDetailsHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		boardVal, ok := args["board_id"].(float64)
		if !ok || boardVal <= 0 {
			return common.ErrorResult("board_id is required and must be a positive integer"), nil
		}
		boardID := int(boardVal)

		state := "active"
		if stateVal, ok := args["sprint_state"].(string); ok && stateVal != "" {
			state = stateVal
		}
		if !validSprintStates[state] {
			return common.ErrorResultf("invalid sprint_state %q: must be one of active, future, closed", state), nil
		}

		client := sc.JiraClient()

		sprints, err := client.Sprints(ctx, boardID, state)
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		details := make([]sprintDetail, 0, len(sprints))
		for _, sprint := range sprints {
			jql := fmt.Sprintf("sprint = %d ORDER BY status", sprint.ID)
			results, err := client.SearchIssues(ctx, jql, jira.SearchOptions{})
			if err != nil {
				return common.ErrorResult(err.Error()), nil
			}

			issues := make([]scrum.IssueSummary, 0, len(results.Issues))
			for i := range results.Issues {
				issues = append(issues, scrum.Summarize(&results.Issues[i], sc.StoryPointsField()))
			}

			details = append(details, sprintDetail{
				ID:        sprint.ID,
				Name:      sprint.Name,
				State:     sprint.State,
				StartDate: nullable(sprint.StartDate),
				EndDate:   nullable(sprint.EndDate),
				Goal:      sprint.Goal,
				Issues:    issues,
				Metrics:   scrum.ComputeSprintMetrics(issues),
			})
		}

		return common.JSONResult(map[string]any{"sprints": details})
	}
}

// CreateSprintHandler returns the handler for jira_create_sprint.
// Start dates are normalized to midnight UTC and end dates to
// end-of-day UTC: a sprint's last day is inclusive.
func CreateSprintHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		boardVal, ok := args["board_id"].(float64)
		if !ok || boardVal <= 0 {
			return common.ErrorResult("board_id is required and must be a positive integer"), nil
		}
		boardID := int(boardVal)

		name, ok := args["name"].(string)
		if !ok || name == "" {
			return common.ErrorResult("name is required"), nil
		}
		startDate, ok := args["start_date"].(string)
		if !ok || startDate == "" {
			return common.ErrorResult("start_date is required"), nil
		}
		endDate, ok := args["end_date"].(string)
		if !ok || endDate == "" {
			return common.ErrorResult("end_date is required"), nil
		}
		goal, _ := args["goal"].(string)

		sprint, err := sc.JiraClient().CreateSprint(ctx, jira.SprintInput{
			Name:          name,
			StartDate:     startDate + "T00:00:00.000Z",
			EndDate:       endDate + "T23:59:59.000Z",
			OriginBoardID: boardID,
			Goal:          goal,
		})
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		// Fall back to caller-supplied values when the backend does not
		// echo them back.
		state := sprint.State
		if state == "" {
			state = "future"
		}
		echoedStart := sprint.StartDate
		if echoedStart == "" {
			echoedStart = startDate
		}
		echoedEnd := sprint.EndDate
		if echoedEnd == "" {
			echoedEnd = endDate
		}
		echoedGoal := sprint.Goal
		if echoedGoal == "" {
			echoedGoal = goal
		}

		return common.JSONResult(map[string]any{
			"id":         sprint.ID,
			"name":       sprint.Name,
			"state":      state,
			"start_date": echoedStart,
			"end_date":   echoedEnd,
			"goal":       echoedGoal,
			"message":    fmt.Sprintf("Successfully created sprint: %s", name),
		})
	}
}

// AddIssueToSprintHandler returns the handler for
// jira_add_issue_to_sprint. The issue_key argument accepts a single
// key or an array of keys; batch requests report per-key outcomes so
// one rejected issue does not mask the rest.
func AddIssueToSprintHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		issueKeys, err := batch.Keys(args["issue_key"], "issue_key")
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}
		sprintVal, ok := args["sprint_id"].(float64)
		if !ok || sprintVal <= 0 {
			return common.ErrorResult("sprint_id is required and must be a positive integer"), nil
		}
		sprintID := int(sprintVal)

		client := sc.JiraClient()

		if len(issueKeys) == 1 {
			issueKey := issueKeys[0]
			if err := client.AddIssuesToSprint(ctx, sprintID, issueKeys); err != nil {
				return common.ErrorResult(err.Error()), nil
			}
			return common.JSONResult(map[string]any{
				"success":   true,
				"key":       issueKey,
				"sprint_id": sprintID,
				"message":   fmt.Sprintf("Successfully added %s to sprint %d", issueKey, sprintID),
			})
		}

		summary := batch.Run(issueKeys, func(issueKey string) (string, error) {
			if err := client.AddIssuesToSprint(ctx, sprintID, []string{issueKey}); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully added %s to sprint %d", issueKey, sprintID), nil
		})

		return mcp.NewToolResultText(summary.JSON()), nil
	}
}

// GenerateSprintReportHandler returns the handler for
// jira_generate_sprint_report. The backend-native sprint report is
// fetched to validate the board/sprint pairing but its payload is not
// merged into the returned record; the report metrics come from a
// fresh issue search.
func GenerateSprintReportHandler(sc *server.ServerContext) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		boardVal, ok := args["board_id"].(float64)
		if !ok || boardVal <= 0 {
			return common.ErrorResult("board_id is required and must be a positive integer"), nil
		}
		boardID := int(boardVal)

		sprintVal, ok := args["sprint_id"].(float64)
		if !ok || sprintVal <= 0 {
			return common.ErrorResult("sprint_id is required and must be a positive integer"), nil
		}
		sprintID := int(sprintVal)

		client := sc.JiraClient()

		sprint, err := client.Sprint(ctx, sprintID)
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		if _, err := client.SprintReport(ctx, boardID, sprintID); err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		jql := fmt.Sprintf("sprint = %d", sprintID)
		results, err := client.SearchIssues(ctx, jql, jira.SearchOptions{MaxResults: 200})
		if err != nil {
			return common.ErrorResult(err.Error()), nil
		}

		views := make([]scrum.ReportIssue, 0, len(results.Issues))
		for i := range results.Issues {
			views = append(views, scrum.ReportView(&results.Issues[i], sc.StoryPointsField()))
		}

		return common.JSONResult(map[string]any{
			"sprint_name": sprint.Name,
			"sprint_goal": sprint.Goal,
			"start_date":  sprint.StartDate,
			"end_date":    sprint.EndDate,
			"state":       sprint.State,
			"metrics":     scrum.ComputeReportMetrics(views),
		})
	}
}
