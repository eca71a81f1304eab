package sprint_tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrum-mcp/scrum-mcp/internal/config"
	"github.com/scrum-mcp/scrum-mcp/internal/jira"
	"github.com/scrum-mcp/scrum-mcp/internal/server"
)

// newTestContext wires a ServerContext to a fake Jira backend.
func newTestContext(t *testing.T, handler http.Handler) *server.ServerContext {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := jira.NewClient(srv.URL, "scrum-bot", "token-123")
	require.NoError(t, err)

	sc, err := server.NewServerContext(context.Background(), client, config.Config{
		StoryPointsField: config.DefaultStoryPointsField,
		SprintField:      config.DefaultSprintField,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return sc
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, result.IsError
}

func decode(t *testing.T, payload string) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &record))
	return record
}

// board42Backend serves one active sprint with two issues: a completed
// 5-point story and an in-progress 3-point task.
func board42Backend() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/board/42/sprint", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values": [{"id": 7, "name": "Sprint 7", "state": "active",
			"startDate": "2024-01-01T00:00:00.000Z", "endDate": "2024-01-14T23:59:59.000Z", "goal": "Ship it"}]}`))
	})
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"startAt": 0, "maxResults": 50, "total": 2, "issues": [
			{"key": "SCRUM-1", "fields": {"summary": "Build the thing", "status": {"name": "Done"},
				"assignee": {"displayName": "Alex Smith"}, "customfield_10002": 5}},
			{"key": "SCRUM-2", "fields": {"summary": "Test the thing", "status": {"name": "In Progress"},
				"customfield_10002": 3}}
		]}`))
	})
	return mux
}

func TestGetSprintDetails_Board42Scenario(t *testing.T) {
	sc := newTestContext(t, board42Backend())

	payload, isError := callTool(t, GetSprintDetailsHandler(sc), map[string]any{
		"board_id": float64(42),
	})
	require.False(t, isError)

	record := decode(t, payload)
	sprints, ok := record["sprints"].([]any)
	require.True(t, ok)
	require.Len(t, sprints, 1)

	sprint := sprints[0].(map[string]any)
	assert.Equal(t, float64(7), sprint["id"])
	assert.Equal(t, "Sprint 7", sprint["name"])
	assert.Equal(t, "active", sprint["state"])
	assert.Equal(t, "Ship it", sprint["goal"])

	issues := sprint["issues"].([]any)
	require.Len(t, issues, 2)
	second := issues[1].(map[string]any)
	assert.Equal(t, "Unassigned", second["assignee"])

	metrics := sprint["metrics"].(map[string]any)
	assert.Equal(t, float64(2), metrics["total_issues"])
	assert.Equal(t, float64(8), metrics["total_story_points"])
	assert.Equal(t, float64(5), metrics["completed_story_points"])
	assert.InDelta(t, 62.5, metrics["completion_percentage"].(float64), 0.0001)
}

func TestGetSprintDetails_IdempotentReads(t *testing.T) {
	sc := newTestContext(t, board42Backend())
	handler := GetSprintDetailsHandler(sc)

	first, _ := callTool(t, handler, map[string]any{"board_id": float64(42)})
	second, _ := callTool(t, handler, map[string]any{"board_id": float64(42)})

	assert.JSONEq(t, first, second)
}

func TestGetSprintDetails_DefaultsToActiveState(t *testing.T) {
	var gotState string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/board/42/sprint", func(w http.ResponseWriter, r *http.Request) {
		gotState = r.URL.Query().Get("state")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values": []}`))
	})

	sc := newTestContext(t, mux)
	_, isError := callTool(t, GetSprintDetailsHandler(sc), map[string]any{"board_id": float64(42)})

	require.False(t, isError)
	assert.Equal(t, "active", gotState)
}

func TestGetSprintDetails_ArgumentValidation(t *testing.T) {
	sc := newTestContext(t, http.NewServeMux())
	handler := GetSprintDetailsHandler(sc)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing board_id", map[string]any{}},
		{"non-numeric board_id", map[string]any{"board_id": "forty-two"}},
		{"invalid state", map[string]any{"board_id": float64(42), "sprint_state": "archived"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, isError := callTool(t, handler, tt.args)
			assert.True(t, isError)
			record := decode(t, payload)
			assert.NotEmpty(t, record["error"])
		})
	}
}

func TestGetSprintDetails_BackendFaultSurfacesAsError(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	payload, isError := callTool(t, GetSprintDetailsHandler(sc), map[string]any{"board_id": float64(42)})

	assert.True(t, isError)
	record := decode(t, payload)
	assert.NotEmpty(t, record["error"])
}

func TestCreateSprint_DateNormalization(t *testing.T) {
	var gotBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/sprint", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 12, "name": "Sprint 12", "state": "future"}`))
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, CreateSprintHandler(sc), map[string]any{
		"board_id":   float64(42),
		"name":       "Sprint 12",
		"start_date": "2024-01-01",
		"end_date":   "2024-01-14",
	})
	require.False(t, isError)

	// Start pinned to midnight, end pinned to end-of-day: last day inclusive
	assert.Equal(t, "2024-01-01T00:00:00.000Z", gotBody["startDate"])
	assert.Equal(t, "2024-01-14T23:59:59.000Z", gotBody["endDate"])
	assert.Equal(t, float64(42), gotBody["originBoardId"])

	record := decode(t, payload)
	assert.Equal(t, float64(12), record["id"])
	assert.Equal(t, "future", record["state"])
	// Backend omitted the dates; caller-supplied values fill in
	assert.Equal(t, "2024-01-01", record["start_date"])
	assert.Equal(t, "2024-01-14", record["end_date"])
	assert.Equal(t, "Successfully created sprint: Sprint 12", record["message"])
}

func TestCreateSprint_RequiredArguments(t *testing.T) {
	sc := newTestContext(t, http.NewServeMux())
	handler := CreateSprintHandler(sc)

	for _, tt := range []struct {
		name string
		args map[string]any
	}{
		{"missing name", map[string]any{"board_id": float64(42), "start_date": "2024-01-01", "end_date": "2024-01-14"}},
		{"missing start_date", map[string]any{"board_id": float64(42), "name": "S", "end_date": "2024-01-14"}},
		{"missing end_date", map[string]any{"board_id": float64(42), "name": "S", "start_date": "2024-01-01"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			payload, isError := callTool(t, handler, tt.args)
			assert.True(t, isError)
			assert.NotEmpty(t, decode(t, payload)["error"])
		})
	}
}

func TestAddIssueToSprint(t *testing.T) {
	var gotBody map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/sprint/7/issue", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, AddIssueToSprintHandler(sc), map[string]any{
		"issue_key": "SCRUM-1",
		"sprint_id": float64(7),
	})
	require.False(t, isError)

	assert.Equal(t, []string{"SCRUM-1"}, gotBody["issues"])

	record := decode(t, payload)
	assert.Equal(t, true, record["success"])
	assert.Equal(t, "SCRUM-1", record["key"])
	assert.Equal(t, float64(7), record["sprint_id"])
	assert.Equal(t, "Successfully added SCRUM-1 to sprint 7", record["message"])
}

func TestAddIssueToSprint_BatchWithPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/sprint/7/issue", func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body["issues"], 1)

		if body["issues"][0] == "SCRUM-2" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, AddIssueToSprintHandler(sc), map[string]any{
		"issue_key": []any{"SCRUM-1", "SCRUM-2", "SCRUM-3"},
		"sprint_id": float64(7),
	})
	require.False(t, isError)

	record := decode(t, payload)
	assert.Equal(t, float64(3), record["total"])
	assert.Equal(t, float64(2), record["successful"])
	assert.Equal(t, float64(1), record["failed"])

	results := record["results"].([]any)
	require.Len(t, results, 3)
	second := results[1].(map[string]any)
	assert.Equal(t, "SCRUM-2", second["id"])
	assert.Equal(t, "error", second["status"])
	assert.NotEmpty(t, second["error"])
}

func TestGenerateSprintReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/sprint/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "name": "Sprint 7", "state": "closed",
			"startDate": "2024-01-01T00:00:00.000Z", "endDate": "2024-01-14T23:59:59.000Z", "goal": "Ship it"}`))
	})
	mux.HandleFunc("/rest/greenhopper/1.0/rapid/charts/sprintreport", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contents": {"completedIssues": []}}`))
	})
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sprint = 7", r.URL.Query().Get("jql"))
		assert.Equal(t, "200", r.URL.Query().Get("maxResults"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"startAt": 0, "maxResults": 200, "total": 3, "issues": [
			{"key": "SCRUM-1", "fields": {"summary": "a", "status": {"name": "Done"},
				"issuetype": {"name": "Story"}, "customfield_10002": 5}},
			{"key": "SCRUM-2", "fields": {"summary": "b", "status": {"name": "In Progress"},
				"issuetype": {"name": "Story"}, "customfield_10002": 3}},
			{"key": "SCRUM-3", "fields": {"summary": "c", "status": {"name": "Closed"},
				"issuetype": {"name": "Bug"}}}
		]}`))
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, GenerateSprintReportHandler(sc), map[string]any{
		"board_id":  float64(42),
		"sprint_id": float64(7),
	})
	require.False(t, isError)

	record := decode(t, payload)
	assert.Equal(t, "Sprint 7", record["sprint_name"])
	assert.Equal(t, "Ship it", record["sprint_goal"])
	assert.Equal(t, "closed", record["state"])

	metrics := record["metrics"].(map[string]any)
	assert.Equal(t, float64(3), metrics["total_issues"])
	assert.Equal(t, float64(2), metrics["completed_issues"])
	assert.InDelta(t, 66.6666, metrics["completion_percentage"].(float64), 0.001)
	assert.Equal(t, float64(8), metrics["total_story_points"])
	assert.Equal(t, float64(5), metrics["completed_story_points"])
	assert.InDelta(t, 62.5, metrics["story_point_completion"].(float64), 0.0001)

	types := metrics["issue_types"].(map[string]any)
	story := types["Story"].(map[string]any)
	assert.Equal(t, float64(2), story["total"])
	assert.Equal(t, float64(1), story["completed"])
	bug := types["Bug"].(map[string]any)
	assert.Equal(t, float64(1), bug["total"])
	assert.Equal(t, float64(1), bug["completed"])
}

func TestGenerateSprintReport_InvalidPairingSurfacesAsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/agile/1.0/sprint/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "name": "Sprint 7", "state": "closed"}`))
	})
	mux.HandleFunc("/rest/greenhopper/1.0/rapid/charts/sprintreport", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, GenerateSprintReportHandler(sc), map[string]any{
		"board_id":  float64(99),
		"sprint_id": float64(7),
	})

	assert.True(t, isError)
	assert.NotEmpty(t, decode(t, payload)["error"])
}
