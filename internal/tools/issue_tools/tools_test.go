package issue_tools

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

func TestGetIssueDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/SCRUM-123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("expand") == "changelog" {
			_, _ = w.Write([]byte(`{"key": "SCRUM-123", "fields": {"summary": "Build the thing"},
				"changelog": {"histories": [
					{"author": {"displayName": "Alex Smith"}, "created": "2024-01-03T09:00:00.000+0000",
					 "items": [{"field": "status", "fromString": "To Do", "toString": "In Progress"}]}
				]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"key": "SCRUM-123", "fields": {
			"summary": "Build the thing",
			"description": "All of it",
			"status": {"name": "In Progress"},
			"reporter": {"displayName": "Jamie Doe"},
			"created": "2024-01-02T10:00:00.000+0000",
			"updated": "2024-01-03T09:00:00.000+0000",
			"priority": {"name": "High"},
			"issuetype": {"name": "Story"},
			"components": [{"name": "backend"}],
			"labels": ["infra"],
			"customfield_10002": 5,
			"customfield_10001": ["Sprint 7"],
			"comment": {"comments": [
				{"author": {"displayName": "Jamie Doe"}, "body": "Looks good", "created": "2024-01-02T12:00:00.000+0000"}
			]}
		}}`))
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, GetIssueDetailsHandler(sc), map[string]any{"issue_key": "SCRUM-123"})
	require.False(t, isError)

	record := decode(t, payload)
	assert.Equal(t, "SCRUM-123", record["key"])
	assert.Equal(t, "Build the thing", record["summary"])
	assert.Equal(t, "All of it", record["description"])
	assert.Equal(t, "In Progress", record["status"])
	assert.Equal(t, "Unassigned", record["assignee"])
	assert.Equal(t, "Jamie Doe", record["reporter"])
	assert.Equal(t, "High", record["priority"])
	assert.Equal(t, "Story", record["issue_type"])
	assert.Equal(t, float64(5), record["story_points"])
	assert.Equal(t, []any{"Sprint 7"}, record["sprint"])
	assert.Equal(t, []any{"backend"}, record["components"])
	assert.Equal(t, []any{"infra"}, record["labels"])

	comments := record["comments"].([]any)
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]any)
	assert.Equal(t, "Jamie Doe", comment["author"])
	assert.Equal(t, "Looks good", comment["body"])

	history := record["history"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	assert.Equal(t, "Alex Smith", entry["author"])
	items := entry["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "status", item["field"])
	assert.Equal(t, "To Do", item["from_value"])
	assert.Equal(t, "In Progress", item["to_value"])
}

func TestGetIssueDetails_AbsentOptionalFieldsAreNull(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/SCRUM-9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key": "SCRUM-9", "fields": {"summary": "Bare issue"}}`))
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, GetIssueDetailsHandler(sc), map[string]any{"issue_key": "SCRUM-9"})
	require.False(t, isError)

	record := decode(t, payload)
	assert.Nil(t, record["story_points"])
	assert.Nil(t, record["sprint"])
	assert.Equal(t, []any{}, record["labels"])
	assert.Equal(t, []any{}, record["components"])
	assert.Equal(t, []any{}, record["history"])
}

func TestGetIssueDetails_BackendFaultSurfacesAsError(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	payload, isError := callTool(t, GetIssueDetailsHandler(sc), map[string]any{"issue_key": "SCRUM-404"})

	assert.True(t, isError)
	assert.NotEmpty(t, decode(t, payload)["error"])
}

func TestCreateIssue_RequiredFieldsOnly(t *testing.T) {
	var gotFields map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		gotFields = body["fields"].(map[string]any)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "10042", "key": "SCRUM-42", "self": "https://jira.example.com/rest/api/2/issue/10042"}`))
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, CreateIssueHandler(sc), map[string]any{
		"project_key": "SCRUM",
		"summary":     "Build the thing",
		"description": "All of it",
		"issue_type":  "Story",
	})
	require.False(t, isError)

	assert.Equal(t, map[string]any{"key": "SCRUM"}, gotFields["project"])
	assert.Equal(t, map[string]any{"name": "Story"}, gotFields["issuetype"])
	assert.Equal(t, "Build the thing", gotFields["summary"])
	assert.Equal(t, "All of it", gotFields["description"])

	// Optional fields stay out of the payload entirely
	assert.NotContains(t, gotFields, "assignee")
	assert.NotContains(t, gotFields, "priority")
	assert.NotContains(t, gotFields, "labels")
	assert.NotContains(t, gotFields, config.DefaultStoryPointsField)

	record := decode(t, payload)
	assert.Equal(t, "SCRUM-42", record["key"])
	assert.Equal(t, "Build the thing", record["summary"])
	assert.Equal(t, "Successfully created issue SCRUM-42", record["message"])
}

func TestCreateIssue_OptionalFields(t *testing.T) {
	var gotFields map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		gotFields = body["fields"].(map[string]any)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "10043", "key": "SCRUM-43", "self": "https://jira.example.com/rest/api/2/issue/10043"}`))
	})

	sc := newTestContext(t, mux)
	_, isError := callTool(t, CreateIssueHandler(sc), map[string]any{
		"project_key":  "SCRUM",
		"summary":      "Build the thing",
		"description":  "All of it",
		"issue_type":   "Story",
		"assignee":     "alex",
		"priority":     "High",
		"labels":       []any{"infra", "backend"},
		"story_points": float64(5),
	})
	require.False(t, isError)

	assert.Equal(t, map[string]any{"name": "alex"}, gotFields["assignee"])
	assert.Equal(t, map[string]any{"name": "High"}, gotFields["priority"])
	assert.Equal(t, []any{"infra", "backend"}, gotFields["labels"])
	assert.Equal(t, float64(5), gotFields[config.DefaultStoryPointsField])
}

func TestCreateIssue_RequiredArguments(t *testing.T) {
	sc := newTestContext(t, http.NewServeMux())
	handler := CreateIssueHandler(sc)

	for _, tt := range []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing project_key", map[string]any{"summary": "s", "description": "d", "issue_type": "Story"}, "project_key is required"},
		{"missing summary", map[string]any{"project_key": "SCRUM", "description": "d", "issue_type": "Story"}, "summary is required"},
		{"missing description", map[string]any{"project_key": "SCRUM", "summary": "s", "issue_type": "Story"}, "description is required"},
		{"missing issue_type", map[string]any{"project_key": "SCRUM", "summary": "s", "description": "d"}, "issue_type is required"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			payload, isError := callTool(t, handler, tt.args)
			assert.True(t, isError)
			assert.Equal(t, tt.want, decode(t, payload)["error"])
		})
	}
}

func transitionsBackend(t *testing.T, transitioned *bool) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/SCRUM-1/transitions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &body))
			transition := body["transition"].(map[string]any)
			assert.Equal(t, "31", transition["id"])
			*transitioned = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transitions": [
			{"id": "11", "name": "To Do"},
			{"id": "21", "name": "In Progress"},
			{"id": "31", "name": "Done"}
		]}`))
	})
	return mux
}

func TestUpdateIssueStatus_MatchesCaseInsensitively(t *testing.T) {
	var transitioned bool
	sc := newTestContext(t, transitionsBackend(t, &transitioned))

	payload, isError := callTool(t, UpdateIssueStatusHandler(sc), map[string]any{
		"issue_key":     "SCRUM-1",
		"transition_to": "done",
	})
	require.False(t, isError)
	assert.True(t, transitioned)

	record := decode(t, payload)
	assert.Equal(t, true, record["success"])
	assert.Equal(t, "SCRUM-1", record["key"])
	assert.Equal(t, "done", record["new_status"])
	assert.Equal(t, "Successfully updated SCRUM-1 status to done", record["message"])
}

func TestUpdateIssueStatus_UnavailableTransition(t *testing.T) {
	var transitioned bool
	sc := newTestContext(t, transitionsBackend(t, &transitioned))

	payload, isError := callTool(t, UpdateIssueStatusHandler(sc), map[string]any{
		"issue_key":     "SCRUM-1",
		"transition_to": "Blocked",
	})

	// A logical negative, not a tool error
	require.False(t, isError)
	assert.False(t, transitioned)

	record := decode(t, payload)
	assert.Equal(t, false, record["success"])
	assert.Equal(t, "Cannot transition to 'Blocked'. Available transitions: To Do, In Progress, Done", record["message"])
}

func TestAssignIssue(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/SCRUM-1/assignee", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, AssignIssueHandler(sc), map[string]any{
		"issue_key": "SCRUM-1",
		"assignee":  "alex",
	})
	require.False(t, isError)

	assert.Equal(t, "alex", gotBody["name"])

	record := decode(t, payload)
	assert.Equal(t, true, record["success"])
	assert.Equal(t, "SCRUM-1", record["key"])
	assert.Equal(t, "alex", record["assignee"])
	assert.Equal(t, "Successfully assigned SCRUM-1 to alex", record["message"])
}

func TestGetProjectBacklog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "project = SCRUM AND sprint is EMPTY ORDER BY Rank ASC", r.URL.Query().Get("jql"))
		assert.Equal(t, "50", r.URL.Query().Get("maxResults"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"startAt": 0, "maxResults": 50, "total": 2, "issues": [
			{"key": "SCRUM-10", "fields": {"summary": "First", "status": {"name": "To Do"},
				"issuetype": {"name": "Story"}, "priority": {"name": "High"}, "customfield_10002": 3}},
			{"key": "SCRUM-11", "fields": {"summary": "Second", "status": {"name": "To Do"},
				"issuetype": {"name": "Bug"}}}
		]}`))
	})

	sc := newTestContext(t, mux)
	payload, isError := callTool(t, GetProjectBacklogHandler(sc), map[string]any{"project_key": "SCRUM"})
	require.False(t, isError)

	record := decode(t, payload)
	assert.Equal(t, "SCRUM", record["project"])
	assert.Equal(t, float64(2), record["backlog_count"])

	items := record["backlog_items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "SCRUM-10", first["key"])
	assert.Equal(t, "Story", first["issue_type"])
	assert.Equal(t, "High", first["priority"])
	assert.Equal(t, float64(3), first["story_points"])
	second := items[1].(map[string]any)
	assert.Equal(t, "Unassigned", second["assignee"])
	assert.Equal(t, float64(0), second["story_points"])
}

func TestGetProjectBacklog_MaxResultsOverride(t *testing.T) {
	var gotMax string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("maxResults")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"startAt": 0, "maxResults": 10, "total": 0, "issues": []}`))
	})

	sc := newTestContext(t, mux)
	_, isError := callTool(t, GetProjectBacklogHandler(sc), map[string]any{
		"project_key": "SCRUM",
		"max_results": float64(10),
	})

	require.False(t, isError)
	assert.Equal(t, "10", gotMax)
}

func TestGetProjectBacklog_RequiresProjectKey(t *testing.T) {
	sc := newTestContext(t, http.NewServeMux())

	payload, isError := callTool(t, GetProjectBacklogHandler(sc), map[string]any{})

	assert.True(t, isError)
	assert.Equal(t, "project_key is required", decode(t, payload)["error"])
}
