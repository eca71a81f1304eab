package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client provides access to the Jira REST and Agile APIs using a
// single authenticated session. One Client is created at process start
// and shared by all tool handlers; it holds no per-request state.
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a new Jira client for the given instance.
// The baseURL is the root URL of the Jira instance (e.g.,
// "https://example.atlassian.net"); credentials are sent as HTTP basic
// auth on every request.
func NewClient(baseURL, username, apiToken string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}
	if username == "" || apiToken == "" {
		return nil, fmt.Errorf("username and apiToken cannot be empty")
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		httpClient: http.DefaultClient,
	}, nil
}

// NewClientWithHTTPClient is like NewClient but uses the provided HTTP
// client. Used by tests to point the adapter at a fake backend.
func NewClientWithHTTPClient(baseURL, username, apiToken string, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(baseURL, username, apiToken)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

// BaseURL returns the configured base URL for the Jira instance.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do executes a single authenticated request against the Jira API.
// Non-2xx responses become *APIError; when out is non-nil the response
// body is decoded into it.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("jira %s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("jira %s: failed to create request: %w", op, err)
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("jira %s: failed to decode response: %w", op, err)
	}
	return nil
}

// Sprints lists the sprints on a board filtered by state
// (active, future, or closed).
func (c *Client) Sprints(ctx context.Context, boardID int, state string) ([]Sprint, error) {
	query := url.Values{}
	if state != "" {
		query.Set("state", state)
	}

	var page struct {
		Values []Sprint `json:"values"`
	}
	path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", boardID)
	if err := c.do(ctx, "sprints", http.MethodGet, path, query, nil, &page); err != nil {
		return nil, err
	}
	return page.Values, nil
}

// Sprint fetches a single sprint by id.
func (c *Client) Sprint(ctx context.Context, sprintID int) (*Sprint, error) {
	var sprint Sprint
	path := fmt.Sprintf("/rest/agile/1.0/sprint/%d", sprintID)
	if err := c.do(ctx, "sprint", http.MethodGet, path, nil, nil, &sprint); err != nil {
		return nil, err
	}
	return &sprint, nil
}

// CreateSprint creates a new sprint on the board named in the input.
func (c *Client) CreateSprint(ctx context.Context, input SprintInput) (*Sprint, error) {
	var sprint Sprint
	if err := c.do(ctx, "createSprint", http.MethodPost, "/rest/agile/1.0/sprint", nil, input, &sprint); err != nil {
		return nil, err
	}
	return &sprint, nil
}

// AddIssuesToSprint moves the given issues into a sprint.
func (c *Client) AddIssuesToSprint(ctx context.Context, sprintID int, issueKeys []string) error {
	body := map[string][]string{"issues": issueKeys}
	path := fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue", sprintID)
	return c.do(ctx, "addIssuesToSprint", http.MethodPost, path, nil, body, nil)
}

// SearchOptions contains options for JQL search operations.
type SearchOptions struct {
	// MaxResults caps the number of issues returned; 0 uses the
	// backend default.
	MaxResults int

	// Expand lists additional issue data to include (e.g. "changelog").
	Expand string
}

// SearchIssues runs a JQL query and returns the matching issues. The
// JQL grammar is defined by Jira; callers build the string themselves.
func (c *Client) SearchIssues(ctx context.Context, jql string, opts SearchOptions) (*SearchResults, error) {
	query := url.Values{}
	query.Set("jql", jql)
	if opts.MaxResults > 0 {
		query.Set("maxResults", strconv.Itoa(opts.MaxResults))
	}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}

	var results SearchResults
	if err := c.do(ctx, "searchIssues", http.MethodGet, "/rest/api/2/search", query, nil, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// Issue fetches a single issue by key. The expand parameter requests
// additional data ("changelog" for full change history); pass empty
// for the plain record.
func (c *Client) Issue(ctx context.Context, issueKey, expand string) (*Issue, error) {
	query := url.Values{}
	if expand != "" {
		query.Set("expand", expand)
	}

	var issue Issue
	path := fmt.Sprintf("/rest/api/2/issue/%s", url.PathEscape(issueKey))
	if err := c.do(ctx, "issue", http.MethodGet, path, query, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue creates an issue from a field map. The map is sent as-is
// under "fields"; the backend validates project, type, and field
// values.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error) {
	body := map[string]any{"fields": fields}

	var created CreatedIssue
	if err := c.do(ctx, "createIssue", http.MethodPost, "/rest/api/2/issue", nil, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Transitions lists the workflow transitions currently available on an
// issue.
func (c *Client) Transitions(ctx context.Context, issueKey string) ([]Transition, error) {
	var page struct {
		Transitions []Transition `json:"transitions"`
	}
	path := fmt.Sprintf("/rest/api/2/issue/%s/transitions", url.PathEscape(issueKey))
	if err := c.do(ctx, "transitions", http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Transitions, nil
}

// DoTransition executes a workflow transition on an issue by its
// backend-assigned transition id.
func (c *Client) DoTransition(ctx context.Context, issueKey, transitionID string) error {
	body := map[string]any{
		"transition": map[string]string{"id": transitionID},
	}
	path := fmt.Sprintf("/rest/api/2/issue/%s/transitions", url.PathEscape(issueKey))
	return c.do(ctx, "doTransition", http.MethodPost, path, nil, body, nil)
}

// AssignIssue assigns an issue to a user.
func (c *Client) AssignIssue(ctx context.Context, issueKey, assignee string) error {
	body := map[string]string{"name": assignee}
	path := fmt.Sprintf("/rest/api/2/issue/%s/assignee", url.PathEscape(issueKey))
	return c.do(ctx, "assignIssue", http.MethodPut, path, nil, body, nil)
}

// Myself fetches the authenticated user's profile. A successful call
// confirms the configured credentials are valid.
func (c *Client) Myself(ctx context.Context) (*User, error) {
	var me User
	if err := c.do(ctx, "myself", http.MethodGet, "/rest/api/2/myself", nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SprintReport fetches the backend-native sprint report for a sprint
// on a board. The payload shape is not part of Jira's stable API, so
// it is returned raw; a failed fetch still signals an invalid
// board/sprint pairing.
func (c *Client) SprintReport(ctx context.Context, boardID, sprintID int) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("rapidViewId", strconv.Itoa(boardID))
	query.Set("sprintId", strconv.Itoa(sprintID))

	var report json.RawMessage
	if err := c.do(ctx, "sprintReport", http.MethodGet, "/rest/greenhopper/1.0/rapid/charts/sprintreport", query, nil, &report); err != nil {
		return nil, err
	}
	return report, nil
}
