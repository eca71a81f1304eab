package jira

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnassignedName is the sentinel assignee shown for issues without one.
const UnassignedName = "Unassigned"

// Sprint represents a sprint as returned by the Jira Agile API.
type Sprint struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Goal      string `json:"goal,omitempty"`
}

// SprintInput holds the fields for creating a new sprint.
type SprintInput struct {
	Name          string `json:"name"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	OriginBoardID int    `json:"originBoardId"`
	Goal          string `json:"goal,omitempty"`
}

// Status represents an issue workflow status.
type Status struct {
	Name string `json:"name"`
}

// User represents a Jira user reference.
type User struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Priority represents an issue priority.
type Priority struct {
	Name string `json:"name"`
}

// IssueType represents an issue type (Story, Bug, Task, ...).
type IssueType struct {
	Name string `json:"name"`
}

// Component represents a project component attached to an issue.
type Component struct {
	Name string `json:"name"`
}

// Comment represents a single issue comment.
type Comment struct {
	Author  User   `json:"author"`
	Body    string `json:"body"`
	Created string `json:"created"`
}

// CommentPage is the paged comment container embedded in issue fields.
type CommentPage struct {
	Comments []Comment `json:"comments"`
}

// ChangeItem is a single field-level delta within a changelog entry.
type ChangeItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// ChangeHistory is one changelog entry: who changed what, when.
type ChangeHistory struct {
	Author  User         `json:"author"`
	Created string       `json:"created"`
	Items   []ChangeItem `json:"items"`
}

// Changelog is the issue change history, present when the issue is
// fetched with the "changelog" expand.
type Changelog struct {
	Histories []ChangeHistory `json:"histories"`
}

// IssueFields holds the well-known issue fields plus any custom fields
// present on the record. Custom fields are instance-specific
// (customfield_NNNNN) and are captured verbatim so accessors can
// resolve them by configured id.
type IssueFields struct {
	Summary     string       `json:"summary"`
	Description string       `json:"description"`
	Status      *Status      `json:"status"`
	Assignee    *User        `json:"assignee"`
	Reporter    *User        `json:"reporter"`
	Created     string       `json:"created"`
	Updated     string       `json:"updated"`
	Priority    *Priority    `json:"priority"`
	IssueType   *IssueType   `json:"issuetype"`
	Components  []Component  `json:"components"`
	Labels      []string     `json:"labels"`
	Comment     *CommentPage `json:"comment"`

	// Custom maps customfield ids to their raw JSON values.
	Custom map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and captures every
// customfield_* key so story points and sprint references can be read
// without hardcoding field ids into the wire types.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	type alias IssueFields
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if !strings.HasPrefix(key, "customfield_") {
			continue
		}
		if a.Custom == nil {
			a.Custom = make(map[string]json.RawMessage)
		}
		a.Custom[key] = value
	}

	*f = IssueFields(a)
	return nil
}

// StoryPoints returns the numeric story point estimate stored in the
// given custom field. The second return value is false when the field
// is absent, null, or not numeric.
func (f *IssueFields) StoryPoints(fieldID string) (float64, bool) {
	raw, ok := f.Custom[fieldID]
	if !ok {
		return 0, false
	}
	var points *float64
	if err := json.Unmarshal(raw, &points); err != nil || points == nil {
		return 0, false
	}
	return *points, true
}

// SprintValue returns the decoded value of the sprint custom field, or
// nil when the issue has no sprint assignment.
func (f *IssueFields) SprintValue(fieldID string) any {
	raw, ok := f.Custom[fieldID]
	if !ok {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

// Issue represents a Jira issue with its fields and, when expanded,
// its changelog.
type Issue struct {
	Key       string      `json:"key"`
	Self      string      `json:"self"`
	Fields    IssueFields `json:"fields"`
	Changelog *Changelog  `json:"changelog,omitempty"`
}

// AssigneeName returns the assignee display name, or "Unassigned" when
// the issue has no assignee.
func (i *Issue) AssigneeName() string {
	if i.Fields.Assignee == nil || i.Fields.Assignee.DisplayName == "" {
		return UnassignedName
	}
	return i.Fields.Assignee.DisplayName
}

// ReporterName returns the reporter display name, or empty when absent.
func (i *Issue) ReporterName() string {
	if i.Fields.Reporter == nil {
		return ""
	}
	return i.Fields.Reporter.DisplayName
}

// StatusName returns the status name, or empty when absent.
func (i *Issue) StatusName() string {
	if i.Fields.Status == nil {
		return ""
	}
	return i.Fields.Status.Name
}

// PriorityName returns the priority name, or empty when absent.
func (i *Issue) PriorityName() string {
	if i.Fields.Priority == nil {
		return ""
	}
	return i.Fields.Priority.Name
}

// TypeName returns the issue type name, or empty when absent.
func (i *Issue) TypeName() string {
	if i.Fields.IssueType == nil {
		return ""
	}
	return i.Fields.IssueType.Name
}

// ComponentNames returns the component names in order.
func (i *Issue) ComponentNames() []string {
	names := make([]string, 0, len(i.Fields.Components))
	for _, c := range i.Fields.Components {
		names = append(names, c.Name)
	}
	return names
}

// Comments returns the issue comments in order, or an empty slice when
// the comment page was not requested or is empty.
func (i *Issue) Comments() []Comment {
	if i.Fields.Comment == nil {
		return nil
	}
	return i.Fields.Comment.Comments
}

// SearchResults is the paged result of a JQL search.
type SearchResults struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// CreatedIssue is the minimal record Jira returns for a created issue.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Transition is an allowed workflow transition for an issue,
// identified by a backend-assigned id distinct from its display name.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// APIError represents a non-2xx response from the Jira API.
type APIError struct {
	// Op is the operation that failed (e.g., "searchIssues")
	Op string

	// StatusCode is the HTTP status returned by Jira
	StatusCode int

	// Body is the raw response body, useful for diagnosing rejections
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("jira %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("jira %s: status %d", e.Op, e.StatusCode)
}
