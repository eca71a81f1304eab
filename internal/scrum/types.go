package scrum

import (
	"github.com/scrum-mcp/scrum-mcp/internal/jira"
)

// IssueSummary is the per-issue record used in list contexts (sprint
// listings and reports). Story points default to 0 here; the detail
// view distinguishes absent points with null instead.
type IssueSummary struct {
	Key         string  `json:"key"`
	Summary     string  `json:"summary"`
	Status      string  `json:"status"`
	Assignee    string  `json:"assignee"`
	StoryPoints float64 `json:"story_points"`
}

// BacklogItem extends IssueSummary with the type and priority shown in
// backlog listings.
type BacklogItem struct {
	Key         string  `json:"key"`
	Summary     string  `json:"summary"`
	IssueType   string  `json:"issue_type"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	Assignee    string  `json:"assignee"`
	StoryPoints float64 `json:"story_points"`
}

// ReportIssue is the minimal view of an issue needed for report
// aggregation: status for the completion policy, points for rollups,
// type for the per-type breakdown.
type ReportIssue struct {
	Status      string
	StoryPoints float64
	IssueType   string
}

// SprintMetrics summarizes a sprint's issues by story points.
type SprintMetrics struct {
	TotalIssues          int     `json:"total_issues"`
	TotalStoryPoints     float64 `json:"total_story_points"`
	CompletedStoryPoints float64 `json:"completed_story_points"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// TypeBreakdown tracks total and completed issue counts for one issue
// type.
type TypeBreakdown struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// ReportMetrics is the full metric set for a sprint report: issue
// counts, story point rollups, and the per-type breakdown.
type ReportMetrics struct {
	TotalIssues          int                      `json:"total_issues"`
	CompletedIssues      int                      `json:"completed_issues"`
	CompletionPercentage float64                  `json:"completion_percentage"`
	TotalStoryPoints     float64                  `json:"total_story_points"`
	CompletedStoryPoints float64                  `json:"completed_story_points"`
	StoryPointCompletion float64                  `json:"story_point_completion"`
	IssueTypes           map[string]TypeBreakdown `json:"issue_types"`
}

// Summarize maps an issue into its list-context summary record.
// Missing assignees become "Unassigned" and missing story points
// become 0; storyPointsField is the configured custom field id.
func Summarize(issue *jira.Issue, storyPointsField string) IssueSummary {
	points, _ := issue.Fields.StoryPoints(storyPointsField)
	return IssueSummary{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Status:      issue.StatusName(),
		Assignee:    issue.AssigneeName(),
		StoryPoints: points,
	}
}

// SummarizeBacklog maps an issue into its backlog listing record.
func SummarizeBacklog(issue *jira.Issue, storyPointsField string) BacklogItem {
	summary := Summarize(issue, storyPointsField)
	return BacklogItem{
		Key:         summary.Key,
		Summary:     summary.Summary,
		IssueType:   issue.TypeName(),
		Priority:    issue.PriorityName(),
		Status:      summary.Status,
		Assignee:    summary.Assignee,
		StoryPoints: summary.StoryPoints,
	}
}

// ReportView maps an issue into the minimal view used by report
// aggregation.
func ReportView(issue *jira.Issue, storyPointsField string) ReportIssue {
	points, _ := issue.Fields.StoryPoints(storyPointsField)
	return ReportIssue{
		Status:      issue.StatusName(),
		StoryPoints: points,
		IssueType:   issue.TypeName(),
	}
}
