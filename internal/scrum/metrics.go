package scrum

// completedStatuses is the fixed set of status names treated as "work
// finished" for every aggregation. Completion is a status-name policy,
// not a backend flag.
var completedStatuses = map[string]bool{
	"Done":      true,
	"Closed":    true,
	"Completed": true,
}

// IsCompleted reports whether a status name counts as completed.
// Matching is exact; workflow status names are backend-controlled.
func IsCompleted(status string) bool {
	return completedStatuses[status]
}

// percentage returns completed/total*100, or 0 when total is 0.
// A zero denominator must never produce NaN in a response.
func percentage(completed, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return completed / total * 100
}

// ComputeSprintMetrics rolls a sprint's issue summaries up into story
// point totals and a completion percentage.
func ComputeSprintMetrics(issues []IssueSummary) SprintMetrics {
	metrics := SprintMetrics{TotalIssues: len(issues)}
	for _, issue := range issues {
		metrics.TotalStoryPoints += issue.StoryPoints
		if IsCompleted(issue.Status) {
			metrics.CompletedStoryPoints += issue.StoryPoints
		}
	}
	metrics.CompletionPercentage = percentage(metrics.CompletedStoryPoints, metrics.TotalStoryPoints)
	return metrics
}

// ComputeReportMetrics computes the sprint report metric set in a
// single pass over the issues, grouping the breakdown by issue type in
// arrival order.
func ComputeReportMetrics(issues []ReportIssue) ReportMetrics {
	metrics := ReportMetrics{
		TotalIssues: len(issues),
		IssueTypes:  make(map[string]TypeBreakdown),
	}

	for _, issue := range issues {
		completed := IsCompleted(issue.Status)

		metrics.TotalStoryPoints += issue.StoryPoints
		if completed {
			metrics.CompletedIssues++
			metrics.CompletedStoryPoints += issue.StoryPoints
		}

		breakdown := metrics.IssueTypes[issue.IssueType]
		breakdown.Total++
		if completed {
			breakdown.Completed++
		}
		metrics.IssueTypes[issue.IssueType] = breakdown
	}

	metrics.CompletionPercentage = percentage(float64(metrics.CompletedIssues), float64(metrics.TotalIssues))
	metrics.StoryPointCompletion = percentage(metrics.CompletedStoryPoints, metrics.TotalStoryPoints)
	return metrics
}
