// Package scrum holds the report-shaping logic shared by the sprint
// and issue tools: the completed-status policy, story point rollups,
// completion percentages, and the per-type breakdown, plus the summary
// record types those aggregations produce.
//
// The completion policy is fixed: an issue is complete when its status
// name is one of Done, Closed, or Completed. Percentages are 0 when
// the denominator is 0.
package scrum
