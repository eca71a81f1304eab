package batch

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of one item in a batch operation.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates per-item results with rollup counts, so callers
// can see partial failures at a glance.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// Keys normalizes a tool argument that accepts either a single string
// or an array of strings. Empty values are rejected; name is used in
// error messages.
func Keys(param any, name string) ([]string, error) {
	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", name)
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		return []string{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		keys := make([]string, 0, len(v))
		for i, item := range v {
			key, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			if key == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
			}
			keys = append(keys, key)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}
}

// Run executes fn for each id and records the per-id outcome. A failed
// item does not stop the batch.
func Run(ids []string, fn func(id string) (string, error)) Summary {
	summary := Summary{
		Total:   len(ids),
		Results: make([]Result, 0, len(ids)),
	}

	for _, id := range ids {
		message, err := fn(id)
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, Result{
				ID:     id,
				Status: "error",
				Error:  err.Error(),
			})
			continue
		}
		summary.Successful++
		summary.Results = append(summary.Results, Result{
			ID:     id,
			Status: "success",
			Result: message,
		})
	}

	return summary
}

// JSON renders the summary as indented JSON for tool result payloads.
func (s Summary) JSON() string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
