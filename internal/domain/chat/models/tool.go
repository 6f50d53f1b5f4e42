package models

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// ToolExecutor answers one tool call requested by a run.
type ToolExecutor interface {
	Execute(ctx context.Context, call openai.ToolCall) ToolResult
}

// ToolResult is the answer to one tool call. Output is always set, also on
// failure, so the run can progress; Err carries the typed failure.
type ToolResult struct {
	CallID string
	Name   string
	Output string
	Err    error
}

// ToolOutput converts the result to the submission shape of the Assistants API.
func (r ToolResult) ToolOutput() openai.ToolOutput {
	return openai.ToolOutput{ToolCallID: r.CallID, Output: r.Output}
}

// SearchParams are the arguments both search tools accept.
type SearchParams struct {
	SearchTerms string `json:"search_terms"`
}
