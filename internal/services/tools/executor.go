package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/pkg/errx"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Searcher is a search adapter: free text in, result text out.
type Searcher interface {
	Search(ctx context.Context, searchTerms string) (string, error)
}

type Executor struct {
	fdaSearcher Searcher
	cfrSearcher Searcher
	log         zerolog.Logger
}

// ErrorPayload is the tool output submitted when a call fails.
type ErrorPayload struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    errx.Kind `json:"kind"`
	Message string    `json:"message"`
	Status  int       `json:"status,omitempty"`
}

// NewExecutor wires the adapters. Pass a nil interface for an adapter
// that is not configured; calls to its tool then fail with ErrToolUnavailable.
func NewExecutor(fdaSearcher, cfrSearcher Searcher) *Executor {
	return &Executor{
		fdaSearcher: fdaSearcher,
		cfrSearcher: cfrSearcher,
		log:         logger.For(logger.TOOLS),
	}
}

// Execute answers one tool call. It never returns without an output.
func (e *Executor) Execute(ctx context.Context, call openai.ToolCall) models.ToolResult {
	result := models.ToolResult{CallID: call.ID, Name: call.Function.Name}

	e.log.Info().
		Str("tool_call_id", call.ID).
		Str("function", call.Function.Name).
		Str("arguments", call.Function.Arguments).
		Msg("Executing tool call")

	output, err := e.execute(ctx, call)
	if err != nil {
		e.log.Warn().
			Err(err).
			Str("tool_call_id", call.ID).
			Str("function", call.Function.Name).
			Str("kind", string(errx.KindOf(err))).
			Msg("Tool call failed")
		result.Err = err
		result.Output = errorOutput(err)
		return result
	}

	result.Output = output
	return result
}

func (e *Executor) execute(ctx context.Context, call openai.ToolCall) (string, error) {
	if call.Type != "" && call.Type != openai.ToolTypeFunction {
		return "", errx.New(errx.KindUnknownTool, fmt.Sprintf("unsupported tool type %q", call.Type), ErrUnknownTool)
	}

	name, err := ParseName(call.Function.Name)
	if err != nil {
		return "", errx.New(errx.KindUnknownTool, fmt.Sprintf("unknown tool %q", call.Function.Name), err)
	}

	var searcher Searcher
	switch name {
	case SearchCFRTitle21:
		searcher = e.cfrSearcher
	case SearchFDAGuidanceDocs:
		searcher = e.fdaSearcher
	}
	if searcher == nil {
		return "", errx.New(errx.KindUnknownTool, fmt.Sprintf("tool %s is not available", name), ErrToolUnavailable)
	}

	var params models.SearchParams
	if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
		return "", errx.New(errx.KindInvalidArguments, "invalid tool arguments", err)
	}
	if strings.TrimSpace(params.SearchTerms) == "" {
		return "", errx.New(errx.KindInvalidArguments, "search_terms is required", nil)
	}

	return searcher.Search(ctx, params.SearchTerms)
}

func errorOutput(err error) string {
	detail := ErrorDetail{Kind: errx.KindUpstream, Message: err.Error()}

	var e *errx.Error
	if errors.As(err, &e) {
		detail = ErrorDetail{Kind: e.Kind, Message: e.Message, Status: e.Status}
	}

	data, mErr := json.Marshal(ErrorPayload{Error: detail})
	if mErr != nil {
		return `{"error":{"kind":"upstream","message":"tool failed"}}`
	}
	return string(data)
}
