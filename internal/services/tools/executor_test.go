package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/regscout/regscout/pkg/errx"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	calls  []string
	output string
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, searchTerms string) (string, error) {
	f.calls = append(f.calls, searchTerms)
	return f.output, f.err
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:   id,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func decodeError(t *testing.T, output string) ErrorDetail {
	t.Helper()
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(output), &payload))
	return payload.Error
}

func TestParseName(t *testing.T) {
	tests := []struct {
		input   string
		want    Name
		wantErr bool
	}{
		{input: "Search_CFR_Title_21", want: SearchCFRTitle21},
		{input: "Search_FDA_Guidance_Docs", want: SearchFDAGuidanceDocs},
		{input: "search_cfr_title_21", wantErr: true},
		{input: "", wantErr: true},
		{input: "Delete_Everything", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownTool)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutor_Dispatch(t *testing.T) {
	fda := &fakeSearcher{output: `{"results":[]}`}
	cfr := &fakeSearcher{output: "excerpt {\"title\":\"21\"}"}
	executor := NewExecutor(fda, cfr)

	result := executor.Execute(context.Background(), toolCall("call_1", "Search_FDA_Guidance_Docs", `{"search_terms":"biocompatibility"}`))
	require.NoError(t, result.Err)
	assert.Equal(t, "call_1", result.CallID)
	assert.Equal(t, `{"results":[]}`, result.Output)
	assert.Equal(t, []string{"biocompatibility"}, fda.calls)
	assert.Empty(t, cfr.calls)

	result = executor.Execute(context.Background(), toolCall("call_2", "Search_CFR_Title_21", `{"search_terms":"part 820"}`))
	require.NoError(t, result.Err)
	assert.Equal(t, "excerpt {\"title\":\"21\"}", result.Output)
	assert.Equal(t, []string{"part 820"}, cfr.calls)

	out := result.ToolOutput()
	assert.Equal(t, "call_2", out.ToolCallID)
	assert.Equal(t, result.Output, out.Output)
}

func TestExecutor_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fda      Searcher
		call     openai.ToolCall
		wantKind errx.Kind
		wantIs   error
	}{
		{
			name:     "unknown tool",
			fda:      &fakeSearcher{},
			call:     toolCall("c", "Search_Everything", `{"search_terms":"x"}`),
			wantKind: errx.KindUnknownTool,
			wantIs:   ErrUnknownTool,
		},
		{
			name:     "adapter not configured",
			fda:      nil,
			call:     toolCall("c", "Search_FDA_Guidance_Docs", `{"search_terms":"x"}`),
			wantKind: errx.KindUnknownTool,
			wantIs:   ErrToolUnavailable,
		},
		{
			name:     "malformed arguments",
			fda:      &fakeSearcher{},
			call:     toolCall("c", "Search_FDA_Guidance_Docs", `{"search_terms":`),
			wantKind: errx.KindInvalidArguments,
		},
		{
			name:     "blank search terms",
			fda:      &fakeSearcher{},
			call:     toolCall("c", "Search_FDA_Guidance_Docs", `{"search_terms":"   "}`),
			wantKind: errx.KindInvalidArguments,
		},
		{
			name:     "adapter failure",
			fda:      &fakeSearcher{err: errx.Upstream("tavily search failed", 502, nil)},
			call:     toolCall("c", "Search_FDA_Guidance_Docs", `{"search_terms":"x"}`),
			wantKind: errx.KindUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewExecutor(tt.fda, &fakeSearcher{})

			result := executor.Execute(context.Background(), tt.call)
			require.Error(t, result.Err)
			assert.Equal(t, tt.wantKind, errx.KindOf(result.Err))
			if tt.wantIs != nil {
				assert.ErrorIs(t, result.Err, tt.wantIs)
			}
			assert.Equal(t, "c", result.CallID)

			detail := decodeError(t, result.Output)
			assert.Equal(t, tt.wantKind, detail.Kind)
			assert.NotEmpty(t, detail.Message)
		})
	}
}

func TestExecutor_ErrorOutputKeepsStatus(t *testing.T) {
	cfr := &fakeSearcher{err: errx.Upstream("Error getting response from CFR", 503, errors.New("unexpected status"))}
	executor := NewExecutor(nil, cfr)

	result := executor.Execute(context.Background(), toolCall("c", "Search_CFR_Title_21", `{"search_terms":"x"}`))

	detail := decodeError(t, result.Output)
	assert.Equal(t, errx.KindUpstream, detail.Kind)
	assert.Equal(t, "Error getting response from CFR", detail.Message)
	assert.Equal(t, 503, detail.Status)
}
