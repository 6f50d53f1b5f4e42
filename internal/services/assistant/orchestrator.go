package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultRunTimeout   = 2 * time.Minute

	cancelTimeout = 10 * time.Second
	answerLimit   = 20
)

// Client is the part of the Assistants API a run needs. *openai.Client
// satisfies it.
type Client interface {
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID string, runID string, request openai.SubmitToolOutputsRequest) (openai.Run, error)
	CancelRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
}

type Options struct {
	AssistantID  string
	DefaultTool  string
	Tools        []openai.Tool
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// Orchestrator drives one assistant run per user message: it appends the
// message, starts a run, answers tool calls until the run ends and returns
// the newest assistant reply.
type Orchestrator struct {
	client       Client
	executor     models.ToolExecutor
	assistantID  string
	toolChoice   any
	tools        []openai.Tool
	pollInterval time.Duration
	runTimeout   time.Duration
	log          zerolog.Logger
}

func NewOrchestrator(client Client, executor models.ToolExecutor, opts Options) *Orchestrator {
	log := logger.For(logger.ASSISTANT)

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}

	// A run may only be pinned to a tool it is offered.
	var toolChoice any
	if opts.DefaultTool != "" {
		for _, tool := range opts.Tools {
			if tool.Function != nil && tool.Function.Name == opts.DefaultTool {
				toolChoice = openai.ToolChoice{
					Type:     openai.ToolTypeFunction,
					Function: openai.ToolFunction{Name: opts.DefaultTool},
				}
				break
			}
		}
		if toolChoice == nil {
			log.Warn().Str("tool", opts.DefaultTool).Msg("Default tool not enabled - runs will not be pinned")
		}
	}

	return &Orchestrator{
		client:       client,
		executor:     executor,
		assistantID:  opts.AssistantID,
		toolChoice:   toolChoice,
		tools:        opts.Tools,
		pollInterval: opts.PollInterval,
		runTimeout:   opts.RunTimeout,
		log:          log,
	}
}

// Respond appends content to the thread as a user message, runs the
// assistant to completion and returns its reply.
func (o *Orchestrator) Respond(ctx context.Context, threadID, content string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()

	if _, err := o.client.CreateMessage(runCtx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	}); err != nil {
		return "", fmt.Errorf("failed to add message to thread: %w", o.contextErr(ctx, runCtx, err))
	}

	run, err := o.client.CreateRun(runCtx, threadID, openai.RunRequest{
		AssistantID: o.assistantID,
		Tools:       o.tools,
		ToolChoice:  o.toolChoice,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", o.contextErr(ctx, runCtx, err))
	}

	log := o.log.With().Str("thread_id", threadID).Str("run_id", run.ID).Logger()
	log.Info().Str("status", string(run.Status)).Msg("Run created")

	run, err = o.await(ctx, runCtx, threadID, run, log)
	if err != nil {
		return "", err
	}

	return o.answer(runCtx, threadID, run.ID)
}

// await polls run until it completes. Tool calls of a requires_action step
// are answered in one batch before polling resumes.
func (o *Orchestrator) await(ctx, runCtx context.Context, threadID string, run openai.Run, log zerolog.Logger) (openai.Run, error) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	var err error
	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			log.Info().Msg("Run completed")
			return run, nil
		case openai.RunStatusRequiresAction:
			run, err = o.submitToolOutputs(runCtx, threadID, run, log)
			if err != nil {
				return run, o.abort(ctx, runCtx, threadID, run.ID, err, log)
			}
			// The submission response is not polled; the next retrieve is.
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		default:
			log.Warn().
				Str("status", string(run.Status)).
				Interface("last_error", run.LastError).
				Msg("Run ended without completing")
			return run, &RunEndedError{RunID: run.ID, Status: run.Status, LastError: run.LastError}
		}

		select {
		case <-runCtx.Done():
			return run, o.abort(ctx, runCtx, threadID, run.ID, runCtx.Err(), log)
		case <-ticker.C:
		}

		polled, err := o.client.RetrieveRun(runCtx, threadID, run.ID)
		if err != nil {
			return run, o.abort(ctx, runCtx, threadID, run.ID, fmt.Errorf("failed to retrieve run: %w", err), log)
		}
		run = polled
		log.Debug().Str("status", string(run.Status)).Msg("Polled run")
	}
}

func (o *Orchestrator) submitToolOutputs(ctx context.Context, threadID string, run openai.Run, log zerolog.Logger) (openai.Run, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return run, fmt.Errorf("run %s requires action without tool calls", run.ID)
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		result := o.executor.Execute(ctx, call)
		outputs = append(outputs, result.ToolOutput())
	}

	log.Info().Int("tool_calls", len(outputs)).Msg("Submitting tool outputs")

	submitted, err := o.client.SubmitToolOutputs(ctx, threadID, run.ID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	if err != nil {
		return run, fmt.Errorf("failed to submit tool outputs: %w", err)
	}
	if submitted.ID == "" {
		submitted.ID = run.ID
	}
	return submitted, nil
}

// abort cancels the remote run best effort and maps deadline errors.
func (o *Orchestrator) abort(ctx, runCtx context.Context, threadID, runID string, err error, log zerolog.Logger) error {
	err = o.contextErr(ctx, runCtx, err)

	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	if _, cErr := o.client.CancelRun(cancelCtx, threadID, runID); cErr != nil {
		log.Warn().Err(cErr).Msg("Failed to cancel run")
	} else {
		log.Info().Err(err).Msg("Run cancelled")
	}

	return err
}

// contextErr reports the caller's context error, ErrRunTimeout when only
// the run deadline passed, and err otherwise.
func (o *Orchestrator) contextErr(ctx, runCtx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if runCtx.Err() != nil {
		return ErrRunTimeout
	}
	return err
}

func (o *Orchestrator) answer(ctx context.Context, threadID, runID string) (string, error) {
	limit := answerLimit
	order := "desc"

	list, err := o.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("failed to list run messages: %w", err)
	}

	for _, msg := range list.Messages {
		if msg.Role != models.RoleAssistant {
			continue
		}
		text, err := models.TextContent(msg)
		if errors.Is(err, models.ErrNoTextContent) {
			continue
		}
		return text, nil
	}

	return "", ErrNoAnswer
}
