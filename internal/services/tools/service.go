package tools

import (
	"fmt"

	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

type Service struct {
	tools    []openai.Tool
	enabled  map[Name]bool
	executor *Executor
}

// NewService builds the tool definitions offered to runs. A definition is
// only offered when its adapter is configured; pass a nil interface for an
// adapter that is not.
func NewService(toolsConfig *config.ToolsConfig, fdaSearcher, cfrSearcher Searcher) (*Service, error) {
	log := logger.For(logger.TOOLS)

	configured := map[Name]bool{
		SearchFDAGuidanceDocs: fdaSearcher != nil,
		SearchCFRTitle21:      cfrSearcher != nil,
	}

	var tools []openai.Tool
	enabled := make(map[Name]bool)
	for _, toolDef := range toolsConfig.Tools {
		name, err := ParseName(toolDef.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid tools config: %w", err)
		}

		if !configured[name] {
			log.Warn().Str("tool", toolDef.Name).Msg("Skipping tool - adapter not configured")
			continue
		}

		enabled[name] = true
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolDef.Name,
				Description: toolDef.Description,
				Parameters:  toolDef.Parameters,
			},
		})
	}

	log.Info().Int("tools", len(tools)).Msg("Tool service initialized")

	return &Service{
		tools:    tools,
		enabled:  enabled,
		executor: NewExecutor(fdaSearcher, cfrSearcher),
	}, nil
}

// GetTools returns the function definitions attached to every run.
func (s *Service) GetTools() []openai.Tool {
	return s.tools
}

// IsEnabled reports whether name is offered to the assistant.
func (s *Service) IsEnabled(name Name) bool {
	return s.enabled[name]
}

// GetExecutor returns the executor that answers tool calls.
func (s *Service) GetExecutor() *Executor {
	return s.executor
}
