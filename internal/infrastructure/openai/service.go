package openai

import (
	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

type Service struct {
	client      *openai.Client
	assistantID string
}

func NewService(cfg config.OpenAIConfig) *Service {
	log := logger.For(logger.SERVICE)

	if cfg.APIKey == "" {
		log.Warn().Msg("OpenAI service not configured - OPENAI_API_KEY missing")
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	log.Info().
		Str("base_url", clientConfig.BaseURL).
		Str("assistant_id", cfg.AssistantID).
		Msg("OpenAI service initialized")

	return &Service{
		client:      openai.NewClientWithConfig(clientConfig),
		assistantID: cfg.AssistantID,
	}
}

// GetClient returns the Assistants API client.
func (s *Service) GetClient() *openai.Client {
	return s.client
}

// AssistantID is the remote assistant every run is started against.
func (s *Service) AssistantID() string {
	return s.assistantID
}
