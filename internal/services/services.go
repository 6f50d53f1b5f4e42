package services

import (
	"fmt"
	"sync"

	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/internal/infrastructure/ecfr"
	"github.com/regscout/regscout/internal/infrastructure/openai"
	"github.com/regscout/regscout/internal/infrastructure/redis"
	"github.com/regscout/regscout/internal/infrastructure/tavily"
	"github.com/regscout/regscout/internal/services/assistant"
	"github.com/regscout/regscout/internal/services/chat"
	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/internal/services/tools"
	"github.com/regscout/regscout/pkg/logger"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	chatService    *chat.Implementation
	ecfrService    *ecfr.Service
	openAIService  *openai.Service
	orchestrator   *assistant.Orchestrator
	redisService   *redis.Service
	sessionService *session.Service
	tavilyService  *tavily.Service
	toolService    *tools.Service
}

// InitializeServices initializes all required services
func InitializeServices(cfg *config.Config) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log := logger.For(logger.SERVICE)
	log.Info().Msg("Initializing core services")

	// Initialize OpenAI service (required)
	openAIService := openai.NewService(cfg.OpenAI)
	if openAIService == nil {
		return nil, fmt.Errorf("failed to initialize OpenAI service - OPENAI_API_KEY is required")
	}

	// Initialize Redis service (optional)
	redisService := redis.NewService(cfg.Redis)

	// Initialize search adapters; a nil interface keeps a tool switched off
	tavilyService := tavily.NewService(cfg.Tavily)
	ecfrService := ecfr.NewService(cfg.ECFR)

	var fdaSearcher, cfrSearcher tools.Searcher
	if tavilyService != nil {
		fdaSearcher = tavilyService
	}
	if ecfrService != nil {
		cfrSearcher = ecfrService
	}

	toolsConfig, err := config.LoadToolsConfig(cfg.ToolsConfigPath)
	if err != nil {
		return nil, err
	}

	toolService, err := tools.NewService(toolsConfig, fdaSearcher, cfrSearcher)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tool service: %w", err)
	}

	client := openAIService.GetClient()

	orchestrator := assistant.NewOrchestrator(client, toolService.GetExecutor(), assistant.Options{
		AssistantID:  openAIService.AssistantID(),
		DefaultTool:  cfg.Assistant.DefaultTool,
		Tools:        toolService.GetTools(),
		PollInterval: cfg.Assistant.PollInterval,
		RunTimeout:   cfg.Assistant.RunTimeout,
	})

	store := session.NewStore(redisService, cfg.Session.TTL)
	sessionService := session.NewService(client, store, cfg.Session)

	chatService := chat.NewService(orchestrator, sessionService)

	log.Info().Msg("All services initialized successfully")

	return &Services{
		chatService:    chatService,
		ecfrService:    ecfrService,
		openAIService:  openAIService,
		orchestrator:   orchestrator,
		redisService:   redisService,
		sessionService: sessionService,
		tavilyService:  tavilyService,
		toolService:    toolService,
	}, nil
}

// GetChatService returns the chat service
func (s *Services) GetChatService() *chat.Implementation {
	return s.chatService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetToolService returns the tool service
func (s *Services) GetToolService() *tools.Service {
	return s.toolService
}

// GetRedisService returns the Redis service, or nil when Redis is not in use
func (s *Services) GetRedisService() *redis.Service {
	return s.redisService
}

// Close releases connections held by the services
func (s *Services) Close() error {
	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}
