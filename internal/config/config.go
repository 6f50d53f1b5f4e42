package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/regscout/regscout/pkg/logger"
)

// Config is the whole process configuration, sourced from environment
// variables (and a .env file for local runs).
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"production" validate:"oneof=development staging testing production"`
	Port        int    `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`

	OpenAI    OpenAIConfig    `envconfig:"OPENAI"`
	Assistant AssistantConfig `envconfig:"ASSISTANT"`
	Tavily    TavilyConfig    `envconfig:"TAVILY"`
	ECFR      ECFRConfig      `envconfig:"ECFR"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Session   SessionConfig   `envconfig:"SESSION"`
	RateLimit RateLimitConfig `envconfig:"RATELIMIT"`

	ToolsConfigPath string `envconfig:"TOOLS_CONFIG_PATH"`
}

type OpenAIConfig struct {
	APIKey      string `envconfig:"API_KEY" required:"true" validate:"required"`
	AssistantID string `envconfig:"ASSISTANT_ID" required:"true" validate:"required"`
	BaseURL     string `envconfig:"BASE_URL" validate:"omitempty,url"`
}

type AssistantConfig struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"500ms" validate:"gt=0"`
	RunTimeout   time.Duration `envconfig:"RUN_TIMEOUT" default:"2m" validate:"gt=0"`
	DefaultTool  string        `envconfig:"DEFAULT_TOOL" default:"Search_FDA_Guidance_Docs"`
}

type TavilyConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	BaseURL string `envconfig:"BASE_URL" default:"https://api.tavily.com" validate:"url"`
}

type ECFRConfig struct {
	BaseURL string `envconfig:"BASE_URL" default:"https://www.ecfr.gov" validate:"url"`
}

type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	Password     string        `envconfig:"PASSWORD"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type SessionConfig struct {
	CookieName string        `envconfig:"COOKIE_NAME" default:"regscout_session" validate:"required"`
	TTL        time.Duration `envconfig:"TTL" default:"24h" validate:"gt=0"`
	JWTSecret  string        `envconfig:"JWT_SECRET" default:"change-me-256-bit-secret" validate:"min=16"`
	Secure     bool          `envconfig:"SECURE_COOKIE" default:"true"`
}

// DefaultJWTSecret is the placeholder signing secret. It is only accepted in
// development and testing.
const DefaultJWTSecret = "change-me-256-bit-secret"

var (
	// ErrMissingEnv is returned when a required variable is absent.
	ErrMissingEnv = errors.New("missing required environment variable")
	// ErrDefaultSecret is returned when a deployed environment still signs
	// session cookies with DefaultJWTSecret.
	ErrDefaultSecret = errors.New("SESSION_JWT_SECRET must be set outside development")
)

// Load reads .env (if present) and then the environment into a Config.
func Load() (*Config, error) {
	log := logger.For(logger.CONFIG)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingEnv, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Bool("tavily_configured", cfg.Tavily.APIKey != "").
		Bool("redis_configured", cfg.Redis.URL != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// Validate checks field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Environment {
	case "development", "testing":
	default:
		if c.Session.JWTSecret == DefaultJWTSecret {
			return ErrDefaultSecret
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsDevelopment reports whether the process runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
