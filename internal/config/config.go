// Package config loads service configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/jonathan/footwear-triage/internal/llm"
)

// Config is the full service configuration. Environment variables override
// values read from the YAML file. Secrets are env-only.
type Config struct {
	Port        int    `yaml:"port" env:"PORT" env-default:"8080" validate:"min=1,max=65535"`
	DatabaseURL string `yaml:"-" env:"DATABASE_URL"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`

	// SerializeInference allows one in-flight call per model instance.
	SerializeInference bool `yaml:"serialize_inference" env:"SERIALIZE_INFERENCE" env-default:"true"`

	LLM        LLMConfig        `yaml:"llm"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Intake     IntakeConfig     `yaml:"intake"`
	Admin      AdminConfig      `yaml:"admin"`
	Training   TrainingConfig   `yaml:"training"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// LLMConfig selects and configures the vision-language model.
type LLMConfig struct {
	Provider      string `yaml:"provider" env:"LLM_PROVIDER" env-default:"gemini" validate:"oneof=gemini openai"`
	Model         string `yaml:"model" env:"VLM_MODEL"`
	GeminiAPIKey  string `yaml:"-" env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `yaml:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `yaml:"openai_base_url" env:"OPENAI_BASE_URL" validate:"omitempty,url"`
}

// ClassifierConfig points at the two classifier services.
type ClassifierConfig struct {
	Stage1URL    string        `yaml:"stage1_url" env:"STAGE1_URL" validate:"omitempty,url"`
	Stage2URL    string        `yaml:"stage2_url" env:"STAGE2_URL" validate:"omitempty,url"`
	TargetLabel  string        `yaml:"target_label" env:"TARGET_LABEL" env-default:"sneaker" validate:"required"`
	Timeout      time.Duration `yaml:"timeout" env:"CLASSIFIER_TIMEOUT" env-default:"30s"`
	// ReadyTimeout bounds the startup wait for both services. Zero skips it.
	ReadyTimeout time.Duration `yaml:"ready_timeout" env:"CLASSIFIER_READY_TIMEOUT" env-default:"60s"`
}

// IntakeConfig bounds accepted uploads.
type IntakeConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"10485760" validate:"min=1"`
	MaxImageSide   int   `yaml:"max_image_side" env:"MAX_IMAGE_SIDE" env-default:"2048" validate:"min=32"`
}

// AdminConfig holds the shared secret for the admin endpoints. When
// TokenBcrypt is set it takes precedence over Token.
type AdminConfig struct {
	Token       string `yaml:"-" env:"ADMIN_TOKEN"`
	TokenBcrypt string `yaml:"-" env:"ADMIN_TOKEN_BCRYPT"`
}

// TrainingConfig configures the training capability and the automatic trigger.
type TrainingConfig struct {
	TrainerURL string        `yaml:"trainer_url" env:"TRAINER_URL" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" env:"TRAINER_TIMEOUT" env-default:"6h"`
	// Schedule is a cron expression for the automatic trigger. Empty disables it.
	Schedule  string `yaml:"schedule" env:"TRAINING_SCHEDULE"`
	ListLimit int    `yaml:"run_list_limit" env:"RUN_LIST_LIMIT" env-default:"20" validate:"min=1,max=100"`
}

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	DefaultLimit    int           `yaml:"default_limit" env:"RATE_LIMIT_DEFAULT_LIMIT" env-default:"1000" validate:"min=0"`
	DefaultWindow   time.Duration `yaml:"default_window" env:"RATE_LIMIT_DEFAULT_WINDOW" env-default:"1m"`
	AnalyzeLimit    int           `yaml:"analyze_limit" env:"RATE_LIMIT_ANALYZE_LIMIT" env-default:"60" validate:"min=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"RATE_LIMIT_CLEANUP_INTERVAL" env-default:"5m"`
	Whitelist       []string      `yaml:"whitelist" env:"RATE_LIMIT_WHITELIST" env-separator:","`
	Blacklist       []string      `yaml:"blacklist" env:"RATE_LIMIT_BLACKLIST" env-separator:","`
}

var validate = validator.New()

// Load reads configuration from path (YAML) with environment overrides, or
// from the environment alone when path is empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and formats.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// ValidateServe checks what the HTTP service needs on top of Validate.
func (c *Config) ValidateServe() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if err := validate.Var(c.Classifier.Stage1URL, "required,url"); err != nil {
		return fmt.Errorf("config error: STAGE1_URL: %w", err)
	}
	if err := validate.Var(c.Classifier.Stage2URL, "required,url"); err != nil {
		return fmt.Errorf("config error: STAGE2_URL: %w", err)
	}
	if c.LLMAPIKey() == "" && !(c.LLM.Provider == string(llm.ProviderOpenAI) && c.LLM.OpenAIBaseURL != "") {
		return fmt.Errorf("config error: no API key configured for provider %s", c.LLM.Provider)
	}
	if c.Admin.Token == "" && c.Admin.TokenBcrypt == "" {
		return fmt.Errorf("config error: ADMIN_TOKEN or ADMIN_TOKEN_BCRYPT is required")
	}
	return nil
}

// LLMAPIKey returns the key for the selected provider.
func (c *Config) LLMAPIKey() string {
	if c.LLM.Provider == string(llm.ProviderOpenAI) {
		return c.LLM.OpenAIAPIKey
	}
	return c.LLM.GeminiAPIKey
}

// LLMClientConfig builds the model client configuration.
func (c *Config) LLMClientConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(strings.ToLower(c.LLM.Provider))
	if err != nil {
		return nil, err
	}

	cfg := llm.DefaultGeminiConfig()
	if provider == llm.ProviderOpenAI {
		cfg = llm.DefaultOpenAIConfig()
		cfg.BaseURL = c.LLM.OpenAIBaseURL
	}
	if c.LLM.Model != "" {
		cfg = cfg.WithModel(c.LLM.Model)
	}
	cfg.Serialize = c.SerializeInference
	return cfg, nil
}
