// Package config loads tool configuration from an optional config.yaml with
// environment variable overrides, plus the schema description file.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/metazone-io/metazone/pkg/apperrors"
	"github.com/metazone-io/metazone/pkg/llm"
)

// Config holds all configuration for a run. Environment variables override
// YAML values; secrets (credentials, API keys) come from the environment
// only. The struct is built once at startup and passed by reference — no
// ambient lookups inside business logic.
type Config struct {
	// Catalog is the DataZone target.
	Catalog CatalogConfig `yaml:"catalog"`

	// AI selects and configures the generative model.
	AI AIConfig `yaml:"ai"`

	// Credentials authorize both the catalog and Bedrock calls.
	Credentials CredentialsConfig `yaml:"-"`

	// SchemaDescriptionPath points at the free-text domain context file.
	SchemaDescriptionPath string `yaml:"schema_description_path" env:"SCHEMA_DESCRIPTION_PATH" env-default:"schema_description.txt"`

	// Concurrency is the maximum number of in-flight model calls.
	// 1 gives strictly sequential processing.
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY" env-default:"4"`

	// MaxRetries bounds retry attempts per model call.
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES" env-default:"3"`

	Version string `yaml:"-"` // Set at load time, not from config
}

// CatalogConfig identifies the catalog service endpoint and target asset.
type CatalogConfig struct {
	Region   string `yaml:"region" env:"DATAZONE_REGION" env-default:"ap-northeast-2"`
	DomainID string `yaml:"domain_id" env:"DATAZONE_DOMAIN_ID" env-default:""`
	AssetID  string `yaml:"asset_id" env:"DATAZONE_ASSET_ID" env-default:""`
}

// AIConfig configures the generative model.
type AIConfig struct {
	// Provider is one of: bedrock (default), anthropic, openai.
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"bedrock"`

	// Region is the Bedrock endpoint region. Falls back to the catalog
	// region when empty.
	Region string `yaml:"region" env:"AI_REGION" env-default:""`

	Model string `yaml:"model" env:"AI_MODEL" env-default:"anthropic.claude-3-haiku-20240307-v1:0"`

	// APIKey applies to the anthropic and openai providers.
	APIKey string `yaml:"-" env:"AI_API_KEY"`

	// Endpoint applies to the openai provider (self-hosted endpoints).
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:""`

	MaxTokens   int     `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"1024"`
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.2"`

	// MaxContextChars bounds how much of the schema description is embedded
	// in each prompt.
	MaxContextChars int `yaml:"max_context_chars" env:"AI_MAX_CONTEXT_CHARS" env-default:"6000"`
}

// CredentialsConfig is the AWS credential pair. Secrets only, never YAML.
type CredentialsConfig struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Load reads configuration from config.yaml when present, otherwise from
// the environment alone. Flag overrides are applied by the caller before
// Validate.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("%w: read config.yaml: %v", apperrors.ErrConfig, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("%w: read environment: %v", apperrors.ErrConfig, err)
		}
	}

	if cfg.AI.Region == "" {
		cfg.AI.Region = cfg.Catalog.Region
	}

	return cfg, nil
}

// Validate checks the configuration after flag overrides are applied.
func (c *Config) Validate() error {
	if c.Catalog.DomainID == "" {
		return fmt.Errorf("%w: domain identifier is required", apperrors.ErrConfig)
	}
	if c.Catalog.AssetID == "" {
		return fmt.Errorf("%w: asset identifier is required", apperrors.ErrConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", apperrors.ErrConfig)
	}

	switch llm.Provider(c.AI.Provider) {
	case llm.ProviderBedrock, llm.ProviderAnthropic, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown AI provider %q", apperrors.ErrConfig, c.AI.Provider)
	}

	return nil
}

// LLMConfig maps the run configuration onto an llm client configuration.
func (c *Config) LLMConfig() *llm.Config {
	return &llm.Config{
		Provider:        llm.Provider(c.AI.Provider),
		Model:           c.AI.Model,
		Region:          c.AI.Region,
		AccessKeyID:     c.Credentials.AccessKeyID,
		SecretAccessKey: c.Credentials.SecretAccessKey,
		APIKey:          c.AI.APIKey,
		Endpoint:        c.AI.Endpoint,
		MaxTokens:       c.AI.MaxTokens,
		Temperature:     c.AI.Temperature,
	}
}

// LoadSchemaDescription reads the schema description file. An empty file is
// valid; a missing or unreadable file is a configuration error.
func LoadSchemaDescription(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: schema description file: %v", apperrors.ErrConfig, err)
	}
	return string(data), nil
}
