// Package config provides configuration for the page service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort  int
	BodyLimit string
	ServerURL string

	// Model settings
	Mode                    string
	LLMBaseURL              string
	LLMAPIKey               string
	EnhanceModel            string
	GenerateModel           string
	ModifyModel             string
	EnhanceMaxTokens        int
	GenerateMaxTokens       int
	ModifyMaxTokens         int
	GenerateReasoningEffort string
	ModifyReasoningEffort   string
	ModelTimeout            time.Duration

	// Circuit breaker
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerOpenTimeout  time.Duration

	// Conversation store
	StoreDriver string
	DatabaseURL string

	// Request policy
	MaxPromptChars int
	MaxHTMLBytes   int

	// Preview bridge
	BridgeAllowedOrigin  string
	HighlightMinTokenLen int
	HighlightDuration    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 5000)
	v.SetDefault("body_limit", "50M")
	v.SetDefault("server_url", "http://localhost:5000")

	v.SetDefault("gogo_mode", "")
	v.SetDefault("llm_base_url", "https://api.openai.com")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("enhance_model", "gpt-4o")
	v.SetDefault("generate_model", "o3-mini")
	v.SetDefault("modify_model", "o3-mini")
	v.SetDefault("enhance_max_tokens", 2000)
	v.SetDefault("generate_max_tokens", 40000)
	v.SetDefault("modify_max_tokens", 30000)
	v.SetDefault("generate_reasoning_effort", "medium")
	v.SetDefault("modify_reasoning_effort", "low")
	v.SetDefault("model_timeout_ms", 180000)

	v.SetDefault("breaker_failure_ratio", 0.8)
	v.SetDefault("breaker_min_requests", 5)
	v.SetDefault("breaker_open_timeout_ms", 60000)

	v.SetDefault("store_driver", "memory")
	v.SetDefault("database_url", "file:pagesmith.db?cache=shared&mode=rwc")

	v.SetDefault("max_prompt_chars", 20000)
	v.SetDefault("max_html_bytes", 5<<20)

	v.SetDefault("bridge_allowed_origin", "null")
	v.SetDefault("highlight_min_token_len", 4)
	v.SetDefault("highlight_duration_ms", 2000)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration from defaults, the environment and, when
// configFile is set, a YAML, TOML or JSON file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The upstream key is conventionally exported under this name.
	_ = v.BindEnv("llm_api_key", "LLM_API_KEY", "OPENAI_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	cfg := build(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults without reading the environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	return build(v)
}

func build(v *viper.Viper) *Config {
	return &Config{
		HTTPPort:  v.GetInt("http_port"),
		BodyLimit: v.GetString("body_limit"),
		ServerURL: v.GetString("server_url"),

		Mode:                    v.GetString("gogo_mode"),
		LLMBaseURL:              v.GetString("llm_base_url"),
		LLMAPIKey:               v.GetString("llm_api_key"),
		EnhanceModel:            v.GetString("enhance_model"),
		GenerateModel:           v.GetString("generate_model"),
		ModifyModel:             v.GetString("modify_model"),
		EnhanceMaxTokens:        v.GetInt("enhance_max_tokens"),
		GenerateMaxTokens:       v.GetInt("generate_max_tokens"),
		ModifyMaxTokens:         v.GetInt("modify_max_tokens"),
		GenerateReasoningEffort: v.GetString("generate_reasoning_effort"),
		ModifyReasoningEffort:   v.GetString("modify_reasoning_effort"),
		ModelTimeout:            millis(v, "model_timeout_ms"),

		BreakerFailureRatio: v.GetFloat64("breaker_failure_ratio"),
		BreakerMinRequests:  v.GetUint32("breaker_min_requests"),
		BreakerOpenTimeout:  millis(v, "breaker_open_timeout_ms"),

		StoreDriver: v.GetString("store_driver"),
		DatabaseURL: v.GetString("database_url"),

		MaxPromptChars: v.GetInt("max_prompt_chars"),
		MaxHTMLBytes:   v.GetInt("max_html_bytes"),

		BridgeAllowedOrigin:  v.GetString("bridge_allowed_origin"),
		HighlightMinTokenLen: v.GetInt("highlight_min_token_len"),
		HighlightDuration:    millis(v, "highlight_duration_ms"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("model_timeout_ms must be positive")
	}
	if c.HighlightMinTokenLen < 1 {
		return fmt.Errorf("highlight_min_token_len must be at least 1")
	}
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}
	return nil
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Millisecond
}
