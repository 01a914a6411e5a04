package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mindwell-screening/internal/llm"
)

// DefaultBackends is the priority list used when SCREENING_BACKENDS is unset:
// fastest Gemini model first, degrading to the lighter and latest aliases.
const DefaultBackends = "gemini:gemini-2.0-flash,gemini:gemini-2.0-flash-lite,gemini:gemini-flash-latest"

// Config holds every setting the server reads at start-up.
type Config struct {
	Port        string
	DatabaseURL string

	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Backends       []llm.BackendSpec
	BackendTimeout time.Duration

	Source         string
	NotifyChannel  string
	AlertThreshold int
	AllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. Prefixed keys use
// SCREENING_; the conventional PORT, DATABASE_URL and provider key variables
// are read unprefixed.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCREENING")
	v.AutomaticEnv()

	v.SetDefault("backends", DefaultBackends)
	v.SetDefault("backend_timeout", "8s")
	v.SetDefault("source", "ElevenLabs Agent")
	v.SetDefault("notify_channel", "screening_alerts")
	v.SetDefault("alert_threshold", 8)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("port", "8080")

	for key, env := range map[string]string{
		"port":            "PORT",
		"database_url":    "DATABASE_URL",
		"gemini_api_key":  "GEMINI_API_KEY",
		"openai_api_key":  "OPENAI_API_KEY",
		"openai_base_url": "OPENAI_BASE_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	backends, err := llm.ParseBackendList(v.GetString("backends"))
	if err != nil {
		return nil, fmt.Errorf("SCREENING_BACKENDS: %w", err)
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		DatabaseURL:    v.GetString("database_url"),
		GeminiAPIKey:   v.GetString("gemini_api_key"),
		OpenAIAPIKey:   v.GetString("openai_api_key"),
		OpenAIBaseURL:  v.GetString("openai_base_url"),
		Backends:       backends,
		BackendTimeout: v.GetDuration("backend_timeout"),
		Source:         v.GetString("source"),
		NotifyChannel:  v.GetString("notify_channel"),
		AlertThreshold: v.GetInt("alert_threshold"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configured backends can be built.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("no backends configured")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.BackendTimeout)
	}
	if c.AlertThreshold < 0 || c.AlertThreshold > 10 {
		return fmt.Errorf("alert threshold must be within 0-10, got %d", c.AlertThreshold)
	}
	for _, b := range c.Backends {
		switch b.Provider {
		case llm.ProviderGemini:
			if c.GeminiAPIKey == "" {
				return fmt.Errorf("backend %s requires GEMINI_API_KEY", b)
			}
		case llm.ProviderOpenAI:
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("backend %s requires OPENAI_API_KEY", b)
			}
		default:
			return fmt.Errorf("backend %s has unknown provider", b)
		}
	}
	return nil
}

// Credentials returns the provider keys in the form the backend builder
// expects.
func (c *Config) Credentials() llm.Credentials {
	return llm.Credentials{
		GeminiAPIKey:  c.GeminiAPIKey,
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
