package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwell-screening/internal/llm"
)

func TestLoad_Defaults(t *testing.T) {
	for _, env := range []string{"PORT", "DATABASE_URL", "SCREENING_BACKENDS", "SCREENING_BACKEND_TIMEOUT",
		"SCREENING_ALLOWED_ORIGINS", "SCREENING_ALERT_THRESHOLD", "SCREENING_SOURCE", "SCREENING_NOTIFY_CHANNEL"} {
		t.Setenv(env, "")
	}
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 8*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "ElevenLabs Agent", cfg.Source)
	assert.Equal(t, "screening_alerts", cfg.NotifyChannel)
	assert.Equal(t, 8, cfg.AlertThreshold)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, []llm.BackendSpec{
		{Provider: llm.ProviderGemini, Model: "gemini-2.0-flash"},
		{Provider: llm.ProviderGemini, Model: "gemini-2.0-flash-lite"},
		{Provider: llm.ProviderGemini, Model: "gemini-flash-latest"},
	}, cfg.Backends)
	assert.Equal(t, "g-key", cfg.Credentials().GeminiAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/screening")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("OPENAI_BASE_URL", "http://gateway/v1")
	t.Setenv("SCREENING_BACKENDS", "openai:gpt-4o-mini")
	t.Setenv("SCREENING_BACKEND_TIMEOUT", "3s")
	t.Setenv("SCREENING_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SCREENING_ALERT_THRESHOLD", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/screening", cfg.DatabaseURL)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 9, cfg.AlertThreshold)
	assert.Equal(t, llm.Credentials{OpenAIAPIKey: "o-key", OpenAIBaseURL: "http://gateway/v1"}, cfg.Credentials())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing gemini key", env: map[string]string{}},
		{name: "missing openai key", env: map[string]string{"SCREENING_BACKENDS": "openai:gpt-4o-mini"}},
		{name: "unknown provider", env: map[string]string{"GEMINI_API_KEY": "k", "SCREENING_BACKENDS": "other:m"}},
		{name: "zero timeout", env: map[string]string{"GEMINI_API_KEY": "k", "SCREENING_BACKEND_TIMEOUT": "0s"}},
		{name: "threshold out of range", env: map[string]string{"GEMINI_API_KEY": "k", "SCREENING_ALERT_THRESHOLD": "11"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
