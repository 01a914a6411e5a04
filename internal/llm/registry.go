package llm

import (
	"context"
	"fmt"
	"strings"
)

// Supported provider prefixes in a backend list.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// BackendSpec names one entry of the backend priority list.
type BackendSpec struct {
	Provider string
	Model    string
}

func (s BackendSpec) String() string { return s.Provider + ":" + s.Model }

// ParseBackendList parses a comma separated list of provider:model entries.
// An entry without a provider prefix is taken to be a Gemini model. Order is
// preserved.
func ParseBackendList(list string) ([]BackendSpec, error) {
	var specs []BackendSpec
	for _, raw := range strings.Split(list, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		provider, model, found := strings.Cut(entry, ":")
		if !found {
			provider, model = ProviderGemini, entry
		}
		provider = strings.ToLower(strings.TrimSpace(provider))
		model = strings.TrimSpace(model)
		if model == "" {
			return nil, fmt.Errorf("backend %q has no model name", entry)
		}
		switch provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			return nil, fmt.Errorf("backend %q has unknown provider %q", entry, provider)
		}
		specs = append(specs, BackendSpec{Provider: provider, Model: model})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("backend list is empty")
	}
	return specs, nil
}

// Credentials holds the provider keys needed to build backends.
type Credentials struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// BuildBackends constructs backends for specs in the given order. A single
// GenAI client is shared by all Gemini entries.
func BuildBackends(ctx context.Context, specs []BackendSpec, creds Credentials) ([]Backend, error) {
	var gemini Models
	backends := make([]Backend, 0, len(specs))
	for _, spec := range specs {
		switch spec.Provider {
		case ProviderGemini:
			if gemini == nil {
				models, err := NewGeminiModels(ctx, creds.GeminiAPIKey)
				if err != nil {
					return nil, fmt.Errorf("create gemini client: %w", err)
				}
				gemini = models
			}
			backends = append(backends, NewGeminiBackend(gemini, spec.Model))
		case ProviderOpenAI:
			backends = append(backends, NewOpenAIBackend(creds.OpenAIAPIKey, creds.OpenAIBaseURL, spec.Model))
		default:
			return nil, fmt.Errorf("unknown provider %q", spec.Provider)
		}
	}
	return backends, nil
}
