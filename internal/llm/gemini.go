package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Models is the subset of the GenAI models service used by GeminiBackend.
// *genai.Models satisfies it; tests substitute a fake.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiModels constructs a GenAI client for the Gemini API and returns its
// models service. One client is shared by every Gemini backend.
func NewGeminiModels(ctx context.Context, apiKey string) (Models, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// GeminiBackend generates text with a single Gemini model.
type GeminiBackend struct {
	models Models
	model  string
}

// NewGeminiBackend binds a model name to a GenAI models service.
func NewGeminiBackend(models Models, model string) *GeminiBackend {
	return &GeminiBackend{models: models, model: model}
}

// Name returns the model name.
func (b *GeminiBackend) Name() string { return b.model }

// Generate implements Backend.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}
	if opts.JSONMode {
		config.ResponseMIMEType = "application/json"
	}
	if opts.SafetyRelaxed {
		config.SafetySettings = relaxedSafetySettings()
	}
	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(prompt), config)
	if err != nil {
		return "", &GenerationError{Backend: b.model, Kind: classifyGeminiError(err), Err: err}
	}
	if resp == nil {
		return "", &GenerationError{Backend: b.model, Kind: KindTransient, Err: errors.New("empty response")}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &GenerationError{
			Backend: b.model,
			Kind:    KindRejected,
			Err:     fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}
	if len(resp.Candidates) == 0 {
		return "", &GenerationError{Backend: b.model, Kind: KindRejected, Err: errors.New("no candidates returned")}
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", &GenerationError{Backend: b.model, Kind: KindRejected, Err: errors.New("candidate blocked by safety filter")}
	}
	return resp.Text(), nil
}

// relaxedSafetySettings disables blocking for the categories that clinical
// screening language routinely trips.
func relaxedSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}

func classifyGeminiError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return kindForGeminiStatus(apiErr.Code, apiErr.Status)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return kindForGeminiStatus(apiErrPtr.Code, apiErrPtr.Status)
	}
	return KindTransient
}

func kindForGeminiStatus(code int, status string) ErrorKind {
	if status == "RESOURCE_EXHAUSTED" {
		return KindQuotaExceeded
	}
	return kindForStatus(code)
}
