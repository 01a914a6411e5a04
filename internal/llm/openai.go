package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend calls an OpenAI-compatible chat completion API with a single
// model. It serves as an alternate when the Gemini models are exhausted.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend constructs an OpenAI-backed generation backend. baseURL is
// optional and allows pointing at OpenAI-compatible gateways.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Name returns the model name.
func (b *OpenAIBackend) Name() string { return b.model }

// Generate implements Backend. The chat completion API has no per-request
// safety knob, so SafetyRelaxed is ignored.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &GenerationError{Backend: b.model, Kind: classifyOpenAIError(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Backend: b.model, Kind: KindTransient, Err: errors.New("no choices returned")}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &GenerationError{Backend: b.model, Kind: KindRejected, Err: errors.New("completion blocked by content filter")}
	}
	return choice.Message.Content, nil
}

func classifyOpenAIError(err error) ErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == "insufficient_quota" {
			return KindQuotaExceeded
		}
		return kindForStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return kindForStatus(reqErr.HTTPStatusCode)
	}
	return KindTransient
}
