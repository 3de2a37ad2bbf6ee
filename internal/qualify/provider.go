// Package qualify evaluates leads against the service catalog using LLM
// providers, with failover from the primary to the secondary provider.
package qualify

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/pkg/gemini"
	"github.com/sells-group/leadscout/pkg/openai"
)

// Request carries the lead text to evaluate. Restrict, when non-empty,
// limits qualification to a single service offering.
type Request struct {
	Title    string
	Content  string
	Restrict model.ServiceTag
}

// Provider evaluates a lead and returns a structured verdict. Failures are
// classified: quota exhaustion surfaces as a resilience.QuotaError, retryable
// server-side failures as a resilience.TransientError.
type Provider interface {
	Name() model.Provider
	Evaluate(ctx context.Context, req Request) (*model.QualificationResult, error)
}

// OpenAIProvider evaluates leads via the OpenAI chat-completions API.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider wraps an OpenAI client as a qualification provider.
func NewOpenAIProvider(client openai.Client) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

func (p *OpenAIProvider) Name() model.Provider {
	return model.ProviderOpenAI
}

func (p *OpenAIProvider) Evaluate(ctx context.Context, req Request) (*model.QualificationResult, error) {
	temperature := 0.1
	resp, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature:    &temperature,
		ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai returned no choices")
	}

	result, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, eris.Wrap(err, "parse openai verdict")
	}
	result.Provider = model.ProviderOpenAI
	return result, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Quota():
			return resilience.NewQuotaError(string(model.ProviderOpenAI), apiErr)
		case apiErr.Transient():
			return resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
	}
	return err
}

// GeminiProvider evaluates leads via the Gemini generateContent API.
type GeminiProvider struct {
	client gemini.Client
}

// NewGeminiProvider wraps a Gemini client as a qualification provider.
func NewGeminiProvider(client gemini.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) Name() model.Provider {
	return model.ProviderGemini
}

func (p *GeminiProvider) Evaluate(ctx context.Context, req Request) (*model.QualificationResult, error) {
	temperature := 0.1
	resp, err := p.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: systemPrompt + "\n\n" + buildPrompt(req)}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return nil, classifyGemini(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, eris.New("gemini returned no candidates")
	}

	result, err := parseVerdict(text)
	if err != nil {
		return nil, eris.Wrap(err, "parse gemini verdict")
	}
	result.Provider = model.ProviderGemini
	return result, nil
}

func classifyGemini(err error) error {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Quota():
			return resilience.NewQuotaError(string(model.ProviderGemini), apiErr)
		case apiErr.Transient():
			return resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
	}
	return err
}
