// Package gemini implements a generator backed by Google's Gemini models
// through the google.golang.org/genai client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/generation"
)

const (
	defaultModel     = "gemini-2.5-flash"
	defaultAPIKeyEnv = "GEMINI_API_KEY"

	errorLimit = 1024
)

// contentGenerator is the part of genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator with the Gemini API.
type Generator struct {
	logger *slog.Logger

	model           string
	temperature     float32
	maxOutputTokens int32
	systemPrompt    string
	apiKeyEnv       string
	baseURL         string
	policy          generation.RetryPolicy

	mu        sync.Mutex
	models    contentGenerator
	clientKey string
	newModels func(ctx context.Context, apiKey string) (contentGenerator, error)

	lookupEnv generation.LookupFunc
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

// NewGenerator returns a Gemini generator. The client is created on first use
// because the API key is read from the environment on every call.
func NewGenerator(logger *slog.Logger, cfg config.GeminiConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.MaxOutputTokens < 0 {
		return nil, fmt.Errorf("%w: gemini.max_output_tokens must not be negative", generation.ErrConfiguration)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	keyEnv := strings.TrimSpace(cfg.APIKeyEnv)
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}

	g := &Generator{
		logger:          logger.With("component", "gemini"),
		model:           model,
		temperature:     float32(cfg.Temperature),
		maxOutputTokens: cfg.MaxOutputTokens,
		systemPrompt:    cfg.SystemPrompt,
		apiKeyEnv:       keyEnv,
		baseURL:         strings.TrimSpace(cfg.BaseURL),
		policy:          generation.NewRetryPolicy(cfg.MaxAttempts, cfg.BaseBackoff, generation.DefaultRetryableStatuses),
		lookupEnv:       os.LookupEnv,
		sleep:           generation.Sleep,
		now:             time.Now,
	}
	g.newModels = g.dial
	return g, nil
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return "gemini" }

// Generate implements generation.Generator. Failures come back as
// "ERROR: ..." text of at most 1024 characters.
func (g *Generator) Generate(ctx context.Context, prompt string) (text string) {
	render := func(err error) string {
		return generation.Truncate(generation.ErrorText(err), errorLimit)
	}
	defer generation.RecoverAsText(g.logger, &text, render)

	out, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "gemini generation failed", "error", err)
		return render(err)
	}
	return out
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	key, ok := g.lookupEnv(g.apiKeyEnv)
	if !ok || strings.TrimSpace(key) == "" {
		return "", &credentialError{env: g.apiKeyEnv}
	}

	models, err := g.client(ctx, key)
	if err != nil {
		return "", err
	}

	g.logger.InfoContext(ctx, "Gemini request",
		"model", g.model,
		"temperature", g.temperature,
		"max_output_tokens", g.maxOutputTokens,
		"prompt_preview", generation.Preview(prompt, 80),
		"prompt_length", len(prompt))

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	params := g.buildConfig()

	for attempt := 1; ; attempt++ {
		resp, err := models.GenerateContent(ctx, g.model, contents, params)
		if err == nil {
			return extractText(resp)
		}

		status := statusOf(err)
		if ctx.Err() != nil {
			return "", &requestError{status: status, err: err}
		}

		// The genai client does not surface response headers, so Retry-After
		// never applies here.
		decision := g.policy.Decide(attempt, status, "", g.now())
		if !decision.Retry {
			return "", &requestError{status: status, err: err}
		}

		g.logger.WarnContext(ctx, "Gemini attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", g.policy.MaxAttempts,
			"status", decision.Status,
			"wait", decision.Wait.String(),
			"error", err)

		if err := g.sleep(ctx, decision.Wait); err != nil {
			return "", &requestError{status: status, err: err}
		}
	}
}

func (g *Generator) buildConfig() *genai.GenerateContentConfig {
	temperature := g.temperature
	params := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: g.maxOutputTokens,
	}
	if strings.TrimSpace(g.systemPrompt) != "" {
		params.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.systemPrompt}}}
	}
	return params
}

// client returns the cached genai client, rebuilding it when the key changes.
func (g *Generator) client(ctx context.Context, key string) (contentGenerator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.models != nil && g.clientKey == key {
		return g.models, nil
	}
	models, err := g.newModels(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrConfiguration, err)
	}
	g.models = models
	g.clientKey = key
	return models, nil
}

func (g *Generator) dial(ctx context.Context, apiKey string) (contentGenerator, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// statusOf extracts the HTTP status from a failed call.
func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return generation.StatusFromError(err)
}

// extractText joins the non-thought text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &emptyError{}
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}

	return "", &emptyError{finishReason: string(candidate.FinishReason)}
}

// credentialError reports a missing API key.
type credentialError struct{ env string }

func (e *credentialError) Error() string { return e.env + " not set in environment." }

func (e *credentialError) Is(target error) bool {
	return target == generation.ErrMissingCredential || target == generation.ErrResource
}

// emptyError reports a response without usable text.
type emptyError struct{ finishReason string }

func (e *emptyError) Error() string {
	if e.finishReason != "" {
		return "Empty response from Gemini (finish reason " + e.finishReason + ")."
	}
	return "Empty response from Gemini."
}

func (e *emptyError) Is(target error) bool {
	return target == generation.ErrEmptyResponse || target == generation.ErrProtocol
}

// requestError is the terminal failure of the retry loop.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("Gemini request failed status=%d: %v", e.status, e.err)
	}
	return fmt.Sprintf("Gemini request failed: %v", e.err)
}

func (e *requestError) Unwrap() error { return e.err }

func (e *requestError) Is(target error) bool {
	if e.status != 0 {
		return target == generation.ErrProtocol
	}
	return target == generation.ErrTransport
}
