// Package openai implements a generator backed by the OpenAI Responses API
// through the official Go SDK. SDK-level retries are disabled; the generator
// applies its own status-based retry policy and honours Retry-After.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/generation"
)

const (
	defaultModel     = "gpt-4.1-mini"
	defaultAPIKeyEnv = "OPENAI_API_KEY"

	errorLimit   = 1024
	rawDumpLimit = 800
)

// responder is the part of the SDK's ResponseService the generator uses.
type responder interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// Generator implements generation.Generator with the Responses API.
type Generator struct {
	logger *slog.Logger
	api    responder

	model           string
	temperature     float64
	maxOutputTokens int64
	systemPrompt    string
	apiKeyEnv       string
	policy          generation.RetryPolicy

	lookupEnv generation.LookupFunc
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

// NewGenerator builds the SDK client from cfg. The API key is not read here;
// it is looked up in the environment on every call.
func NewGenerator(logger *slog.Logger, cfg config.OpenAIConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.MaxOutputTokens < 0 {
		return nil, fmt.Errorf("%w: openai.max_output_tokens must not be negative", generation.ErrConfiguration)
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if timeout := generation.Seconds(cfg.Timeout); timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	for key, value := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(key, value))
	}
	client := oai.NewClient(opts...)

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	keyEnv := strings.TrimSpace(cfg.APIKeyEnv)
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}

	return &Generator{
		logger:          logger.With("component", "openai"),
		api:             &client.Responses,
		model:           model,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		systemPrompt:    cfg.SystemPrompt,
		apiKeyEnv:       keyEnv,
		policy:          generation.NewRetryPolicy(cfg.MaxAttempts, cfg.BaseBackoff, generation.DefaultRetryableStatuses),
		lookupEnv:       os.LookupEnv,
		sleep:           generation.Sleep,
		now:             time.Now,
	}, nil
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return "openai" }

// Generate implements generation.Generator. Failures come back as
// "ERROR: ..." text of at most 1024 characters.
func (g *Generator) Generate(ctx context.Context, prompt string) (text string) {
	render := func(err error) string {
		return generation.Truncate(generation.ErrorText(err), errorLimit)
	}
	defer generation.RecoverAsText(g.logger, &text, render)

	out, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "openai generation failed", "error", err)
		return render(err)
	}
	return out
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	key, ok := g.lookupEnv(g.apiKeyEnv)
	if !ok || strings.TrimSpace(key) == "" {
		return "", &credentialError{env: g.apiKeyEnv}
	}

	g.logger.InfoContext(ctx, "OpenAI request",
		"model", g.model,
		"temperature", g.temperature,
		"max_output_tokens", g.maxOutputTokens,
		"prompt_preview", generation.Preview(prompt, 80),
		"prompt_length", len(prompt))

	params := g.buildParams(prompt)

	for attempt := 1; ; attempt++ {
		resp, err := g.api.New(ctx, params, option.WithAPIKey(key))
		if err == nil {
			return extractText(resp)
		}

		status, retryAfter := failureDetails(err)
		if ctx.Err() != nil {
			return "", &requestError{status: status, err: err}
		}

		decision := g.policy.Decide(attempt, status, retryAfter, g.now())
		if !decision.Retry {
			return "", &requestError{status: status, err: err}
		}

		g.logger.WarnContext(ctx, "OpenAI attempt failed, retrying",
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

// buildParams assembles the message list: an optional system message, then the prompt.
func (g *Generator) buildParams(prompt string) responses.ResponseNewParams {
	input := make(responses.ResponseInputParam, 0, 2)
	if strings.TrimSpace(g.systemPrompt) != "" {
		input = append(input, responses.ResponseInputItemParamOfMessage(g.systemPrompt, responses.EasyInputMessageRoleSystem))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model:       g.model,
		Input:       responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		Temperature: oai.Float(g.temperature),
	}
	if g.maxOutputTokens > 0 {
		params.MaxOutputTokens = oai.Int(g.maxOutputTokens)
	}
	return params
}

// failureDetails pulls the HTTP status and Retry-After header out of a failed call.
func failureDetails(err error) (int, string) {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		retryAfter := ""
		if apiErr.Response != nil {
			if status == 0 {
				status = apiErr.Response.StatusCode
			}
			retryAfter = apiErr.Response.Header.Get("Retry-After")
		}
		return status, retryAfter
	}
	return generation.StatusFromError(err), ""
}

// extractText returns the text of every output_text block of the message
// items, joined in order.
func extractText(resp *responses.Response) (string, error) {
	if resp == nil {
		return "", &parseError{}
	}
	if text := resp.OutputText(); text != "" {
		return text, nil
	}
	return "", &parseError{snippet: generation.Truncate(resp.RawJSON(), rawDumpLimit)}
}

// credentialError reports a missing API key.
type credentialError struct{ env string }

func (e *credentialError) Error() string { return e.env + " not set in environment." }

func (e *credentialError) Is(target error) bool {
	return target == generation.ErrMissingCredential || target == generation.ErrResource
}

// requestError is the terminal failure of the retry loop.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("OpenAI request failed status=%d: %v", e.status, e.err)
	}
	return fmt.Sprintf("OpenAI request failed: %v", e.err)
}

func (e *requestError) Unwrap() error { return e.err }

func (e *requestError) Is(target error) bool {
	if e.status != 0 {
		return target == generation.ErrProtocol
	}
	return target == generation.ErrTransport
}

// parseError reports a response without extractable text.
type parseError struct{ snippet string }

func (e *parseError) Error() string {
	if e.snippet == "" {
		return "Empty response from OpenAI."
	}
	return "Unable to parse OpenAI response. Raw snippet: " + e.snippet
}

func (e *parseError) Is(target error) bool {
	return target == generation.ErrEmptyResponse || target == generation.ErrProtocol
}
