// Package httpgen implements a generator that calls an arbitrary REST
// endpoint described entirely by configuration: URL, method, headers, a body
// template and a JSON Pointer that locates the reply in the response.
package httpgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/generation"
	"github.com/phrazzld/prompttick/internal/jsonptr"
	"github.com/phrazzld/prompttick/internal/redact"
)

// ErrorTag prefixes every diagnostic returned by this generator.
const ErrorTag = "Generic HTTP Adapter Error"

const (
	defaultTimeout = 60 * time.Second
	excerptLimit   = 512
)

// Generator implements generation.Generator over HTTP.
type Generator struct {
	logger *slog.Logger
	client *http.Client

	url          string
	method       string
	headers      map[string]string
	bodyTemplate string
	pointer      string
	timeout      time.Duration
	policy       generation.RetryPolicy

	lookupEnv generation.LookupFunc
	sleep     func(context.Context, time.Duration) error
}

// NewGenerator validates cfg and returns a generator. A missing or malformed
// URL fails with generation.ErrConfiguration.
func NewGenerator(logger *slog.Logger, cfg config.GenericHTTPConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	rawURL := strings.TrimSpace(cfg.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: generic_http.url is not configured", generation.ErrConfiguration)
	}
	if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: generic_http.url %q is not an absolute URL", generation.ErrConfiguration, rawURL)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: generic_http.timeout must not be negative", generation.ErrConfiguration)
	}
	timeout := generation.Seconds(cfg.Timeout)
	if timeout == 0 {
		timeout = defaultTimeout
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Generator{
		logger:       logger.With("component", "generic_http"),
		client:       &http.Client{Timeout: timeout},
		url:          rawURL,
		method:       method,
		headers:      headers,
		bodyTemplate: cfg.BodyTemplate,
		pointer:      cfg.ResponseJSONPointer,
		timeout:      timeout,
		policy: generation.NewRetryPolicy(
			cfg.Retries.MaxAttempts,
			cfg.Retries.BackoffSeconds,
			cfg.Retries.RetryOnStatus,
		),
		sleep: generation.Sleep,
	}, nil
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return "generic_http" }

// Generate implements generation.Generator. Failures come back as
// "[Generic HTTP Adapter Error] ..." text.
func (g *Generator) Generate(ctx context.Context, prompt string) (text string) {
	render := func(err error) string { return generation.TaggedErrorText(ErrorTag, err) }
	defer generation.RecoverAsText(g.logger, &text, render)

	out, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "generic HTTP generation failed", "error", err)
		return render(err)
	}
	return out
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	headers, err := g.expandHeaders()
	if err != nil {
		return "", err
	}

	body, err := g.expandBody(prompt)
	if err != nil {
		return "", err
	}

	payload, err := encodePayload(body, headers)
	if err != nil {
		return "", err
	}

	g.logger.InfoContext(ctx, "HTTP request",
		"method", g.method,
		"url", g.url,
		"timeout", g.timeout.String())
	g.logger.InfoContext(ctx, "HTTP request headers", "headers", redact.Headers(headers))
	if len(body) > 0 {
		g.logger.DebugContext(ctx, "HTTP request body", "length", len(body))
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		status, respBody, err := g.send(ctx, headers, payload)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %v", generation.ErrTransport, ctxErr)
			}
			lastErr = fmt.Errorf("%w: request failed: %v", generation.ErrTransport, err)
			g.logger.WarnContext(ctx, "HTTP request error",
				"attempt", attempt,
				"max_attempts", g.policy.MaxAttempts,
				"error", err)

		case status >= 200 && status < 300:
			return g.extract(respBody)

		default:
			statusErr := fmt.Errorf("%w: HTTP %d | response excerpt: %s",
				generation.ErrHTTPStatus, status, generation.Truncate(string(respBody), excerptLimit))
			if !g.policy.RetriesStatus(status) || !g.policy.HasAttemptsAfter(attempt) {
				return "", statusErr
			}
			lastErr = statusErr
			g.logger.WarnContext(ctx, "HTTP status is retriable",
				"status", status,
				"attempt", attempt,
				"max_attempts", g.policy.MaxAttempts)
		}

		if !g.policy.HasAttemptsAfter(attempt) {
			return "", lastErr
		}

		if wait := g.policy.Backoff(attempt); wait > 0 {
			g.logger.InfoContext(ctx, "waiting before retry", "wait", wait.String())
			if err := g.sleep(ctx, wait); err != nil {
				return "", fmt.Errorf("%w: %v", generation.ErrTransport, err)
			}
		}
	}
}

// expandHeaders resolves ${ENV:NAME} placeholders in every header value.
func (g *Generator) expandHeaders() (map[string]string, error) {
	out := make(map[string]string, len(g.headers))
	for key, value := range g.headers {
		expanded, err := generation.ExpandEnv(value, g.lookupEnv)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		out[key] = expanded
	}
	return out, nil
}

// expandBody resolves environment placeholders and then substitutes the prompt.
func (g *Generator) expandBody(prompt string) (string, error) {
	if g.bodyTemplate == "" {
		return "", nil
	}
	expanded, err := generation.ExpandEnv(g.bodyTemplate, g.lookupEnv)
	if err != nil {
		return "", fmt.Errorf("body template: %w", err)
	}
	return generation.SubstitutePrompt(expanded, prompt), nil
}

// encodePayload validates and compacts JSON bodies; other bodies go out verbatim.
func encodePayload(body string, headers map[string]string) ([]byte, error) {
	if body == "" {
		return nil, nil
	}
	if !isJSONContentType(headers) {
		return []byte(body), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(body)); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrBodyParse, err)
	}
	return buf.Bytes(), nil
}

func isJSONContentType(headers map[string]string) bool {
	for key, value := range headers {
		if !strings.EqualFold(key, "Content-Type") {
			continue
		}
		mediaType, _, err := mime.ParseMediaType(value)
		if err != nil {
			mediaType, _, _ = strings.Cut(value, ";")
		}
		return strings.EqualFold(strings.TrimSpace(mediaType), "application/json")
	}
	return false
}

// send performs one attempt and returns the status and the full response body.
func (g *Generator) send(ctx context.Context, headers map[string]string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, g.method, g.url, body)
	if err != nil {
		return 0, nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// extract decodes a successful response and resolves the configured pointer.
func (g *Generator) extract(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	err := dec.Decode(&doc)
	if err == nil {
		var extra json.RawMessage
		if trailing := dec.Decode(&extra); trailing != io.EOF {
			err = fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v | response excerpt: %s",
			generation.ErrResponseParse, err, generation.Truncate(string(data), excerptLimit))
	}

	text, err := jsonptr.ResolveText(doc, g.pointer)
	if err != nil {
		preview, _ := jsonptr.Text(doc)
		return "", fmt.Errorf("%w: %v | response excerpt: %s",
			generation.ErrPointer, err, generation.Truncate(preview, excerptLimit))
	}
	return text, nil
}
