// Package chat sends single timed chat completion requests to an
// OpenAI-compatible endpoint and classifies their outcome.
package chat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/llmbench/llmbench/internal/metrics"
)

const (
	// CompletionsPath is appended to the endpoint base URL
	CompletionsPath = "/v1/chat/completions"

	// Temperature and MaxTokens are fixed so runs stay comparable
	Temperature = 0.7
	MaxTokens   = 150

	defaultTimeout = 30 * time.Second
	maxLoggedBody  = 2048
)

// Request describes one chat completion attempt
type Request struct {
	Endpoint string // base URL, without the /v1/chat/completions suffix
	APIKey   string
	Model    string
	Prompt   string
	Timeout  time.Duration
	Debug    bool

	// InsecureSkipVerify sends this request without certificate
	// verification, whatever the client default is.
	InsecureSkipVerify bool
}

// Outcome is the tagged result of one attempt. Exactly one of Response
// (success) or a non-empty Cause (failure) is set.
type Outcome struct {
	Latency  time.Duration
	Response *openai.ChatCompletionResponse

	Cause      Cause
	StatusCode int
	Body       string // raw response text for CauseStatus
	Err        error  // transport error, nil for CauseStatus
}

// Succeeded reports whether the attempt produced a parsed response
func (o Outcome) Succeeded() bool {
	return o.Response != nil
}

// TLSRelated reports whether the failure looks like a TLS problem, either by
// classification or by the error text naming SSL/TLS.
func (o Outcome) TLSRelated() bool {
	if o.Succeeded() || o.Cause == CauseStatus {
		return false
	}
	return o.Cause == CauseTLS || MentionsTLS(o.Err)
}

// Client issues chat completion requests
type Client struct {
	httpClient     *http.Client
	insecureClient *http.Client
	logger         *slog.Logger
	verifyTLS      bool
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing). It serves every
// request, including those asking to skip verification.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
		c.insecureClient = client
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithVerifyTLS sets the default certificate verification for requests
// that do not set InsecureSkipVerify. Ignored when a custom HTTP client is
// supplied.
func WithVerifyTLS(verify bool) ClientOption {
	return func(c *Client) {
		c.verifyTLS = verify
	}
}

// NewClient creates a new chat completion client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger:    slog.Default(),
		verifyTLS: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: NewTransport(c.verifyTLS)}
		c.insecureClient = c.httpClient
		if c.verifyTLS {
			c.insecureClient = &http.Client{Transport: NewTransport(false)}
		}
	}

	return c
}

// NewTransport clones the default transport, optionally skipping certificate
// verification. Timeouts are applied per request through the context.
func NewTransport(verifyTLS bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if !verifyTLS {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --no-verify-ssl
	}
	return t
}

// Execute sends one chat completion request and measures its round trip.
// It never returns an error: every failure is folded into the Outcome.
func (c *Client) Execute(ctx context.Context, req Request) Outcome {
	out := c.execute(ctx, req)
	metrics.RecordChatRequest(out.Cause.Label(), out.Latency)
	return out
}

func (c *Client) execute(ctx context.Context, req Request) Outcome {
	target := strings.TrimSuffix(req.Endpoint, "/") + CompletionsPath

	payload, err := json.Marshal(openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return c.failure(req, 0, fmt.Errorf("failed to marshal request: %w", err), CauseUnexpected)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return c.failure(req, 0, fmt.Errorf("failed to create request: %w", err), CauseUnexpected)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	if req.Debug {
		c.logger.Debug("sending chat completion request",
			slog.String("url", target),
			slog.String("model", req.Model))
	}

	httpClient := c.httpClient
	if req.InsecureSkipVerify {
		httpClient = c.insecureClient
	}

	start := time.Now()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return c.failure(req, time.Since(start), err, Classify(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		err = fmt.Errorf("failed to read response: %w", err)
		return c.failure(req, latency, err, Classify(err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("chat completion returned non-200 status",
			slog.Int("status", resp.StatusCode),
			slog.String("response", truncate(string(body), maxLoggedBody)))
		return Outcome{
			Latency:    latency,
			Cause:      CauseStatus,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var parsed openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		out := c.failure(req, latency, fmt.Errorf("failed to decode response: %w", err), CauseUnexpected)
		out.StatusCode = resp.StatusCode
		return out
	}

	return Outcome{
		Latency:    latency,
		Response:   &parsed,
		StatusCode: resp.StatusCode,
	}
}

func (c *Client) failure(req Request, latency time.Duration, err error, cause Cause) Outcome {
	switch cause {
	case CauseTimeout:
		c.logger.Warn("chat completion timed out",
			slog.Duration("timeout", req.Timeout),
			slog.String("error", err.Error()))
	case CauseUnexpected:
		c.logger.Warn("chat completion failed unexpectedly", slog.String("error", err.Error()))
		if req.Debug {
			c.logger.Debug("unexpected error details",
				slog.String("error_type", fmt.Sprintf("%T", err)),
				slog.String("stack", string(debug.Stack())))
		}
	case CauseCanceled:
		c.logger.Debug("chat completion canceled", slog.String("error", err.Error()))
	default:
		c.logger.Warn("chat completion request failed",
			slog.String("cause", string(cause)),
			slog.String("error", err.Error()))
		if req.Debug {
			c.logger.Debug("request error details",
				slog.String("error_type", fmt.Sprintf("%T", err)))
		}
	}

	return Outcome{
		Latency: latency,
		Cause:   cause,
		Err:     err,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
