// Package benchmark holds the value types and pure computations behind an LLM
// latency benchmark: the run configuration, latency statistics and the ASCII
// histogram that summarizes a run.
package benchmark

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// DefaultPrompt is the prompt sent when none is supplied
	DefaultPrompt = "Tell me a short joke"

	DefaultNumRequests  = 10
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = time.Second
	DefaultRequestDelay = 2 * time.Second

	// MaxAPINumRequests bounds num_requests on the HTTP surface
	MaxAPINumRequests = 1000

	secureScheme   = "https://"
	insecureScheme = "http://"

	randomSuffixLen     = 8
	randomSuffixCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrInvalidConfig is returned when a RunConfig cannot be used for a run
var ErrInvalidConfig = errors.New("invalid run configuration")

// RunConfig describes one benchmark run. It is built once per invocation and
// never mutated afterwards.
type RunConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	Prompt       string
	NumRequests  int
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration // backoff base, multiplied by the retry number
	RequestDelay time.Duration // pause between iterations

	Debug           bool // verbose diagnostics and https→http fallback on TLS errors
	TryHTTP         bool // rewrite https:// to http:// before the run starts
	RandomizePrompt bool
	VerifyTLS       bool // false sends every request without certificate verification
}

// Validate checks the fields the benchmark loop depends on
func (c RunConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if c.NumRequests < 0 {
		return fmt.Errorf("%w: num_requests must not be negative", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 || c.RequestDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	}
	return nil
}

// EffectiveEndpoint returns the endpoint the run targets, applying TryHTTP
func (c RunConfig) EffectiveEndpoint() string {
	if c.TryHTTP && IsSecure(c.Endpoint) {
		return InsecureEndpoint(c.Endpoint)
	}
	return c.Endpoint
}

// IsSecure reports whether the endpoint uses the https scheme
func IsSecure(endpoint string) bool {
	return strings.HasPrefix(endpoint, secureScheme)
}

// InsecureEndpoint replaces the https scheme with http
func InsecureEndpoint(endpoint string) string {
	if !IsSecure(endpoint) {
		return endpoint
	}
	return insecureScheme + strings.TrimPrefix(endpoint, secureScheme)
}

// RandomizePrompt appends a fresh 8 character alphanumeric marker so that
// upstream caches cannot serve repeated prompts.
func RandomizePrompt(prompt string) string {
	var b strings.Builder
	b.Grow(randomSuffixLen)
	for range randomSuffixLen {
		b.WriteByte(randomSuffixCharset[rand.IntN(len(randomSuffixCharset))])
	}
	return fmt.Sprintf("%s [rnd:%s]", prompt, b.String())
}
