package benchmark

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() RunConfig {
	return RunConfig{
		Endpoint:     "https://llm.example.com",
		APIKey:       "sk-test",
		Model:        "gpt-4o",
		Prompt:       DefaultPrompt,
		NumRequests:  DefaultNumRequests,
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		RequestDelay: DefaultRequestDelay,
	}
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		errMsg string
	}{
		{"valid", func(*RunConfig) {}, ""},
		{"missing endpoint", func(c *RunConfig) { c.Endpoint = "" }, "endpoint is required"},
		{"missing model", func(c *RunConfig) { c.Model = "" }, "model is required"},
		{"negative requests", func(c *RunConfig) { c.NumRequests = -1 }, "num_requests"},
		{"zero requests allowed", func(c *RunConfig) { c.NumRequests = 0 }, ""},
		{"zero timeout", func(c *RunConfig) { c.Timeout = 0 }, "timeout"},
		{"negative retries", func(c *RunConfig) { c.MaxRetries = -1 }, "max_retries"},
		{"negative delay", func(c *RunConfig) { c.RequestDelay = -time.Second }, "delays"},
		{"zero retries allowed", func(c *RunConfig) { c.MaxRetries = 0 }, ""},
		{"unbounded request count", func(c *RunConfig) { c.NumRequests = 5000 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunConfig_EffectiveEndpoint(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "https://llm.example.com", cfg.EffectiveEndpoint())

	cfg.TryHTTP = true
	assert.Equal(t, "http://llm.example.com", cfg.EffectiveEndpoint())

	cfg.Endpoint = "http://already.plain"
	assert.Equal(t, "http://already.plain", cfg.EffectiveEndpoint())
}

func TestInsecureEndpoint(t *testing.T) {
	assert.Equal(t, "http://host:8443/base", InsecureEndpoint("https://host:8443/base"))
	assert.Equal(t, "http://host", InsecureEndpoint("http://host"))
	assert.True(t, IsSecure("https://host"))
	assert.False(t, IsSecure("http://host"))
}

func TestRandomizePrompt(t *testing.T) {
	pattern := regexp.MustCompile(`^Tell me a short joke \[rnd:[A-Za-z0-9]{8}\]$`)

	seen := make(map[string]bool)
	for range 50 {
		p := RandomizePrompt(DefaultPrompt)
		assert.Regexp(t, pattern, p)
		seen[p] = true
	}
	assert.Len(t, seen, 50)
}

func TestNewResult(t *testing.T) {
	result := NewResult(nil)
	assert.Equal(t, Stats{}, result.Stats)
	assert.Equal(t, NoDataHistogram, result.Histogram)

	result = NewResult([]float64{0.2, 0.4})
	assert.Equal(t, 2, result.Stats.Count)
	assert.Contains(t, result.Histogram, "0.2000 - 0.2200")
}
