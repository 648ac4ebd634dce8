package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	benchmarkpkg "github.com/llmbench/llmbench/internal/benchmark"
	"github.com/llmbench/llmbench/internal/logging"
)

const (
	msgUnauthorized    = "Incorrect username or password"
	msgInternalError   = "Internal server error"
	msgTooManyRequests = "Too many requests"
	msgBodyTooLarge    = "Request body too large"
	msgRunning         = "LLM Benchmark API is running"

	// statusClientClosedRequest is logged when the caller disconnects mid-run
	statusClientClosedRequest = 499
)

// Request/Response types

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse is returned by the root liveness endpoint
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// ReadyResponse is the readiness check response
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
}

// BenchmarkRequest is the JSON body of POST /benchmark. Endpoint and
// NumRequests are pre-filled with defaults before binding.
type BenchmarkRequest struct {
	Endpoint    string `json:"endpoint" binding:"required"`
	APIKey      string `json:"api_key" binding:"required"`
	Model       string `json:"model" binding:"required"`
	Prompt      string `json:"prompt" binding:"required"`
	NumRequests int    `json:"num_requests" binding:"min=1,max=1000"`
}

// BenchmarkQuery holds the tuning knobs accepted as query parameters.
// Durations are in seconds.
type BenchmarkQuery struct {
	Timeout         float64 `form:"timeout" binding:"gt=0"`
	MaxRetries      int     `form:"max_retries" binding:"min=0"`
	RetryDelay      float64 `form:"retry_delay" binding:"min=0"`
	RequestDelay    float64 `form:"request_delay" binding:"min=0"`
	Debug           bool    `form:"debug"`
	RandomizePrompt bool    `form:"randomize_prompt"`
}

// BenchmarkResponse carries the statistics and histogram of a run
type BenchmarkResponse = benchmarkpkg.Result

// Handlers

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: msgRunning})
}

func (s *Server) handleHealth(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	if s.runner != nil {
		response.Services["runner"] = "ok"
	} else {
		response.Services["runner"] = "missing"
	}

	if s.limiter != nil {
		response.Services["rate_limit"] = "enabled"
	} else {
		response.Services["rate_limit"] = "disabled"
	}

	if !s.IsReady() {
		response.Status = "unavailable"
		response.Services["ready"] = "false"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Services["ready"] = "true"
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleReady(c *gin.Context) {
	response := ReadyResponse{
		Ready:     s.IsReady(),
		Timestamp: time.Now(),
	}

	if !s.IsReady() {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleBenchmark(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.LoggerFrom(ctx, s.logger)

	query, details := parseBenchmarkQuery(c)

	req := BenchmarkRequest{
		Endpoint:    s.defaultEndpoint,
		NumRequests: benchmarkpkg.DefaultNumRequests,
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Detail: msgBodyTooLarge})
			return
		}
		details = append(details, bodyValidationDetails(err)...)
	}

	if len(details) > 0 {
		logger.Info("benchmark request rejected", slog.Int("errors", len(details)))
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: details})
		return
	}

	cfg := benchmarkpkg.RunConfig{
		Endpoint:        req.Endpoint,
		APIKey:          req.APIKey,
		Model:           req.Model,
		Prompt:          req.Prompt,
		NumRequests:     req.NumRequests,
		Timeout:         seconds(query.Timeout),
		MaxRetries:      query.MaxRetries,
		RetryDelay:      seconds(query.RetryDelay),
		RequestDelay:    seconds(query.RequestDelay),
		Debug:           query.Debug,
		RandomizePrompt: query.RandomizePrompt,
		VerifyTLS:       s.verifyTLS,
	}

	logging.Audit(ctx, "benchmark_started",
		slog.String("user", c.GetString("username")),
		slog.String("endpoint", cfg.Endpoint),
		slog.String("model", cfg.Model),
		slog.Int("num_requests", cfg.NumRequests))

	result, err := s.runner.Benchmark(ctx, cfg)
	if err != nil {
		switch {
		case errors.Is(err, benchmarkpkg.ErrInvalidConfig):
			c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
				Detail: []ValidationError{{Loc: []string{locBody}, Msg: err.Error(), Type: "value_error"}},
			})
		case ctx.Err() != nil:
			logger.Warn("benchmark aborted, client went away", slog.String("error", err.Error()))
			c.AbortWithStatus(statusClientClosedRequest)
		default:
			logger.Error("benchmark failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: msgInternalError})
		}
		return
	}

	logging.Audit(ctx, "benchmark_completed",
		slog.String("user", c.GetString("username")),
		slog.Int("successful", result.Stats.Count),
		slog.Int("num_requests", cfg.NumRequests))

	c.JSON(http.StatusOK, result)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
