// Package api exposes the benchmark over HTTP: an authenticated
// POST /benchmark plus liveness, readiness and Prometheus endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	benchmarkpkg "github.com/llmbench/llmbench/internal/benchmark"
	"github.com/llmbench/llmbench/internal/config"
	"github.com/llmbench/llmbench/internal/logging"
	"github.com/llmbench/llmbench/internal/metrics"
)

// BenchmarkRunner executes a full benchmark run
type BenchmarkRunner interface {
	Benchmark(ctx context.Context, cfg benchmarkpkg.RunConfig) (*benchmarkpkg.Result, error)
}

// Server is the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger

	runner  BenchmarkRunner
	auth    *basicAuthenticator
	limiter *clientRateLimiter

	// Configuration
	host            string
	port            int
	username        string
	password        string
	passwordHash    string
	defaultEndpoint string
	verifyTLS       bool
	ratePerMinute   int
	rateBurst       int

	// Readiness state (atomic for thread-safe access)
	ready atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHost sets the server host
func WithHost(host string) Option {
	return func(s *Server) {
		s.host = host
	}
}

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithCredentials sets the Basic auth account guarding /benchmark
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithPasswordHash sets a bcrypt hash that replaces the plain password
func WithPasswordHash(hash string) Option {
	return func(s *Server) {
		s.passwordHash = hash
	}
}

// WithDefaultEndpoint sets the target used when a request omits "endpoint"
func WithDefaultEndpoint(endpoint string) Option {
	return func(s *Server) {
		s.defaultEndpoint = endpoint
	}
}

// WithVerifyTLS records whether runs verify upstream certificates
func WithVerifyTLS(verify bool) Option {
	return func(s *Server) {
		s.verifyTLS = verify
	}
}

// WithRateLimit limits benchmark requests per client IP. A non-positive
// rate disables limiting.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(s *Server) {
		s.ratePerMinute = requestsPerMinute
		s.rateBurst = burst
	}
}

// New creates a new API server
func New(runner BenchmarkRunner, opts ...Option) (*Server, error) {
	s := &Server{
		logger:          slog.Default(),
		runner:          runner,
		host:            "0.0.0.0",
		port:            8000,
		username:        config.DefaultUsername,
		password:        config.DefaultPassword,
		defaultEndpoint: config.DefaultEndpoint,
	}

	for _, opt := range opts {
		opt(s)
	}

	auth, err := newBasicAuthenticator(s.username, s.password, s.passwordHash)
	if err != nil {
		return nil, err
	}
	s.auth = auth
	s.limiter = newClientRateLimiter(s.ratePerMinute, s.rateBurst)

	s.setupRouter()
	return s, nil
}

// SetReady sets the server readiness state
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.logger.Info("server readiness changed", slog.Bool("ready", ready))
}

// IsReady returns whether the server is ready to accept traffic
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// setupRouter configures the Gin router
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(s.requestIDMiddleware())
	router.Use(s.metricsMiddleware())
	router.Use(s.bodySizeLimitMiddleware(1 << 20)) // 1MB limit
	router.Use(s.loggingMiddleware())
	router.Use(s.recoveryMiddleware())

	router.GET("/", s.handleRoot)

	// Health and readiness endpoints
	router.GET("/health", s.handleHealth)
	router.GET("/ready", s.handleReady)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/benchmark", s.rateLimitMiddleware(), s.basicAuthMiddleware(), s.handleBenchmark)

	s.router = router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	// No write timeout: a run of many paced requests legitimately takes minutes
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Info("starting API server", slog.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the Gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Middleware

// validRequestIDRegex allows alphanumeric, dots, underscores, and hyphens up to 128 chars.
var validRequestIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

func isValidRequestID(id string) bool {
	return id != "" && validRequestIDRegex.MatchString(id)
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if !isValidRequestID(requestID) {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Use the matched route pattern to keep path label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RecordHTTPRequest(method, path, status, duration)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("request_id", c.GetString("request_id")),
			slog.String("client_ip", c.ClientIP()))
	}
}

func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())
				s.logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", stack),
					slog.String("request_id", c.GetString("request_id")))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Detail: msgInternalError,
				})
			}
		}()
		c.Next()
	}
}

func (s *Server) bodySizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func (s *Server) basicAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok || !s.auth.Verify(username, password) {
			metrics.RecordAuthFailure()
			s.logger.Warn("authentication failed",
				slog.Bool("credentials_present", ok),
				slog.String("client_ip", c.ClientIP()),
				slog.String("request_id", c.GetString("request_id")))

			c.Header("WWW-Authenticate", "Basic")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Detail: msgUnauthorized,
			})
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow(c.ClientIP()) {
			metrics.RecordRateLimited()
			s.logger.Warn("rate limit exceeded",
				slog.String("client_ip", c.ClientIP()),
				slog.String("request_id", c.GetString("request_id")))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Detail: msgTooManyRequests,
			})
			return
		}
		c.Next()
	}
}
