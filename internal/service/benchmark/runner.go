// Package benchmark provides the sequential benchmark loop. It drives one
// chat completion at a time against the target endpoint, retrying failed
// attempts with linear backoff, and collects the latencies of successful ones.
package benchmark

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	benchmarkpkg "github.com/llmbench/llmbench/internal/benchmark"
	"github.com/llmbench/llmbench/internal/chat"
	"github.com/llmbench/llmbench/internal/logging"
	"github.com/llmbench/llmbench/internal/metrics"
)

// Executor performs a single timed chat completion attempt
type Executor interface {
	Execute(ctx context.Context, req chat.Request) chat.Outcome
}

// SleepFunc pauses for d, returning early with ctx.Err() if ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner runs benchmarks. A Runner may serve several runs concurrently, but
// each run issues exactly one request at a time.
type Runner struct {
	executor Executor
	logger   *slog.Logger
	sleep    SleepFunc
	observer Observer
}

// Option configures the runner
type Option func(*Runner)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSleep replaces the pause used for backoff and pacing (for testing)
func WithSleep(sleep SleepFunc) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithObserver registers a callback for progress events
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// NewRunner creates a new benchmark runner
func NewRunner(executor Executor, opts ...Option) *Runner {
	r := &Runner{
		executor: executor,
		logger:   slog.Default(),
		sleep:    Sleep,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Benchmark runs the loop and summarizes the collected samples
func (r *Runner) Benchmark(ctx context.Context, cfg benchmarkpkg.RunConfig) (*benchmarkpkg.Result, error) {
	samples, err := r.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return benchmarkpkg.NewResult(samples), nil
}

// Run issues cfg.NumRequests iterations sequentially and returns the
// latencies, in seconds, of the successful ones. Iterations that exhaust
// their retries are dropped, so the result may be shorter than requested or
// empty. The only errors returned are an invalid config and ctx cancellation,
// in which case no samples are returned.
func (r *Runner) Run(ctx context.Context, cfg benchmarkpkg.RunConfig) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx = logging.WithRunID(ctx, "run-"+uuid.New().String()[:8])
	logger := logging.LoggerFrom(ctx, r.logger)

	endpoint := cfg.EffectiveEndpoint()
	if endpoint != cfg.Endpoint {
		logger.Info("using http instead of https", slog.String("endpoint", endpoint))
	}

	logger.Info("benchmark run started",
		slog.String("endpoint", endpoint),
		slog.String("model", cfg.Model),
		slog.Int("num_requests", cfg.NumRequests),
		slog.Bool("verify_tls", cfg.VerifyTLS),
		slog.Bool("debug", cfg.Debug))
	if cfg.Debug && benchmarkpkg.IsSecure(endpoint) {
		logger.Debug("http will be tried as a fallback if https fails with a TLS error")
	}

	r.emit(Event{Kind: EventRunStarted, Total: cfg.NumRequests, Endpoint: endpoint})

	samples := make([]float64, 0, cfg.NumRequests)
	for i := 0; i < cfg.NumRequests; i++ {
		prompt := cfg.Prompt
		if cfg.RandomizePrompt {
			prompt = benchmarkpkg.RandomizePrompt(cfg.Prompt)
		}
		req := chat.Request{
			Endpoint: endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Prompt:   prompt,
			Timeout:  cfg.Timeout,
			Debug:    cfg.Debug,

			InsecureSkipVerify: !cfg.VerifyTLS,
		}
		ev := Event{Iteration: i + 1, Total: cfg.NumRequests, MaxRetries: cfg.MaxRetries, Endpoint: endpoint}

		for retry := 0; retry <= cfg.MaxRetries; {
			ev.Attempt = retry
			out := r.attempt(ctx, logger, cfg, req, ev)
			if err := ctx.Err(); err != nil {
				return r.canceled(logger, err)
			}

			ev.Outcome = out
			if out.Succeeded() {
				samples = append(samples, out.Latency.Seconds())
				ev.Kind, ev.Latency = EventSuccess, out.Latency
				r.emit(ev)
				break
			}

			retry++
			if retry > cfg.MaxRetries {
				metrics.RecordAbandonedIteration()
				logger.Warn("request failed after max retries",
					slog.Int("iteration", i+1),
					slog.Int("max_retries", cfg.MaxRetries),
					slog.String("cause", string(out.Cause)))
				ev.Kind = EventAbandoned
				r.emit(ev)
				break
			}

			delay := cfg.RetryDelay * time.Duration(retry)
			metrics.RecordRetry()
			logger.Debug("request failed, retrying",
				slog.Int("iteration", i+1),
				slog.Int("retry", retry),
				slog.Duration("backoff", delay),
				slog.String("cause", string(out.Cause)))
			ev.Kind, ev.Attempt, ev.Delay = EventRetry, retry, delay
			r.emit(ev)
			if err := r.sleep(ctx, delay); err != nil {
				return r.canceled(logger, err)
			}
		}

		if i < cfg.NumRequests-1 {
			r.emit(Event{Kind: EventPacing, Iteration: i + 1, Total: cfg.NumRequests, Delay: cfg.RequestDelay})
			if err := r.sleep(ctx, cfg.RequestDelay); err != nil {
				return r.canceled(logger, err)
			}
		}
	}

	result := "completed"
	if len(samples) == 0 {
		result = "empty"
	}
	metrics.RecordRun(result, len(samples))
	logger.Info("benchmark run finished",
		slog.Int("successful", len(samples)),
		slog.Int("num_requests", cfg.NumRequests))
	r.emit(Event{Kind: EventRunFinished, Total: cfg.NumRequests, Successes: len(samples)})

	return samples, nil
}

// attempt executes one request, falling back once from https to http when
// debug is on and the failure is TLS related. The fallback outcome replaces
// the https one and is never itself retried over another protocol.
func (r *Runner) attempt(ctx context.Context, logger *slog.Logger, cfg benchmarkpkg.RunConfig, req chat.Request, ev Event) chat.Outcome {
	out := r.executor.Execute(ctx, req)
	if out.Succeeded() || !cfg.Debug || !benchmarkpkg.IsSecure(req.Endpoint) || !out.TLSRelated() {
		return out
	}
	if ctx.Err() != nil {
		return out
	}

	req.Endpoint = benchmarkpkg.InsecureEndpoint(req.Endpoint)
	metrics.RecordProtocolFallback()
	logger.Info("https failed with a TLS error, trying http",
		slog.String("endpoint", req.Endpoint),
		slog.String("cause", string(out.Cause)))

	ev.Kind, ev.Endpoint, ev.Outcome = EventFallback, req.Endpoint, out
	r.emit(ev)

	return r.executor.Execute(ctx, req)
}

func (r *Runner) canceled(logger *slog.Logger, err error) ([]float64, error) {
	metrics.RecordRun("canceled", 0)
	logger.Warn("benchmark run canceled", slog.String("error", err.Error()))
	return nil, err
}

func (r *Runner) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsCanceled reports whether err ends a run early because its context was
// canceled or timed out
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
