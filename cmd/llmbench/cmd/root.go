package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	benchmarkpkg "github.com/llmbench/llmbench/internal/benchmark"
	"github.com/llmbench/llmbench/internal/chat"
	"github.com/llmbench/llmbench/internal/config"
	"github.com/llmbench/llmbench/internal/logging"
	benchsvc "github.com/llmbench/llmbench/internal/service/benchmark"
)

const (
	defaultAPIKey = "sk-xxx"
	defaultModel  = "gpt-4o"
)

// ErrInterrupted is returned when the run is stopped by a signal
var ErrInterrupted = errors.New("benchmark interrupted")

// settings layers explicitly set flags over environment variables over flag
// defaults. The environment is read lazily so a .env file loaded in main
// still applies.
var settings = viper.New()

var outputFormat string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "llmbench",
	Short: "Benchmark an LLM API for latency performance",
	Long: `llmbench measures the end-to-end latency of an OpenAI-compatible chat
completion endpoint. Requests are issued strictly one at a time, failed
attempts are retried with linear backoff, and the latencies of successful
requests are summarized as statistics and an ASCII histogram.

Endpoint, API key and model default to DEFAULT_ENDPOINT, DEFAULT_API_KEY and
DEFAULT_MODEL from the environment or a .env file.

Examples:
  llmbench --model gpt-4o --num-requests 20
  llmbench --endpoint https://llm.internal --no-verify-ssl --debug
  llmbench --randomize-prompt --request-delay 0 -o json`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBenchmark,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	f := rootCmd.Flags()
	f.String("endpoint", config.DefaultEndpoint, "API endpoint URL (env DEFAULT_ENDPOINT)")
	f.String("api-key", defaultAPIKey, "API key for authentication (env DEFAULT_API_KEY)")
	f.String("model", defaultModel, "Model to use (env DEFAULT_MODEL)")
	f.String("prompt", benchmarkpkg.DefaultPrompt, "Prompt to send")
	f.Int("num-requests", benchmarkpkg.DefaultNumRequests, "Number of requests to make")
	f.Float64("timeout", benchmarkpkg.DefaultTimeout.Seconds(), "Request timeout in seconds")
	f.Int("max-retries", benchmarkpkg.DefaultMaxRetries, "Maximum number of retries for failed requests")
	f.Float64("retry-delay", benchmarkpkg.DefaultRetryDelay.Seconds(), "Base delay between retries in seconds")
	f.Float64("request-delay", benchmarkpkg.DefaultRequestDelay.Seconds(), "Delay between requests in seconds to avoid rate limiting")
	f.Bool("no-verify-ssl", false, "Disable SSL certificate verification")
	f.Bool("debug", false, "Enable debug mode with additional logging and fallback options")
	f.Bool("try-http", false, "Use HTTP instead of HTTPS for the endpoint")
	f.Bool("randomize-prompt", false, "Append a random suffix to each prompt to defeat response caching")
	f.StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")

	if err := settings.BindPFlags(f); err != nil {
		panic(err)
	}
	bindEnv("endpoint", "DEFAULT_ENDPOINT")
	bindEnv("api-key", "DEFAULT_API_KEY")
	bindEnv("model", "DEFAULT_MODEL")
}

func bindEnv(key, envVar string) {
	if err := settings.BindEnv(key, envVar); err != nil {
		panic(err)
	}
}

func runConfigFromFlags() benchmarkpkg.RunConfig {
	return benchmarkpkg.RunConfig{
		Endpoint:        settings.GetString("endpoint"),
		APIKey:          settings.GetString("api-key"),
		Model:           settings.GetString("model"),
		Prompt:          settings.GetString("prompt"),
		NumRequests:     settings.GetInt("num-requests"),
		Timeout:         seconds(settings.GetFloat64("timeout")),
		MaxRetries:      settings.GetInt("max-retries"),
		RetryDelay:      seconds(settings.GetFloat64("retry-delay")),
		RequestDelay:    seconds(settings.GetFloat64("request-delay")),
		Debug:           settings.GetBool("debug"),
		TryHTTP:         settings.GetBool("try-http"),
		RandomizePrompt: settings.GetBool("randomize-prompt"),
		VerifyTLS:       !settings.GetBool("no-verify-ssl"),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("unsupported output format %q (use text or json)", outputFormat)
	}

	cfg := runConfigFromFlags()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := "warn"
	if cfg.Debug {
		level = "debug"
	}
	logger := logging.Setup(logging.Config{
		Level:  level,
		Format: "text",
		Output: cmd.ErrOrStderr(),
	})

	// Progress goes to stderr when stdout carries JSON
	progress := cmd.OutOrStdout()
	if outputFormat == "json" {
		progress = cmd.ErrOrStderr()
	}
	p := newPrinter(progress, cfg)

	if endpoint := cfg.EffectiveEndpoint(); endpoint != cfg.Endpoint {
		p.printf("Using HTTP instead of HTTPS: %s\n", endpoint)
	}
	p.banner()

	client := chat.NewClient(
		chat.WithLogger(logger),
		chat.WithVerifyTLS(cfg.VerifyTLS))
	runner := benchsvc.NewRunner(client,
		benchsvc.WithLogger(logger),
		benchsvc.WithObserver(p.observe))

	samples, err := runner.Run(cmd.Context(), cfg)
	if err != nil {
		if benchsvc.IsCanceled(err) {
			p.printf("\nBenchmark interrupted by user\n")
			return ErrInterrupted
		}
		logger.Error("benchmark failed", slog.String("error", err.Error()))
		return err
	}

	result := benchmarkpkg.NewResult(samples)
	if outputFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(samples) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No successful requests were made. Cannot generate statistics.")
		return nil
	}
	printResults(cmd.OutOrStdout(), result)
	return nil
}
