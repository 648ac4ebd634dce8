package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	benchmarkpkg "github.com/llmbench/llmbench/internal/benchmark"
	benchsvc "github.com/llmbench/llmbench/internal/service/benchmark"
)

var separator = strings.Repeat("-", 50)

// printer renders run progress as human-readable lines
type printer struct {
	w   io.Writer
	cfg benchmarkpkg.RunConfig
}

func newPrinter(w io.Writer, cfg benchmarkpkg.RunConfig) *printer {
	return &printer{w: w, cfg: cfg}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) banner() {
	endpoint := p.cfg.EffectiveEndpoint()
	verification := "Enabled"
	if !p.cfg.VerifyTLS {
		verification = "Disabled"
	}

	p.printf("\nStarting benchmark with %d requests to %s\n", p.cfg.NumRequests, endpoint)
	p.printf("Model: %s\n", p.cfg.Model)
	p.printf("Prompt: '%s'\n", p.cfg.Prompt)
	p.printf("SSL verification: %s\n", verification)
	p.printf("%s\n", separator)

	if p.cfg.Debug && benchmarkpkg.IsSecure(endpoint) {
		p.printf("Debug: Also trying HTTP protocol as fallback if HTTPS fails\n")
	}
}

// observe is registered as the runner's observer
func (p *printer) observe(ev benchsvc.Event) {
	switch ev.Kind {
	case benchsvc.EventFallback:
		p.printf("Debug: HTTPS failed with TLS error, trying HTTP: %s\n", ev.Endpoint)
	case benchsvc.EventSuccess:
		p.printf("Request %d/%d - %.4fs\n", ev.Iteration, ev.Total, ev.Latency.Seconds())
	case benchsvc.EventRetry:
		p.printf("Request %d/%d - Failed, retrying (%d/%d)...\n", ev.Iteration, ev.Total, ev.Attempt, ev.MaxRetries)
	case benchsvc.EventAbandoned:
		p.printf("Request %d/%d - Failed after %d retries\n", ev.Iteration, ev.Total, ev.MaxRetries)
	case benchsvc.EventPacing:
		p.printf("Waiting %ss before next request to avoid rate limiting...\n", formatSeconds(ev.Delay))
	case benchsvc.EventRunFinished:
		p.printf("%s\n", separator)
		p.printf("Completed %d/%d requests successfully\n", ev.Successes, ev.Total)
	}
}

// formatSeconds prints whole seconds with one decimal ("2.0") and keeps
// fractional ones as short as possible ("0.25")
func formatSeconds(d time.Duration) string {
	s := d.Seconds()
	if s == float64(int64(s)) {
		return strconv.FormatFloat(s, 'f', 1, 64)
	}
	return strconv.FormatFloat(s, 'f', -1, 64)
}

func printResults(w io.Writer, result *benchmarkpkg.Result) {
	st := result.Stats
	fmt.Fprintln(w, "\nBenchmark Results:")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Total requests: %d\n", st.Count)
	fmt.Fprintf(w, "Min latency: %.4fs\n", st.Min)
	fmt.Fprintf(w, "Max latency: %.4fs\n", st.Max)
	fmt.Fprintf(w, "Mean latency: %.4fs\n", st.Mean)
	fmt.Fprintf(w, "Median latency: %.4fs\n", st.Median)
	fmt.Fprintf(w, "Standard deviation: %.4fs\n", st.StdDev)
	fmt.Fprintf(w, "90th percentile: %.4fs\n", st.P90)
	fmt.Fprintf(w, "95th percentile: %.4fs\n", st.P95)
	fmt.Fprintf(w, "99th percentile: %.4fs\n", st.P99)
	fmt.Fprintln(w, "\nLatency Distribution:")
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, result.Histogram)
}
