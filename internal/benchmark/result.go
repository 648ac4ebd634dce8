package benchmark

// Result is the outcome of a benchmark run as returned to callers
type Result struct {
	Stats     Stats  `json:"stats"`
	Histogram string `json:"histogram"`
}

// NewResult derives statistics and the default histogram from samples
func NewResult(samples []float64) *Result {
	return &Result{
		Stats:     CalculateStatistics(samples),
		Histogram: GenerateHistogram(samples, DefaultBins),
	}
}
