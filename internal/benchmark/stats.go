package benchmark

import (
	"math"
	"sort"
)

// Stats summarizes a latency sequence. All values are in seconds.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdev"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// CalculateStatistics reduces latency samples to a Stats summary. An empty
// input yields the zero Stats. The input slice is not modified.
//
// Percentiles are read directly from the sorted samples at int(n*q)-1 and are
// only reported once enough samples exist (10 for p90, 20 for p95, 100 for
// p99); below that they collapse to the maximum.
func CalculateStatistics(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	n := len(sorted)
	maxVal := sorted[n-1]

	return Stats{
		Count:  n,
		Min:    sorted[0],
		Max:    maxVal,
		Mean:   mean(sorted),
		Median: median(sorted),
		StdDev: sampleStdDev(sorted),
		P90:    gatedPercentile(sorted, 0.90, 10),
		P95:    gatedPercentile(sorted, 0.95, 20),
		P99:    gatedPercentile(sorted, 0.99, 100),
	}
}

// gatedPercentile expects sorted to be non-empty and ascending
func gatedPercentile(sorted []float64, q float64, minCount int) float64 {
	n := len(sorted)
	if n < minCount {
		return sorted[n-1]
	}
	return sorted[int(float64(n)*q)-1]
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
