package benchmark

import (
	"fmt"
	"strings"
)

const (
	// DefaultBins is the number of histogram buckets used when none is given
	DefaultBins = 10

	// NoDataHistogram is rendered in place of a histogram for an empty run
	NoDataHistogram = "No data to display"

	maxBarWidth  = 40
	barMarker    = "#"
	flatBinWidth = 0.1 // used when every sample is identical
)

// Bucket is one fixed-width histogram bin
type Bucket struct {
	Start float64
	End   float64
	Count int
}

// BuildBuckets assigns samples to bins fixed-width buckets spanning
// [min, max]. The maximum sample is clamped into the last bucket.
func BuildBuckets(samples []float64, bins int) []Bucket {
	if len(samples) == 0 {
		return nil
	}
	if bins < 1 {
		bins = DefaultBins
	}

	minVal, maxVal := samples[0], samples[0]
	for _, v := range samples[1:] {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}

	width := flatBinWidth
	if minVal != maxVal {
		width = (maxVal - minVal) / float64(bins)
	}

	buckets := make([]Bucket, bins)
	for i := range buckets {
		start := minVal + float64(i)*width
		buckets[i] = Bucket{Start: start, End: start + width}
	}
	for _, v := range samples {
		idx := min(bins-1, int((v-minVal)/width))
		buckets[idx].Count++
	}
	return buckets
}

// GenerateHistogram renders samples as an ASCII bar chart, one line per
// bucket in ascending order:
//
//	0.4200 - 0.4760 | ######## (2)
//
// Bars are scaled so the fullest bucket is 40 characters wide.
func GenerateHistogram(samples []float64, bins int) string {
	buckets := BuildBuckets(samples, bins)
	if len(buckets) == 0 {
		return NoDataHistogram
	}

	maxCount := 0
	for _, b := range buckets {
		maxCount = max(maxCount, b.Count)
	}
	scale := 1.0
	if maxCount > 0 {
		scale = float64(maxBarWidth) / float64(maxCount)
	}

	lines := make([]string, 0, len(buckets))
	for _, b := range buckets {
		bar := strings.Repeat(barMarker, int(float64(b.Count)*scale))
		lines = append(lines, fmt.Sprintf("%.4f - %.4f | %s (%d)", b.Start, b.End, bar, b.Count))
	}
	return strings.Join(lines, "\n")
}
