// Package infer derives per-attribute scaling-factor statistics from
// paired extraction results.
package infer

import (
	"math"
	"sort"

	"github.com/pdxtools/guiscale/internal/extract"
	"github.com/pdxtools/guiscale/internal/model"
)

// Infer compares the original extraction against a scaled counterpart
// and returns descriptive statistics of the value ratios per attribute.
//
// Attributes absent from scaled, or whose value lists differ in length,
// are omitted: a length mismatch signals a structurally different file
// and aligning by position would pair unrelated values. Zero-valued
// originals are excluded from the ratio set, not treated as ratio 0.
// An attribute whose ratios all vanish still yields an entry with an
// all-null statistic, which is a valid "no evidence" result.
func Infer(original, scaled extract.Result) map[string]model.ScalingStatistic {
	stats := make(map[string]model.ScalingStatistic)

	for attr, origValues := range original {
		scaledValues, ok := scaled[attr]
		if !ok || len(scaledValues) != len(origValues) {
			continue
		}

		ratios := make([]float64, 0, len(origValues))
		for i, ov := range origValues {
			if ov == 0 {
				continue
			}
			ratios = append(ratios, scaledValues[i]/ov)
		}

		stats[attr] = Describe(ratios)
	}

	return stats
}

// Describe computes mean, median, population standard deviation, min
// and max over the ratio set. An empty set yields the all-null
// statistic.
func Describe(ratios []float64) model.ScalingStatistic {
	if len(ratios) == 0 {
		return model.ScalingStatistic{}
	}

	sorted := make([]float64, len(ratios))
	copy(sorted, ratios)
	sort.Float64s(sorted)

	mean := sum(sorted) / float64(len(sorted))
	median := medianOf(sorted)
	stdDev := stdDevOf(sorted, mean)
	minV := sorted[0]
	maxV := sorted[len(sorted)-1]

	return model.ScalingStatistic{
		Mean:   &mean,
		Median: &median,
		StdDev: &stdDev,
		Min:    &minV,
		Max:    &maxV,
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// medianOf expects values sorted ascending.
func medianOf(values []float64) float64 {
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// stdDevOf computes the population standard deviation, which is 0 for
// a single sample without special-casing.
func stdDevOf(values []float64, mean float64) float64 {
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
