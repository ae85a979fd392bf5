package stats

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a window of speeds.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P85    float64 `json:"p85"`
	Max    float64 `json:"max"`
}

// Summarize computes the mean, sample standard deviation, empirical 85th
// percentile and maximum of values. values is not modified.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return Summary{
		Count:  len(sorted),
		Mean:   mean,
		StdDev: std,
		P85:    stat.Quantile(0.85, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}
