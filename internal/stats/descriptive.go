package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Descriptive is the five-number fitness summary of one population.
type Descriptive struct {
	Best   float64
	Worst  float64
	Mean   float64
	Median float64
	StdDev float64
}

// Describe computes best/worst/mean/median/stddev over raw fitness values.
func Describe(fitness []float64) Descriptive {
	if len(fitness) == 0 {
		return Descriptive{}
	}

	sorted := make([]float64, len(fitness))
	copy(sorted, fitness)
	sort.Float64s(sorted)

	d := Descriptive{
		Best:   sorted[len(sorted)-1],
		Worst:  sorted[0],
		Mean:   stat.Mean(sorted, nil),
		Median: median(sorted),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// median of a sorted slice: the middle element, or the mean of the two middle
// elements for even lengths.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
