package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"telos/internal/evo"
	"telos/internal/problems"
)

func TestHammingDistance(t *testing.T) {
	require.Equal(t, 0.0, HammingDistance([]float64{1, 0, 1}, []float64{1, 0, 1}))
	require.Equal(t, 2.0, HammingDistance([]float64{1, 0, 1}, []float64{0, 0, 0}))
	require.Equal(t, 3.0, HammingDistance([]float64{1, 0}, []float64{0, 0, 1, 1}))
}

func TestEuclideanDistance(t *testing.T) {
	require.InDelta(t, 5.0, EuclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-12)
}

func TestDistancePicksMetricByGenomeKind(t *testing.T) {
	bitA := problems.NewBitVector([]float64{1, 0, 1})
	bitB := problems.NewBitVector([]float64{0, 0, 1})
	require.Equal(t, 1.0, Distance(bitA, bitB))

	realA := problems.NewRealVector([]float64{0, 0}, -5, 5)
	realB := problems.NewRealVector([]float64{3, 4}, -5, 5)
	require.InDelta(t, 5.0, Distance(realA, realB), 1e-12)
}

func TestDiversityOfIdenticalPopulationIsZero(t *testing.T) {
	pop := []evo.Individual{
		{Genome: problems.NewBitVector([]float64{1, 1, 0})},
		{Genome: problems.NewBitVector([]float64{1, 1, 0})},
		{Genome: problems.NewBitVector([]float64{1, 1, 0})},
	}
	require.Zero(t, Diversity(pop))
}

func TestDiversityIsAveragePairwiseDistance(t *testing.T) {
	pop := []evo.Individual{
		{Genome: problems.NewBitVector([]float64{0, 0})},
		{Genome: problems.NewBitVector([]float64{0, 1})},
		{Genome: problems.NewBitVector([]float64{1, 1})},
	}
	// Pairwise Hamming distances are 1, 2, 1.
	require.InDelta(t, 4.0/3.0, Diversity(pop), 1e-12)
}

func TestDiversityDegenerateSizes(t *testing.T) {
	require.Zero(t, Diversity(nil))
	require.Zero(t, Diversity([]evo.Individual{{Genome: problems.NewBitVector([]float64{1})}}))
}

func TestDiversityContinuous(t *testing.T) {
	pop := []evo.Individual{
		{Genome: problems.NewRealVector([]float64{0, 0}, -10, 10)},
		{Genome: problems.NewRealVector([]float64{3, 4}, -10, 10)},
	}
	require.InDelta(t, 5.0, Diversity(pop), 1e-12)
	require.False(t, math.IsNaN(Diversity(pop)))
}
