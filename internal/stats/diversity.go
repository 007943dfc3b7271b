package stats

import (
	"gonum.org/v1/gonum/floats"

	"telos/internal/evo"
	"telos/internal/genome"
)

// HammingDistance counts positions where the two gene sequences differ.
// Sequences of unequal length differ at every unmatched position.
func HammingDistance(a, b []float64) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	distance := float64(len(long) - len(short))
	for i := range short {
		if short[i] != long[i] {
			distance++
		}
	}
	return distance
}

// EuclideanDistance is the L2 distance between two gene sequences of equal
// length.
func EuclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Distance picks the metric the genomes call for: Hamming for categorical or
// permutation genes, Euclidean for continuous ones.
func Distance(a, b genome.Genome) float64 {
	if genome.IsDiscrete(a) || genome.IsPermutation(a) {
		return HammingDistance(a.Genes(), b.Genes())
	}
	if len(a.Genes()) != len(b.Genes()) {
		return HammingDistance(a.Genes(), b.Genes())
	}
	return EuclideanDistance(a.Genes(), b.Genes())
}

// Diversity is the average pairwise distance across the population, the
// engine's proxy for exploration breadth. A population of fewer than two
// individuals has zero diversity.
func Diversity(pop []evo.Individual) float64 {
	if len(pop) < 2 {
		return 0
	}
	total := 0.0
	pairs := 0
	for i := 0; i < len(pop); i++ {
		for j := i + 1; j < len(pop); j++ {
			total += Distance(pop[i].Genome, pop[j].Genome)
			pairs++
		}
	}
	return total / float64(pairs)
}
