// Package evo holds the population representation and the four operator
// families of the generational loop: selection, crossover, mutation and
// replacement. Operators are small stateless values unless noted; every
// random decision flows through the *rand.Rand passed in by the caller.
package evo

import (
	"telos/internal/genome"
)

// Individual pairs a genome with its evaluated fitness and bookkeeping the
// genome itself does not carry. NormFitness is recomputed per generation and
// only comparable within one; Age counts survived generations.
type Individual struct {
	Genome      genome.Genome
	Fitness     float64
	NormFitness float64
	Age         int
}

// Clone deep-copies the individual, including its genome.
func (i Individual) Clone() Individual {
	out := i
	if i.Genome != nil {
		out.Genome = i.Genome.Clone()
	}
	return out
}

// Best returns the index of the highest-fitness individual. Ties break to
// the first-encountered individual so reruns with the same seed agree.
func Best(pop []Individual) int {
	best := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].Fitness > pop[best].Fitness {
			best = i
		}
	}
	return best
}

// Worst returns the index of the lowest-fitness individual, first-encountered
// order winning ties.
func Worst(pop []Individual) int {
	worst := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].Fitness < pop[worst].Fitness {
			worst = i
		}
	}
	return worst
}

// Normalize recomputes NormFitness as (f-min)/(max-min) over the population,
// in place. When every fitness is equal, all individuals get 1.0 so wheel
// selectors degrade to uniform sampling instead of dividing by zero.
func Normalize(pop []Individual) {
	if len(pop) == 0 {
		return
	}

	min, max := pop[0].Fitness, pop[0].Fitness
	for _, ind := range pop[1:] {
		if ind.Fitness < min {
			min = ind.Fitness
		}
		if ind.Fitness > max {
			max = ind.Fitness
		}
	}

	span := max - min
	for i := range pop {
		if span == 0 {
			pop[i].NormFitness = 1.0
			continue
		}
		pop[i].NormFitness = (pop[i].Fitness - min) / span
	}
}
