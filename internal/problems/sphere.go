package problems

import (
	"math/rand"

	"telos/internal/genome"
)

// RealVector is a bounded continuous genome. Fitness is the negated sphere
// function -sum(x^2), so the optimum sits at the origin with fitness 0.
type RealVector struct {
	genes     []float64
	min, max  float64
	fitness   float64
	evaluated bool
}

// SphereFactory builds random real vectors of dims genes, each uniform in
// [min, max].
func SphereFactory(dims int, min, max float64) genome.Factory {
	if dims <= 0 || min >= max {
		return nil
	}
	return func(rng *rand.Rand) genome.Genome {
		genes := make([]float64, dims)
		for i := range genes {
			genes[i] = min + rng.Float64()*(max-min)
		}
		return &RealVector{genes: genes, min: min, max: max}
	}
}

// NewRealVector wraps an existing gene slice with the given bounds.
func NewRealVector(genes []float64, min, max float64) *RealVector {
	return &RealVector{genes: append([]float64(nil), genes...), min: min, max: max}
}

func (r *RealVector) Fitness() float64 {
	if !r.evaluated {
		total := 0.0
		for _, v := range r.genes {
			total += v * v
		}
		r.fitness = -total
		r.evaluated = true
	}
	return r.fitness
}

func (r *RealVector) Genes() []float64 { return r.genes }

func (r *RealVector) Invalidate() { r.evaluated = false }

func (r *RealVector) Clone() genome.Genome {
	return &RealVector{
		genes: append([]float64(nil), r.genes...),
		min:   r.min,
		max:   r.max,
	}
}

func (r *RealVector) Bounds(int) (float64, float64) { return r.min, r.max }
