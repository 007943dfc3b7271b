package evo

import (
	"telos/internal/genome"
)

// bitGenome is a minimal discrete genome whose fitness is the gene sum.
type bitGenome struct {
	genes []float64
}

func newBitGenome(genes ...float64) *bitGenome {
	return &bitGenome{genes: append([]float64(nil), genes...)}
}

func (g *bitGenome) Fitness() float64 {
	sum := 0.0
	for _, v := range g.genes {
		sum += v
	}
	return sum
}

func (g *bitGenome) Genes() []float64 { return g.genes }
func (g *bitGenome) Invalidate()      {}
func (g *bitGenome) Clone() genome.Genome {
	return newBitGenome(g.genes...)
}
func (g *bitGenome) IsDiscrete() bool { return true }

// realGenome is a bounded continuous genome, fitness is the gene sum.
type realGenome struct {
	genes    []float64
	min, max float64
}

func newRealGenome(min, max float64, genes ...float64) *realGenome {
	return &realGenome{genes: append([]float64(nil), genes...), min: min, max: max}
}

func (g *realGenome) Fitness() float64 {
	sum := 0.0
	for _, v := range g.genes {
		sum += v
	}
	return sum
}

func (g *realGenome) Genes() []float64 { return g.genes }
func (g *realGenome) Invalidate()      {}
func (g *realGenome) Clone() genome.Genome {
	return newRealGenome(g.min, g.max, g.genes...)
}
func (g *realGenome) Bounds(int) (float64, float64) { return g.min, g.max }

// permGenome is a permutation genome, fitness is zero unless set.
type permGenome struct {
	genes   []float64
	fitness float64
}

func newPermGenome(order ...int) *permGenome {
	genes := make([]float64, len(order))
	for i, v := range order {
		genes[i] = float64(v)
	}
	return &permGenome{genes: genes}
}

func (g *permGenome) Fitness() float64 { return g.fitness }
func (g *permGenome) Genes() []float64 { return g.genes }
func (g *permGenome) Invalidate()      {}
func (g *permGenome) Clone() genome.Genome {
	return &permGenome{genes: append([]float64(nil), g.genes...), fitness: g.fitness}
}
func (g *permGenome) IsPermutation() bool { return true }
func (g *permGenome) IsDiscrete() bool    { return true }

// newScoredPop builds a population with the given fitness values, normalized.
func newScoredPop(fits ...float64) []Individual {
	pop := make([]Individual, len(fits))
	for i, f := range fits {
		pop[i] = Individual{Genome: newBitGenome(f), Fitness: f}
	}
	Normalize(pop)
	return pop
}

// isPermutationOf reports whether genes hold each of 0..n-1 exactly once.
func isPermutationOf(genes []float64, n int) bool {
	if len(genes) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range genes {
		idx := int(v)
		if float64(idx) != v || idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
