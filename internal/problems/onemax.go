// Package problems holds the built-in demonstration problems: small genome
// implementations exercising the binary, continuous and permutation corners
// of the engine. Each exposes a factory capturing its parameters explicitly,
// so no problem data lives in shared mutable state.
package problems

import (
	"math/rand"

	"telos/internal/genome"
)

// BitVector is a fixed-length binary genome whose fitness is the number of
// set bits (the OneMax problem).
type BitVector struct {
	genes     []float64
	fitness   float64
	evaluated bool
}

// OneMaxFactory builds random bit vectors of the given length.
func OneMaxFactory(bits int) genome.Factory {
	if bits <= 0 {
		return nil
	}
	return func(rng *rand.Rand) genome.Genome {
		genes := make([]float64, bits)
		for i := range genes {
			if rng.Intn(2) == 1 {
				genes[i] = 1
			}
		}
		return &BitVector{genes: genes}
	}
}

// NewBitVector wraps an existing 0/1 gene slice.
func NewBitVector(genes []float64) *BitVector {
	return &BitVector{genes: append([]float64(nil), genes...)}
}

func (b *BitVector) Fitness() float64 {
	if !b.evaluated {
		total := 0.0
		for _, v := range b.genes {
			if v == 1 {
				total++
			}
		}
		b.fitness = total
		b.evaluated = true
	}
	return b.fitness
}

func (b *BitVector) Genes() []float64 { return b.genes }

func (b *BitVector) Invalidate() { b.evaluated = false }

func (b *BitVector) Clone() genome.Genome {
	return &BitVector{genes: append([]float64(nil), b.genes...)}
}

func (b *BitVector) IsDiscrete() bool { return true }
