package genome

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrNilFactory is returned when an engine is constructed without a genome factory.
var ErrNilFactory = errors.New("genome factory is required")

// Genome is a candidate solution: an ordered, fixed-length gene sequence with
// a computable fitness. Higher fitness is better throughout the engine.
//
// Fitness must be deterministic for identical gene content and may be cached;
// Invalidate drops the cache after genes were edited in place. Clone returns a
// deep copy with a fresh fitness cache.
type Genome interface {
	Fitness() float64
	Genes() []float64
	Invalidate()
	Clone() Genome
}

// Factory produces a random genome instance. Problem parameters (bounds, cost
// matrices, target lengths) are captured by the factory itself, so genomes
// never reach for shared mutable state.
type Factory func(rng *rand.Rand) Genome

// Bounded is implemented by genomes whose genes carry per-position [min, max]
// bounds. Bounded mutation operators clip to these.
type Bounded interface {
	Bounds(i int) (min, max float64)
}

// Permutation marks genomes whose genes must remain a permutation of a fixed
// value set. Order/cycle/edge-recombination crossover require this.
type Permutation interface {
	IsPermutation() bool
}

// Discrete marks genomes whose genes are categorical, so distance between two
// individuals is Hamming rather than Euclidean.
type Discrete interface {
	IsDiscrete() bool
}

// IsPermutation reports whether g declares the permutation invariant.
func IsPermutation(g Genome) bool {
	p, ok := g.(Permutation)
	return ok && p.IsPermutation()
}

// IsDiscrete reports whether g declares categorical genes.
func IsDiscrete(g Genome) bool {
	d, ok := g.(Discrete)
	return ok && d.IsDiscrete()
}

// Probe validates a factory at construction time: it must be non-nil and must
// produce non-nil, non-empty genomes. This is the fail-fast contract check;
// a broken factory never reaches the generational loop.
func Probe(factory Factory, rng *rand.Rand) error {
	if factory == nil {
		return ErrNilFactory
	}
	g := factory(rng)
	if g == nil {
		return fmt.Errorf("genome factory returned nil")
	}
	if len(g.Genes()) == 0 {
		return fmt.Errorf("genome factory returned an empty gene sequence")
	}
	return nil
}
