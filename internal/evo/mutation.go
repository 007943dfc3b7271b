package evo

import (
	"fmt"
	"math"
	"math/rand"

	"telos/internal/genome"
)

// Mutator perturbs a genome. The input is never modified; the result is a
// fresh genome whose fitness cache was invalidated if any gene changed. When
// the probability gate does not trigger, the result is gene-identical to the
// input. rate is the caller's mutation probability; operators interpret it
// per gene or per individual as documented.
type Mutator interface {
	Name() string
	Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error)
}

func checkMutateInput(rng *rand.Rand, g genome.Genome, rate float64) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if g == nil {
		return fmt.Errorf("genome is required")
	}
	if rate < 0 || rate > 1 {
		return fmt.Errorf("mutation rate must be in [0, 1], got %g", rate)
	}
	return nil
}

// BitFlipMutator flips binary genes (0 <-> 1), each with probability rate.
// Genes holding values other than 0 or 1 are left alone, and permutation
// genomes are cloned untouched.
type BitFlipMutator struct{}

func (BitFlipMutator) Name() string { return "bit_flip" }

func (BitFlipMutator) Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error) {
	if err := checkMutateInput(rng, g, rate); err != nil {
		return nil, err
	}
	out := g.Clone()
	if genome.IsPermutation(out) {
		return out, nil
	}

	genes := out.Genes()
	changed := false
	for i, v := range genes {
		if rng.Float64() >= rate {
			continue
		}
		switch v {
		case 0:
			genes[i] = 1
			changed = true
		case 1:
			genes[i] = 0
			changed = true
		}
	}
	if changed {
		out.Invalidate()
	}
	return out, nil
}

// SwapMutator exchanges two randomly chosen positions with probability rate
// per individual. Safe for permutations.
type SwapMutator struct{}

func (SwapMutator) Name() string { return "swap" }

func (SwapMutator) Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error) {
	if err := checkMutateInput(rng, g, rate); err != nil {
		return nil, err
	}
	out := g.Clone()
	genes := out.Genes()
	if len(genes) < 2 || rng.Float64() >= rate {
		return out, nil
	}

	i := rng.Intn(len(genes))
	j := rng.Intn(len(genes))
	for j == i {
		j = rng.Intn(len(genes))
	}
	genes[i], genes[j] = genes[j], genes[i]
	out.Invalidate()
	return out, nil
}

// GaussianMutator adds zero-mean Gaussian noise with standard deviation Sigma
// to numeric genes, each with probability rate. Bounded genomes are clipped;
// permutation and categorical genomes are cloned untouched.
type GaussianMutator struct {
	Sigma float64
}

func (GaussianMutator) Name() string { return "gaussian" }

func (m GaussianMutator) Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error) {
	if err := checkMutateInput(rng, g, rate); err != nil {
		return nil, err
	}
	out := g.Clone()
	if genome.IsPermutation(out) || genome.IsDiscrete(out) {
		return out, nil
	}
	sigma := m.Sigma
	if sigma <= 0 {
		sigma = 0.1
	}

	bounded, _ := out.(genome.Bounded)
	genes := out.Genes()
	changed := false
	for i := range genes {
		if rng.Float64() >= rate {
			continue
		}
		genes[i] += rng.NormFloat64() * sigma
		if bounded != nil {
			lo, hi := bounded.Bounds(i)
			genes[i] = clamp(genes[i], lo, hi)
		}
		changed = true
	}
	if changed {
		out.Invalidate()
	}
	return out, nil
}

// PolynomialMutator perturbs bounded numeric genes with a magnitude drawn
// from a polynomial distribution parameterized by Eta, scaled to the gene's
// [min, max] range and clipped to it. Genomes without declared bounds are
// cloned untouched.
type PolynomialMutator struct {
	Eta float64
}

func (PolynomialMutator) Name() string { return "polynomial" }

func (m PolynomialMutator) Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error) {
	if err := checkMutateInput(rng, g, rate); err != nil {
		return nil, err
	}
	out := g.Clone()
	bounded, ok := out.(genome.Bounded)
	if !ok || genome.IsPermutation(out) || genome.IsDiscrete(out) {
		return out, nil
	}
	eta := m.Eta
	if eta <= 0 {
		eta = 20
	}

	genes := out.Genes()
	changed := false
	for i := range genes {
		if rng.Float64() >= rate {
			continue
		}
		lo, hi := bounded.Bounds(i)
		span := hi - lo
		if span <= 0 {
			continue
		}
		u := rng.Float64()
		var delta float64
		if u < 0.5 {
			delta = math.Pow(2*u, 1/(eta+1)) - 1
		} else {
			delta = 1 - math.Pow(2*(1-u), 1/(eta+1))
		}
		genes[i] = clamp(genes[i]+delta*span, lo, hi)
		changed = true
	}
	if changed {
		out.Invalidate()
	}
	return out, nil
}

// InversionMutator reverses a random contiguous segment with probability rate
// per individual. Permutation-safe.
type InversionMutator struct{}

func (InversionMutator) Name() string { return "inversion" }

func (InversionMutator) Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error) {
	if err := checkMutateInput(rng, g, rate); err != nil {
		return nil, err
	}
	out := g.Clone()
	genes := out.Genes()
	if len(genes) < 2 || rng.Float64() >= rate {
		return out, nil
	}

	lo, hi := randomSegment(rng, len(genes))
	for lo < hi {
		genes[lo], genes[hi] = genes[hi], genes[lo]
		lo++
		hi--
	}
	out.Invalidate()
	return out, nil
}

// ScrambleMutator shuffles a random contiguous segment with probability rate
// per individual. Permutation-safe.
type ScrambleMutator struct{}

func (ScrambleMutator) Name() string { return "scramble" }

func (ScrambleMutator) Mutate(rng *rand.Rand, g genome.Genome, rate float64) (genome.Genome, error) {
	if err := checkMutateInput(rng, g, rate); err != nil {
		return nil, err
	}
	out := g.Clone()
	genes := out.Genes()
	if len(genes) < 2 || rng.Float64() >= rate {
		return out, nil
	}

	lo, hi := randomSegment(rng, len(genes))
	segment := genes[lo : hi+1]
	rng.Shuffle(len(segment), func(i, j int) {
		segment[i], segment[j] = segment[j], segment[i]
	})
	out.Invalidate()
	return out, nil
}

// randomSegment picks lo < hi in [0, n).
func randomSegment(rng *rand.Rand, n int) (int, int) {
	lo := rng.Intn(n)
	hi := rng.Intn(n)
	for hi == lo {
		hi = rng.Intn(n)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// AdaptiveMutator wraps a base mutator and replaces the caller's rate with an
// effective rate inversely related to the current population diversity: the
// lower the diversity, the closer the rate moves to MaxRate within the
// [MinRate, MaxRate] band. Retune feeds it the monitor's diversity signal
// once per generation; the first observed diversity becomes the baseline.
type AdaptiveMutator struct {
	Base    Mutator
	MinRate float64
	MaxRate float64

	baseline float64
	current  float64
	tuned    bool
}

func (m *AdaptiveMutator) Name() string {
	if m.Base == nil {
		return "adaptive"
	}
	return "adaptive(" + m.Base.Name() + ")"
}

// Retune records the population diversity for the coming generation.
func (m *AdaptiveMutator) Retune(diversity float64) {
	if !m.tuned && diversity > 0 {
		m.baseline = diversity
		m.tuned = true
	}
	m.current = diversity
}

// EffectiveRate maps the latest diversity onto the configured rate band.
func (m *AdaptiveMutator) EffectiveRate() float64 {
	lo, hi := m.MinRate, m.MaxRate
	if hi <= 0 {
		hi = 0.5
	}
	if lo < 0 || lo > hi {
		lo = 0
	}
	if !m.tuned || m.baseline <= 0 {
		return hi
	}
	ratio := clamp(m.current/m.baseline, 0, 1)
	return lo + (hi-lo)*(1-ratio)
}

func (m *AdaptiveMutator) Mutate(rng *rand.Rand, g genome.Genome, _ float64) (genome.Genome, error) {
	if m.Base == nil {
		return nil, fmt.Errorf("adaptive mutator requires a base mutator")
	}
	return m.Base.Mutate(rng, g, m.EffectiveRate())
}
