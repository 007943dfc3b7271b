package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"telos/internal/genome"
)

// Crossover recombines two parents into two offspring. Offspring are always
// fresh genomes; parents are never modified. Gene sequence length is
// preserved, and an operator that cannot handle the parents' gene type
// returns plain clones instead of corrupting them.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error)
}

func checkCrossInput(rng *rand.Rand, a, b genome.Genome) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if a == nil || b == nil {
		return fmt.Errorf("both parents are required")
	}
	if len(a.Genes()) != len(b.Genes()) {
		return fmt.Errorf("parent gene length mismatch: %d vs %d", len(a.Genes()), len(b.Genes()))
	}
	return nil
}

func clonePair(a, b genome.Genome) (genome.Genome, genome.Genome) {
	return a.Clone(), b.Clone()
}

// numericParents reports whether blending gene values is safe: permutation
// and categorical genomes would lose their invariants under arithmetic.
func numericParents(a, b genome.Genome) bool {
	if genome.IsPermutation(a) || genome.IsPermutation(b) {
		return false
	}
	if genome.IsDiscrete(a) || genome.IsDiscrete(b) {
		return false
	}
	return true
}

func permutationParents(a, b genome.Genome) bool {
	return genome.IsPermutation(a) && genome.IsPermutation(b)
}

// SinglePointCrossover splices the parents at one random cut index.
type SinglePointCrossover struct{}

func (SinglePointCrossover) Name() string { return "single_point" }

func (SinglePointCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	n := len(a.Genes())
	if n < 2 || permutationParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}

	cut := 1 + rng.Intn(n-1)
	c1, c2 := clonePair(a, b)
	g1, g2 := c1.Genes(), c2.Genes()
	for i := cut; i < n; i++ {
		g1[i], g2[i] = g2[i], g1[i]
	}
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// TwoPointCrossover splices the segment between two distinct sorted cut
// indices.
type TwoPointCrossover struct{}

func (TwoPointCrossover) Name() string { return "two_point" }

func (TwoPointCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	n := len(a.Genes())
	if n < 3 || permutationParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}

	lo := 1 + rng.Intn(n-1)
	hi := 1 + rng.Intn(n-1)
	for hi == lo {
		hi = 1 + rng.Intn(n-1)
	}
	if lo > hi {
		lo, hi = hi, lo
	}

	c1, c2 := clonePair(a, b)
	g1, g2 := c1.Genes(), c2.Genes()
	for i := lo; i < hi; i++ {
		g1[i], g2[i] = g2[i], g1[i]
	}
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// UniformCrossover exchanges each gene independently with probability Rate
// (default 0.5).
type UniformCrossover struct {
	Rate float64
}

func (UniformCrossover) Name() string { return "uniform" }

func (x UniformCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	if permutationParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}
	rate := x.Rate
	if rate <= 0 || rate > 1 {
		rate = 0.5
	}

	c1, c2 := clonePair(a, b)
	g1, g2 := c1.Genes(), c2.Genes()
	for i := range g1 {
		if rng.Float64() < rate {
			g1[i], g2[i] = g2[i], g1[i]
		}
	}
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// ArithmeticCrossover blends numeric genes with a fixed alpha:
// c1 = alpha*a + (1-alpha)*b and symmetrically for c2. Non-numeric parents
// are cloned untouched.
type ArithmeticCrossover struct {
	Alpha float64
}

func (ArithmeticCrossover) Name() string { return "arithmetic" }

func (x ArithmeticCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	if !numericParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}
	alpha := x.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.5
	}

	c1, c2 := clonePair(a, b)
	g1, g2 := c1.Genes(), c2.Genes()
	pa, pb := a.Genes(), b.Genes()
	for i := range g1 {
		g1[i] = alpha*pa[i] + (1-alpha)*pb[i]
		g2[i] = alpha*pb[i] + (1-alpha)*pa[i]
	}
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// SBXCrossover is simulated binary crossover: a per-gene spread factor drawn
// from a polynomial distribution parameterized by Eta. Higher Eta keeps the
// offspring closer to the parents. Bounded parents are clipped to their
// declared gene bounds.
type SBXCrossover struct {
	Eta float64
}

func (SBXCrossover) Name() string { return "sbx" }

func (x SBXCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	if !numericParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}
	eta := x.Eta
	if eta <= 0 {
		eta = 15
	}

	c1, c2 := clonePair(a, b)
	g1, g2 := c1.Genes(), c2.Genes()
	pa, pb := a.Genes(), b.Genes()
	boundedA, _ := c1.(genome.Bounded)
	for i := range g1 {
		u := rng.Float64()
		var beta float64
		if u <= 0.5 {
			beta = math.Pow(2*u, 1/(eta+1))
		} else {
			beta = math.Pow(1/(2*(1-u)), 1/(eta+1))
		}
		v1 := 0.5 * ((1+beta)*pa[i] + (1-beta)*pb[i])
		v2 := 0.5 * ((1-beta)*pa[i] + (1+beta)*pb[i])
		if boundedA != nil {
			lo, hi := boundedA.Bounds(i)
			v1 = clamp(v1, lo, hi)
			v2 = clamp(v2, lo, hi)
		}
		g1[i], g2[i] = v1, v2
	}
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// OrderCrossover (OX) copies a contiguous slice from one parent verbatim and
// fills the remaining positions in the other parent's relative order,
// skipping values already placed. Valid only for permutation genomes; other
// parents are cloned untouched.
type OrderCrossover struct{}

func (OrderCrossover) Name() string { return "order" }

func (OrderCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	n := len(a.Genes())
	if n < 2 || !permutationParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}

	lo := rng.Intn(n)
	hi := rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		hi = lo + 1
		if hi == n {
			lo, hi = n-2, n-1
		}
	}

	c1, c2 := clonePair(a, b)
	orderFill(c1.Genes(), a.Genes(), b.Genes(), lo, hi)
	orderFill(c2.Genes(), b.Genes(), a.Genes(), lo, hi)
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// orderFill writes the OX child: the [lo,hi) slice from segSrc, every other
// position from fillSrc in relative order starting after the slice.
func orderFill(child, segSrc, fillSrc []float64, lo, hi int) {
	n := len(child)
	used := make(map[float64]struct{}, hi-lo)
	for i := lo; i < hi; i++ {
		child[i] = segSrc[i]
		used[segSrc[i]] = struct{}{}
	}
	pos := hi % n
	for i := 0; i < n; i++ {
		v := fillSrc[(hi+i)%n]
		if _, ok := used[v]; ok {
			continue
		}
		for pos >= lo && pos < hi {
			pos = (pos + 1) % n
		}
		child[pos] = v
		pos = (pos + 1) % n
	}
}

// CycleCrossover (CX) partitions positions into cycles (following the value
// at position p in one parent to that value's position in the other) and
// alternates which parent supplies each whole cycle. Valid only for
// permutation genomes.
type CycleCrossover struct{}

func (CycleCrossover) Name() string { return "cycle" }

func (CycleCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	n := len(a.Genes())
	if n < 2 || !permutationParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}

	pa, pb := a.Genes(), b.Genes()
	posInA := make(map[float64]int, n)
	for i, v := range pa {
		posInA[v] = i
	}

	c1, c2 := clonePair(a, b)
	g1, g2 := c1.Genes(), c2.Genes()
	assigned := make([]bool, n)
	fromA := true
	for start := 0; start < n; start++ {
		if assigned[start] {
			continue
		}
		// Walk the cycle starting here; every position in it takes its gene
		// from the same parent.
		i := start
		for {
			if fromA {
				g1[i], g2[i] = pa[i], pb[i]
			} else {
				g1[i], g2[i] = pb[i], pa[i]
			}
			assigned[i] = true
			i = posInA[pb[i]]
			if i == start {
				break
			}
		}
		fromA = !fromA
	}
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

// EdgeRecombinationCrossover (ERX) builds each child by walking a merged
// adjacency table of both parents, always moving to the unvisited neighbor
// with the fewest remaining neighbors. The walk is an explicit worklist over
// the shrinking candidate set; there is no recursion or backtracking. Valid
// only for permutation genomes.
type EdgeRecombinationCrossover struct{}

func (EdgeRecombinationCrossover) Name() string { return "edge_recombination" }

func (EdgeRecombinationCrossover) Cross(rng *rand.Rand, a, b genome.Genome) (genome.Genome, genome.Genome, error) {
	if err := checkCrossInput(rng, a, b); err != nil {
		return nil, nil, err
	}
	n := len(a.Genes())
	if n < 2 || !permutationParents(a, b) {
		c, d := clonePair(a, b)
		return c, d, nil
	}

	c1, c2 := clonePair(a, b)
	edgeWalk(rng, c1.Genes(), a.Genes(), b.Genes())
	edgeWalk(rng, c2.Genes(), b.Genes(), a.Genes())
	c1.Invalidate()
	c2.Invalidate()
	return c1, c2, nil
}

func edgeWalk(rng *rand.Rand, child, pa, pb []float64) {
	n := len(pa)
	adjacency := make(map[float64]map[float64]struct{}, n)
	addEdges := func(p []float64) {
		for i, v := range p {
			if adjacency[v] == nil {
				adjacency[v] = make(map[float64]struct{}, 4)
			}
			adjacency[v][p[(i+1)%n]] = struct{}{}
			adjacency[v][p[(i-1+n)%n]] = struct{}{}
		}
	}
	addEdges(pa)
	addEdges(pb)

	remaining := make([]float64, n)
	copy(remaining, pa)
	removeValue := func(v float64) {
		for i, r := range remaining {
			if r == v {
				remaining[i] = remaining[len(remaining)-1]
				remaining = remaining[:len(remaining)-1]
				break
			}
		}
		for _, neighbors := range adjacency {
			delete(neighbors, v)
		}
	}

	current := pa[0]
	for i := 0; i < n; i++ {
		child[i] = current
		removeValue(current)
		if len(remaining) == 0 {
			break
		}

		// Sorted neighbor scan keeps the walk deterministic for a fixed seed;
		// map iteration order must not influence the child.
		neighbors := make([]float64, 0, len(adjacency[current]))
		for neighbor := range adjacency[current] {
			neighbors = append(neighbors, neighbor)
		}
		sort.Float64s(neighbors)

		next := math.NaN()
		bestDegree := -1
		for _, neighbor := range neighbors {
			degree := len(adjacency[neighbor])
			if bestDegree == -1 || degree < bestDegree {
				next = neighbor
				bestDegree = degree
			}
		}
		if bestDegree == -1 {
			next = remaining[rng.Intn(len(remaining))]
		}
		current = next
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
