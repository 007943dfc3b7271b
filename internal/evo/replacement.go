package evo

import (
	"fmt"
	"math/rand"
	"sort"
)

// Replacer folds the previous population and the generation's offspring into
// the next population. The output length always equals size; only a Replacer
// produces the next population value.
type Replacer interface {
	Name() string
	Replace(rng *rand.Rand, old, offspring []Individual, size int) ([]Individual, error)
}

func checkReplaceInput(old []Individual, size int) error {
	if size <= 0 {
		return fmt.Errorf("population size must be > 0, got %d", size)
	}
	if len(old) == 0 {
		return fmt.Errorf("previous population is empty")
	}
	return nil
}

func sortByFitnessDesc(pop []Individual) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].Fitness > pop[j].Fitness
	})
}

// ElitistReplacer merges old and offspring, sorts by fitness descending and
// keeps the top size individuals. Best-so-far fitness is monotonically
// non-decreasing under this policy.
type ElitistReplacer struct{}

func (ElitistReplacer) Name() string { return "elitist" }

func (ElitistReplacer) Replace(_ *rand.Rand, old, offspring []Individual, size int) ([]Individual, error) {
	if err := checkReplaceInput(old, size); err != nil {
		return nil, err
	}
	merged := make([]Individual, 0, len(old)+len(offspring))
	merged = append(merged, old...)
	merged = append(merged, offspring...)
	sortByFitnessDesc(merged)
	if len(merged) < size {
		return nil, fmt.Errorf("not enough individuals to fill population: have %d, need %d", len(merged), size)
	}
	out := make([]Individual, size)
	copy(out, merged[:size])
	return out, nil
}

// GenerationalReplacer keeps offspring only: the fittest size of them, padded
// with the best of the old population when the offspring fall short. Fastest
// turnover; no monotonicity guarantee.
type GenerationalReplacer struct{}

func (GenerationalReplacer) Name() string { return "generational" }

func (GenerationalReplacer) Replace(_ *rand.Rand, old, offspring []Individual, size int) ([]Individual, error) {
	if err := checkReplaceInput(old, size); err != nil {
		return nil, err
	}
	next := make([]Individual, 0, size)
	pool := make([]Individual, len(offspring))
	copy(pool, offspring)
	sortByFitnessDesc(pool)
	if len(pool) > size {
		pool = pool[:size]
	}
	next = append(next, pool...)

	if len(next) < size {
		pad := make([]Individual, len(old))
		copy(pad, old)
		sortByFitnessDesc(pad)
		for i := 0; len(next) < size; i++ {
			next = append(next, pad[i%len(pad)].Clone())
		}
	}
	return next, nil
}

// SteadyStateReplacer replaces only the K worst individuals of the old
// population with the K best offspring, leaving everyone else untouched.
type SteadyStateReplacer struct {
	K int
}

func (SteadyStateReplacer) Name() string { return "steady_state" }

func (r SteadyStateReplacer) Replace(_ *rand.Rand, old, offspring []Individual, size int) ([]Individual, error) {
	if err := checkReplaceInput(old, size); err != nil {
		return nil, err
	}
	if len(old) != size {
		return nil, fmt.Errorf("steady-state requires old population of size %d, got %d", size, len(old))
	}

	k := r.K
	if k <= 0 {
		k = len(offspring) / 2
	}
	if k > len(offspring) {
		k = len(offspring)
	}
	if k > size {
		k = size
	}

	next := make([]Individual, size)
	copy(next, old)
	if k == 0 {
		return next, nil
	}

	best := make([]Individual, len(offspring))
	copy(best, offspring)
	sortByFitnessDesc(best)
	best = best[:k]

	// Indices of the k worst incumbents, fitness ascending.
	order := make([]int, size)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return next[order[i]].Fitness < next[order[j]].Fitness
	})
	for i := 0; i < k; i++ {
		next[order[i]] = best[i]
	}
	return next, nil
}

// TournamentReplacer runs, for each offspring, a small tournament among
// randomly sampled incumbents and replaces the tournament loser when the
// offspring is fitter.
type TournamentReplacer struct {
	Size int
}

func (TournamentReplacer) Name() string { return "tournament" }

func (r TournamentReplacer) Replace(rng *rand.Rand, old, offspring []Individual, size int) ([]Individual, error) {
	if err := checkReplaceInput(old, size); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(old) != size {
		return nil, fmt.Errorf("tournament replacement requires old population of size %d, got %d", size, len(old))
	}
	tsize := r.Size
	if tsize <= 0 {
		tsize = 3
	}

	next := make([]Individual, size)
	copy(next, old)
	for _, child := range offspring {
		loser := rng.Intn(size)
		for i := 1; i < tsize; i++ {
			candidate := rng.Intn(size)
			if next[candidate].Fitness < next[loser].Fitness {
				loser = candidate
			}
		}
		if child.Fitness > next[loser].Fitness {
			next[loser] = child
		}
	}
	return next, nil
}

// AgeBasedReplacer evicts the oldest incumbents first, regardless of fitness,
// to force turnover and keep one genotype from dominating indefinitely.
// Offspring (age 0) enter fitness-best-first; remaining slots go to the
// youngest incumbents.
type AgeBasedReplacer struct{}

func (AgeBasedReplacer) Name() string { return "age_based" }

func (AgeBasedReplacer) Replace(_ *rand.Rand, old, offspring []Individual, size int) ([]Individual, error) {
	if err := checkReplaceInput(old, size); err != nil {
		return nil, err
	}

	entering := make([]Individual, len(offspring))
	copy(entering, offspring)
	sortByFitnessDesc(entering)
	if len(entering) > size {
		entering = entering[:size]
	}

	next := make([]Individual, 0, size)
	next = append(next, entering...)
	if len(next) == size {
		return next, nil
	}

	survivors := make([]Individual, len(old))
	copy(survivors, old)
	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].Age != survivors[j].Age {
			return survivors[i].Age < survivors[j].Age
		}
		return survivors[i].Fitness > survivors[j].Fitness
	})
	for i := 0; len(next) < size; i++ {
		next = append(next, survivors[i%len(survivors)])
	}
	return next, nil
}
