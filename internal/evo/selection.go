package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Selector draws parents from an evaluated population. Implementations must
// return exactly count individuals (sampling with replacement is fine), all
// taken from pop, and must survive an all-equal-fitness population.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, pop []Individual, count int) ([]Individual, error)
}

func checkSelectInput(rng *rand.Rand, pop []Individual, count int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(pop) == 0 {
		return fmt.Errorf("cannot select from an empty population")
	}
	if count < 0 {
		return fmt.Errorf("selection count must be >= 0, got %d", count)
	}
	return nil
}

// TournamentSelector samples Size individuals uniformly with replacement and
// keeps the fittest, once per requested parent. Pressure grows with Size.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string { return "tournament" }

func (s TournamentSelector) Select(rng *rand.Rand, pop []Individual, count int) ([]Individual, error) {
	if err := checkSelectInput(rng, pop, count); err != nil {
		return nil, err
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}

	out := make([]Individual, 0, count)
	for n := 0; n < count; n++ {
		best := pop[rng.Intn(len(pop))]
		for i := 1; i < size; i++ {
			candidate := pop[rng.Intn(len(pop))]
			if candidate.Fitness > best.Fitness {
				best = candidate
			}
		}
		out = append(out, best)
	}
	return out, nil
}

// RouletteSelector is fitness-proportionate selection over the generation's
// normalized fitness. A non-positive wheel total degrades to uniform sampling
// rather than dividing by zero.
type RouletteSelector struct{}

func (RouletteSelector) Name() string { return "roulette" }

func (RouletteSelector) Select(rng *rand.Rand, pop []Individual, count int) ([]Individual, error) {
	if err := checkSelectInput(rng, pop, count); err != nil {
		return nil, err
	}
	weights := make([]float64, len(pop))
	for i, in := range pop {
		weights[i] = in.NormFitness
	}
	return spinWheel(rng, pop, weights, count), nil
}

// RankSelector sorts by fitness descending and selects proportionally to rank
// weight (best = N, worst = 1), which removes sensitivity to fitness scale
// and outliers.
type RankSelector struct{}

func (RankSelector) Name() string { return "rank" }

func (RankSelector) Select(rng *rand.Rand, pop []Individual, count int) ([]Individual, error) {
	if err := checkSelectInput(rng, pop, count); err != nil {
		return nil, err
	}

	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return pop[order[i]].Fitness > pop[order[j]].Fitness
	})

	ranked := make([]Individual, len(pop))
	weights := make([]float64, len(pop))
	for pos, idx := range order {
		ranked[pos] = pop[idx]
		weights[pos] = float64(len(pop) - pos)
	}
	return spinWheel(rng, ranked, weights, count), nil
}

// BoltzmannSelector weights individuals by exp(fitness/temperature) and cools
// the temperature after every call, annealing from exploratory to
// exploitative selection over the course of a run.
type BoltzmannSelector struct {
	Temperature float64
	Cooling     float64
	MinTemp     float64
}

// NewBoltzmannSelector builds a selector with the default starting
// temperature and cooling schedule. Construct a fresh one per run; the
// temperature is per-instance state.
func NewBoltzmannSelector() *BoltzmannSelector {
	return &BoltzmannSelector{Temperature: 10, Cooling: 0.95, MinTemp: 1e-3}
}

func (*BoltzmannSelector) Name() string { return "boltzmann" }

func (s *BoltzmannSelector) Select(rng *rand.Rand, pop []Individual, count int) ([]Individual, error) {
	if err := checkSelectInput(rng, pop, count); err != nil {
		return nil, err
	}
	temp := s.Temperature
	if temp <= 0 {
		temp = 10
	}
	minTemp := s.MinTemp
	if minTemp <= 0 {
		minTemp = 1e-3
	}

	// Shift by the max fitness so the exponentials stay finite; the shift
	// cancels out of the proportional weights.
	maxFitness := pop[Best(pop)].Fitness
	weights := make([]float64, len(pop))
	for i, in := range pop {
		weights[i] = math.Exp((in.Fitness - maxFitness) / temp)
	}
	out := spinWheel(rng, pop, weights, count)

	cooling := s.Cooling
	if cooling <= 0 || cooling >= 1 {
		cooling = 0.95
	}
	s.Temperature = temp * cooling
	if s.Temperature < minTemp {
		s.Temperature = minTemp
	}
	return out, nil
}

// StochasticUniversalSelector places count evenly spaced pointers after a
// single random offset on the cumulative wheel, so the number of copies of
// each individual stays within one of its expected value.
type StochasticUniversalSelector struct{}

func (StochasticUniversalSelector) Name() string { return "sus" }

func (StochasticUniversalSelector) Select(rng *rand.Rand, pop []Individual, count int) ([]Individual, error) {
	if err := checkSelectInput(rng, pop, count); err != nil {
		return nil, err
	}
	if count == 0 {
		return []Individual{}, nil
	}

	total := 0.0
	for _, in := range pop {
		total += in.NormFitness
	}
	if total <= 0 {
		return uniformSample(rng, pop, count), nil
	}

	step := total / float64(count)
	pointer := rng.Float64() * step
	out := make([]Individual, 0, count)
	cumulative := 0.0
	idx := 0
	for n := 0; n < count; n++ {
		target := pointer + float64(n)*step
		for idx < len(pop)-1 && cumulative+pop[idx].NormFitness <= target {
			cumulative += pop[idx].NormFitness
			idx++
		}
		out = append(out, pop[idx])
	}
	return out, nil
}

// spinWheel performs count independent draws over the cumulative weight line,
// falling back to uniform sampling when the total weight is not positive.
func spinWheel(rng *rand.Rand, pop []Individual, weights []float64, count int) []Individual {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return uniformSample(rng, pop, count)
	}

	out := make([]Individual, 0, count)
	for n := 0; n < count; n++ {
		target := rng.Float64() * total
		out = append(out, pop[wheelIndex(weights, target)])
	}
	return out
}

// wheelIndex returns the first index whose cumulative weight strictly exceeds
// target. Strict comparison keeps zero-weight entries unselectable even when
// target lands exactly on a cumulative boundary.
func wheelIndex(weights []float64, target float64) int {
	acc := 0.0
	for i, w := range weights {
		acc += w
		if acc > target {
			return i
		}
	}
	return len(weights) - 1
}

func uniformSample(rng *rand.Rand, pop []Individual, count int) []Individual {
	out := make([]Individual, 0, count)
	for n := 0; n < count; n++ {
		out = append(out, pop[rng.Intn(len(pop))])
	}
	return out
}
