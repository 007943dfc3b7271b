package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"telos/internal/config"
	"telos/internal/evo"
	"telos/internal/genome"
	"telos/internal/stats"
)

// State is the engine's lifecycle position. Termination reasons are states of
// their own; Terminated is entered once the result has been handed out.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateInitialized     State = "initialized"
	StateEvolving        State = "evolving"
	StateConverged       State = "converged"
	StateGenerationLimit State = "generation_limit_reached"
	StateTimeLimit       State = "time_limit_reached"
	StateFitnessGoal     State = "fitness_goal_reached"
	StateTerminated      State = "terminated"
)

// Terminal reports whether s ends the generational loop.
func (s State) Terminal() bool {
	switch s {
	case StateConverged, StateGenerationLimit, StateTimeLimit, StateFitnessGoal, StateTerminated:
		return true
	}
	return false
}

// Options wires an engine: a validated configuration, the genome factory, and
// one operator per family. Nil operators fall back to defaults (tournament
// selection sized by the configured selection pressure, single-point
// crossover, swap mutation, elitist replacement). Logger defaults to a nop.
type Options struct {
	Config       config.Config
	Factory      genome.Factory
	Selector     evo.Selector
	Crossover    evo.Crossover
	Mutator      evo.Mutator
	Replacer     evo.Replacer
	Logger       *zap.Logger
	OnGeneration func(generation int, bestFitness float64)
}

// Engine owns the population and generation counter and drives the loop:
// initialize, then select / crossover / mutate / replace / record until a
// termination condition fires. It is not safe for concurrent use; the
// generational loop is strictly sequential and the shared RNG is only touched
// from it.
type Engine struct {
	cfg       config.Config
	factory   genome.Factory
	selector  evo.Selector
	crossover evo.Crossover
	mutator   evo.Mutator
	replacer  evo.Replacer
	logger    *zap.Logger
	callback  func(int, float64)

	rng        *rand.Rand
	monitor    *stats.Monitor
	population []evo.Individual
	generation int
	state      State
	reason     State
	startedAt  time.Time
}

// New validates the options and builds an engine in the Uninitialized state.
// Configuration and genome-contract errors surface here, before any
// generation executes.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	seed := opts.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if err := genome.Probe(opts.Factory, rng); err != nil {
		return nil, fmt.Errorf("genome contract violation: %w", err)
	}

	selector := opts.Selector
	if selector == nil {
		size := int(math.Round(opts.Config.SelectionPressure))
		if size < 2 {
			size = 2
		}
		selector = evo.TournamentSelector{Size: size}
	}
	crossover := opts.Crossover
	if crossover == nil {
		crossover = evo.SinglePointCrossover{}
	}
	mutator := opts.Mutator
	if mutator == nil {
		mutator = evo.SwapMutator{}
	}
	replacer := opts.Replacer
	if replacer == nil {
		replacer = evo.ElitistReplacer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	monitor, err := stats.NewMonitor(opts.Config.ConvergenceThreshold, opts.Config.ConvergenceGenerations)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       opts.Config,
		factory:   opts.Factory,
		selector:  selector,
		crossover: crossover,
		mutator:   mutator,
		replacer:  replacer,
		logger:    logger,
		callback:  opts.OnGeneration,
		rng:       rng,
		monitor:   monitor,
		state:     StateUninitialized,
	}, nil
}

// Init seeds the population from the factory and evaluates every individual
// eagerly, recording the generation-zero snapshot.
func (e *Engine) Init(ctx context.Context) error {
	if e.state != StateUninitialized {
		return fmt.Errorf("init from state %s", e.state)
	}

	pop := make([]evo.Individual, e.cfg.PopulationSize)
	for i := range pop {
		g := e.factory(e.rng)
		if g == nil {
			return fmt.Errorf("genome factory returned nil at index %d", i)
		}
		pop[i] = evo.Individual{Genome: g}
	}
	if err := e.evaluate(ctx, pop); err != nil {
		return err
	}
	evo.Normalize(pop)

	e.population = pop
	e.generation = 0
	e.startedAt = time.Now()
	e.state = StateInitialized

	snapshot := e.monitor.Record(0, pop)
	e.retuneAdaptive(snapshot.Diversity)
	if e.cfg.Verbose {
		e.logger.Info("population initialized",
			zap.Int("population_size", len(pop)),
			zap.Float64("best_fitness", snapshot.BestFitness),
			zap.Float64("diversity", snapshot.Diversity),
		)
	}
	return nil
}

// Step performs exactly one phase transition and returns control to the
// caller: initialization when uninitialized, otherwise one full generation.
// done reports that a termination state was reached.
func (e *Engine) Step(ctx context.Context) (done bool, err error) {
	if err := ctx.Err(); err != nil {
		return e.state.Terminal(), err
	}

	switch {
	case e.state == StateUninitialized:
		if err := e.Init(ctx); err != nil {
			return false, err
		}
		return false, nil
	case e.state.Terminal():
		return true, nil
	}

	e.state = StateEvolving
	if err := e.evolveOnce(ctx); err != nil {
		return false, err
	}

	snapshot := e.monitor.Record(e.generation, e.population)
	e.retuneAdaptive(snapshot.Diversity)
	if e.cfg.Verbose {
		e.logger.Info("generation complete",
			zap.Int("generation", e.generation),
			zap.Float64("best_fitness", snapshot.BestFitness),
			zap.Float64("mean_fitness", snapshot.AverageFitness),
			zap.Float64("diversity", snapshot.Diversity),
		)
	}
	if e.callback != nil {
		e.callback(e.generation, snapshot.BestFitness)
	}

	// Termination runs after the snapshot so the deciding generation is
	// always on record.
	e.checkTermination(snapshot)
	return e.state.Terminal(), nil
}

// Run drives Step until termination and returns the best individual of the
// final population. Ties break to the first-encountered individual.
func (e *Engine) Run(ctx context.Context) (evo.Individual, error) {
	for {
		done, err := e.Step(ctx)
		if err != nil {
			return evo.Individual{}, err
		}
		if done {
			break
		}
	}
	best := e.Best()
	e.state = StateTerminated
	return best, nil
}

// Best returns a deep copy of the highest-fitness individual currently in the
// population, first-encountered order winning ties.
func (e *Engine) Best() evo.Individual {
	if len(e.population) == 0 {
		return evo.Individual{}
	}
	return e.population[evo.Best(e.population)].Clone()
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Reason returns the termination cause, or the zero value before termination.
func (e *Engine) Reason() State { return e.reason }

// Generation returns the current generation counter.
func (e *Engine) Generation() int { return e.generation }

// Monitor exposes the per-generation statistics history.
func (e *Engine) Monitor() *stats.Monitor { return e.monitor }

// Population returns a shallow copy of the current population slice. Callers
// must not mutate the genomes.
func (e *Engine) Population() []evo.Individual {
	out := make([]evo.Individual, len(e.population))
	copy(out, e.population)
	return out
}

// evolveOnce runs one select / crossover / mutate / replace cycle.
func (e *Engine) evolveOnce(ctx context.Context) error {
	size := e.cfg.PopulationSize
	eliteCount := int(float64(size) * e.cfg.ElitismRate)
	offspringCount := size - eliteCount
	if offspringCount < 1 {
		offspringCount = 1
	}

	parentCount := offspringCount
	if parentCount%2 == 1 {
		parentCount++
	}
	parents, err := e.selector.Select(e.rng, e.population, parentCount)
	if err != nil {
		return fmt.Errorf("selection: %w", err)
	}

	offspring := make([]evo.Individual, 0, offspringCount)
	for i := 0; i+1 < len(parents) && len(offspring) < offspringCount; i += 2 {
		a, b := parents[i], parents[i+1]

		var childA, childB genome.Genome
		if e.rng.Float64() < e.cfg.CrossoverRate {
			childA, childB, err = e.crossover.Cross(e.rng, a.Genome, b.Genome)
			if err != nil {
				return fmt.Errorf("crossover: %w", err)
			}
		} else {
			childA, childB = a.Genome.Clone(), b.Genome.Clone()
		}

		for _, child := range []genome.Genome{childA, childB} {
			if len(offspring) >= offspringCount {
				break
			}
			mutated, err := e.mutator.Mutate(e.rng, child, e.cfg.MutationRate)
			if err != nil {
				return fmt.Errorf("mutation: %w", err)
			}
			offspring = append(offspring, evo.Individual{Genome: mutated})
		}
	}

	if err := e.evaluate(ctx, offspring); err != nil {
		return err
	}

	for i := range e.population {
		e.population[i].Age++
	}
	next, err := e.replacer.Replace(e.rng, e.population, offspring, size)
	if err != nil {
		return fmt.Errorf("replacement: %w", err)
	}
	if len(next) != size {
		return fmt.Errorf("replacement %s produced population of size %d, want %d", e.replacer.Name(), len(next), size)
	}
	evo.Normalize(next)

	e.population = next
	e.generation++
	return nil
}

// evaluate computes fitness for every individual on a bounded worker group.
// All evaluations join before the caller continues; workers never touch the
// engine's RNG.
func (e *Engine) evaluate(ctx context.Context, pop []evo.Individual) error {
	workers := e.cfg.Workers
	if workers <= 1 {
		for i := range pop {
			if err := ctx.Err(); err != nil {
				return err
			}
			pop[i].Fitness = pop[i].Genome.Fitness()
		}
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := range pop {
		i := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			pop[i].Fitness = pop[i].Genome.Fitness()
			return nil
		})
	}
	return group.Wait()
}

// checkTermination inspects, in order: generation cap, wall-clock limit,
// fitness goal, monitor convergence.
func (e *Engine) checkTermination(snapshot stats.GenerationStats) {
	switch {
	case e.generation >= e.cfg.MaxGenerations:
		e.terminate(StateGenerationLimit)
	case e.cfg.TimeLimit > 0 && time.Since(e.startedAt) >= e.cfg.TimeLimit:
		e.terminate(StateTimeLimit)
	case e.cfg.FitnessGoal != nil && snapshot.BestFitness >= *e.cfg.FitnessGoal:
		e.terminate(StateFitnessGoal)
	case e.monitor.Converged():
		e.terminate(StateConverged)
	}
}

func (e *Engine) terminate(reason State) {
	e.state = reason
	e.reason = reason
	if e.cfg.Verbose {
		e.logger.Info("run terminated",
			zap.String("reason", string(reason)),
			zap.Int("generation", e.generation),
		)
	}
}

// retuneAdaptive feeds the monitor's diversity signal to an adaptive mutation
// wrapper, when one is configured.
func (e *Engine) retuneAdaptive(diversity float64) {
	if adaptive, ok := e.mutator.(*evo.AdaptiveMutator); ok {
		adaptive.Retune(diversity)
	}
}
