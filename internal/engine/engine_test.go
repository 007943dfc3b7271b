package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"telos/internal/config"
	"telos/internal/evo"
	"telos/internal/genome"
	"telos/internal/problems"
)

func onemaxConfig() config.Config {
	cfg := config.Default()
	cfg.Seed = 42
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := onemaxConfig()
	cfg.PopulationSize = 1
	_, err := New(Options{Config: cfg, Factory: problems.OneMaxFactory(8)})
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestNewRejectsMissingFactory(t *testing.T) {
	_, err := New(Options{Config: onemaxConfig()})
	if !errors.Is(err, genome.ErrNilFactory) {
		t.Fatalf("expected ErrNilFactory, got %v", err)
	}
}

func TestInitBuildsAndEvaluatesThePopulation(t *testing.T) {
	eng, err := New(Options{Config: onemaxConfig(), Factory: problems.OneMaxFactory(12)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if eng.State() != StateUninitialized {
		t.Fatalf("state = %s, want %s", eng.State(), StateUninitialized)
	}

	if err := eng.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if eng.State() != StateInitialized {
		t.Fatalf("state = %s, want %s", eng.State(), StateInitialized)
	}
	if eng.Generation() != 0 {
		t.Fatalf("generation = %d, want 0", eng.Generation())
	}
	if got := len(eng.Population()); got != 50 {
		t.Fatalf("population size = %d, want 50", got)
	}
	if len(eng.Monitor().History()) != 1 {
		t.Fatal("generation zero was not recorded")
	}

	if err := eng.Init(context.Background()); err == nil {
		t.Fatal("expected error on double init")
	}
}

func TestStepInitializesLazilyAndKeepsSizeInvariant(t *testing.T) {
	eng, err := New(Options{Config: onemaxConfig(), Factory: problems.OneMaxFactory(12)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done, err := eng.Step(context.Background())
	if err != nil {
		t.Fatalf("first step: %v", err)
	}
	if done || eng.State() != StateInitialized {
		t.Fatalf("first step should only initialize, state = %s", eng.State())
	}

	for i := 0; i < 5; i++ {
		if _, err := eng.Step(context.Background()); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := len(eng.Population()); got != 50 {
			t.Fatalf("population size drifted to %d after step %d", got, i)
		}
	}
	if eng.Generation() != 5 {
		t.Fatalf("generation = %d, want 5", eng.Generation())
	}
}

func TestRunStopsAtGenerationLimit(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MaxGenerations = 7
	cfg.MutationRate = 0 // keep the run from converging or hitting a goal
	cfg.CrossoverRate = 0
	cfg.ConvergenceGenerations = 50

	eng, err := New(Options{Config: cfg, Factory: problems.OneMaxFactory(12)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if eng.Reason() != StateGenerationLimit {
		t.Fatalf("reason = %s, want %s", eng.Reason(), StateGenerationLimit)
	}
	if eng.Generation() != 7 {
		t.Fatalf("generation = %d, want 7", eng.Generation())
	}
	if eng.State() != StateTerminated {
		t.Fatalf("state = %s, want %s", eng.State(), StateTerminated)
	}
}

func TestRunDetectsConvergence(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MutationRate = 0
	cfg.CrossoverRate = 0
	cfg.ConvergenceGenerations = 5
	cfg.MaxGenerations = 100

	eng, err := New(Options{
		Config:   cfg,
		Factory:  problems.OneMaxFactory(12),
		Replacer: evo.ElitistReplacer{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if eng.Reason() != StateConverged {
		t.Fatalf("reason = %s, want %s", eng.Reason(), StateConverged)
	}
	if eng.Generation() >= 100 {
		t.Fatal("convergence was not detected before the generation limit")
	}
}

func TestRunStopsAtFitnessGoal(t *testing.T) {
	cfg := onemaxConfig()
	goal := 1.0 // any population of 12-bit genomes reaches this immediately
	cfg.FitnessGoal = &goal

	eng, err := New(Options{Config: cfg, Factory: problems.OneMaxFactory(12)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if eng.Reason() != StateFitnessGoal {
		t.Fatalf("reason = %s, want %s", eng.Reason(), StateFitnessGoal)
	}
}

func TestRunStopsAtTimeLimit(t *testing.T) {
	cfg := onemaxConfig()
	cfg.TimeLimit = time.Nanosecond
	cfg.ConvergenceGenerations = 50

	eng, err := New(Options{Config: cfg, Factory: problems.OneMaxFactory(12)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if eng.Reason() != StateTimeLimit {
		t.Fatalf("reason = %s, want %s", eng.Reason(), StateTimeLimit)
	}
	if eng.Generation() != 1 {
		t.Fatalf("generation = %d, want 1", eng.Generation())
	}
}

func TestOnGenerationCallback(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MaxGenerations = 3
	cfg.ConvergenceGenerations = 50

	var generations []int
	eng, err := New(Options{
		Config:  cfg,
		Factory: problems.OneMaxFactory(12),
		OnGeneration: func(generation int, bestFitness float64) {
			generations = append(generations, generation)
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(generations) != 3 || generations[0] != 1 || generations[2] != 3 {
		t.Fatalf("callback generations = %v, want [1 2 3]", generations)
	}
}

func TestRunIsDeterministicForAFixedSeed(t *testing.T) {
	run := func(workers int) ([]float64, []float64) {
		cfg := onemaxConfig()
		cfg.MaxGenerations = 30
		cfg.ConvergenceGenerations = 100
		cfg.Workers = workers

		eng, err := New(Options{Config: cfg, Factory: problems.OneMaxFactory(16)})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		best, err := eng.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		series := make([]float64, 0, 31)
		for _, s := range eng.Monitor().History() {
			series = append(series, s.BestFitness)
		}
		return series, best.Genome.Genes()
	}

	seriesA, genesA := run(1)
	seriesB, genesB := run(1)
	seriesC, genesC := run(4)

	if len(seriesA) != len(seriesB) || len(seriesA) != len(seriesC) {
		t.Fatalf("history lengths differ: %d, %d, %d", len(seriesA), len(seriesB), len(seriesC))
	}
	for i := range seriesA {
		if seriesA[i] != seriesB[i] || seriesA[i] != seriesC[i] {
			t.Fatalf("best fitness diverged at generation %d: %g, %g, %g",
				i, seriesA[i], seriesB[i], seriesC[i])
		}
	}
	for i := range genesA {
		if genesA[i] != genesB[i] || genesA[i] != genesC[i] {
			t.Fatalf("best genes diverged at %d", i)
		}
	}
}

func TestCancelledContextStopsTheRun(t *testing.T) {
	eng, err := New(Options{Config: onemaxConfig(), Factory: problems.OneMaxFactory(12)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOneMaxReachesTheOptimum(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MaxGenerations = 200
	cfg.ConvergenceGenerations = 201 // run to the goal or the cap
	goal := 20.0
	cfg.FitnessGoal = &goal

	eng, err := New(Options{
		Config:    cfg,
		Factory:   problems.OneMaxFactory(20),
		Selector:  evo.TournamentSelector{Size: 3},
		Crossover: evo.SinglePointCrossover{},
		Mutator:   evo.BitFlipMutator{},
		Replacer:  evo.ElitistReplacer{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	best, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if best.Fitness != 20 {
		t.Fatalf("best fitness = %g, want 20", best.Fitness)
	}
	if eng.Reason() != StateFitnessGoal {
		t.Fatalf("reason = %s, want %s", eng.Reason(), StateFitnessGoal)
	}
}

func TestSphereConvergesNearTheOrigin(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MaxGenerations = 300
	cfg.ConvergenceGenerations = 301
	cfg.MutationRate = 0.2

	eng, err := New(Options{
		Config:    cfg,
		Factory:   problems.SphereFactory(3, -5.12, 5.12),
		Selector:  evo.TournamentSelector{Size: 3},
		Crossover: evo.ArithmeticCrossover{Alpha: 0.5},
		Mutator:   evo.GaussianMutator{Sigma: 0.1},
		Replacer:  evo.ElitistReplacer{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	best, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Fitness is the negated sum of squares, so near-zero means near-origin.
	if best.Fitness < -1e-2 {
		t.Fatalf("best fitness = %g, want >= -0.01", best.Fitness)
	}
}

func TestBestFitnessIsMonotoneUnderElitism(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MaxGenerations = 40
	cfg.ConvergenceGenerations = 100

	eng, err := New(Options{
		Config:   cfg,
		Factory:  problems.OneMaxFactory(16),
		Replacer: evo.ElitistReplacer{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	history := eng.Monitor().History()
	for i := 1; i < len(history); i++ {
		if history[i].BestFitness < history[i-1].BestFitness {
			t.Fatalf("best fitness regressed at generation %d: %g -> %g",
				history[i].Generation, history[i-1].BestFitness, history[i].BestFitness)
		}
	}
}

func TestDiversityDecaysUnderElitism(t *testing.T) {
	cfg := onemaxConfig()
	cfg.MaxGenerations = 100
	cfg.ConvergenceGenerations = 200

	eng, err := New(Options{
		Config:   cfg,
		Factory:  problems.OneMaxFactory(20),
		Replacer: evo.ElitistReplacer{},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	history := eng.Monitor().History()
	quarter := len(history) / 4
	if quarter == 0 {
		t.Fatalf("history too short: %d generations", len(history))
	}
	early, late := 0.0, 0.0
	for _, s := range history[:quarter] {
		early += s.Diversity
	}
	for _, s := range history[len(history)-quarter:] {
		late += s.Diversity
	}
	early /= float64(quarter)
	late /= float64(quarter)

	// Elitism on a unimodal landscape drives the population toward one
	// genotype, so average pairwise diversity shrinks over the run. Allow
	// slack for noise but require a clear drop.
	if late > early/2 {
		t.Fatalf("mean diversity did not decay: early quarter %g, late quarter %g", early, late)
	}
}
