// Package telos is the public client surface: it wires a problem, one
// operator per family and a configuration into an engine run, persists the
// outcome and serves queries over past runs.
package telos

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telos/internal/config"
	"telos/internal/engine"
	"telos/internal/evo"
	"telos/internal/genome"
	"telos/internal/problems"
	"telos/internal/report"
	"telos/internal/stats"
	"telos/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "telos.db"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *zap.Logger
}

type Client struct {
	store  storage.Store
	logger *zap.Logger

	runsDir    string
	exportsDir string
}

// RunRequest describes one evolutionary run. Zero-valued operator names fall
// back to the defaults noted per field; Overrides patches the base
// configuration the same way a profile file would.
type RunRequest struct {
	Problem   string // onemax, sphere, tour
	Selector  string // tournament, roulette, rank, boltzmann, sus
	Crossover string // single_point, two_point, uniform, arithmetic, sbx, order, cycle, edge_recombination
	Mutator   string // bit_flip, swap, gaussian, polynomial, inversion, scramble, adaptive
	Replacer  string // elitist, generational, steady_state, tournament, age_based

	// Problem sizing. Bits for onemax, Dims/Min/Max for sphere; tour uses
	// the built-in demo cost matrix.
	Bits int
	Dims int
	Min  float64
	Max  float64

	Overrides config.Overrides

	// OnGeneration, when set, is called after every recorded generation.
	OnGeneration func(generation int, bestFitness float64)
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Reason       string
	Generations  int
	BestFitness  float64
	BestGenes    []float64
	Converged    bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Problem      string
	Generations  int
	BestFitness  float64
	Reason       string
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ProblemInfo struct {
	Name        string
	Description string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = "memory"
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run builds an engine from the request, drives it to termination and writes
// both the artifact directory and the store record before returning.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Problem == "" {
		req.Problem = "onemax"
	}
	if req.Selector == "" {
		req.Selector = "tournament"
	}
	if req.Crossover == "" {
		req.Crossover = defaultCrossoverFor(req.Problem)
	}
	if req.Mutator == "" {
		req.Mutator = defaultMutatorFor(req.Problem)
	}
	if req.Replacer == "" {
		req.Replacer = "elitist"
	}

	cfg, err := config.Default().Derive(req.Overrides)
	if err != nil {
		return RunSummary{}, err
	}

	factory, err := factoryFromName(req.Problem, req.Bits, req.Dims, req.Min, req.Max)
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := selectorFromName(req.Selector, cfg.SelectionPressure)
	if err != nil {
		return RunSummary{}, err
	}
	crossover, err := crossoverFromName(req.Crossover)
	if err != nil {
		return RunSummary{}, err
	}
	mutator, err := mutatorFromName(req.Mutator, cfg.MutationRate)
	if err != nil {
		return RunSummary{}, err
	}
	replacer, err := replacerFromName(req.Replacer)
	if err != nil {
		return RunSummary{}, err
	}

	eng, err := engine.New(engine.Options{
		Config:       cfg,
		Factory:      factory,
		Selector:     selector,
		Crossover:    crossover,
		Mutator:      mutator,
		Replacer:     replacer,
		Logger:       c.logger,
		OnGeneration: req.OnGeneration,
	})
	if err != nil {
		return RunSummary{}, err
	}

	best, err := eng.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%s", req.Problem, uuid.New().String()[:8])
	summary := eng.Monitor().Summarize()
	history := eng.Monitor().History()
	reason := string(eng.Reason())

	runDir, err := report.WriteRunArtifacts(c.runsDir, eng.Monitor(), report.RunArtifacts{
		Config: report.RunConfig{
			RunID:     runID,
			Problem:   req.Problem,
			Selector:  selector.Name(),
			Crossover: crossover.Name(),
			Mutator:   mutator.Name(),
			Replacer:  replacer.Name(),
			Config:    cfg,
		},
		History: history,
		Summary: summary,
		Reason:  reason,
		BestGenome: report.BestGenome{
			Fitness: best.Fitness,
			Genes:   best.Genome.Genes(),
		},
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := report.AppendRunIndex(c.runsDir, report.RunIndexEntry{
		RunID:        runID,
		Problem:      req.Problem,
		Generations:  eng.Generation(),
		BestFitness:  best.Fitness,
		Reason:       reason,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	record := storage.RunRecord{
		RunID:        runID,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
		Problem:      req.Problem,
		Selector:     selector.Name(),
		Crossover:    crossover.Name(),
		Mutator:      mutator.Name(),
		Replacer:     replacer.Name(),
		Config:       cfg,
		Reason:       reason,
		Generations:  eng.Generation(),
		BestFitness:  best.Fitness,
		BestGenes:    append([]float64(nil), best.Genome.Genes()...),
	}
	record = storage.Stamp(record)
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveHistory(ctx, runID, history); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Reason:       reason,
		Generations:  eng.Generation(),
		BestFitness:  best.Fitness,
		BestGenes:    append([]float64(nil), best.Genome.Genes()...),
		Converged:    summary.Converged,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}

	out := make([]RunItem, 0, len(records))
	for _, r := range records {
		out = append(out, RunItem{
			RunID:        r.RunID,
			CreatedAtUTC: r.CreatedAtUTC,
			Problem:      r.Problem,
			Generations:  r.Generations,
			BestFitness:  r.BestFitness,
			Reason:       r.Reason,
		})
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, req HistoryRequest) ([]stats.GenerationStats, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no history for run %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[len(history)-req.Limit:]
	}
	return history, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	exportedDir, err := report.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Problems lists the built-in demo problems.
func (c *Client) Problems() []ProblemInfo {
	return []ProblemInfo{
		{Name: "onemax", Description: "maximize the count of one-valued genes in a bit vector"},
		{Name: "sphere", Description: "minimize the sum of squared reals (fitness is negated)"},
		{Name: "tour", Description: "minimize closed-tour cost over the built-in demo cities"},
	}
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", errors.New("no runs available")
	}
	return records[0].RunID, nil
}

func defaultCrossoverFor(problem string) string {
	if problem == "tour" {
		return "order"
	}
	return "single_point"
}

func defaultMutatorFor(problem string) string {
	switch problem {
	case "tour":
		return "swap"
	case "sphere":
		return "gaussian"
	default:
		return "bit_flip"
	}
}

func factoryFromName(problem string, bits, dims int, min, max float64) (genome.Factory, error) {
	switch problem {
	case "onemax":
		if bits <= 0 {
			bits = 20
		}
		return problems.OneMaxFactory(bits), nil
	case "sphere":
		if dims <= 0 {
			dims = 3
		}
		if min == 0 && max == 0 {
			min, max = -5.12, 5.12
		}
		if min >= max {
			return nil, fmt.Errorf("sphere bounds [%g, %g] are empty", min, max)
		}
		return problems.SphereFactory(dims, min, max), nil
	case "tour":
		matrix, err := problems.DemoCostMatrix()
		if err != nil {
			return nil, err
		}
		return problems.TourFactory(matrix), nil
	default:
		return nil, fmt.Errorf("unknown problem: %s", problem)
	}
}

func selectorFromName(name string, pressure float64) (evo.Selector, error) {
	switch name {
	case "tournament":
		size := int(pressure)
		if size < 2 {
			size = 2
		}
		return evo.TournamentSelector{Size: size}, nil
	case "roulette":
		return evo.RouletteSelector{}, nil
	case "rank":
		return evo.RankSelector{}, nil
	case "boltzmann":
		return evo.NewBoltzmannSelector(), nil
	case "sus":
		return evo.StochasticUniversalSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown selector: %s", name)
	}
}

func crossoverFromName(name string) (evo.Crossover, error) {
	switch name {
	case "single_point":
		return evo.SinglePointCrossover{}, nil
	case "two_point":
		return evo.TwoPointCrossover{}, nil
	case "uniform":
		return evo.UniformCrossover{}, nil
	case "arithmetic":
		return evo.ArithmeticCrossover{}, nil
	case "sbx":
		return evo.SBXCrossover{}, nil
	case "order":
		return evo.OrderCrossover{}, nil
	case "cycle":
		return evo.CycleCrossover{}, nil
	case "edge_recombination":
		return evo.EdgeRecombinationCrossover{}, nil
	default:
		return nil, fmt.Errorf("unknown crossover: %s", name)
	}
}

func mutatorFromName(name string, baseRate float64) (evo.Mutator, error) {
	switch name {
	case "bit_flip":
		return evo.BitFlipMutator{}, nil
	case "swap":
		return evo.SwapMutator{}, nil
	case "gaussian":
		return evo.GaussianMutator{}, nil
	case "polynomial":
		return evo.PolynomialMutator{}, nil
	case "inversion":
		return evo.InversionMutator{}, nil
	case "scramble":
		return evo.ScrambleMutator{}, nil
	case "adaptive":
		hi := baseRate * 10
		if hi <= 0 || hi > 0.5 {
			hi = 0.5
		}
		return &evo.AdaptiveMutator{Base: evo.BitFlipMutator{}, MinRate: baseRate, MaxRate: hi}, nil
	default:
		return nil, fmt.Errorf("unknown mutator: %s", name)
	}
}

func replacerFromName(name string) (evo.Replacer, error) {
	switch name {
	case "elitist":
		return evo.ElitistReplacer{}, nil
	case "generational":
		return evo.GenerationalReplacer{}, nil
	case "steady_state":
		return evo.SteadyStateReplacer{}, nil
	case "tournament":
		return evo.TournamentReplacer{}, nil
	case "age_based":
		return evo.AgeBasedReplacer{}, nil
	default:
		return nil, fmt.Errorf("unknown replacer: %s", name)
	}
}
