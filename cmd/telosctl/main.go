package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"telos/internal/storage"
	telosapi "telos/pkg/telos"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "telos.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "step":
		return runStep(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "problems":
		return runProblems(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: telosctl <init|run|step|runs|history|export|problems> [flags]", msg)
}

type clientFlags struct {
	storeKind *string
	dbPath    *string
	runsDir   *string
	verbose   *bool
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind: fs.String("store", "memory", "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", defaultDBPath, "sqlite database path"),
		runsDir:   fs.String("runs-dir", defaultRunsDir, "run artifacts directory"),
		verbose:   fs.Bool("verbose", false, "log per-generation progress"),
	}
}

func (f clientFlags) newClient() (*telosapi.Client, error) {
	logger, err := newLogger(*f.verbose)
	if err != nil {
		return nil, err
	}
	return telosapi.New(telosapi.Options{
		StoreKind:  *f.storeKind,
		DBPath:     *f.dbPath,
		RunsDir:    *f.runsDir,
		ExportsDir: defaultExportsDir,
		Logger:     logger,
	})
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	profilePath := fs.String("profile", "", "optional YAML run profile path")
	rf := registerRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := telosapi.RunRequest{}
	if *profilePath != "" {
		profile, err := loadProfile(*profilePath)
		if err != nil {
			return err
		}
		req = profile.runRequest()
	}
	rf.apply(fs, &req)
	applyVerbose(&req, *cf.verbose)

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run %s finished: reason=%s generations=%d best=%.6f converged=%t\n",
		summary.RunID, summary.Reason, summary.Generations, summary.BestFitness, summary.Converged)
	fmt.Printf("artifacts: %s\n", summary.ArtifactsDir)
	return nil
}

func runStep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("step", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	profilePath := fs.String("profile", "", "optional YAML run profile path")
	rf := registerRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := telosapi.RunRequest{}
	if *profilePath != "" {
		profile, err := loadProfile(*profilePath)
		if err != nil {
			return err
		}
		req = profile.runRequest()
	}
	rf.apply(fs, &req)
	applyVerbose(&req, *cf.verbose)
	req.OnGeneration = func(generation int, bestFitness float64) {
		fmt.Printf("generation %4d  best=%.6f\n", generation, bestFitness)
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run %s finished: reason=%s best=%.6f\n", summary.RunID, summary.Reason, summary.BestFitness)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	limit := fs.Int("limit", 20, "maximum rows to print")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	items, err := client.Runs(ctx, telosapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(items)
	}

	fmt.Printf("%-24s %-10s %-28s %6s %12s %s\n", "RUN", "PROBLEM", "CREATED", "GENS", "BEST", "REASON")
	for _, item := range items {
		fmt.Printf("%-24s %-10s %-28s %6d %12.6f %s\n",
			item.RunID, item.Problem, item.CreatedAtUTC, item.Generations, item.BestFitness, item.Reason)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "print only the last N generations (0 prints all)")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	history, err := client.History(ctx, telosapi.HistoryRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(history)
	}

	fmt.Printf("%6s %12s %12s %12s %12s\n", "GEN", "BEST", "MEAN", "STD", "DIVERSITY")
	for _, s := range history {
		fmt.Printf("%6d %12.6f %12.6f %12.6f %12.6f\n",
			s.Generation, s.BestFitness, s.AverageFitness, s.FitnessStd, s.Diversity)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", defaultExportsDir, "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.newClient()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Export(ctx, telosapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", summary.RunID, summary.Directory)
	return nil
}

func runProblems(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("problems", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := telosapi.New(telosapi.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	for _, p := range client.Problems() {
		fmt.Printf("%-8s %s\n", p.Name, p.Description)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// runFlags are the request fields settable from the command line. Flags
// explicitly passed win over profile values; defaults do not.
type runFlags struct {
	problem   *string
	selector  *string
	crossover *string
	mutator   *string
	replacer  *string
	bits      *int
	dims      *int
	min       *float64
	max       *float64

	pop         *int
	gens        *int
	mutRate     *float64
	crossRate   *float64
	elitism     *float64
	pressure    *float64
	convThresh  *float64
	convGens    *int
	fitnessGoal *float64
	timeLimit   *time.Duration
	seed        *int64
	workers     *int
}

func registerRunFlags(fs *flag.FlagSet) runFlags {
	return runFlags{
		problem:   fs.String("problem", "onemax", "problem name (see telosctl problems)"),
		selector:  fs.String("selector", "", "selection operator"),
		crossover: fs.String("crossover", "", "crossover operator"),
		mutator:   fs.String("mutator", "", "mutation operator"),
		replacer:  fs.String("replacer", "", "replacement operator"),
		bits:      fs.Int("bits", 0, "onemax bit count"),
		dims:      fs.Int("dims", 0, "sphere dimension count"),
		min:       fs.Float64("min", 0, "sphere lower bound"),
		max:       fs.Float64("max", 0, "sphere upper bound"),

		pop:         fs.Int("pop", 0, "population size"),
		gens:        fs.Int("gens", 0, "generation cap"),
		mutRate:     fs.Float64("mutation-rate", 0, "per-gene mutation probability"),
		crossRate:   fs.Float64("crossover-rate", 0, "per-pair crossover probability"),
		elitism:     fs.Float64("elitism-rate", 0, "fraction of the population preserved as elites"),
		pressure:    fs.Float64("pressure", 0, "selection pressure (tournament size)"),
		convThresh:  fs.Float64("convergence-threshold", 0, "best-fitness spread treated as converged"),
		convGens:    fs.Int("convergence-gens", 0, "window length for convergence detection"),
		fitnessGoal: fs.Float64("fitness-goal", 0, "early-stop best fitness goal"),
		timeLimit:   fs.Duration("time-limit", 0, "wall-clock limit (0 disables)"),
		seed:        fs.Int64("seed", 0, "random seed (0 derives from wall clock)"),
		workers:     fs.Int("workers", 0, "parallel fitness evaluation workers"),
	}
}

// apply copies only the flags the user actually set, so profile values
// survive unless overridden.
func (r runFlags) apply(fs *flag.FlagSet, req *telosapi.RunRequest) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if req.Problem == "" || set["problem"] {
		req.Problem = *r.problem
	}
	if set["selector"] {
		req.Selector = *r.selector
	}
	if set["crossover"] {
		req.Crossover = *r.crossover
	}
	if set["mutator"] {
		req.Mutator = *r.mutator
	}
	if set["replacer"] {
		req.Replacer = *r.replacer
	}
	if set["bits"] {
		req.Bits = *r.bits
	}
	if set["dims"] {
		req.Dims = *r.dims
	}
	if set["min"] {
		req.Min = *r.min
	}
	if set["max"] {
		req.Max = *r.max
	}

	if set["pop"] {
		req.Overrides.PopulationSize = r.pop
	}
	if set["gens"] {
		req.Overrides.MaxGenerations = r.gens
	}
	if set["mutation-rate"] {
		req.Overrides.MutationRate = r.mutRate
	}
	if set["crossover-rate"] {
		req.Overrides.CrossoverRate = r.crossRate
	}
	if set["elitism-rate"] {
		req.Overrides.ElitismRate = r.elitism
	}
	if set["pressure"] {
		req.Overrides.SelectionPressure = r.pressure
	}
	if set["convergence-threshold"] {
		req.Overrides.ConvergenceThreshold = r.convThresh
	}
	if set["convergence-gens"] {
		req.Overrides.ConvergenceGenerations = r.convGens
	}
	if set["fitness-goal"] {
		req.Overrides.FitnessGoal = r.fitnessGoal
	}
	if set["time-limit"] {
		req.Overrides.TimeLimit = r.timeLimit
	}
	if set["seed"] {
		req.Overrides.Seed = r.seed
	}
	if set["workers"] {
		req.Overrides.Workers = r.workers
	}
}

func applyVerbose(req *telosapi.RunRequest, verbose bool) {
	if verbose {
		v := true
		req.Overrides.Verbose = &v
	}
}
