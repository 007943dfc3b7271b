package telos

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"telos/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:  "memory",
		RunsDir:    filepath.Join(base, "runs"),
		ExportsDir: filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return client
}

func smallRunRequest() RunRequest {
	pop, gens := 20, 10
	seed := int64(42)
	return RunRequest{
		Problem: "onemax",
		Bits:    10,
		Overrides: config.Overrides{
			PopulationSize: &pop,
			MaxGenerations: &gens,
			Seed:           &seed,
		},
	}
}

func TestClientRunPersistsRecordHistoryAndArtifacts(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Run(ctx, smallRunRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("run id is empty")
	}
	if summary.Generations == 0 {
		t.Fatal("no generations executed")
	}
	if summary.Reason == "" {
		t.Fatal("termination reason is empty")
	}
	if len(summary.BestGenes) != 10 {
		t.Fatalf("best genes length = %d, want 10", len(summary.BestGenes))
	}

	for _, file := range []string{"config.json", "fitness_history.json", "best_genome.json", "stats_table.csv"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("missing artifact %s: %v", file, err)
		}
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("runs listing = %+v, want the finished run", runs)
	}
	if runs[0].Problem != "onemax" {
		t.Fatalf("problem = %s, want onemax", runs[0].Problem)
	}

	history, err := client.History(ctx, HistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// Generation zero plus one snapshot per executed generation.
	if len(history) != summary.Generations+1 {
		t.Fatalf("history length = %d, want %d", len(history), summary.Generations+1)
	}
	if history[0].Generation != 0 {
		t.Fatalf("first snapshot generation = %d, want 0", history[0].Generation)
	}
}

func TestClientHistoryLimitAndLatest(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Run(ctx, smallRunRequest()); err != nil {
		t.Fatalf("run: %v", err)
	}

	history, err := client.History(ctx, HistoryRequest{Latest: true, Limit: 3})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("limited history length = %d, want 3", len(history))
	}

	if _, err := client.History(ctx, HistoryRequest{}); err == nil {
		t.Fatal("expected error without run id or latest")
	}
	if _, err := client.History(ctx, HistoryRequest{RunID: "ghost"}); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestClientExportLatest(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Run(ctx, smallRunRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported run = %s, want %s", exported.RunID, summary.RunID)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, "config.json")); err != nil {
		t.Fatalf("exported config missing: %v", err)
	}

	if _, err := client.Export(ctx, ExportRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for run id combined with latest")
	}
}

func TestClientRejectsUnknownNames(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	cases := []RunRequest{
		{Problem: "knapsack"},
		{Problem: "onemax", Selector: "lottery"},
		{Problem: "onemax", Crossover: "blend9000"},
		{Problem: "onemax", Mutator: "cosmic_ray"},
		{Problem: "onemax", Replacer: "coup"},
	}
	for _, req := range cases {
		if _, err := client.Run(ctx, req); err == nil {
			t.Fatalf("expected error for request %+v", req)
		}
	}
}

func TestClientDefaultsOperatorsPerProblem(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	pop, gens := 12, 3
	seed := int64(7)
	overrides := config.Overrides{PopulationSize: &pop, MaxGenerations: &gens, Seed: &seed}

	for _, problem := range []string{"onemax", "sphere", "tour"} {
		if _, err := client.Run(ctx, RunRequest{Problem: problem, Overrides: overrides}); err != nil {
			t.Fatalf("%s with default operators: %v", problem, err)
		}
	}
}

func TestClientOnGenerationCallback(t *testing.T) {
	client := newTestClient(t)

	var seen int
	req := smallRunRequest()
	req.OnGeneration = func(generation int, bestFitness float64) { seen++ }

	summary, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if seen != summary.Generations {
		t.Fatalf("callback fired %d times, want %d", seen, summary.Generations)
	}
}

func TestProblemsListsBuiltins(t *testing.T) {
	client := newTestClient(t)

	names := map[string]bool{}
	for _, p := range client.Problems() {
		names[p.Name] = true
	}
	for _, want := range []string{"onemax", "sphere", "tour"} {
		if !names[want] {
			t.Fatalf("problem %s missing from listing", want)
		}
	}
}
