// Package report writes per-run artifact directories and maintains the run
// index consumed by the CLI and external plotting tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"telos/internal/config"
	"telos/internal/stats"
)

const runIndexFile = "run_index.json"

// RunConfig is the reproducibility record written next to a run's results.
type RunConfig struct {
	RunID     string        `json:"run_id"`
	Problem   string        `json:"problem"`
	Selector  string        `json:"selector"`
	Crossover string        `json:"crossover"`
	Mutator   string        `json:"mutator"`
	Replacer  string        `json:"replacer"`
	Config    config.Config `json:"config"`
}

// BestGenome is the serialized winner of a run.
type BestGenome struct {
	Fitness float64   `json:"fitness"`
	Genes   []float64 `json:"genes"`
}

// RunArtifacts bundles everything written for one run.
type RunArtifacts struct {
	Config     RunConfig               `json:"config"`
	History    []stats.GenerationStats `json:"history"`
	Summary    stats.Summary           `json:"summary"`
	Reason     string                  `json:"reason"`
	BestGenome BestGenome              `json:"best_genome"`
}

// RunIndexEntry is one line of the newest-first run index.
type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Problem      string  `json:"problem"`
	Generations  int     `json:"generations"`
	BestFitness  float64 `json:"best_fitness"`
	Reason       string  `json:"reason"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts creates the run directory and writes config, fitness
// history, the monitor's CSV table and the best genome. It returns the
// directory path.
func WriteRunArtifacts(baseDir string, monitor *stats.Monitor, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), map[string]any{
		"history": artifacts.History,
		"summary": artifacts.Summary,
		"reason":  artifacts.Reason,
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "best_genome.json"), artifacts.BestGenome); err != nil {
		return "", err
	}

	if monitor != nil {
		table, err := os.Create(filepath.Join(runDir, "stats_table.csv"))
		if err != nil {
			return "", err
		}
		if err := monitor.WriteTable(table); err != nil {
			_ = table.Close()
			return "", err
		}
		if err := table.Close(); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

// AppendRunIndex inserts or updates one entry in the base directory's index.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex reads the index sorted newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies one run's artifact files to outDir.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "fitness_history.json", "best_genome.json", "stats_table.csv"}
	for _, file := range files {
		srcPath := filepath.Join(src, file)
		if _, err := os.Stat(srcPath); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(srcPath, filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// ReadRunConfig loads a run's config record, reporting absence separately.
func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
