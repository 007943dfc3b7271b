package storage

import (
	"context"
	"fmt"

	"telos/internal/config"
	"telos/internal/stats"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the persisted description and outcome of one evolutionary run.
type RunRecord struct {
	VersionedRecord
	RunID        string        `json:"run_id"`
	CreatedAtUTC string        `json:"created_at_utc"`
	Problem      string        `json:"problem"`
	Selector     string        `json:"selector"`
	Crossover    string        `json:"crossover"`
	Mutator      string        `json:"mutator"`
	Replacer     string        `json:"replacer"`
	Config       config.Config `json:"config"`
	Reason       string        `json:"reason"`
	Generations  int           `json:"generations"`
	BestFitness  float64       `json:"best_fitness"`
	BestGenes    []float64     `json:"best_genes"`
}

// Store persists run records and their per-generation statistics histories.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, record RunRecord) error
	GetRun(ctx context.Context, runID string) (RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
	SaveHistory(ctx context.Context, runID string, history []stats.GenerationStats) error
	GetHistory(ctx context.Context, runID string) ([]stats.GenerationStats, bool, error)
}

// NewStore builds a backend by kind: "memory" (default) or "sqlite".
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold external resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
