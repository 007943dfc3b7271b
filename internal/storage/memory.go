package storage

import (
	"context"
	"sort"
	"sync"

	"telos/internal/stats"
)

// MemoryStore is the default in-process backend.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]RunRecord
	histories map[string][]stats.GenerationStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]RunRecord)
	s.histories = make(map[string][]stats.GenerationStats)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, record RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record = Stamp(record)
	record.BestGenes = append([]float64(nil), record.BestGenes...)
	s.runs[record.RunID] = record
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.runs[runID]
	if !ok {
		return RunRecord{}, false, nil
	}
	record.BestGenes = append([]float64(nil), record.BestGenes...)
	return record, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunRecord, 0, len(s.runs))
	for _, record := range s.runs {
		record.BestGenes = append([]float64(nil), record.BestGenes...)
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].RunID < out[j].RunID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return out, nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, runID string, history []stats.GenerationStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]stats.GenerationStats, len(history))
	copy(copied, history)
	s.histories[runID] = copied
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, runID string) ([]stats.GenerationStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]stats.GenerationStats, len(history))
	copy(copied, history)
	return copied, true, nil
}
