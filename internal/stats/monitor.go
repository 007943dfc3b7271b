package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"telos/internal/evo"
	"telos/internal/genome"
)

// GenerationStats is one immutable snapshot of the population after a
// generation. Best holds a deep copy of that generation's best individual;
// BestGenes carries its gene sequence for serialization.
type GenerationStats struct {
	Generation     int       `json:"generation"`
	Timestamp      time.Time `json:"timestamp"`
	PopulationSize int       `json:"population_size"`
	BestFitness    float64   `json:"best_fitness"`
	WorstFitness   float64   `json:"worst_fitness"`
	AverageFitness float64   `json:"average_fitness"`
	MedianFitness  float64   `json:"median_fitness"`
	FitnessStd     float64   `json:"fitness_std"`
	Diversity      float64   `json:"diversity"`
	BestGenes      []float64 `json:"best_genes"`

	Best genome.Genome `json:"-"`
}

// Summary condenses a whole run's history.
type Summary struct {
	Generations   int     `json:"generations"`
	InitialBest   float64 `json:"initial_best"`
	FinalBest     float64 `json:"final_best"`
	Improvement   float64 `json:"improvement"`
	MeanDiversity float64 `json:"mean_diversity"`
	Converged     bool    `json:"converged"`
}

// Monitor records one snapshot per generation into an append-only history and
// answers convergence queries over it. Threshold and Window come from the run
// configuration: the run has converged when the best fitness stayed within
// Threshold for Window consecutive recorded generations.
type Monitor struct {
	Threshold float64
	Window    int

	// Now is the snapshot clock, replaceable in tests. Nil means time.Now.
	Now func() time.Time

	history []GenerationStats
}

// NewMonitor builds a monitor for the given convergence parameters.
func NewMonitor(threshold float64, window int) (*Monitor, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("convergence threshold must be > 0, got %g", threshold)
	}
	if window <= 0 {
		return nil, fmt.Errorf("convergence window must be > 0, got %d", window)
	}
	return &Monitor{Threshold: threshold, Window: window}, nil
}

// Record computes and appends the snapshot for one evaluated population.
// The best individual is deep-copied, so later mutation of the population
// cannot corrupt history.
func (m *Monitor) Record(generation int, pop []evo.Individual) GenerationStats {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}

	fitness := make([]float64, len(pop))
	for i, in := range pop {
		fitness[i] = in.Fitness
	}
	d := Describe(fitness)

	snapshot := GenerationStats{
		Generation:     generation,
		Timestamp:      now(),
		PopulationSize: len(pop),
		BestFitness:    d.Best,
		WorstFitness:   d.Worst,
		AverageFitness: d.Mean,
		MedianFitness:  d.Median,
		FitnessStd:     d.StdDev,
		Diversity:      Diversity(pop),
	}
	if len(pop) > 0 {
		best := pop[evo.Best(pop)].Genome.Clone()
		snapshot.Best = best
		snapshot.BestGenes = append([]float64(nil), best.Genes()...)
	}

	m.Append(snapshot)
	return snapshot
}

// Append adds a pre-built snapshot; Record uses it, and tests feed synthetic
// histories through it.
func (m *Monitor) Append(s GenerationStats) {
	m.history = append(m.history, s)
}

// History returns a copy of the recorded snapshots in generation order.
func (m *Monitor) History() []GenerationStats {
	out := make([]GenerationStats, len(m.history))
	copy(out, m.history)
	return out
}

// Latest returns the newest snapshot, if any.
func (m *Monitor) Latest() (GenerationStats, bool) {
	if len(m.history) == 0 {
		return GenerationStats{}, false
	}
	return m.history[len(m.history)-1], true
}

// Converged reports whether the best fitness has stayed within Threshold over
// the last Window recorded generations. Fewer than Window snapshots can never
// converge.
func (m *Monitor) Converged() bool {
	if len(m.history) < m.Window {
		return false
	}
	tail := m.history[len(m.history)-m.Window:]
	min, max := tail[0].BestFitness, tail[0].BestFitness
	for _, s := range tail[1:] {
		if s.BestFitness < min {
			min = s.BestFitness
		}
		if s.BestFitness > max {
			max = s.BestFitness
		}
	}
	return max-min <= m.Threshold
}

// Summarize folds the history into a run summary.
func (m *Monitor) Summarize() Summary {
	if len(m.history) == 0 {
		return Summary{}
	}
	totalDiversity := 0.0
	for _, s := range m.history {
		totalDiversity += s.Diversity
	}
	first := m.history[0]
	last := m.history[len(m.history)-1]
	return Summary{
		Generations:   len(m.history),
		InitialBest:   first.BestFitness,
		FinalBest:     last.BestFitness,
		Improvement:   last.BestFitness - first.BestFitness,
		MeanDiversity: totalDiversity / float64(len(m.history)),
		Converged:     m.Converged(),
	}
}

// WriteTable exports the history as the CSV table consumed by external
// plotting and reporting tools.
func (m *Monitor) WriteTable(w io.Writer) error {
	writer := csv.NewWriter(w)
	header := []string{
		"generation", "timestamp", "population_size",
		"best_fitness", "worst_fitness", "average_fitness",
		"median_fitness", "fitness_std", "diversity",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, s := range m.history {
		row := []string{
			strconv.Itoa(s.Generation),
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(s.PopulationSize),
			formatFloat(s.BestFitness),
			formatFloat(s.WorstFitness),
			formatFloat(s.AverageFitness),
			formatFloat(s.MedianFitness),
			formatFloat(s.FitnessStd),
			formatFloat(s.Diversity),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
