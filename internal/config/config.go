package config

import (
	"fmt"
	"time"
)

// Config bundles the hyperparameters of an evolutionary run. A Config is a
// plain value: validate once with Validate, then treat it as immutable.
// Derive produces adjusted copies without touching the original.
type Config struct {
	PopulationSize         int           `json:"population_size" yaml:"population_size"`
	MaxGenerations         int           `json:"max_generations" yaml:"max_generations"`
	MutationRate           float64       `json:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate          float64       `json:"crossover_rate" yaml:"crossover_rate"`
	ElitismRate            float64       `json:"elitism_rate" yaml:"elitism_rate"`
	SelectionPressure      float64       `json:"selection_pressure" yaml:"selection_pressure"`
	ConvergenceThreshold   float64       `json:"convergence_threshold" yaml:"convergence_threshold"`
	ConvergenceGenerations int           `json:"convergence_generations" yaml:"convergence_generations"`
	FitnessGoal            *float64      `json:"fitness_goal,omitempty" yaml:"fitness_goal,omitempty"`
	TimeLimit              time.Duration `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
	Seed                   int64         `json:"seed" yaml:"seed"`
	Workers                int           `json:"workers" yaml:"workers"`
	Verbose                bool          `json:"verbose" yaml:"verbose"`
}

// Overrides carries optional replacements for Derive. Nil fields keep the
// base value.
type Overrides struct {
	PopulationSize         *int
	MaxGenerations         *int
	MutationRate           *float64
	CrossoverRate          *float64
	ElitismRate            *float64
	SelectionPressure      *float64
	ConvergenceThreshold   *float64
	ConvergenceGenerations *int
	FitnessGoal            *float64
	TimeLimit              *time.Duration
	Seed                   *int64
	Workers                *int
	Verbose                *bool
}

// Default returns the baseline configuration used when a caller supplies
// nothing. The zero seed means "derive from wall clock" at engine level.
func Default() Config {
	return Config{
		PopulationSize:         50,
		MaxGenerations:         100,
		MutationRate:           0.02,
		CrossoverRate:          0.8,
		ElitismRate:            0.1,
		SelectionPressure:      3,
		ConvergenceThreshold:   1e-9,
		ConvergenceGenerations: 25,
		Workers:                1,
	}
}

// Validate checks every parameter range. It is the single gate between raw
// input and a running engine; engines refuse unvalidated configs.
func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size must be >= 2, got %d", c.PopulationSize)
	}
	if c.MaxGenerations <= 0 {
		return fmt.Errorf("max generations must be > 0, got %d", c.MaxGenerations)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0, 1], got %g", c.MutationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be in [0, 1], got %g", c.CrossoverRate)
	}
	if c.ElitismRate < 0 || c.ElitismRate >= 1 {
		return fmt.Errorf("elitism rate must be in [0, 1), got %g", c.ElitismRate)
	}
	if c.SelectionPressure <= 0 {
		return fmt.Errorf("selection pressure must be > 0, got %g", c.SelectionPressure)
	}
	if c.ConvergenceThreshold <= 0 {
		return fmt.Errorf("convergence threshold must be > 0, got %g", c.ConvergenceThreshold)
	}
	if c.ConvergenceGenerations <= 0 {
		return fmt.Errorf("convergence generations must be > 0, got %d", c.ConvergenceGenerations)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time limit must be > 0 when set, got %s", c.TimeLimit)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// Derive clones the config, applies the overrides and revalidates. The
// receiver is never modified.
func (c Config) Derive(o Overrides) (Config, error) {
	out := c
	if o.PopulationSize != nil {
		out.PopulationSize = *o.PopulationSize
	}
	if o.MaxGenerations != nil {
		out.MaxGenerations = *o.MaxGenerations
	}
	if o.MutationRate != nil {
		out.MutationRate = *o.MutationRate
	}
	if o.CrossoverRate != nil {
		out.CrossoverRate = *o.CrossoverRate
	}
	if o.ElitismRate != nil {
		out.ElitismRate = *o.ElitismRate
	}
	if o.SelectionPressure != nil {
		out.SelectionPressure = *o.SelectionPressure
	}
	if o.ConvergenceThreshold != nil {
		out.ConvergenceThreshold = *o.ConvergenceThreshold
	}
	if o.ConvergenceGenerations != nil {
		out.ConvergenceGenerations = *o.ConvergenceGenerations
	}
	if o.FitnessGoal != nil {
		goal := *o.FitnessGoal
		out.FitnessGoal = &goal
	}
	if o.TimeLimit != nil {
		out.TimeLimit = *o.TimeLimit
	}
	if o.Seed != nil {
		out.Seed = *o.Seed
	}
	if o.Workers != nil {
		out.Workers = *o.Workers
	}
	if o.Verbose != nil {
		out.Verbose = *o.Verbose
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}
