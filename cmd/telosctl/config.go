package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	telosapi "telos/pkg/telos"
)

// profile is the YAML run description accepted by -profile. Absent keys keep
// the request's defaults, so a profile only needs to name what it changes.
type profile struct {
	Problem   string `yaml:"problem"`
	Selector  string `yaml:"selector"`
	Crossover string `yaml:"crossover"`
	Mutator   string `yaml:"mutator"`
	Replacer  string `yaml:"replacer"`

	Bits int     `yaml:"bits"`
	Dims int     `yaml:"dims"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`

	PopulationSize         *int      `yaml:"population_size"`
	MaxGenerations         *int      `yaml:"max_generations"`
	MutationRate           *float64  `yaml:"mutation_rate"`
	CrossoverRate          *float64  `yaml:"crossover_rate"`
	ElitismRate            *float64  `yaml:"elitism_rate"`
	SelectionPressure      *float64  `yaml:"selection_pressure"`
	ConvergenceThreshold   *float64  `yaml:"convergence_threshold"`
	ConvergenceGenerations *int      `yaml:"convergence_generations"`
	FitnessGoal            *float64  `yaml:"fitness_goal"`
	TimeLimit              *duration `yaml:"time_limit"`
	Seed                   *int64    `yaml:"seed"`
	Workers                *int      `yaml:"workers"`
	Verbose                *bool     `yaml:"verbose"`
}

// duration accepts Go duration strings ("30s", "2m") in YAML profiles.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

func loadProfile(path string) (profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile{}, err
	}

	var p profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}

func (p profile) runRequest() telosapi.RunRequest {
	req := telosapi.RunRequest{
		Problem:   p.Problem,
		Selector:  p.Selector,
		Crossover: p.Crossover,
		Mutator:   p.Mutator,
		Replacer:  p.Replacer,
		Bits:      p.Bits,
		Dims:      p.Dims,
		Min:       p.Min,
		Max:       p.Max,
	}
	req.Overrides.PopulationSize = p.PopulationSize
	req.Overrides.MaxGenerations = p.MaxGenerations
	req.Overrides.MutationRate = p.MutationRate
	req.Overrides.CrossoverRate = p.CrossoverRate
	req.Overrides.ElitismRate = p.ElitismRate
	req.Overrides.SelectionPressure = p.SelectionPressure
	req.Overrides.ConvergenceThreshold = p.ConvergenceThreshold
	req.Overrides.ConvergenceGenerations = p.ConvergenceGenerations
	req.Overrides.FitnessGoal = p.FitnessGoal
	if p.TimeLimit != nil {
		limit := time.Duration(*p.TimeLimit)
		req.Overrides.TimeLimit = &limit
	}
	req.Overrides.Seed = p.Seed
	req.Overrides.Workers = p.Workers
	req.Overrides.Verbose = p.Verbose
	return req
}
