package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/competitiveswarm/internal/opt"
	"github.com/cwbudde/competitiveswarm/internal/problem"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfigYAML parses YAML on top of Default() and validates the result.
// Keys missing from the document keep their default values.
func ParseConfigYAML(data []byte) (*RunConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration that was built or modified in code.
func (c *RunConfig) Validate() error {
	return validateConfig(c)
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *RunConfig) error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	p := cfg.Problem
	if !slices.Contains(problem.Names(), p.Name) {
		return fmt.Errorf("problem.name: unknown problem %q", p.Name)
	}
	if p.Dimension <= 0 {
		return fmt.Errorf("problem.dimension must be positive")
	}
	if (p.Lower == nil) != (p.Upper == nil) {
		return fmt.Errorf("problem.lower and problem.upper must be set together")
	}
	if p.Lower != nil && *p.Lower >= *p.Upper {
		return fmt.Errorf("problem.lower must be below problem.upper")
	}
	if p.Penalty < 0 {
		return fmt.Errorf("problem.penalty cannot be negative")
	}

	s := cfg.Swarm
	if !slices.Contains(opt.Algorithms(), s.Algorithm) {
		return fmt.Errorf("swarm.algorithm: unknown algorithm %q", s.Algorithm)
	}
	if s.PopulationSize < 2 || s.PopulationSize%2 != 0 {
		return fmt.Errorf("swarm.population_size must be even and at least 2")
	}
	if s.RunTimeSeconds < 0 {
		return fmt.Errorf("swarm.run_time_seconds cannot be negative")
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("swarm.max_iterations cannot be negative")
	}
	// A target alone may never be reached, so it always needs a budget beside it.
	if s.RunTimeSeconds == 0 && s.MaxIterations == 0 {
		return fmt.Errorf("swarm needs run_time_seconds or max_iterations")
	}
	if s.Algorithm == opt.AlgorithmMayfly && s.MaxIterations == 0 {
		return fmt.Errorf("swarm.max_iterations is required for mayfly")
	}
	if s.Workers < 0 {
		return fmt.Errorf("swarm.workers cannot be negative")
	}
	if s.VelocityClamp < 0 {
		return fmt.Errorf("swarm.velocity_clamp cannot be negative")
	}
	if s.StagnationPatience < 0 || s.StagnationThreshold < 0 {
		return fmt.Errorf("swarm.stagnation_patience and swarm.stagnation_threshold cannot be negative")
	}

	if cfg.Output.Trace && cfg.Output.DataDir == "" {
		return fmt.Errorf("output.data_dir is required when output.trace is set")
	}
	return nil
}
