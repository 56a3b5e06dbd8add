// Package config handles run configuration: defaults, YAML files and
// validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"opsmeter/internal/reporter"
	"opsmeter/internal/simulator"
	"opsmeter/internal/workerpool"
)

// Config is the root configuration structure.
type Config struct {
	Workers    int                  `yaml:"workers"`
	Task       TaskConfig           `yaml:"task"`
	Queue      QueueConfig          `yaml:"queue"`
	RPS        int                  `yaml:"rps"`
	Duration   time.Duration        `yaml:"duration"`
	Seed       int64                `yaml:"seed"`
	Execution  ExecutionConfig      `yaml:"execution"`
	Output     OutputConfig         `yaml:"output"`
	Thresholds *reporter.Thresholds `yaml:"thresholds,omitempty"`
}

// TaskConfig holds the simulated task's parameters.
type TaskConfig struct {
	MinLatency  time.Duration `yaml:"minLatency"`
	MaxLatency  time.Duration `yaml:"maxLatency"`
	SuccessRate float64       `yaml:"successRate"`
}

// QueueConfig sets the outcome queue policy. Capacity 0 means unbounded;
// a positive capacity drops events that do not fit.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// ExecutionConfig controls iteration-level execution behavior.
type ExecutionConfig struct {
	MaxIterations    int `yaml:"max_iterations"`
	WarmupIterations int `yaml:"warmup_iterations"`
}

// OutputConfig controls rendering and diagnostics.
type OutputConfig struct {
	Format   string `yaml:"format"`
	Color    *bool  `yaml:"color,omitempty"` // nil = auto-detect
	LogLevel string `yaml:"logLevel"`
}

// Default returns the configuration used when nothing is specified: five
// workers, latency in [1ms, 500ms), 80% success, unbounded queue, no rate
// limit, run until interrupted.
func Default() Config {
	sim := simulator.DefaultConfig()
	return Config{
		Workers: workerpool.DefaultSize,
		Task: TaskConfig{
			MinLatency:  sim.MinLatency,
			MaxLatency:  sim.MaxLatency,
			SuccessRate: sim.SuccessProbability,
		},
		Output: OutputConfig{
			Format:   reporter.FormatText,
			LogLevel: "warn",
		},
	}
}

// LoadConfig reads a YAML file, checks it against the schema and overlays
// it on the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data. Fields absent from data keep their
// default values.
func Parse(data []byte) (*Config, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Simulator returns the task simulator parameters.
func (c *Config) Simulator() simulator.Config {
	return simulator.Config{
		MinLatency:         c.Task.MinLatency,
		MaxLatency:         c.Task.MaxLatency,
		SuccessProbability: c.Task.SuccessRate,
	}
}

// ValidationError lists every semantic problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	var problems []string
	if c.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workers must be >= 1, got %d", c.Workers))
	}
	if err := c.Simulator().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Queue.Capacity < 0 {
		problems = append(problems, fmt.Sprintf("queue capacity must be >= 0, got %d", c.Queue.Capacity))
	}
	if c.RPS < 0 {
		problems = append(problems, fmt.Sprintf("rps must be >= 0, got %d", c.RPS))
	}
	if c.Duration < 0 {
		problems = append(problems, fmt.Sprintf("duration must be >= 0, got %v", c.Duration))
	}
	if c.Execution.MaxIterations < 0 || c.Execution.WarmupIterations < 0 {
		problems = append(problems, "iteration counts must be >= 0")
	}
	if c.Output.Format != reporter.FormatText && c.Output.Format != reporter.FormatJSON {
		problems = append(problems, fmt.Sprintf("output format must be %q or %q, got %q",
			reporter.FormatText, reporter.FormatJSON, c.Output.Format))
	}
	if c.Thresholds != nil && c.Thresholds.MaxFailureRate != "" {
		if _, err := reporter.ParsePercentage(c.Thresholds.MaxFailureRate); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Bounded reports whether a run with this configuration ends on its own.
func (c *Config) Bounded() bool {
	return c.Duration > 0 || c.Execution.MaxIterations > 0
}
