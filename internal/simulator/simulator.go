// Package simulator provides the stand-in workload: a task that sleeps for a
// random latency and then succeeds or fails at random.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"opsmeter/internal/core"
)

const (
	DefaultMinLatency         = 1 * time.Millisecond
	DefaultMaxLatency         = 500 * time.Millisecond
	DefaultSuccessProbability = 0.8
)

// Config holds the simulation parameters.
type Config struct {
	MinLatency         time.Duration
	MaxLatency         time.Duration
	SuccessProbability float64
}

// DefaultConfig returns latency uniform in [1ms, 500ms) and 80% success.
func DefaultConfig() Config {
	return Config{
		MinLatency:         DefaultMinLatency,
		MaxLatency:         DefaultMaxLatency,
		SuccessProbability: DefaultSuccessProbability,
	}
}

// Validate checks that the latency range and probability are usable.
func (c Config) Validate() error {
	if c.MinLatency < 0 {
		return fmt.Errorf("min latency must be >= 0, got %v", c.MinLatency)
	}
	if c.MaxLatency < c.MinLatency {
		return fmt.Errorf("max latency %v is below min latency %v", c.MaxLatency, c.MinLatency)
	}
	if c.SuccessProbability < 0 || c.SuccessProbability > 1 {
		return fmt.Errorf("success probability must be in [0, 1], got %v", c.SuccessProbability)
	}
	return nil
}

// Simulator executes the simulated task. Each Simulator owns its random
// stream and must be used by a single goroutine; give every worker its own.
type Simulator struct {
	cfg   Config
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Simulator seeded with seed.
func New(cfg Config, seed int64) *Simulator {
	return &Simulator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		sleep: sleepContext,
	}
}

// Execute blocks for a random latency, then returns Success with the
// configured probability and Failure otherwise. Cancellation during the
// sleep yields a Failure wrapping ctx.Err().
func (s *Simulator) Execute(ctx context.Context) core.Outcome {
	if err := s.sleep(ctx, s.latency()); err != nil {
		return core.FailureFrom(err)
	}
	if s.rng.Float64() < s.cfg.SuccessProbability {
		return core.Success()
	}
	return core.Failure("task error")
}

func (s *Simulator) latency() time.Duration {
	span := s.cfg.MaxLatency - s.cfg.MinLatency
	if span <= 0 {
		return s.cfg.MinLatency
	}
	return s.cfg.MinLatency + time.Duration(s.rng.Int63n(int64(span)))
}

// Factory hands out independently seeded simulators, one per worker.
type Factory struct {
	cfg  Config
	seed int64
}

// NewFactory creates a Factory. A zero seed derives one from the clock.
func NewFactory(cfg Config, seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{cfg: cfg, seed: seed}
}

// ForWorker returns the simulator for worker id.
func (f *Factory) ForWorker(id int) core.Task {
	return New(f.cfg, f.seed+int64(id)*7919)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
