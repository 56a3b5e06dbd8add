package core

import (
	"context"
	"errors"
)

// ErrMaxIterationsReached indicates the runner hit its iteration limit.
var ErrMaxIterationsReached = errors.New("max iterations reached")

// Task is a unit of simulated work.
type Task interface {
	Execute(ctx context.Context) Outcome
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context) Outcome

func (f TaskFunc) Execute(ctx context.Context) Outcome { return f(ctx) }

// Sink accepts events without blocking. Errors mean the event was not
// accepted (queue closed or full); callers are free to ignore them.
type Sink interface {
	Push(Event) error
}

// NullSink discards all events (used during warmup).
var NullSink Sink = nullSink{}

type nullSink struct{}

func (nullSink) Push(Event) error { return nil }

// RunnerConfig controls execution behavior.
type RunnerConfig struct {
	MaxIterations int // 0 = unlimited
	WarmupIters   int // iterations before outcomes are reported (per worker)
}

// Runner drives one worker unit's iterations.
// A Runner is NOT safe for concurrent use; each worker goroutine must have its own Runner.
type Runner struct {
	task      Task
	sink      Sink
	clock     Clock
	workerID  int
	config    RunnerConfig
	iteration int
}

// NewRunner creates a Runner for a single worker unit.
func NewRunner(task Task, sink Sink, workerID int, config RunnerConfig) *Runner {
	return &Runner{
		task:     task,
		sink:     sink,
		clock:    RealClock{},
		workerID: workerID,
		config:   config,
	}
}

// RunIteration executes the task once and forwards the outcome.
// Returns nil, ErrMaxIterationsReached when the limit is hit, ctx.Err() when
// the task was interrupted (nothing is forwarded), or the sink's error.
// A sink error does not stop the caller from continuing.
func (r *Runner) RunIteration(ctx context.Context) error {
	if r.config.MaxIterations > 0 && r.iteration >= r.config.MaxIterations {
		return ErrMaxIterationsReached
	}

	sink := r.sink
	if r.iteration < r.config.WarmupIters {
		sink = NullSink
	}

	start := r.clock.Now()
	outcome := r.task.Execute(ctx)
	r.iteration++
	if err := ctx.Err(); err != nil {
		return err
	}

	return sink.Push(Event{
		WorkerID: r.workerID,
		Outcome:  outcome,
		Latency:  r.clock.Since(start),
	})
}

// Iteration returns the number of completed iterations.
func (r *Runner) Iteration() int {
	return r.iteration
}

// IsWarmup returns true if still in warmup phase.
func (r *Runner) IsWarmup() bool {
	return r.iteration < r.config.WarmupIters
}
