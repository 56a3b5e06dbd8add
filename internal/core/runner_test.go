package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects events for testing
type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Push(e Event) error {
	s.events = append(s.events, e)
	return s.err
}

func drain(t *testing.T, r *Runner) {
	t.Helper()
	for {
		err := r.RunIteration(context.Background())
		if errors.Is(err, ErrMaxIterationsReached) {
			return
		}
		require.NoError(t, err)
	}
}

func TestRunner_MaxIterations(t *testing.T) {
	var calls int
	task := TaskFunc(func(ctx context.Context) Outcome {
		calls++
		return Success()
	})
	sink := &recordingSink{}
	runner := NewRunner(task, sink, 1, RunnerConfig{MaxIterations: 3})

	drain(t, runner)

	assert.Equal(t, 3, runner.Iteration())
	assert.Equal(t, 3, calls)
	assert.Len(t, sink.events, 3)
}

func TestRunner_WarmupExcludesOutcomes(t *testing.T) {
	sink := &recordingSink{}
	task := TaskFunc(func(ctx context.Context) Outcome { return Success() })
	runner := NewRunner(task, sink, 1, RunnerConfig{
		MaxIterations: 5,
		WarmupIters:   2,
	})

	drain(t, runner)

	assert.Equal(t, 5, runner.Iteration())
	assert.Len(t, sink.events, 3, "warmup iterations must not be reported")
}

func TestRunner_IsWarmup(t *testing.T) {
	task := TaskFunc(func(ctx context.Context) Outcome { return Success() })
	runner := NewRunner(task, &recordingSink{}, 1, RunnerConfig{
		MaxIterations: 5,
		WarmupIters:   2,
	})
	ctx := context.Background()

	assert.True(t, runner.IsWarmup())
	_ = runner.RunIteration(ctx)
	assert.True(t, runner.IsWarmup())
	_ = runner.RunIteration(ctx)
	assert.False(t, runner.IsWarmup())
}

func TestRunner_UnlimitedIterations(t *testing.T) {
	var calls atomic.Int32
	task := TaskFunc(func(ctx context.Context) Outcome {
		calls.Add(1)
		return Success()
	})
	runner := NewRunner(task, &recordingSink{}, 1, RunnerConfig{})

	for i := 0; i < 100; i++ {
		require.NoError(t, runner.RunIteration(context.Background()))
	}
	assert.Equal(t, int32(100), calls.Load())
}

func TestRunner_SinkErrorIsReturned(t *testing.T) {
	sinkErr := errors.New("queue closed")
	sink := &recordingSink{err: sinkErr}
	task := TaskFunc(func(ctx context.Context) Outcome { return Failure("boom") })
	runner := NewRunner(task, sink, 7, RunnerConfig{MaxIterations: 2})

	err := runner.RunIteration(context.Background())
	assert.ErrorIs(t, err, sinkErr)
	// Iteration still counts even though the event was not accepted.
	assert.Equal(t, 1, runner.Iteration())
}

func TestRunner_EventCarriesWorkerAndOutcome(t *testing.T) {
	sink := &recordingSink{}
	task := TaskFunc(func(ctx context.Context) Outcome { return Failure("boom") })
	runner := NewRunner(task, sink, 42, RunnerConfig{MaxIterations: 1})

	drain(t, runner)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, 42, ev.WorkerID)
	assert.False(t, ev.Outcome.OK())
	assert.ErrorIs(t, ev.Outcome.Err, ErrTaskFailure)
	assert.GreaterOrEqual(t, int64(ev.Latency), int64(0))
}

func TestNullSink(t *testing.T) {
	assert.NoError(t, NullSink.Push(Event{Outcome: Success()}))
}

func TestRunner_InterruptedTaskIsNotForwarded(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	task := TaskFunc(func(ctx context.Context) Outcome {
		cancel()
		return FailureFrom(ctx.Err())
	})
	runner := NewRunner(task, sink, 1, RunnerConfig{})

	err := runner.RunIteration(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.events)
}
