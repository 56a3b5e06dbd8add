// Package workerpool runs the fixed set of worker units that produce
// outcome events.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"opsmeter/internal/core"
	"opsmeter/internal/logger"
	"opsmeter/internal/ratelimit"
)

// DefaultSize is the number of worker units when none is configured.
const DefaultSize = 5

// TaskFactory gives each worker unit its own task instance.
type TaskFactory interface {
	ForWorker(id int) core.Task
}

// TaskFactoryFunc adapts a function to TaskFactory.
type TaskFactoryFunc func(id int) core.Task

func (f TaskFactoryFunc) ForWorker(id int) core.Task { return f(id) }

// Pool spawns worker units. Each unit loops: wait for the rate limiter,
// execute its task, push the outcome to the sink. A rejected push is
// dropped and the unit keeps going.
type Pool struct {
	factory     TaskFactory
	sink        core.Sink
	limiter     *ratelimit.RateLimiter
	config      core.RunnerConfig
	log         *logger.ConsoleLogger
	nextID      atomic.Int64
	wg          sync.WaitGroup
	activeCount atomic.Int32
	rejected    atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithRateLimiter shares limiter across all units. A nil limiter is allowed.
func WithRateLimiter(limiter *ratelimit.RateLimiter) Option {
	return func(p *Pool) { p.limiter = limiter }
}

// WithMaxIterations stops each unit after n executions (0 = unlimited).
func WithMaxIterations(n int) Option {
	return func(p *Pool) { p.config.MaxIterations = n }
}

// WithWarmup makes each unit execute n tasks before reporting outcomes.
func WithWarmup(n int) Option {
	return func(p *Pool) { p.config.WarmupIters = n }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logger.ConsoleLogger) Option {
	return func(p *Pool) { p.log = l }
}

// New creates a Pool that feeds sink.
func New(factory TaskFactory, sink core.Sink, opts ...Option) *Pool {
	p := &Pool{
		factory: factory,
		sink:    sink,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Spawn starts count worker units. They run until ctx is done or, when an
// iteration limit is set, until it is reached.
func (p *Pool) Spawn(ctx context.Context, count int) {
	for i := 0; i < count; i++ {
		id := int(p.nextID.Add(1))
		task := p.factory.ForWorker(id)
		p.activeCount.Add(1)
		p.wg.Add(1)
		go p.work(ctx, id, task)
	}
}

func (p *Pool) work(ctx context.Context, id int, task core.Task) {
	defer func() {
		p.activeCount.Add(-1)
		p.wg.Done()
	}()
	defer p.recoverPanic(id)

	runner := core.NewRunner(task, p.sink, id, p.config)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		err := runner.RunIteration(ctx)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrMaxIterationsReached):
			p.log.Debugf("worker %d finished after %d iterations", id, runner.Iteration())
			return
		case ctx.Err() != nil:
			return
		default:
			p.rejected.Add(1)
		}
	}
}

// recoverPanic reports a panicking task as a failed outcome; the unit exits.
func (p *Pool) recoverPanic(id int) {
	if r := recover(); r != nil {
		p.log.Warnf("worker %d recovered from panic: %v", id, r)
		if err := p.sink.Push(core.Event{
			WorkerID: id,
			Outcome:  core.FailureFrom(fmt.Errorf("panic: %v", r)),
		}); err != nil {
			p.rejected.Add(1)
		}
	}
}

// Wait blocks until every spawned unit has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Active returns the number of running units.
func (p *Pool) Active() int {
	return int(p.activeCount.Load())
}

// Rejected returns how many events the sink refused.
func (p *Pool) Rejected() int64 {
	return p.rejected.Load()
}
