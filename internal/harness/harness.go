// Package harness wires the worker pool, aggregator and reporter together
// through the outcome and snapshot queues.
package harness

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"opsmeter/internal/aggregator"
	"opsmeter/internal/config"
	"opsmeter/internal/core"
	"opsmeter/internal/logger"
	"opsmeter/internal/queue"
	"opsmeter/internal/ratelimit"
	"opsmeter/internal/reporter"
	"opsmeter/internal/simulator"
	"opsmeter/internal/workerpool"
)

// Result describes a finished run.
type Result struct {
	RunID     string
	Tally     core.Tally
	Latency   core.LatencyMetrics
	Elapsed   time.Duration
	Snapshots int
	Dropped   int64 // rejected by a full outcome queue
	Rejected  int64 // pushes that failed for any reason
}

// Summary converts the result for the reporter's end of run output.
func (r Result) Summary() reporter.Summary {
	s := reporter.ComputeSummary(r.RunID, r.Tally, r.Elapsed, r.Dropped)
	s.Latency = r.Latency
	return s
}

// Harness runs one measurement.
type Harness struct {
	cfg     config.Config
	out     io.Writer
	log     *logger.ConsoleLogger
	clock   core.Clock
	factory workerpool.TaskFactory
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the diagnostics logger.
func WithLogger(l *logger.ConsoleLogger) Option {
	return func(h *Harness) { h.log = l }
}

// WithClock replaces the aggregator's clock.
func WithClock(c core.Clock) Option {
	return func(h *Harness) { h.clock = c }
}

// WithTaskFactory replaces the simulator as the source of tasks.
func WithTaskFactory(f workerpool.TaskFactory) Option {
	return func(h *Harness) { h.factory = f }
}

// New creates a Harness that renders to out.
func New(cfg config.Config, out io.Writer, opts ...Option) *Harness {
	h := &Harness{
		cfg:   cfg,
		out:   out,
		log:   logger.Discard(),
		clock: core.RealClock{},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.factory == nil {
		h.factory = simulator.NewFactory(cfg.Simulator(), cfg.Seed)
	}
	return h
}

// Run executes the pipeline until ctx is done, the configured duration
// elapses or every worker reaches its iteration limit. With none of those
// it runs until the process is interrupted.
//
// Shutdown is a drain, not a handshake: workers stop, the outcome queue is
// closed, the aggregator consumes what is left and closes the snapshot
// queue, and the reporter renders what is left.
func (h *Harness) Run(ctx context.Context) (Result, error) {
	if err := h.cfg.Validate(); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	events := queue.New[core.Event](h.cfg.Queue.Capacity)
	snapshots := queue.New[core.Snapshot](0)

	rep := reporter.New(h.out, h.reporterOptions(runID)...)
	if err := rep.Banner(); err != nil {
		h.log.Warnf("write banner: %v", err)
	}

	h.log.Infof("run %s: %d workers, latency [%v, %v), success rate %.2f",
		runID, h.cfg.Workers, h.cfg.Task.MinLatency, h.cfg.Task.MaxLatency, h.cfg.Task.SuccessRate)

	agg := aggregator.New(aggregator.WithClock(h.clock), aggregator.WithLogger(h.log))
	start := h.clock.Now()

	// The downstream stages stop on queue close, never on ctx, so that
	// everything produced before shutdown is counted and rendered.
	tallyCh := make(chan core.Tally, 1)
	go func() { tallyCh <- agg.Run(context.Background(), events, snapshots) }()
	renderedCh := make(chan int, 1)
	go func() { renderedCh <- rep.Run(context.Background(), snapshots) }()

	runCtx := ctx
	if h.cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.cfg.Duration)
		defer cancel()
	}

	pool := workerpool.New(h.factory, events,
		workerpool.WithRateLimiter(ratelimit.NewRateLimiter(h.cfg.RPS)),
		workerpool.WithMaxIterations(h.cfg.Execution.MaxIterations),
		workerpool.WithWarmup(h.cfg.Execution.WarmupIterations),
		workerpool.WithLogger(h.log))
	pool.Spawn(runCtx, h.cfg.Workers)
	pool.Wait()

	events.Close()
	tally := <-tallyCh
	rendered := <-renderedCh

	result := Result{
		RunID:     runID,
		Tally:     tally,
		Latency:   agg.Latency(),
		Elapsed:   h.clock.Since(start),
		Snapshots: rendered,
		Dropped:   events.Dropped(),
		Rejected:  pool.Rejected(),
	}
	if result.Dropped > 0 {
		h.log.Warnf("%d outcomes dropped by the full outcome queue", result.Dropped)
	}
	h.log.Infof("run %s finished: %d outcomes in %v", runID, tally.Total(), result.Elapsed.Round(time.Millisecond))
	return result, nil
}

func (h *Harness) reporterOptions(runID string) []reporter.Option {
	opts := []reporter.Option{
		reporter.WithFormat(h.cfg.Output.Format),
		reporter.WithRunID(runID),
		reporter.WithLogger(h.log),
	}
	if h.cfg.Output.Color != nil {
		opts = append(opts, reporter.WithColor(*h.cfg.Output.Color))
	}
	return opts
}
