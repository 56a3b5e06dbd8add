// Package aggregator owns the running tally of outcomes.
//
// The tally has a single writer: the goroutine running Aggregator.Run. No
// lock guards it; other stages only ever see the immutable Snapshots it
// pushes downstream, and the final copy Run returns.
//
// Reporting is driven by events, not by a ticker. Each processed event
// checks whether a new whole second has elapsed since start; if so, one
// Snapshot is emitted for that second. A second in which no event arrives
// produces no Snapshot, and the next Snapshot carries the true elapsed
// second, so Success/ElapsedSeconds stays a correct throughput.
package aggregator

import (
	"context"
	"time"

	"opsmeter/internal/core"
	"opsmeter/internal/logger"
)

// Source is the consuming end of the outcome queue.
type Source interface {
	Pop(ctx context.Context) (core.Event, error)
}

// SnapshotSink is the producing end of the snapshot queue.
type SnapshotSink interface {
	Push(core.Snapshot) error
	Close()
}

// Aggregator counts outcomes and detects second boundaries.
type Aggregator struct {
	clock   core.Clock
	tally   core.Tally
	latency *core.LatencySample
	log     *logger.ConsoleLogger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the real clock (for tests).
func WithClock(c core.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logger.ConsoleLogger) Option {
	return func(a *Aggregator) { a.log = l }
}

// New creates an Aggregator. The tally's start instant is taken now.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		clock:   core.RealClock{},
		latency: core.NewLatencySample(core.DefaultLatencySamples),
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.tally.Start = a.clock.Now()
	return a
}

// Process applies one event to the tally. It returns a Snapshot and true
// when this event is the first one observed in a later whole second than
// the last reported one.
func (a *Aggregator) Process(ev core.Event) (core.Snapshot, bool) {
	if ev.Outcome.OK() {
		a.tally.Success++
	} else {
		a.tally.Failure++
	}
	a.latency.Record(ev.Latency)

	current := wholeSeconds(a.clock.Since(a.tally.Start))
	if current <= a.tally.LastReportedSecond {
		return core.Snapshot{}, false
	}
	a.tally.LastReportedSecond = current
	return a.tally.Snapshot(current), true
}

// Run consumes events in dequeue order until in is closed and drained or
// ctx is done, forwarding Snapshots to out. It closes out before returning
// and returns the final tally.
func (a *Aggregator) Run(ctx context.Context, in Source, out SnapshotSink) core.Tally {
	defer out.Close()

	for {
		ev, err := in.Pop(ctx)
		if err != nil {
			a.log.Debugf("aggregator stopped after %d outcomes: %v", a.tally.Total(), err)
			return a.tally
		}

		snap, ok := a.Process(ev)
		if !ok {
			continue
		}
		a.log.Tracef("second %d crossed: ok=%d err=%d", snap.ElapsedSeconds, snap.Success, snap.Failure)
		if err := out.Push(snap); err != nil {
			a.log.Debugf("snapshot for second %d dropped: %v", snap.ElapsedSeconds, err)
		}
	}
}

// Tally returns a copy of the counts. Only call it from the goroutine that
// drives Process, or after Run has returned.
func (a *Aggregator) Tally() core.Tally {
	return a.tally
}

// Latency returns latency statistics of the processed events. Same
// goroutine rules as Tally.
func (a *Aggregator) Latency() core.LatencyMetrics {
	return a.latency.Metrics()
}

func wholeSeconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}
