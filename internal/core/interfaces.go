// Package core defines the value types shared by every stage of the
// measurement pipeline: outcomes, events, snapshots and the clock.
package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrTaskFailure is the only domain error. It marks a simulated business
// failure and is counted like any other outcome, never propagated.
var ErrTaskFailure = errors.New("task failure")

// Outcome is the result of one task execution: Success or Failure(reason).
// The zero value is a Success.
type Outcome struct {
	Err error
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{}
}

// Failure returns a failed outcome carrying reason. The error wraps
// ErrTaskFailure.
func Failure(reason string) Outcome {
	return Outcome{Err: fmt.Errorf("%w: %s", ErrTaskFailure, reason)}
}

// FailureFrom wraps an arbitrary cause (context cancellation, a recovered
// panic) as a failed outcome.
func FailureFrom(cause error) Outcome {
	return Outcome{Err: fmt.Errorf("%w: %w", ErrTaskFailure, cause)}
}

// OK reports whether the outcome is a Success.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Reason returns the failure text, or "" for a Success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Event is what a worker unit pushes onto the outcome queue.
type Event struct {
	WorkerID int
	Outcome  Outcome
	Latency  time.Duration
}

// Snapshot is an immutable summary of the cumulative counts taken when the
// aggregator observed a new whole-second boundary.
type Snapshot struct {
	Success        uint64
	Failure        uint64
	ElapsedSeconds uint64
}

// Throughput returns successful operations per second using truncating
// integer division. Emitted snapshots always have ElapsedSeconds >= 1.
func (s Snapshot) Throughput() uint64 {
	if s.ElapsedSeconds == 0 {
		return 0
	}
	return s.Success / s.ElapsedSeconds
}

// Tally is a copy of the aggregator's running counts.
type Tally struct {
	Success            uint64
	Failure            uint64
	Start              time.Time
	LastReportedSecond uint64
}

// Total returns the number of outcomes consumed.
func (t Tally) Total() uint64 {
	return t.Success + t.Failure
}

// Snapshot builds the snapshot for the given elapsed second.
func (t Tally) Snapshot(elapsedSeconds uint64) Snapshot {
	return Snapshot{
		Success:        t.Success,
		Failure:        t.Failure,
		ElapsedSeconds: elapsedSeconds,
	}
}
