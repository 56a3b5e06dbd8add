package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_Variants(t *testing.T) {
	ok := Success()
	assert.True(t, ok.OK())
	assert.Empty(t, ok.Reason())

	fail := Failure("task error")
	assert.False(t, fail.OK())
	assert.True(t, errors.Is(fail.Err, ErrTaskFailure))
	assert.Equal(t, "task failure: task error", fail.Reason())
}

func TestOutcome_FailureFromKeepsCause(t *testing.T) {
	o := FailureFrom(context.Canceled)
	assert.ErrorIs(t, o.Err, ErrTaskFailure)
	assert.ErrorIs(t, o.Err, context.Canceled)
}

func TestSnapshot_Throughput(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want uint64
	}{
		{"one second", Snapshot{Success: 82, ElapsedSeconds: 1}, 82},
		{"truncates", Snapshot{Success: 163, ElapsedSeconds: 2}, 81},
		{"failures ignored", Snapshot{Success: 10, Failure: 90, ElapsedSeconds: 5}, 2},
		{"zero elapsed", Snapshot{Success: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Throughput())
		})
	}
}

func TestTally_SnapshotAndTotal(t *testing.T) {
	tally := Tally{Success: 3, Failure: 2, Start: time.Now(), LastReportedSecond: 4}
	assert.Equal(t, uint64(5), tally.Total())
	assert.Equal(t, Snapshot{Success: 3, Failure: 2, ElapsedSeconds: 7}, tally.Snapshot(7))
}
