package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsmeter/internal/core"
)

// instant replaces the real sleep and records requested latencies.
func instant(s *Simulator) *[]time.Duration {
	var seen []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		seen = append(seen, d)
		return ctx.Err()
	}
	return &seen
}

func TestSimulator_LatencyWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	s := New(cfg, 1)
	seen := instant(s)

	for i := 0; i < 2000; i++ {
		s.Execute(context.Background())
	}

	require.Len(t, *seen, 2000)
	for _, d := range *seen {
		assert.GreaterOrEqual(t, d, cfg.MinLatency)
		assert.Less(t, d, cfg.MaxLatency)
	}
}

func TestSimulator_FixedLatency(t *testing.T) {
	s := New(Config{MinLatency: 5 * time.Millisecond, MaxLatency: 5 * time.Millisecond, SuccessProbability: 1}, 1)
	seen := instant(s)

	s.Execute(context.Background())
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, *seen)
}

func TestSimulator_SuccessProbability(t *testing.T) {
	tests := []struct {
		name   string
		p      float64
		minOK  int
		maxOK  int
		trials int
	}{
		{"always", 1, 1000, 1000, 1000},
		{"never", 0, 0, 0, 1000},
		{"default", DefaultSuccessProbability, 7500, 8500, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{SuccessProbability: tt.p}, 42)
			instant(s)

			ok := 0
			for i := 0; i < tt.trials; i++ {
				o := s.Execute(context.Background())
				if o.OK() {
					ok++
				} else {
					assert.ErrorIs(t, o.Err, core.ErrTaskFailure)
				}
			}
			assert.GreaterOrEqual(t, ok, tt.minOK)
			assert.LessOrEqual(t, ok, tt.maxOK)
		})
	}
}

func TestSimulator_CancelledDuringSleep(t *testing.T) {
	s := New(Config{MinLatency: time.Hour, MaxLatency: 2 * time.Hour, SuccessProbability: 1}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	o := s.Execute(ctx)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, o.OK())
	assert.ErrorIs(t, o.Err, context.DeadlineExceeded)
}

func TestSimulator_RealSleep(t *testing.T) {
	s := New(Config{MinLatency: 10 * time.Millisecond, MaxLatency: 11 * time.Millisecond, SuccessProbability: 1}, 1)
	start := time.Now()
	o := s.Execute(context.Background())
	assert.True(t, o.OK())
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestFactory_IndependentStreams(t *testing.T) {
	f := NewFactory(Config{MinLatency: 0, MaxLatency: time.Second, SuccessProbability: 0.5}, 99)
	a := f.ForWorker(1).(*Simulator)
	b := f.ForWorker(2).(*Simulator)
	seenA, seenB := instant(a), instant(b)

	for i := 0; i < 20; i++ {
		a.Execute(context.Background())
		b.Execute(context.Background())
	}
	assert.NotEqual(t, *seenA, *seenB)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"negative min", Config{MinLatency: -1, MaxLatency: time.Second, SuccessProbability: 0.5}, true},
		{"inverted range", Config{MinLatency: time.Second, MaxLatency: time.Millisecond, SuccessProbability: 0.5}, true},
		{"probability above one", Config{MaxLatency: time.Second, SuccessProbability: 1.5}, true},
		{"probability below zero", Config{MaxLatency: time.Second, SuccessProbability: -0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
