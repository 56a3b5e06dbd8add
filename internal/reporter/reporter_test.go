package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsmeter/internal/core"
	"opsmeter/internal/queue"
)

func TestReporter_RenderTextLine(t *testing.T) {
	tests := []struct {
		snap core.Snapshot
		want string
	}{
		{core.Snapshot{Success: 82, Failure: 19, ElapsedSeconds: 1},
			"82 ok ops/sec | OK: 82 Err: 19 Elapsed Time: 1\n"},
		{core.Snapshot{Success: 163, Failure: 40, ElapsedSeconds: 2},
			"81 ok ops/sec | OK: 163 Err: 40 Elapsed Time: 2\n"},
		{core.Snapshot{Success: 3, Failure: 0, ElapsedSeconds: 5},
			"0 ok ops/sec | OK: 3 Err: 0 Elapsed Time: 5\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		r := New(&buf, WithColor(false))
		require.NoError(t, r.Render(tt.snap))
		assert.Equal(t, tt.want, buf.String())
	}
}

func TestReporter_ColoredLineKeepsValues(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, WithColor(true))
	require.NoError(t, r.Render(core.Snapshot{Success: 10, Failure: 2, ElapsedSeconds: 1}))

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "ok ops/sec | OK: ")
	assert.Contains(t, out, "10")
}

func TestReporter_Banner(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	require.NoError(t, r.Banner())
	assert.Equal(t, "Press CTRL+C to terminate.\n", buf.String())

	buf.Reset()
	r = New(&buf, WithFormat(FormatJSON))
	require.NoError(t, r.Banner())
	assert.Empty(t, buf.String())
}

func TestReporter_RenderJSONLine(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, WithFormat(FormatJSON), WithRunID("run-1"))
	require.NoError(t, r.Render(core.Snapshot{Success: 163, Failure: 40, ElapsedSeconds: 2}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["runId"])
	assert.EqualValues(t, 81, got["throughput"])
	assert.EqualValues(t, 163, got["ok"])
	assert.EqualValues(t, 40, got["err"])
	assert.EqualValues(t, 2, got["elapsedSeconds"])
}

func TestReporter_RunPreservesOrder(t *testing.T) {
	q := queue.New[core.Snapshot](0)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, q.Push(core.Snapshot{Success: i * 10, ElapsedSeconds: i}))
	}
	q.Close()

	var w core.MockWriter
	r := New(&w, WithColor(false))
	n := r.Run(context.Background(), q)

	assert.Equal(t, 5, n)
	lines := w.Lines()
	require.Len(t, lines, 5)
	for i, line := range lines {
		assert.True(t, strings.HasSuffix(line, "Elapsed Time: "+string(rune('1'+i))), line)
	}
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestReporter_RenderFailureIsNotFatal(t *testing.T) {
	q := queue.New[core.Snapshot](0)
	require.NoError(t, q.Push(core.Snapshot{Success: 1, ElapsedSeconds: 1}))
	require.NoError(t, q.Push(core.Snapshot{Success: 2, ElapsedSeconds: 2}))
	q.Close()

	w := &failingWriter{}
	r := New(w, WithColor(false))

	assert.Zero(t, r.Run(context.Background(), q))
	assert.Equal(t, 2, w.calls, "every snapshot is attempted")
}

func TestReporter_RunStopsOnContext(t *testing.T) {
	q := queue.New[core.Snapshot](0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	assert.Zero(t, New(&buf).Run(ctx, q))
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
