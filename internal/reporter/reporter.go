// Package reporter renders snapshots, the startup banner and the end of run
// summary.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"opsmeter/internal/core"
	"opsmeter/internal/logger"
)

// Banner is printed once before the first snapshot.
const Banner = "Press CTRL+C to terminate."

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Source is the consuming end of the snapshot queue.
type Source interface {
	Pop(ctx context.Context) (core.Snapshot, error)
}

// Reporter writes one line per snapshot. It is the only consumer of the
// snapshot queue, so lines appear in emission order.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	format string
	runID  string
	log    *logger.ConsoleLogger

	okColor  *color.Color
	errColor *color.Color
	numColor *color.Color
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithFormat selects FormatText (default) or FormatJSON.
func WithFormat(format string) Option {
	return func(r *Reporter) { r.format = format }
}

// WithColor forces colored numbers on or off.
func WithColor(enabled bool) Option {
	return func(r *Reporter) {
		for _, c := range []*color.Color{r.okColor, r.errColor, r.numColor} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// WithRunID tags JSON lines with the run identifier.
func WithRunID(id string) Option {
	return func(r *Reporter) { r.runID = id }
}

// WithLogger sets where render failures are logged.
func WithLogger(l *logger.ConsoleLogger) Option {
	return func(r *Reporter) { r.log = l }
}

// New creates a Reporter writing to w. Color defaults to on only when w is
// a terminal.
func New(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{
		out:      w,
		format:   FormatText,
		log:      logger.Discard(),
		okColor:  color.New(color.FgGreen, color.Bold),
		errColor: color.New(color.FgRed),
		numColor: color.New(color.FgCyan),
	}
	WithColor(IsTerminal(w))(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Banner prints the startup line. JSON output has no banner.
func (r *Reporter) Banner() error {
	if r.format == FormatJSON {
		return nil
	}
	return r.Println(Banner)
}

// Println writes a raw line, serialized with snapshot lines.
func (r *Reporter) Println(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, line)
	return err
}

// Render writes one snapshot line.
func (r *Reporter) Render(s core.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.format == FormatJSON {
		return json.NewEncoder(r.out).Encode(snapshotLine{
			RunID:          r.runID,
			Throughput:     s.Throughput(),
			OK:             s.Success,
			Err:            s.Failure,
			ElapsedSeconds: s.ElapsedSeconds,
		})
	}

	errCount := fmt.Sprint(s.Failure)
	if s.Failure > 0 {
		errCount = r.errColor.Sprint(s.Failure)
	}
	_, err := fmt.Fprintf(r.out, "%s ok ops/sec | OK: %s Err: %s Elapsed Time: %s\n",
		r.okColor.Sprint(s.Throughput()),
		r.numColor.Sprint(s.Success),
		errCount,
		r.numColor.Sprint(s.ElapsedSeconds))
	return err
}

// Run renders snapshots in delivery order until src is closed and drained
// or ctx is done. A failed render is logged and skipped. It returns the
// number of snapshots rendered.
func (r *Reporter) Run(ctx context.Context, src Source) int {
	rendered := 0
	for {
		s, err := src.Pop(ctx)
		if err != nil {
			return rendered
		}
		if err := r.Render(s); err != nil {
			r.log.Warnf("render snapshot for second %d: %v", s.ElapsedSeconds, err)
			continue
		}
		rendered++
	}
}

type snapshotLine struct {
	RunID          string `json:"runId,omitempty"`
	Throughput     uint64 `json:"throughput"`
	OK             uint64 `json:"ok"`
	Err            uint64 `json:"err"`
	ElapsedSeconds uint64 `json:"elapsedSeconds"`
}
