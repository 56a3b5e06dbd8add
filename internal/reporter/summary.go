package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"opsmeter/internal/core"
)

// Summary describes a finished run.
type Summary struct {
	RunID       string        `json:"runId,omitempty"`
	Success     uint64        `json:"ok"`
	Failure     uint64        `json:"err"`
	Total       uint64        `json:"total"`
	Elapsed     time.Duration `json:"-"`
	Throughput  float64       `json:"throughput"`
	SuccessRate float64       `json:"successRate"`
	Dropped     int64         `json:"dropped"`

	Latency core.LatencyMetrics `json:"-"`
}

// ComputeSummary derives run totals from the final tally. Pure function.
func ComputeSummary(runID string, tally core.Tally, elapsed time.Duration, dropped int64) Summary {
	s := Summary{
		RunID:   runID,
		Success: tally.Success,
		Failure: tally.Failure,
		Total:   tally.Total(),
		Elapsed: elapsed,
		Dropped: dropped,
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Success) / float64(s.Total) * 100
	}
	if elapsed > 0 {
		s.Throughput = float64(s.Success) / elapsed.Seconds()
	}
	return s
}

// WriteText writes the summary in human-readable form with grouped digits.
func WriteText(w io.Writer, s Summary, thresholds *ThresholdResults) {
	p := message.NewPrinter(language.English)

	if s.Total == 0 {
		fmt.Fprintln(w, "No outcomes collected")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "opsmeter - Run Summary")
	fmt.Fprintln(w, "======================")
	if s.RunID != "" {
		fmt.Fprintf(w, "Run ID:      %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Elapsed:     %v\n", s.Elapsed.Round(time.Millisecond))
	p.Fprintf(w, "Outcomes:    %d\n", s.Total)
	p.Fprintf(w, "OK:          %d (%.1f%%)\n", s.Success, s.SuccessRate)
	p.Fprintf(w, "Err:         %d\n", s.Failure)
	p.Fprintf(w, "Throughput:  %.1f ok ops/sec\n", s.Throughput)
	if s.Dropped > 0 {
		p.Fprintf(w, "Dropped:     %d\n", s.Dropped)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Latency:")
	fmt.Fprintf(w, "  Min:    %s\n", formatLatency(s.Latency.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", formatLatency(s.Latency.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", formatLatency(s.Latency.P50))
	fmt.Fprintf(w, "  P90:    %s\n", formatLatency(s.Latency.P90))
	fmt.Fprintf(w, "  P95:    %s\n", formatLatency(s.Latency.P95))
	fmt.Fprintf(w, "  P99:    %s\n", formatLatency(s.Latency.P99))
	fmt.Fprintf(w, "  Max:    %s\n", formatLatency(s.Latency.Max))

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, result := range thresholds.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s %s (actual: %s)\n",
				symbol, result.Name, result.Threshold, result.Actual)
		}
	}
}

// WriteJSON writes the summary as an indented JSON document.
func WriteJSON(w io.Writer, s Summary, thresholds *ThresholdResults) {
	output := struct {
		Summary
		Elapsed    string            `json:"elapsed"`
		Latency    latencyJSON       `json:"latency"`
		Thresholds *ThresholdResults `json:"thresholds,omitempty"`
	}{
		Summary: s,
		Elapsed: s.Elapsed.Round(time.Millisecond).String(),
		Latency: latencyJSON{
			Min: formatLatency(s.Latency.Min),
			Max: formatLatency(s.Latency.Max),
			Avg: formatLatency(s.Latency.Avg),
			P50: formatLatency(s.Latency.P50),
			P90: formatLatency(s.Latency.P90),
			P95: formatLatency(s.Latency.P95),
			P99: formatLatency(s.Latency.P99),
		},
		Thresholds: thresholds,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

type latencyJSON struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

// formatLatency renders sub-second latencies in ms and longer ones in s.
func formatLatency(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
