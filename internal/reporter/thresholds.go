package reporter

import (
	"fmt"
	"strconv"
	"strings"
)

// Thresholds defines pass/fail criteria for a bounded run.
type Thresholds struct {
	MinThroughput  float64 `yaml:"minThroughput"`
	MaxFailureRate string  `yaml:"maxFailureRate"`
}

// ThresholdResult represents the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Check evaluates the thresholds against a summary. Unset thresholds are
// skipped; a nil receiver passes.
func (t *Thresholds) Check(s Summary) *ThresholdResults {
	results := &ThresholdResults{Passed: true}
	if t == nil {
		return results
	}

	if t.MinThroughput > 0 {
		results.add(ThresholdResult{
			Name:      "throughput",
			Passed:    s.Throughput >= t.MinThroughput,
			Threshold: fmt.Sprintf(">= %.1f", t.MinThroughput),
			Actual:    fmt.Sprintf("%.1f", s.Throughput),
		})
	}

	if t.MaxFailureRate != "" {
		limit, err := ParsePercentage(t.MaxFailureRate)
		if err == nil {
			actual := 100.0 - s.SuccessRate
			if s.Total == 0 {
				actual = 0
			}
			results.add(ThresholdResult{
				Name:      "failure_rate",
				Passed:    actual < limit,
				Threshold: "< " + t.MaxFailureRate,
				Actual:    fmt.Sprintf("%.2f%%", actual),
			})
		}
	}

	return results
}

func (r *ThresholdResults) add(result ThresholdResult) {
	if !result.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, result)
}

// Violations returns only the failed threshold results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}

// ParsePercentage parses "25%" or "2.5%" into 25 or 2.5.
func ParsePercentage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("invalid percentage format: %s", s)
	}
	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}
