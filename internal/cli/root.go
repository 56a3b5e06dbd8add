// Package cli implements the opsmeter command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"opsmeter/internal/config"
	"opsmeter/internal/harness"
	"opsmeter/internal/logger"
	"opsmeter/internal/reporter"
)

// Version is injected at build time via -ldflags
var Version = "dev"

const (
	ExitSuccess         = 0
	ExitThresholdFailed = 1
	ExitError           = 2
)

// ExitCodeError carries the process exit code for an error.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// NewRootCommand creates the opsmeter command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opsmeter",
		Short: "Measure the throughput of a pool of concurrent workers",
		Long: `opsmeter runs a fixed pool of workers that repeatedly execute a simulated
task with random latency and a fixed probability of failure. A single
aggregator tallies the outcomes and, each time an outcome arrives in a new
whole second, the running throughput is printed:

  <ok/elapsed> ok ops/sec | OK: <ok> Err: <err> Elapsed Time: <seconds>

Without --duration or --iterations it runs until interrupted.

Configuration is read from --config if given. CLI flags override the file.

Examples:
  opsmeter
  opsmeter --workers 20 --success-rate 0.95
  opsmeter --duration 30s --output json
  opsmeter --config opsmeter.yaml --rps 200`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCommand,
	}

	cmd.Flags().String("config", "", "Path to YAML config file")
	cmd.Flags().Int("workers", 0, "Number of concurrent workers (default 5)")
	cmd.Flags().Float64("success-rate", 0, "Probability that a task succeeds (default 0.8)")
	cmd.Flags().Duration("min-latency", 0, "Lower bound of task latency (default 1ms)")
	cmd.Flags().Duration("max-latency", 0, "Upper bound of task latency, exclusive (default 500ms)")
	cmd.Flags().Int("queue-capacity", 0, "Outcome queue capacity, 0 = unbounded; a full queue drops outcomes")
	cmd.Flags().Int("rps", 0, "Maximum task starts per second across all workers, 0 = unlimited")
	cmd.Flags().Duration("duration", 0, "Stop after this long, 0 = run until interrupted")
	cmd.Flags().Int("iterations", 0, "Tasks per worker before it stops, 0 = unlimited")
	cmd.Flags().Int("warmup", 0, "Tasks per worker executed before outcomes are counted")
	cmd.Flags().Int64("seed", 0, "Random seed, 0 = time based")
	cmd.Flags().String("output", "", "Output format: text, json")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().String("log-level", "", "Diagnostics level on stderr: trace, debug, info, warn, error")

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return execute(NewRootCommand(), os.Stderr)
}

func execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(stderr, "error: %v\n", exitErr)
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return ExitError
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}

	if cfg.Output.Color != nil && !*cfg.Output.Color {
		color.NoColor = true
	}
	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.Output.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := harness.New(*cfg, cmd.OutOrStdout(), harness.WithLogger(log)).Run(ctx)
	if err != nil {
		return &ExitCodeError{Code: ExitError, Err: err}
	}
	interrupted := ctx.Err() != nil
	if interrupted {
		log.Infof("interrupted, run %s stopped", res.RunID)
	}

	summary := res.Summary()
	thresholds := cfg.Thresholds.Check(summary)
	if cfg.Output.Format == reporter.FormatJSON {
		reporter.WriteJSON(cmd.OutOrStdout(), summary, thresholds)
	} else {
		reporter.WriteText(cmd.OutOrStdout(), summary, thresholds)
	}

	if !interrupted && !thresholds.Passed {
		return &ExitCodeError{Code: ExitThresholdFailed, Err: errors.New("threshold check failed")}
	}
	return nil
}

// loadConfig layers defaults, the config file and changed flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("success-rate") {
		cfg.Task.SuccessRate, _ = flags.GetFloat64("success-rate")
	}
	if flags.Changed("min-latency") {
		cfg.Task.MinLatency, _ = flags.GetDuration("min-latency")
	}
	if flags.Changed("max-latency") {
		cfg.Task.MaxLatency, _ = flags.GetDuration("max-latency")
	}
	if flags.Changed("queue-capacity") {
		cfg.Queue.Capacity, _ = flags.GetInt("queue-capacity")
	}
	if flags.Changed("rps") {
		cfg.RPS, _ = flags.GetInt("rps")
	}
	if flags.Changed("duration") {
		cfg.Duration, _ = flags.GetDuration("duration")
	}
	if flags.Changed("iterations") {
		cfg.Execution.MaxIterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("warmup") {
		cfg.Execution.WarmupIterations, _ = flags.GetInt("warmup")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("output") {
		cfg.Output.Format, _ = flags.GetString("output")
	}
	if noColor, _ := flags.GetBool("no-color"); noColor {
		off := false
		cfg.Output.Color = &off
	}
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.Output.LogLevel = logger.NormalizeLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
