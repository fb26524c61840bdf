// Package sweep drives a command template across every combination of a
// benchmark matrix. It is consumed by both the MCP server and the CLI.
package sweep

import (
	"context"
	"strings"
	"time"

	"github.com/deixis/dfsbench/internal/config"
	"github.com/deixis/dfsbench/internal/matrix"
	"github.com/deixis/dfsbench/internal/report"
	"github.com/deixis/dfsbench/internal/runner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxReportOutput bounds the output tail kept per run in a report.
const maxReportOutput = 4 << 10

// CommandRunner executes one resolved command line.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Engine holds everything needed to execute a sweep.
type Engine struct {
	Matrix   *matrix.Matrix
	Template *matrix.Template
	Runner   CommandRunner
	Policy   Policy      // nil means Sequential
	Retries  int         // extra attempts for a run that did not exit 0
	Logger   *zap.Logger // nil means no logging
}

// FromConfig builds an Engine from a loaded configuration.
func FromConfig(cfg *config.Config, r CommandRunner, logger *zap.Logger) (*Engine, error) {
	m, tmpl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	policy, err := PolicyFor(cfg.PolicyName(), cfg.Parallelism())
	if err != nil {
		return nil, err
	}
	return &Engine{
		Matrix:   m,
		Template: tmpl,
		Runner:   r,
		Policy:   policy,
		Retries:  cfg.Retries,
		Logger:   logger,
	}, nil
}

// Planned is one resolved command line, not yet executed.
type Planned struct {
	Combination matrix.Combination
	Label       string
	Argv        []string
}

// Plan resolves every combination without running anything.
func (e *Engine) Plan() ([]Planned, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	out := make([]Planned, 0, e.Matrix.Size())
	for c := range e.Matrix.All() {
		argv, err := e.Template.Resolve(c)
		if err != nil {
			return nil, err
		}
		out = append(out, Planned{Combination: c, Label: e.Matrix.Label(c), Argv: argv})
	}
	return out, nil
}

// Sweep runs the template once per combination under the engine's policy.
//
// Configuration errors are returned before any process is spawned. A
// failing run never stops the sweep. If ctx is done, no further
// combinations are started, the remaining ones are recorded as skipped and
// the partial report is returned together with ctx.Err().
func (e *Engine) Sweep(ctx context.Context) (*report.Sweep, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	policy := e.policy()
	log := e.logger()

	if err := e.Preflight(); err != nil {
		log.Warn("benchmark program unavailable", zap.Error(err))
	}

	sw := &report.Sweep{
		ID:      uuid.New().String(),
		Command: e.Template.String(),
		Policy:  policy.Name(),
		Started: time.Now(),
	}
	for _, d := range e.Matrix.Dimensions() {
		sw.Dimensions = append(sw.Dimensions, report.Dimension{Name: d.Name, Values: d.Values})
	}

	// Every slot is written by exactly one run, so the report is in
	// combination order whatever order runs complete in.
	sw.Runs = make([]report.Run, e.Matrix.Size())
	for c := range e.Matrix.All() {
		sw.Runs[c.Index] = e.newRun(c)
	}

	log.Info("sweep started",
		zap.String("sweep_id", sw.ID),
		zap.String("policy", sw.Policy),
		zap.Int("combinations", len(sw.Runs)),
	)

	err := policy.Execute(ctx, e.Matrix.All(), func(ctx context.Context, c matrix.Combination) {
		e.runOne(ctx, c, &sw.Runs[c.Index], log)
	})
	sw.Finished = time.Now()

	fields := []zap.Field{
		zap.String("sweep_id", sw.ID),
		zap.Int("failed", sw.Failed()),
		zap.Duration("elapsed", sw.Finished.Sub(sw.Started)),
	}
	if err != nil {
		sw.Cancelled = true
		log.Warn("sweep cancelled", append(fields, zap.Error(err))...)
		return sw, err
	}
	log.Info("sweep finished", fields...)
	return sw, nil
}

func (e *Engine) validate() error {
	switch {
	case e.Matrix == nil:
		return matrix.Invalid("matrix", "no dimensions configured")
	case e.Template == nil:
		return matrix.Invalid("command", "no command configured")
	case e.Runner == nil:
		return matrix.Invalid("runner", "no runner configured")
	case e.Retries < 0:
		return matrix.Invalid("retries", "must not be negative")
	}
	return e.Template.Validate(e.Matrix.Len())
}

func (e *Engine) policy() Policy {
	if e.Policy == nil {
		return Sequential{}
	}
	return e.Policy
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) newRun(c matrix.Combination) report.Run {
	return report.Run{
		Index:    c.Index,
		Values:   e.Matrix.Values(c),
		Label:    e.Matrix.Label(c),
		Status:   report.Skipped,
		ExitCode: -1,
	}
}

// runOne executes c, retrying up to e.Retries times, and records the last
// attempt into run.
func (e *Engine) runOne(ctx context.Context, c matrix.Combination, run *report.Run, log *zap.Logger) {
	log = log.With(zap.Int("index", c.Index), zap.String("combination", run.Label))

	argv, err := e.Template.Resolve(c)
	if err != nil {
		run.Status = report.LaunchFailed
		run.Error = err.Error()
		log.Error("resolving command failed", zap.Error(err))
		return
	}
	run.Argv = argv

	for attempt := 1; attempt <= 1+e.Retries; attempt++ {
		if attempt > 1 && ctx.Err() != nil {
			return
		}
		run.Attempts = attempt
		log.Debug("run started", zap.Strings("argv", argv), zap.Int("attempt", attempt))

		res, err := e.Runner.Run(ctx, argv)
		if err != nil {
			run.Status = report.LaunchFailed
			run.ExitCode = -1
			run.Error = err.Error()
			log.Error("launch failed", zap.Error(err), zap.Int("attempt", attempt))
			continue
		}
		record(run, res)

		if run.OK() {
			log.Info("run finished",
				zap.String("run_id", run.RunID),
				zap.Duration("duration", run.Duration()),
				zap.Int("attempt", attempt),
			)
			return
		}
		logFailure(log, run)
	}
}

func record(run *report.Run, res *runner.Result) {
	run.RunID = res.RunID
	run.Status = report.Status(res.Status)
	run.ExitCode = res.ExitCode
	run.Signal = res.Signal
	run.TimedOut = res.TimedOut
	run.Error = res.Err
	run.Start = res.Start
	run.End = res.End
	run.Output = tail(string(res.Stderr)+string(res.Stdout), maxReportOutput)
}

func logFailure(log *zap.Logger, run *report.Run) {
	fields := []zap.Field{
		zap.String("run_id", run.RunID),
		zap.String("status", string(run.Status)),
		zap.Int("exit_code", run.ExitCode),
		zap.Int("attempt", run.Attempts),
		zap.Duration("duration", run.Duration()),
	}
	if run.Error != "" {
		fields = append(fields, zap.String("error", run.Error))
	}

	switch run.Status {
	case report.LaunchFailed:
		log.Error("launch failed", fields...)
	case report.ExecFailed:
		log.Error("exec failed", fields...)
	case report.WaitFailed:
		log.Error("collecting exit status failed", fields...)
	case report.Signaled:
		log.Warn("run killed", append(fields, zap.String("signal", run.Signal), zap.Bool("timed_out", run.TimedOut))...)
	default:
		log.Warn("benchmark tool failed", fields...)
	}
}

// tail returns at most n bytes from the end of s, starting on a line boundary
// when one is available.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
