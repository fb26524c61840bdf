package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
)

// Summary aggregates a sweep's outcomes and run durations.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int // ran (or tried to) but did not exit 0
	Skipped   int
	ByStatus  map[Status]int

	// Duration statistics over runs that were started.
	Mean   time.Duration
	Median time.Duration
	P95    time.Duration
	Max    time.Duration
}

// Summarize computes a Summary for s.
func Summarize(s *Sweep) Summary {
	sum := Summary{Total: len(s.Runs), ByStatus: make(map[Status]int)}

	var durations stats.Float64Data
	for i := range s.Runs {
		r := &s.Runs[i]
		sum.ByStatus[r.Status]++
		switch {
		case r.Status == Skipped:
			sum.Skipped++
			continue
		case r.OK():
			sum.Succeeded++
		default:
			sum.Failed++
		}
		durations = append(durations, float64(r.Duration()))
	}

	if len(durations) == 0 {
		return sum
	}
	sum.Mean = statDuration(durations.Mean())
	sum.Median = statDuration(durations.Median())
	sum.P95 = statDuration(durations.Percentile(95))
	sum.Max = statDuration(durations.Max())
	return sum
}

func statDuration(v float64, err error) time.Duration {
	if err != nil {
		return 0
	}
	return time.Duration(v)
}

// Outcome renders the run's final state in a few words.
func (r *Run) Outcome() string {
	switch r.Status {
	case Exited:
		if r.ExitCode == 0 {
			return "ok"
		}
		return fmt.Sprintf("exit %d", r.ExitCode)
	case Signaled:
		if r.TimedOut {
			return "timeout (" + r.Signal + ")"
		}
		return "signal " + r.Signal
	case ExecFailed:
		return fmt.Sprintf("exec failed (%d)", r.ExitCode)
	case LaunchFailed:
		return "launch failed"
	case WaitFailed:
		return "wait failed"
	case Skipped:
		return "skipped"
	}
	return string(r.Status)
}

// FormatSweep renders a human-readable report of s, one line per run.
func FormatSweep(s *Sweep, verbose bool) string {
	var b strings.Builder
	sum := Summarize(s)

	if s.Succeeded() {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Sweep: %s\n", s.ID)
	fmt.Fprintf(&b, "Command: %s\n", s.Command)
	fmt.Fprintf(&b, "Policy: %s\n", s.Policy)
	if !s.Finished.IsZero() {
		fmt.Fprintf(&b, "Finished: %s (%s)\n", s.Finished.Format(time.RFC3339), humanize.Time(s.Finished))
	}
	if s.Cancelled {
		fmt.Fprintln(&b, "Cancelled: yes")
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Runs: %d total, %d ok, %d failed, %d skipped\n", sum.Total, sum.Succeeded, sum.Failed, sum.Skipped)
	if sum.Max > 0 {
		fmt.Fprintf(&b, "Duration: mean %s, median %s, p95 %s, max %s\n",
			round(sum.Mean), round(sum.Median), round(sum.P95), round(sum.Max))
	}
	fmt.Fprintln(&b)

	FormatRuns(&b, s.Runs, verbose)
	return b.String()
}

// FormatRuns writes one line per run to b, with captured output when verbose.
func FormatRuns(b *strings.Builder, runs []Run, verbose bool) {
	width := 0
	for _, r := range runs {
		width = max(width, len(r.Label))
	}
	for _, r := range runs {
		line := fmt.Sprintf("  #%-3d %-*s  %s", r.Index, width, r.Label, r.Outcome())
		if d := r.Duration(); d > 0 {
			line += "  " + round(d).String()
		}
		if r.Attempts > 1 {
			line += fmt.Sprintf("  (%d attempts)", r.Attempts)
		}
		fmt.Fprintln(b, line)
		if verbose && !r.OK() {
			if r.Error != "" {
				fmt.Fprintf(b, "        error: %s\n", r.Error)
			}
			for _, l := range strings.Split(strings.TrimRight(r.Output, "\n"), "\n") {
				if l != "" {
					fmt.Fprintf(b, "        %s\n", l)
				}
			}
		}
	}
}

func round(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Microsecond)
}
