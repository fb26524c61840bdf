// Package report records sweep outcomes as typed structs, persists them
// and answers drill-down queries by dimension value.
package report

import (
	"fmt"
	"time"
)

// Status is the final state of one combination's run.
type Status string

const (
	Exited       Status = "exited"
	ExecFailed   Status = "exec_failed"
	LaunchFailed Status = "launch_failed"
	Signaled     Status = "signaled"
	WaitFailed   Status = "wait_failed"
	// Skipped means the combination was never started (sweep cancelled).
	Skipped Status = "skipped"
)

// Store persists and retrieves sweeps.
type Store interface {
	Save(sweep *Sweep) error
	Load(id string) (*Sweep, error)
}

// Dimension mirrors a sweep axis in the persisted report.
type Dimension struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Run is the recorded outcome of one combination.
type Run struct {
	Index    int               `json:"index"`
	Values   map[string]string `json:"values"`
	Label    string            `json:"label"`
	Argv     []string          `json:"argv,omitempty"`
	Status   Status            `json:"status"`
	ExitCode int               `json:"exit_code"`
	Signal   string            `json:"signal,omitempty"`
	TimedOut bool              `json:"timed_out,omitempty"`
	Error    string            `json:"error,omitempty"`
	RunID    string            `json:"run_id,omitempty"`
	Attempts int               `json:"attempts"`
	Start    time.Time         `json:"start,omitzero"`
	End      time.Time         `json:"end,omitzero"`
	Output   string            `json:"output,omitempty"` // stderr tail, then stdout tail
}

// OK reports whether the external tool ran and exited 0.
func (r *Run) OK() bool {
	return r.Status == Exited && r.ExitCode == 0
}

// Duration returns the wall-clock time of the last attempt.
func (r *Run) Duration() time.Duration {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Sweep holds every run of one matrix execution, in combination order.
type Sweep struct {
	ID         string      `json:"id"`
	Command    string      `json:"command"`
	Policy     string      `json:"policy"`
	Dimensions []Dimension `json:"dimensions"`
	Started    time.Time   `json:"started"`
	Finished   time.Time   `json:"finished"`
	Cancelled  bool        `json:"cancelled,omitempty"`
	Runs       []Run       `json:"runs"`
}

// Failed returns the number of runs that did not exit 0, skipped ones included.
func (s *Sweep) Failed() int {
	n := 0
	for i := range s.Runs {
		if !s.Runs[i].OK() {
			n++
		}
	}
	return n
}

// Succeeded reports whether every combination ran and exited 0.
func (s *Sweep) Succeeded() bool {
	return s.Failed() == 0
}

// ByValue returns the runs whose combination selected value for dimension dim.
func ByValue(s *Sweep, dim, value string) []Run {
	var out []Run
	for _, r := range s.Runs {
		if v, ok := r.Values[dim]; ok && v == value {
			out = append(out, r)
		}
	}
	return out
}

// ByStatus returns the runs with the given status.
func ByStatus(s *Sweep, status Status) []Run {
	var out []Run
	for _, r := range s.Runs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// HasDimension returns an error if s has no dimension called name.
func (s *Sweep) HasDimension(name string) error {
	for _, d := range s.Dimensions {
		if d.Name == name {
			return nil
		}
	}
	return fmt.Errorf("sweep %s has no dimension %q", s.ID, name)
}
