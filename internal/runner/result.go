package runner

import "time"

// Status is the state of a single run.
//
//	Pending → Launching → {LaunchFailed | Running} → {ExecFailed | Exited | Signaled | WaitFailed}
type Status string

const (
	Pending   Status = "pending"
	Launching Status = "launching"
	Running   Status = "running"

	// LaunchFailed means no child process was created.
	LaunchFailed Status = "launch_failed"
	// ExecFailed means the child could not become the target program.
	ExecFailed Status = "exec_failed"
	// Exited means the program ran and exited with ExitCode.
	Exited Status = "exited"
	// Signaled means the program was terminated by Signal.
	Signaled Status = "signaled"
	// WaitFailed means the child's exit status could not be collected.
	WaitFailed Status = "wait_failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case LaunchFailed, ExecFailed, Exited, Signaled, WaitFailed:
		return true
	}
	return false
}

// Exit codes recorded for exec failures, following shell conventions.
const (
	ExitNotFound      = 127
	ExitNotExecutable = 126
)

// Result holds the outcome of a command execution.
type Result struct {
	RunID     string    // unique identifier for this run
	Argv      []string  // the exact argv passed to the child
	Status    Status    // terminal state
	ExitCode  int       // process exit code; -1 when signaled, never launched or not collected
	Signal    string    // terminating signal, when Status is Signaled
	TimedOut  bool      // true if the run was killed by the runner timeout
	Err       string    // launch/exec/wait error detail
	Start     time.Time // just before process creation
	End       time.Time // after the child was reaped
	Stdout    []byte    // captured stdout (may be truncated)
	Stderr    []byte    // captured stderr (may be truncated)
	Truncated bool      // true if output exceeded the size cap
}

// OK reports whether the program ran and exited 0.
func (r *Result) OK() bool {
	return r.Status == Exited && r.ExitCode == 0
}

// Duration returns the wall-clock time of the run.
func (r *Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
