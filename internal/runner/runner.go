// Package runner executes a single benchmark command as a child process,
// with optional timeouts and output size limits, and always reaps it.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// waitDelay bounds how long Wait lingers on I/O pipes held open by
// grandchildren after the child itself has gone.
const waitDelay = 10 * time.Second

// errRunTimeout is the cancellation cause of the runner's own timeout.
var errRunTimeout = errors.New("run timeout exceeded")

// Runner executes commands directly (no shell), one child per Run call.
// A Runner is safe for concurrent use.
type Runner struct {
	Dir       string        // working directory; empty means the caller's
	Env       []string      // nil inherits the caller's environment
	Timeout   time.Duration // zero means no timeout
	MaxOutput int           // bytes of stdout/stderr kept on the Result

	// Stdout and Stderr receive the child's output as it is produced.
	// Writes from concurrent runs are serialized.
	Stdout io.Writer
	Stderr io.Writer

	mu sync.Mutex
}

// Run executes argv[0] with argv[1:] as arguments and blocks until the
// child has exited and been reaped. Launch and exec failures are reported
// through Result.Status; an error is returned only for an empty argv.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.Timeout, errRunTimeout)
		defer cancel()
	}

	res := &Result{
		RunID:    uuid.New().String(),
		Argv:     slices.Clone(argv),
		Status:   Pending,
		ExitCode: -1,
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process.Pid)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = r.output(r.Stdout, &limitWriter{buf: &stdout, limit: r.MaxOutput})
	cmd.Stderr = r.output(r.Stderr, &limitWriter{buf: &stderr, limit: r.MaxOutput})

	res.Status = Launching
	res.Start = time.Now()
	p, err := start(cmd)
	if err != nil {
		res.End = time.Now()
		res.Err = err.Error()
		res.Status, res.ExitCode = classifyStartError(err)
		return res, nil
	}
	defer p.wait()

	res.Status = Running
	waitErr := p.wait()
	res.End = time.Now()

	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.Truncated = r.MaxOutput > 0 && (stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput)

	r.finish(res, cmd, waitErr)
	// A deadline on the caller's context is a cancellation, not a timeout.
	res.TimedOut = res.Status == Signaled && errors.Is(context.Cause(ctx), errRunTimeout)
	return res, nil
}

// finish records the terminal state from the reaped child.
func (r *Runner) finish(res *Result, cmd *exec.Cmd, waitErr error) {
	if waitErr != nil {
		res.Err = waitErr.Error()
	}

	ps := cmd.ProcessState
	if ps == nil {
		// Wait failed before the child's status was collected.
		res.Status = WaitFailed
		return
	}

	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		res.Status = Signaled
		res.Signal = ws.Signal().String()
		res.ExitCode = -1
		return
	}

	res.Status = Exited
	res.ExitCode = ps.ExitCode()
}

// classifyStartError separates failures to create the child at all from
// failures of the child to run the target program.
func classifyStartError(err error) (Status, int) {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ExecFailed, ExitNotFound
	case errors.Is(err, exec.ErrDot), errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.ENOEXEC):
		return ExecFailed, ExitNotExecutable
	default:
		return LaunchFailed, -1
	}
}

// output combines an optional live writer with the capture buffer.
func (r *Runner) output(live io.Writer, capture io.Writer) io.Writer {
	if live == nil {
		return capture
	}
	return io.MultiWriter(&lockedWriter{mu: &r.mu, w: live}, capture)
}

// process is a started child. wait reaps it exactly once, however many
// times it is called.
type process struct {
	cmd  *exec.Cmd
	once sync.Once
	err  error
}

func start(cmd *exec.Cmd) (*process, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &process{cmd: cmd}, nil
}

func (p *process) wait() error {
	p.once.Do(func() {
		p.err = p.cmd.Wait()
	})
	return p.err
}

// lockedWriter serializes writes from concurrent children to a shared writer.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
// A limit of zero discards everything.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
