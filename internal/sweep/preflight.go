package sweep

import (
	"fmt"
	"os/exec"

	"github.com/deixis/dfsbench/internal/matrix"
)

// ErrProgramUnavailable is returned by Preflight when the benchmark
// program cannot be resolved to an executable file.
type ErrProgramUnavailable struct {
	Program string
	Err     error
}

func (e ErrProgramUnavailable) Error() string {
	return fmt.Sprintf("%s is not available (%v); every run will fail with exec_failed", e.Program, e.Err)
}

func (e ErrProgramUnavailable) Unwrap() error {
	return e.Err
}

// Preflight checks that the template's program can be found on PATH or at
// its literal path. A program chosen by a placeholder is not checked.
// Failing preflight does not prevent a sweep: each run still reports its
// own exec failure.
func (e *Engine) Preflight() error {
	if e.Template == nil {
		return nil
	}
	tokens := e.Template.Tokens()
	if len(tokens) == 0 || tokens[0].Kind != matrix.Literal {
		return nil
	}
	program := tokens[0].Literal
	if _, err := exec.LookPath(program); err != nil {
		return ErrProgramUnavailable{Program: program, Err: err}
	}
	return nil
}
