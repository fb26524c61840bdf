package main

import (
	"errors"
	"flag"
	"testing"

	"github.com/deixis/dfsbench/internal/matrix"
	"github.com/deixis/dfsbench/internal/sweep"
)

func parseRunFlags(t *testing.T, args ...string) (*flag.FlagSet, int, int) {
	t.Helper()
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	parallel := fs.Int("parallel", 0, "")
	retries := fs.Int("retries", 0, "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return fs, *parallel, *retries
}

func TestApplyRunFlags_ParallelOneForcesSequential(t *testing.T) {
	eng := &sweep.Engine{Policy: sweep.BoundedParallel{Limit: 4}}
	fs, parallel, retries := parseRunFlags(t, "-parallel", "1")

	if err := applyRunFlags(fs, eng, parallel, retries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := eng.Policy.(sweep.Sequential); !ok {
		t.Errorf("Policy = %s, want sequential", eng.Policy.Name())
	}
}

func TestApplyRunFlags_Parallel(t *testing.T) {
	eng := &sweep.Engine{}
	fs, parallel, retries := parseRunFlags(t, "-parallel", "3", "-retries", "2")

	if err := applyRunFlags(fs, eng, parallel, retries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := eng.Policy.Name(); got != "parallel(3)" {
		t.Errorf("Policy = %s, want parallel(3)", got)
	}
	if eng.Retries != 2 {
		t.Errorf("Retries = %d, want 2", eng.Retries)
	}
}

func TestApplyRunFlags_UnsetKeepsConfig(t *testing.T) {
	eng := &sweep.Engine{Policy: sweep.BoundedParallel{Limit: 4}, Retries: 1}
	fs, parallel, retries := parseRunFlags(t)

	if err := applyRunFlags(fs, eng, parallel, retries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := eng.Policy.Name(); got != "parallel(4)" {
		t.Errorf("Policy = %s, want configured parallel(4)", got)
	}
	if eng.Retries != 1 {
		t.Errorf("Retries = %d, want configured 1", eng.Retries)
	}
}

func TestApplyRunFlags_InvalidParallel(t *testing.T) {
	for _, v := range []string{"0", "-1"} {
		eng := &sweep.Engine{}
		fs, parallel, retries := parseRunFlags(t, "-parallel", v)

		err := applyRunFlags(fs, eng, parallel, retries)
		if !errors.Is(err, matrix.ErrInvalidConfig) {
			t.Errorf("-parallel %s: err = %v, want ErrInvalidConfig", v, err)
		}
		if eng.Policy != nil {
			t.Errorf("-parallel %s: Policy = %s, want unchanged", v, eng.Policy.Name())
		}
	}
}
