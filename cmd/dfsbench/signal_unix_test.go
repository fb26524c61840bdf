//go:build unix

package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/deixis/dfsbench/internal/matrix"
	"github.com/deixis/dfsbench/internal/report"
	"github.com/deixis/dfsbench/internal/runner"
	"github.com/deixis/dfsbench/internal/sweep"
)

func TestStopSignalsReapInFlightRun(t *testing.T) {
	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT} {
		t.Run(sig.String(), func(t *testing.T) {
			ctx, stop := notifyContext(context.Background())
			defer stop()

			m, err := matrix.NewMatrix(matrix.Dimension{Name: "t", Values: []string{"30", "31"}})
			if err != nil {
				t.Fatal(err)
			}
			tpl, err := matrix.ParseTemplate([]string{"sleep", "{t}"}, m)
			if err != nil {
				t.Fatal(err)
			}
			eng := &sweep.Engine{Matrix: m, Template: tpl, Runner: &runner.Runner{Dir: t.TempDir()}}

			time.AfterFunc(300*time.Millisecond, func() {
				_ = syscall.Kill(os.Getpid(), sig)
			})

			start := time.Now()
			sw, err := eng.Sweep(ctx)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Sweep error = %v, want context.Canceled", err)
			}
			if elapsed := time.Since(start); elapsed > 10*time.Second {
				t.Errorf("sweep took %v, in-flight child was not killed", elapsed)
			}
			if got := sw.Runs[0].Status; got != report.Signaled {
				t.Errorf("run 0 status = %s, want signaled", got)
			}
			if sw.Runs[0].End.IsZero() {
				t.Error("run 0 has no end time, child was not reaped")
			}
			if got := sw.Runs[1].Status; got != report.Skipped {
				t.Errorf("run 1 status = %s, want skipped", got)
			}
		})
	}
}
