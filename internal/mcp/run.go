package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/dfsbench/internal/report"
	"github.com/deixis/dfsbench/internal/sweep"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type matrixParams struct{}

func (h *handler) matrixHandler(ctx context.Context, req *mcp.CallToolRequest, _ matrixParams) (*mcp.CallToolResult, any, error) {
	e, err := h.engine()
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid configuration: %v", err))
	}
	plan, err := e.Plan()
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid configuration: %v", err))
	}

	var b strings.Builder
	if path := h.current().Path; path != "" {
		fmt.Fprintf(&b, "Config: %s\n", path)
	} else {
		fmt.Fprintln(&b, "Config: built-in defaults")
	}
	fmt.Fprintf(&b, "Command: %s\n", e.Template)
	fmt.Fprintf(&b, "Policy: %s\n", e.Policy.Name())
	if err := e.Preflight(); err != nil {
		fmt.Fprintf(&b, "Warning: %v\n", err)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Dimensions:")
	for _, d := range e.Matrix.Dimensions() {
		fmt.Fprintf(&b, "  %s (%s): %s\n", d.Name, d.Kind, strings.Join(d.Values, ", "))
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Combinations (%d):\n", len(plan))
	for _, p := range plan {
		fmt.Fprintf(&b, "  #%-3d %s\n", p.Combination.Index, p.Label)
		fmt.Fprintf(&b, "        %s\n", strings.Join(p.Argv, " "))
	}

	return textResult(b.String())
}

type runParams struct {
	Parallel *int `json:"parallel,omitempty" jsonschema:"Number of runs kept in flight. Default: the configured policy (sequential unless configured otherwise)."`
	Retries  *int `json:"retries,omitempty" jsonschema:"Extra attempts for a run that does not exit 0. Default: the configured value."`
	Verbose  bool `json:"verbose,omitempty" jsonschema:"Include error details and captured output for failed runs."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	e, err := h.engine()
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid configuration: %v", err))
	}
	if params.Parallel != nil {
		p, err := sweep.LimitPolicy(*params.Parallel)
		if err != nil {
			return errorResult(err.Error())
		}
		e.Policy = p
	}
	if params.Retries != nil {
		e.Retries = *params.Retries
	}

	h.sweeps.Lock()
	sw, err := e.Sweep(ctx)
	h.sweeps.Unlock()
	if sw == nil {
		return errorResult(fmt.Sprintf("sweep failed: %v", err))
	}

	// Save results for bench_inspect.
	saveErr := h.store.Save(sw)
	if saveErr != nil {
		h.logger.Warn("saving sweep report failed", zap.String("sweep_id", sw.ID), zap.Error(saveErr))
	}

	var b strings.Builder
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(&b, "Sweep interrupted: %v\n\n", err)
	}
	if saveErr != nil {
		fmt.Fprintf(&b, "Warning: sweep report not saved, bench_inspect will not find it: %v\n\n", saveErr)
	}
	b.WriteString(report.FormatSweep(sw, params.Verbose))
	fmt.Fprintln(&b)
	if sw.Succeeded() {
		fmt.Fprintln(&b, "All runs exited 0.")
	} else {
		fmt.Fprintf(&b, "Inspect with bench_inspect(sweep_id=%q, status=\"exec_failed\") or by dimension value.\n", sw.ID)
	}
	return textResult(b.String())
}
