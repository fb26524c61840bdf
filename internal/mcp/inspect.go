package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/dfsbench/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	SweepID   string `json:"sweep_id" jsonschema:"the sweep ID from a bench_run result"`
	Dimension string `json:"dimension,omitempty" jsonschema:"dimension name to filter on (e.g. size); requires value"`
	Value     string `json:"value,omitempty" jsonschema:"dimension value to filter on (e.g. 4MB)"`
	Status    string `json:"status,omitempty" jsonschema:"run status to filter on: exited, exec_failed, launch_failed, signaled or skipped"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.SweepID == "" {
		return errorResult("sweep_id is required")
	}
	if (params.Dimension == "") != (params.Value == "") {
		return errorResult("dimension and value must be given together")
	}

	sw, err := h.store.Load(params.SweepID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load sweep %s: %v", params.SweepID, err))
	}

	runs := sw.Runs
	var filters []string
	if params.Dimension != "" {
		if err := sw.HasDimension(params.Dimension); err != nil {
			return errorResult(err.Error())
		}
		runs = report.ByValue(sw, params.Dimension, params.Value)
		filters = append(filters, params.Dimension+"="+params.Value)
	}
	if params.Status != "" {
		filtered := runs[:0:0]
		for _, r := range runs {
			if string(r.Status) == params.Status {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
		filters = append(filters, "status="+params.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sweep: %s (%s)\n", sw.ID, sw.Policy)
	if len(filters) > 0 {
		fmt.Fprintf(&b, "Filter: %s\n", strings.Join(filters, ", "))
	}
	if len(runs) == 0 {
		fmt.Fprintln(&b, "No matching runs.")
		return textResult(b.String())
	}
	fmt.Fprintf(&b, "Runs (%d):\n", len(runs))
	report.FormatRuns(&b, runs, true)

	for _, r := range runs {
		if len(r.Argv) > 0 && !r.OK() {
			fmt.Fprintf(&b, "\n#%d argv: %s\n", r.Index, strings.Join(r.Argv, " "))
		}
	}
	return textResult(b.String())
}
