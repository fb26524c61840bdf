// Package mcp provides the dfsbench MCP server, registering the sweep
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/dfsbench"
	"github.com/deixis/dfsbench/internal/config"
	"github.com/deixis/dfsbench/internal/report"
	"github.com/deixis/dfsbench/internal/runner"
	"github.com/deixis/dfsbench/internal/sweep"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.Mutex
	loaded *config.LoadResult
	store  report.Store
	logger *zap.Logger

	// base supplies the environment, output streams and fallback timeout
	// for every sweep's runner. It is never mutated.
	base *runner.Runner

	// sweeps serializes bench_run calls: two sweeps against the same
	// filesystem would skew each other.
	sweeps sync.Mutex
}

// NewServer creates an MCP server with all dfsbench tools registered.
// Each sweep gets its own runner built from the current configuration,
// inheriting Env, Stdout, Stderr and a fallback Timeout from r.
func NewServer(loaded *config.LoadResult, r *runner.Runner, store report.Store, logger *zap.Logger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		loaded: loaded,
		store:  store,
		logger: logger,
		base:   r,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "dfsbench", Version: dfsbench.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "bench_matrix",
		Description: "Show the benchmark matrix: dimensions, number of combinations and the resolved command line for each. Runs nothing.",
	}, h.matrixHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bench_run",
		Description: `Run the benchmark command once per matrix combination and report each run's outcome.

Runs are sequential by default; set parallel to keep several in flight. A failing run never stops
the sweep. Results are stored for drill-down via bench_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bench_inspect",
		Description: `Drill into a stored sweep from bench_run.

Use the sweep_id from the bench_run output. Optionally filter by a dimension value
(e.g. dimension=size, value=4MB) or by status (e.g. exec_failed).`,
	}, h.inspectHandler)

	return s
}

// current returns the current configuration snapshot.
func (h *handler) current() *config.LoadResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

// updateWorkspaceFromRoots queries the client for MCP roots and reloads
// the configuration from the first file root, if any.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		h.logger.Warn("reloading config from client root failed", zap.String("root", u.Path), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = loaded
}

// engine builds a sweep engine and a fresh runner from the current
// configuration.
func (h *handler) engine() (*sweep.Engine, error) {
	loaded := h.current()
	return sweep.FromConfig(loaded.Config, h.newRunner(loaded), h.logger)
}

func (h *handler) newRunner(loaded *config.LoadResult) *runner.Runner {
	r := &runner.Runner{
		Dir:       loaded.WorkDir(),
		Timeout:   loaded.Config.Timeout(),
		MaxOutput: loaded.Config.MaxOutputBytes(),
	}
	if h.base != nil {
		r.Env = h.base.Env
		r.Stdout = h.base.Stdout
		r.Stderr = h.base.Stderr
		if r.Timeout == 0 {
			r.Timeout = h.base.Timeout
		}
	}
	return r
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
