// Command dfsbench runs a benchmark command across every combination of a
// parameter matrix, by default Hadoop's TestDFSIO over read/write mode,
// file count and file size.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deixis/dfsbench"
	"github.com/deixis/dfsbench/internal/config"
	benchmcp "github.com/deixis/dfsbench/internal/mcp"
	"github.com/deixis/dfsbench/internal/report"
	"github.com/deixis/dfsbench/internal/runner"
	"github.com/deixis/dfsbench/internal/sweep"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dfsbench: ")

	// No arguments runs the configured sweep.
	cmd := "run"
	var args []string
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
		args = os.Args[2:]
	}

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "plan":
		err = planMain(args)
	case "show":
		err = showMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(dfsbench.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "dfsbench: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: dfsbench [command] [flags]

Commands:
  run         Run the benchmark matrix (default)
  plan        Print every combination and its command line without running
  show        Print a stored sweep: dfsbench show [-v] <sweep-id>
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Configuration is read from the nearest .dfsbench file; without one the
built-in Hadoop TestDFSIO sweep is used.
Use "dfsbench <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	parallelFlag := fs.Int("parallel", 0, "keep up to N runs in flight (default: configured policy)")
	retriesFlag := fs.Int("retries", 0, "extra attempts for a failed run (default: configured value)")
	timeoutFlag := fs.Duration("timeout", 0, "per-run timeout override (e.g. 30m)")
	strictFlag := fs.Bool("strict", false, "exit 1 if any run did not exit 0")
	jsonFlag := fs.Bool("json", false, "output the sweep report as JSON")
	verboseFlag := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)

	ctx, stop := notifyContext(context.Background())
	defer stop()

	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := loaded.Config

	logger, err := newLogger(*verboseFlag)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	r := newRunner(loaded, *timeoutFlag)
	if !*jsonFlag {
		r.Stdout = os.Stdout
	}
	r.Stderr = os.Stderr

	eng, err := sweep.FromConfig(cfg, r, logger)
	if err != nil {
		return err
	}
	if err := applyRunFlags(fs, eng, *parallelFlag, *retriesFlag); err != nil {
		return err
	}

	sw, sweepErr := eng.Sweep(ctx)
	if sw == nil {
		return sweepErr
	}

	store := report.NewDiskStore(loaded.ResultsPath())
	if err := store.Save(sw); err != nil {
		logger.Warn("saving sweep report failed", zap.Error(err))
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sw); err != nil {
			return err
		}
	} else {
		fmt.Fprint(os.Stderr, "\n"+report.FormatSweep(sw, *verboseFlag))
	}

	if sweepErr != nil {
		return fmt.Errorf("sweep interrupted: %w", sweepErr)
	}
	if (*strictFlag || cfg.StrictExit) && !sw.Succeeded() {
		_ = logger.Sync()
		os.Exit(1)
	}
	return nil
}

// applyRunFlags overrides the configured policy and retries with the
// flags set on the command line.
func applyRunFlags(fs *flag.FlagSet, eng *sweep.Engine, parallel, retries int) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "parallel":
			var p sweep.Policy
			if p, err = sweep.LimitPolicy(parallel); err == nil {
				eng.Policy = p
			}
		case "retries":
			eng.Retries = retries
		}
	})
	return err
}

// --- plan ---

func planMain(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	_ = fs.Parse(args)

	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := sweep.FromConfig(loaded.Config, newRunner(loaded, 0), nil)
	if err != nil {
		return err
	}
	plan, err := eng.Plan()
	if err != nil {
		return err
	}

	fmt.Printf("%d combinations, policy %s\n", len(plan), eng.Policy.Name())
	if err := eng.Preflight(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	fmt.Println()
	for _, p := range plan {
		fmt.Printf("#%-3d %s\n     %s\n", p.Combination.Index, p.Label, strings.Join(p.Argv, " "))
	}
	return nil
}

// --- show ---

func showMain(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output the sweep report as JSON")
	verboseFlag := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("show: exactly one sweep id is required")
	}

	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	sw, err := report.NewDiskStore(loaded.ResultsPath()).Load(fs.Arg(0))
	if err != nil {
		return err
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sw)
	}
	fmt.Print(report.FormatSweep(sw, *verboseFlag))
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(benchmcp.Instructions)
		return nil
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	return serve(ctx, *httpAddr)
}

func serve(ctx context.Context, httpAddr string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the MCP stream; logs and child stderr go to stderr.
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	r := newRunner(loaded, 0)
	r.Stderr = os.Stderr

	store := report.NewLRUStore(5, report.NewDiskStore(loaded.ResultsPath()))
	server := benchmcp.NewServer(loaded, r, store, logger)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

// stopSignals cancel the running sweep or server. Children run in their own
// process groups and never see these, so each one is killed and reaped
// through context cancellation.
var stopSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, stopSignals...)
}

func loadConfig() (*config.LoadResult, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return loaded, nil
}

func newRunner(loaded *config.LoadResult, timeoutOverride time.Duration) *runner.Runner {
	timeout := loaded.Config.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}
	return &runner.Runner{
		Dir:       loaded.WorkDir(),
		Timeout:   timeout,
		MaxOutput: loaded.Config.MaxOutputBytes(),
	}
}

// newLogger returns a console logger on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
