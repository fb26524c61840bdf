// Package config loads and validates the optional .dfsbench YAML file.
// Without one, the compiled-in Hadoop TestDFSIO sweep is used.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/dfsbench/internal/matrix"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up from the working directory upward.
const FileName = ".dfsbench"

// Default values for runner configuration.
const (
	DefaultMaxOutput  = 1 << 20 // 1 MB
	DefaultResultsDir = ".dfsbench-runs"
)

// Policy names.
const (
	Sequential = "sequential"
	Parallel   = "parallel"
)

// DefaultCommand runs Hadoop's TestDFSIO with one result log shared by
// every combination.
var DefaultCommand = []string{
	"/opt/hadoop-2.8.2/bin/hadoop",
	"jar",
	"/opt/hadoop-2.8.2/share/hadoop/mapreduce/hadoop-mapreduce-client-jobclient-2.8.2-tests.jar",
	"TestDFSIO",
	"{mode}",
	"-nrFiles",
	"{files}",
	"-fileSize",
	"{size}",
	"-resFile",
	"/tmp/HadoopDFSBenchmarkResult.log",
}

// DefaultDimensions sweep read/write mode, file count and file size.
var DefaultDimensions = []DimensionConfig{
	{Name: "mode", Values: []string{"-write", "-read"}},
	{Name: "files", Values: []string{"16", "32", "64"}, Kind: string(matrix.Int)},
	{Name: "size", Values: []string{"1MB", "2MB", "4MB"}, Kind: string(matrix.Bytes)},
}

// Config holds the parsed .dfsbench configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int               `yaml:"version"`
	Command      []string          `yaml:"command"`    // argv with {dimension} and {#} placeholders
	Dimensions   []DimensionConfig `yaml:"dimensions"` // outermost first
	Policy       string            `yaml:"policy"`     // sequential (default) or parallel
	Parallel     int               `yaml:"parallel"`   // children in flight under the parallel policy
	Retries      int               `yaml:"retries"`    // extra attempts for a failed run
	RawTimeout   string            `yaml:"timeout"`    // per run, e.g. "30m"; empty means none
	RawMaxOutput int               `yaml:"max_output"` // bytes of output kept per run
	StrictExit   bool              `yaml:"strict_exit"`
	ResultsDir   string            `yaml:"results_dir"` // relative to the config root
	Dir          string            `yaml:"dir"`         // working directory for runs
}

// DimensionConfig is one configured sweep axis.
type DimensionConfig struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
	Kind   string   `yaml:"kind"` // string, int or bytes
}

// CommandLine returns the configured command or the default.
func (c *Config) CommandLine() []string {
	if len(c.Command) > 0 {
		return c.Command
	}
	return DefaultCommand
}

// Dims returns the configured dimensions or the defaults.
func (c *Config) Dims() []DimensionConfig {
	if len(c.Dimensions) > 0 {
		return c.Dimensions
	}
	return DefaultDimensions
}

// PolicyName returns the configured policy, falling back to sequential.
func (c *Config) PolicyName() string {
	if c.Policy != "" {
		return c.Policy
	}
	return Sequential
}

// Parallelism returns the configured parallel limit, falling back to 1.
func (c *Config) Parallelism() int {
	if c.Parallel > 0 {
		return c.Parallel
	}
	return 1
}

// Timeout returns the configured per-run timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Validate reports malformed driver settings. Dimensions and the command
// are checked by Build.
func (c *Config) Validate() error {
	switch c.PolicyName() {
	case Sequential, Parallel:
	default:
		return matrix.Invalid("policy", "unknown policy %q (want %s or %s)", c.Policy, Sequential, Parallel)
	}
	if c.Parallel < 0 {
		return matrix.Invalid("parallel", "must not be negative")
	}
	if c.Retries < 0 {
		return matrix.Invalid("retries", "must not be negative")
	}
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return matrix.Invalid("timeout", "%v", err)
		}
		if d <= 0 {
			return matrix.Invalid("timeout", "must be positive")
		}
	}
	return nil
}

// Build validates the configuration and returns the sweep matrix and the
// command template bound to it.
func (c *Config) Build() (*matrix.Matrix, *matrix.Template, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	dims := make([]matrix.Dimension, 0, len(c.Dims()))
	for _, d := range c.Dims() {
		dims = append(dims, matrix.Dimension{Name: d.Name, Values: d.Values, Kind: matrix.Kind(d.Kind)})
	}
	m, err := matrix.NewMatrix(dims...)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := matrix.ParseTemplate(c.CommandLine(), m)
	if err != nil {
		return nil, nil, err
	}
	return m, tmpl, nil
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .dfsbench; falls back to workspace
	Path   string // empty when no file was found
}

// ResultsPath returns the absolute directory sweeps are stored in.
func (l *LoadResult) ResultsPath() string {
	dir := l.Config.ResultsDir
	if dir == "" {
		dir = DefaultResultsDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(l.Root, dir)
}

// WorkDir returns the absolute directory runs execute in.
func (l *LoadResult) WorkDir() string {
	switch {
	case l.Config.Dir == "":
		return l.Root
	case filepath.IsAbs(l.Config.Dir):
		return l.Config.Dir
	default:
		return filepath.Join(l.Root, l.Config.Dir)
	}
}

// Load reads the .dfsbench file found by walking upward from workspace.
// If no file exists, a default Config rooted at workspace is returned.
func Load(workspace string) (*LoadResult, error) {
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	root, err := findRoot(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, Root: root, Path: path}, nil
}

// findRoot walks upward from dir looking for a directory containing FileName.
func findRoot(dir string) (string, error) {
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
