package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deixis/dfsbench/internal/matrix"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FromRoot(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `version: 1
timeout: 10m
policy: parallel
parallel: 3
command: [echo, "{mode}", "{size}"]
dimensions:
  - name: mode
    values: [read, write]
  - name: size
    values: [1MB, 4MB]
    kind: bytes
`)

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q", res.Root, dir)
	}
	if res.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", res.Path)
	}
	cfg := res.Config
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Timeout() != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", cfg.Timeout())
	}
	if cfg.PolicyName() != Parallel || cfg.Parallelism() != 3 {
		t.Errorf("policy = %s/%d, want parallel/3", cfg.PolicyName(), cfg.Parallelism())
	}

	m, tmpl, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Size() != 4 {
		t.Errorf("Size() = %d, want 4", m.Size())
	}
	c, _ := m.At(1)
	argv, err := tmpl.Resolve(c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(argv) != 3 || argv[1] != "read" || argv[2] != "4MB" {
		t.Errorf("argv = %v, want [echo read 4MB]", argv)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version: 2\n")

	sub := filepath.Join(root, "bench", "hdfs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q (fallback to workspace)", res.Root, dir)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	if res.ResultsPath() != filepath.Join(dir, DefaultResultsDir) {
		t.Errorf("ResultsPath() = %q", res.ResultsPath())
	}
	if res.WorkDir() != dir {
		t.Errorf("WorkDir() = %q, want %q", res.WorkDir(), dir)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dimensions: [unterminated\n")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaults_HadoopSweep(t *testing.T) {
	cfg := &Config{}
	m, tmpl, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Size() != 18 {
		t.Errorf("Size() = %d, want 18", m.Size())
	}
	if cfg.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want none", cfg.Timeout())
	}
	if cfg.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d", cfg.MaxOutputBytes())
	}

	c, _ := m.At(0)
	argv, err := tmpl.Resolve(c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{
		"/opt/hadoop-2.8.2/bin/hadoop", "jar",
		"/opt/hadoop-2.8.2/share/hadoop/mapreduce/hadoop-mapreduce-client-jobclient-2.8.2-tests.jar",
		"TestDFSIO", "-write", "-nrFiles", "16", "-fileSize", "1MB",
		"-resFile", "/tmp/HadoopDFSBenchmarkResult.log",
	}
	if len(argv) != len(want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}

func TestBuild_Invalid(t *testing.T) {
	cases := map[string]*Config{
		"unknown policy":    {Policy: "random"},
		"negative retries":  {Retries: -1},
		"negative parallel": {Parallel: -2},
		"bad timeout":       {RawTimeout: "soon"},
		"zero timeout":      {RawTimeout: "0s"},
		"unknown dimension": {Command: []string{"echo", "{blocks}"}},
		"empty dimension":   {Dimensions: []DimensionConfig{{Name: "mode"}}},
		"bad size":          {Dimensions: []DimensionConfig{{Name: "size", Values: []string{"big"}, Kind: "bytes"}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := cfg.Build()
			if !errors.Is(err, matrix.ErrInvalidConfig) {
				t.Errorf("Build() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestResultsPathAndWorkDir(t *testing.T) {
	l := &LoadResult{Config: &Config{ResultsDir: "out", Dir: "/srv/bench"}, Root: "/project"}
	if got := l.ResultsPath(); got != "/project/out" {
		t.Errorf("ResultsPath() = %q, want /project/out", got)
	}
	if got := l.WorkDir(); got != "/srv/bench" {
		t.Errorf("WorkDir() = %q, want /srv/bench", got)
	}
	l.Config.ResultsDir = "/var/results"
	l.Config.Dir = "runs"
	if got := l.ResultsPath(); got != "/var/results" {
		t.Errorf("ResultsPath() = %q, want /var/results", got)
	}
	if got := l.WorkDir(); got != "/project/runs" {
		t.Errorf("WorkDir() = %q, want /project/runs", got)
	}
}
