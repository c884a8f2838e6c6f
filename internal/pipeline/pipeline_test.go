package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/config"
	"ffbuild/internal/ffconfigure"
	"ffbuild/internal/history"
	"ffbuild/internal/logging"
	"ffbuild/internal/pipeline"
	"ffbuild/internal/source"
	"ffbuild/internal/testsupport"
	"ffbuild/internal/workspace"
)

// fakeBuild imitates configure/make: "make install" drops a library and a
// header into the prefix passed to configure.
type fakeBuild struct {
	t        *testing.T
	prefix   string
	failABI  string
	attempts []string
}

func (f *fakeBuild) Run(_ context.Context, cmd buildexec.Command, _ func(string)) buildexec.Outcome {
	outcome := buildexec.Outcome{Step: cmd.Step, Binary: cmd.Binary, Args: cmd.Args, Dir: cmd.Dir}
	switch cmd.Step {
	case ffconfigure.StepConfigure:
		for _, arg := range cmd.Args {
			if p, ok := strings.CutPrefix(arg, "--prefix="); ok {
				f.prefix = p
			}
		}
		f.attempts = append(f.attempts, filepath.Base(f.prefix))
		if filepath.Base(f.prefix) == f.failABI {
			outcome.ExitCode = 1
			outcome.Tail = []string{"ERROR: compiler cannot create executables"}
		}
	case ffconfigure.StepInstall:
		testsupport.InstallTree(f.t, f.prefix, "libavcodec", "libavutil")
	}
	return outcome
}

func newConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithDecoders("h264", "aac")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	// A cached release tree keeps the run offline.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourcesDir, "ffmpeg-"+cfg.Source.DefaultVersion, "configure"), 16)
	return cfg
}

func openHistory(t *testing.T, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunBuildsEveryTarget(t *testing.T) {
	cfg := newConfig(t)
	exec := &fakeBuild{t: t}
	store := openHistory(t, cfg)
	p := pipeline.New(cfg, logging.NewNop(), pipeline.WithExecutor(exec), pipeline.WithRecorder(store))

	result, err := p.Run(context.Background(), pipeline.Request{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected run id")
	}
	if result.Tree.Ref != cfg.Source.DefaultVersion || result.Tree.Fetched {
		t.Fatalf("expected cached default release, got %+v", result.Tree)
	}
	wantABIs := []string{"armeabi-v7a", "arm64-v8a", "x86", "x86_64"}
	if diff := cmp.Diff(wantABIs, exec.attempts); diff != "" {
		t.Fatalf("build order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantABIs, result.Succeeded()); diff != "" {
		t.Fatalf("succeeded mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.OutputDir, "lib"))
	if err != nil {
		t.Fatalf("read output/lib: %v", err)
	}
	if len(entries) != len(wantABIs) {
		t.Fatalf("expected one lib directory per ABI, got %d", len(entries))
	}
	for _, abi := range wantABIs {
		libs, err := filepath.Glob(filepath.Join(cfg.Paths.OutputDir, "lib", abi, "*.so"))
		if err != nil || len(libs) == 0 {
			t.Fatalf("expected libraries for %s, got %v err=%v", abi, libs, err)
		}
	}
	if result.HeadersFrom != "armeabi-v7a" {
		t.Fatalf("expected headers from first target, got %q", result.HeadersFrom)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "include", "libavcodec", "avcodec.h")); err != nil {
		t.Fatalf("expected header tree: %v", err)
	}

	report, err := os.ReadFile(cfg.ReportPath())
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if strings.Count(string(report), "ABI: ") != len(wantABIs) {
		t.Fatalf("expected a report block per ABI:\n%s", report)
	}

	runs, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != result.RunID || runs[0].Status != history.StatusSucceeded {
		t.Fatalf("unexpected history: %+v", runs)
	}
	if len(runs[0].Targets) != len(wantABIs) || runs[0].Targets[0].Libraries != 2 {
		t.Fatalf("unexpected target rows: %+v", runs[0].Targets)
	}
	if runs[0].SourceDir != result.Tree.Dir {
		t.Fatalf("expected source dir recorded, got %q", runs[0].SourceDir)
	}
}

func TestRunHaltsAtFirstFailure(t *testing.T) {
	cfg := newConfig(t)
	exec := &fakeBuild{t: t, failABI: "arm64-v8a"}
	store := openHistory(t, cfg)
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(exec), pipeline.WithRecorder(store))

	result, err := p.Run(context.Background(), pipeline.Request{})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, buildexec.ErrExternalTool) || !strings.Contains(err.Error(), "arm64-v8a") {
		t.Fatalf("expected external tool failure for arm64-v8a, got %v", err)
	}
	if diff := cmp.Diff([]string{"armeabi-v7a", "arm64-v8a"}, exec.attempts); diff != "" {
		t.Fatalf("attempts mismatch (-want +got):\n%s", diff)
	}
	statuses := make([]history.Status, 0, len(result.Targets))
	for _, tr := range result.Targets {
		statuses = append(statuses, tr.Status)
	}
	want := []history.Status{history.StatusSucceeded, history.StatusFailed, history.StatusSkipped, history.StatusSkipped}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "lib", "armeabi-v7a", "libavcodec.so")); err != nil {
		t.Fatalf("expected earlier ABI artifacts to remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "lib", "arm64-v8a")); !os.IsNotExist(err) {
		t.Fatalf("expected no output for failed ABI, stat err=%v", err)
	}
	if result.HeadersFrom != "armeabi-v7a" {
		t.Fatalf("expected headers from the completed ABI, got %q", result.HeadersFrom)
	}

	runs, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if runs[0].Status != history.StatusFailed || runs[0].Error == "" {
		t.Fatalf("expected failed run in history, got %+v", runs[0])
	}
}

func TestRunContinueOnErrorAttemptsEveryTarget(t *testing.T) {
	cfg := newConfig(t, testsupport.WithContinueOnError(true))
	exec := &fakeBuild{t: t, failABI: "arm64-v8a"}
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(exec))

	result, err := p.Run(context.Background(), pipeline.Request{})
	if err == nil {
		t.Fatal("expected joined failure")
	}
	if len(exec.attempts) != 4 {
		t.Fatalf("expected every target attempted, got %v", exec.attempts)
	}
	if diff := cmp.Diff([]string{"armeabi-v7a", "x86", "x86_64"}, result.Succeeded()); diff != "" {
		t.Fatalf("succeeded mismatch (-want +got):\n%s", diff)
	}
}

func TestRunABISubset(t *testing.T) {
	cfg := newConfig(t)
	exec := &fakeBuild{t: t}
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(exec))

	result, err := p.Run(context.Background(), pipeline.Request{
		Source: source.Request{Kind: source.KindTag, Ref: cfg.Source.DefaultVersion},
		ABIs:   []string{"x86_64", "arm64-v8a"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"arm64-v8a", "x86_64"}, exec.attempts); diff != "" {
		t.Fatalf("subset should keep configured order (-want +got):\n%s", diff)
	}
	if result.HeadersFrom != "arm64-v8a" {
		t.Fatalf("unexpected headers source %q", result.HeadersFrom)
	}
}

func TestRunRejectsUnknownABI(t *testing.T) {
	cfg := newConfig(t)
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(&fakeBuild{t: t}))
	_, err := p.Run(context.Background(), pipeline.Request{ABIs: []string{"mips"}})
	if !errors.Is(err, buildexec.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	cfg := newConfig(t)
	lock, err := workspace.Acquire(cfg)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer func() { _ = lock.Release() }()

	exec := &fakeBuild{t: t}
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(exec))
	if _, err := p.Run(context.Background(), pipeline.Request{}); !errors.Is(err, workspace.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(exec.attempts) != 0 {
		t.Fatal("expected no build steps while the workspace is locked")
	}
}

func TestRunMissingDecoderList(t *testing.T) {
	cfg := newConfig(t)
	if err := os.Remove(cfg.Paths.DecodersFile); err != nil {
		t.Fatalf("remove decoders: %v", err)
	}
	exec := &fakeBuild{t: t}
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(exec))
	if _, err := p.Run(context.Background(), pipeline.Request{}); !errors.Is(err, buildexec.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(exec.attempts) != 0 {
		t.Fatal("expected no build steps without a decoder list")
	}
}

func TestRunKeepsSourceCacheWhenOutputOverlapsWorkDir(t *testing.T) {
	cfg := newConfig(t)
	cfg.Paths.OutputDir = cfg.Paths.WorkDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject output_dir equal to work_dir")
	}

	exec := &fakeBuild{t: t}
	p := pipeline.New(cfg, nil, pipeline.WithExecutor(exec))
	if _, err := p.Run(context.Background(), pipeline.Request{}); err == nil {
		t.Fatal("expected Run to refuse the overlapping layout")
	}
	if len(exec.attempts) != 0 {
		t.Fatalf("expected no build attempts, got %v", exec.attempts)
	}
	cached := filepath.Join(cfg.Paths.SourcesDir, "ffmpeg-"+cfg.Source.DefaultVersion, "configure")
	for _, path := range []string{cached, cfg.Paths.DecodersFile} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
}
