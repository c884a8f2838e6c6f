package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ffbuild/internal/config"
	"ffbuild/internal/history"
	"ffbuild/internal/testsupport"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"ANDROID_NDK_HOME", "ANDROID_NDK_ROOT", "NDK_HOME", "ANDROID_NDK"} {
		t.Setenv(name, "")
	}
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "ffbuild.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// seedFakeSources places a cached release tree whose configure script records
// the install prefix, and a make that installs one library and header there.
func seedFakeSources(t *testing.T, cfg *config.Config) {
	t.Helper()
	tree := filepath.Join(cfg.Paths.SourcesDir, "ffmpeg-"+cfg.Source.DefaultVersion)
	writeScript(t, filepath.Join(tree, "configure"), `for arg in "$@"; do
  case "$arg" in
    --prefix=*) echo "${arg#--prefix=}" > .prefix ;;
  esac
done
echo "configured"
`)
	makeBin := filepath.Join(testsupport.BaseDir(cfg), "tools", "make")
	writeScript(t, makeBin, `if [ "$1" = "install" ]; then
  prefix=$(cat .prefix)
  mkdir -p "$prefix/lib" "$prefix/include/libavutil"
  echo lib > "$prefix/lib/libavutil.so"
  echo header > "$prefix/include/libavutil/avutil.h"
fi
`)
	cfg.Build.MakeBinary = makeBin
}

func TestConfigInitWritesSample(t *testing.T) {
	isolateEnv(t)
	dest := filepath.Join(t.TempDir(), "conf", "ffbuild.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", dest)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, dest) {
		t.Fatalf("expected destination in output, got %q", out)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", dest); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", dest, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowReportsDefaults(t *testing.T) {
	isolateEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.toml")
	chdir(t, t.TempDir())

	out, _, err := runCLI(t, missing, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "defaults were used") {
		t.Fatalf("expected defaults note, got:\n%s", out)
	}
	if !strings.Contains(out, `default_version = '4.1.3'`) && !strings.Contains(out, `default_version = "4.1.3"`) {
		t.Fatalf("expected encoded default version, got:\n%s", out)
	}
}

func TestTargetsListsToolchains(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "targets")
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	for _, want := range []string{
		"armv7a-linux-androideabi16-clang",
		"aarch64-linux-android21-clang",
		"i686-linux-android-",
		"--disable-asm",
		"--x86asmexe=$TOOLCHAIN/bin/yasm",
		"Host tag: " + testsupport.FakeHostTag,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("targets output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckReportsMissingNDK(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t, testsupport.WithDecoders("h264"), testsupport.WithStubbedBinaries())
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "check")
	if err == nil {
		t.Fatal("expected check to fail without an NDK")
	}
	if !strings.Contains(out, "Android NDK") || !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected NDK error line, got:\n%s", out)
	}
	if strings.Contains(out, "Ready to build") {
		t.Fatalf("unexpected ready message:\n%s", out)
	}
}

func TestCheckPassesWithFakeNDK(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithFakeNDK(),
		testsupport.WithDecoders("h264", "aac"),
		testsupport.WithStubbedBinaries(),
	)
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ready to build") {
		t.Fatalf("expected ready message, got:\n%s", out)
	}
	if !strings.Contains(out, "(2 decoders)") {
		t.Fatalf("expected decoder count, got:\n%s", out)
	}
}

func TestBuildInstallsArtifactsAndRecordsHistory(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t, testsupport.WithFakeNDK(), testsupport.WithDecoders("h264"))
	seedFakeSources(t, cfg)
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "build", "tag", cfg.Source.DefaultVersion, "--abi", "arm64-v8a", "--abi", "x86")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	for _, abi := range []string{"arm64-v8a", "x86"} {
		lib := filepath.Join(cfg.Paths.OutputDir, "lib", abi, "libavutil.so")
		if _, err := os.Stat(lib); err != nil {
			t.Fatalf("expected %s: %v", lib, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "include", "libavutil", "avutil.h")); err != nil {
		t.Fatalf("expected installed headers: %v", err)
	}
	if !strings.Contains(out, string(history.StatusSucceeded)) {
		t.Fatalf("expected summary table, got:\n%s", out)
	}

	out, _, err = runCLI(t, path, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "tag "+cfg.Source.DefaultVersion) || !strings.Contains(out, "2/2") {
		t.Fatalf("expected recorded run, got:\n%s", out)
	}

	out, _, err = runCLI(t, path, "sources")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if !strings.Contains(out, cfg.Source.DefaultVersion) {
		t.Fatalf("expected cached tree listed, got:\n%s", out)
	}
}

func TestBuildRejectsUnknownABI(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, path, "build", "--abi", "mips")
	if err == nil || !strings.Contains(err.Error(), "mips") {
		t.Fatalf("expected unknown ABI error, got %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, path, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestParseSourceArgs(t *testing.T) {
	tests := []struct {
		args []string
		kind string
		ref  string
	}{
		{nil, "", ""},
		{[]string{"tag", "6.1"}, "tag", "6.1"},
		{[]string{"branch", "master"}, "branch", "master"},
		{[]string{"branch"}, "branch", ""},
		{[]string{"nightly", "x"}, "", ""},
		{[]string{"foo", "bar", "baz"}, "", ""},
		{[]string{"tag", "6.1", "extra"}, "tag", "6.1"},
	}
	for _, tc := range tests {
		req := parseSourceArgs(tc.args)
		if string(req.Kind) != tc.kind || req.Ref != tc.ref {
			t.Fatalf("parseSourceArgs(%v) = %+v, want kind=%q ref=%q", tc.args, req, tc.kind, tc.ref)
		}
	}
}

func TestBuildAcceptsAnyArgumentCount(t *testing.T) {
	cmd := newBuildCommand(newCommandContext(nil))
	for _, args := range [][]string{nil, {"tag", "6.1"}, {"foo", "bar", "baz"}} {
		if err := cmd.ValidateArgs(args); err != nil {
			t.Fatalf("ValidateArgs(%v) = %v", args, err)
		}
	}
}

// chdir stands in for testing.T.Chdir (added in Go 1.24) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
