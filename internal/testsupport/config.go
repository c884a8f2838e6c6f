package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ffbuild/internal/config"
	"ffbuild/internal/toolchain"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// FakeHostTag is the prebuilt host directory used by WithFakeNDK.
const FakeHostTag = "linux-x86_64"

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	work := filepath.Join(base, "work")
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = work
	cfgVal.Paths.SourcesDir = filepath.Join(work, "sources")
	cfgVal.Paths.BuildDir = filepath.Join(work, "build")
	cfgVal.Paths.OutputDir = filepath.Join(work, "output")
	cfgVal.Paths.StatsDir = filepath.Join(work, "stats")
	cfgVal.Paths.DecodersFile = filepath.Join(work, "ffmpeg-decoders")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.NDK.Home = filepath.Join(base, "ndk")
	cfgVal.NDK.HostTag = FakeHostTag
	cfgVal.History.Path = filepath.Join(base, "logs", "history.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFakeNDK lays out an NDK tree whose prebuilt toolchain holds an
// executable clang stub for every configured target.
func WithFakeNDK() ConfigOption {
	return func(b *configBuilder) {
		targets, err := b.cfg.BuildTargets()
		if err != nil {
			b.t.Fatalf("build targets: %v", err)
		}
		for _, tgt := range targets {
			tc, err := toolchain.Resolve(b.cfg.NDK.Home, b.cfg.NDK.HostTag, tgt)
			if err != nil {
				b.t.Fatalf("resolve toolchain: %v", err)
			}
			if err := os.MkdirAll(tc.Sysroot, 0o755); err != nil {
				b.t.Fatalf("mkdir sysroot: %v", err)
			}
			writeStub(b.t, tc.CC)
		}
	}
}

// WithDecoders writes the decoder allowlist file.
func WithDecoders(names ...string) ConfigOption {
	return func(b *configBuilder) {
		path := b.cfg.Paths.DecodersFile
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.t.Fatalf("mkdir decoders dir: %v", err)
		}
		content := strings.Join(names, "\n")
		if content != "" {
			content += "\n"
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write decoders file: %v", err)
		}
	}
}

// WithContinueOnError toggles the multi-ABI failure policy.
func WithContinueOnError(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Build.ContinueOnError = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, make is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"make"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			writeStub(b.t, filepath.Join(binDir, name))
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

func writeStub(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for stub %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
