package toolchain

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ffbuild/internal/target"
)

func TestResolveMatchesPerABIMapping(t *testing.T) {
	ndk := filepath.Join("/opt", "ndk")
	dir := filepath.Join(ndk, "toolchains", "llvm", "prebuilt", "linux-x86_64")
	bin := filepath.Join(dir, "bin")

	tests := []struct {
		target      target.Target
		arch        string
		crossPrefix string
		cc          string
		cflags      []string
		configure   []string
	}{
		{
			target:      target.Target{ABI: target.ArmeabiV7a, APILevel: 16},
			arch:        "arm",
			crossPrefix: filepath.Join(bin, "arm-linux-androideabi-"),
			cc:          filepath.Join(bin, "armv7a-linux-androideabi16-clang"),
		},
		{
			target:      target.Target{ABI: target.Arm64V8a, APILevel: 21},
			arch:        "aarch64",
			crossPrefix: filepath.Join(bin, "aarch64-linux-android-"),
			cc:          filepath.Join(bin, "aarch64-linux-android21-clang"),
		},
		{
			target:      target.Target{ABI: target.X86, APILevel: 16},
			arch:        "i686",
			crossPrefix: filepath.Join(bin, "i686-linux-android-"),
			cc:          filepath.Join(bin, "i686-linux-android16-clang"),
			cflags:      []string{"-mno-stackrealign"},
			configure:   []string{"--disable-asm"},
		},
		{
			target:      target.Target{ABI: target.X86_64, APILevel: 21},
			arch:        "x86_64",
			crossPrefix: filepath.Join(bin, "x86_64-linux-android-"),
			cc:          filepath.Join(bin, "x86_64-linux-android21-clang"),
			configure:   []string{"--x86asmexe=" + filepath.ToSlash(dir) + "/bin/yasm"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.target.ABI.String(), func(t *testing.T) {
			got, err := Resolve(ndk, "linux-x86_64", tc.target)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Arch != tc.arch {
				t.Fatalf("arch = %q, want %q", got.Arch, tc.arch)
			}
			if got.CrossPrefix != tc.crossPrefix {
				t.Fatalf("cross prefix = %q, want %q", got.CrossPrefix, tc.crossPrefix)
			}
			if got.CC != tc.cc {
				t.Fatalf("cc = %q, want %q", got.CC, tc.cc)
			}
			if got.Sysroot != filepath.Join(dir, "sysroot") {
				t.Fatalf("unexpected sysroot %q", got.Sysroot)
			}
			if diff := cmp.Diff(tc.cflags, got.ExtraCFlags); diff != "" {
				t.Fatalf("extra cflags mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.configure, got.ExtraConfigureFlags); diff != "" {
				t.Fatalf("extra configure mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompilerMachineFallsBackToBinutils(t *testing.T) {
	arm64, err := Lookup(target.Arm64V8a)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if arm64.CCMachine != "" {
		t.Fatalf("arm64 should not override the compiler machine")
	}
	if arm64.CompilerMachine() != "aarch64" {
		t.Fatalf("expected fallback to binutils machine, got %q", arm64.CompilerMachine())
	}
	armv7, _ := Lookup(target.ArmeabiV7a)
	if armv7.CompilerMachine() != "armv7a" {
		t.Fatalf("expected armv7a override, got %q", armv7.CompilerMachine())
	}
}

func TestResolveWindowsUsesCmdWrapper(t *testing.T) {
	got, err := Resolve("/ndk", "windows-x86_64", target.Target{ABI: target.Arm64V8a, APILevel: 21})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(got.CC, "aarch64-linux-android21-clang.cmd") {
		t.Fatalf("expected .cmd wrapper, got %q", got.CC)
	}
}

func TestResolveRejectsMissingInputs(t *testing.T) {
	tgt := target.Target{ABI: target.X86, APILevel: 16}
	if _, err := Resolve("", "linux-x86_64", tgt); err == nil {
		t.Fatal("expected error for empty ndk root")
	}
	if _, err := Resolve("/ndk", "", tgt); err == nil {
		t.Fatal("expected error for empty host tag")
	}
	if _, err := Resolve("/ndk", "linux-x86_64", target.Target{ABI: target.X86}); err == nil {
		t.Fatal("expected error for missing api level")
	}
	if _, err := Resolve("/ndk", "linux-x86_64", target.Target{ABI: 99, APILevel: 21}); err == nil {
		t.Fatal("expected error for unknown abi")
	}
}

func TestHostTag(t *testing.T) {
	tests := []struct {
		goos, goarch, want string
	}{
		{"darwin", "arm64", "darwin-x86_64"},
		{"linux", "amd64", "linux-x86_64"},
		{"windows", "amd64", "windows-x86_64"},
		{"windows", "386", "windows"},
	}
	for _, tc := range tests {
		got, err := HostTag(tc.goos, tc.goarch)
		if err != nil {
			t.Fatalf("HostTag(%s/%s): %v", tc.goos, tc.goarch, err)
		}
		if got != tc.want {
			t.Fatalf("HostTag(%s/%s) = %q, want %q", tc.goos, tc.goarch, got, tc.want)
		}
	}
	if _, err := HostTag("plan9", "amd64"); err == nil {
		t.Fatal("expected error for unsupported host")
	}
	if tag, _ := CurrentHostTag(" custom "); tag != "custom" {
		t.Fatalf("override ignored: %q", tag)
	}
}
