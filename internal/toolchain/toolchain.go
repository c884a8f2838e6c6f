package toolchain

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"ffbuild/internal/target"
)

// Descriptor holds the per-ABI naming rules for NDK toolchain binaries.
type Descriptor struct {
	// BinutilsMachine is the machine part of the binutils triple and the
	// value passed to configure --arch.
	BinutilsMachine string
	// CCMachine overrides the machine used in the clang wrapper name. Empty
	// means the binutils machine is used.
	CCMachine string
	// OS is the triple suffix: androideabi for ARMv7, android otherwise.
	OS string
	// ExtraCFlags are appended to --extra-cflags.
	ExtraCFlags []string
	// ExtraConfigure are extra configure flags. The token {toolchain} is
	// replaced with the resolved toolchain directory.
	ExtraConfigure []string
}

// CompilerMachine returns the clang machine name, falling back to the binutils machine.
func (d Descriptor) CompilerMachine() string {
	if d.CCMachine != "" {
		return d.CCMachine
	}
	return d.BinutilsMachine
}

const toolchainToken = "{toolchain}"

var descriptors = map[target.ABI]Descriptor{
	target.ArmeabiV7a: {
		BinutilsMachine: "arm",
		CCMachine:       "armv7a",
		OS:              "androideabi",
	},
	target.Arm64V8a: {
		BinutilsMachine: "aarch64",
		OS:              "android",
	},
	target.X86: {
		BinutilsMachine: "i686",
		OS:              "android",
		ExtraCFlags:     []string{"-mno-stackrealign"},
		ExtraConfigure:  []string{"--disable-asm"},
	},
	target.X86_64: {
		BinutilsMachine: "x86_64",
		OS:              "android",
		ExtraConfigure:  []string{"--x86asmexe=" + toolchainToken + "/bin/yasm"},
	},
}

// Lookup returns the descriptor for abi.
func Lookup(abi target.ABI) (Descriptor, error) {
	d, ok := descriptors[abi]
	if !ok {
		return Descriptor{}, fmt.Errorf("no toolchain descriptor for %s", abi)
	}
	return d, nil
}

// Toolchain is the resolved set of paths and flags for one target.
type Toolchain struct {
	Target              target.Target
	HostTag             string
	Dir                 string
	Sysroot             string
	Arch                string
	OS                  string
	CrossPrefix         string
	CC                  string
	ExtraCFlags         []string
	ExtraConfigureFlags []string
}

// Resolve computes toolchain paths for t inside the NDK at ndkRoot.
func Resolve(ndkRoot, hostTag string, t target.Target) (Toolchain, error) {
	ndkRoot = strings.TrimSpace(ndkRoot)
	if ndkRoot == "" {
		return Toolchain{}, errors.New("android ndk location is not set (configure ndk.home or ANDROID_NDK_HOME)")
	}
	hostTag = strings.TrimSpace(hostTag)
	if hostTag == "" {
		return Toolchain{}, errors.New("ndk host tag is empty")
	}
	if t.APILevel <= 0 {
		return Toolchain{}, fmt.Errorf("%s: api level must be positive", t.ABI)
	}
	desc, err := Lookup(t.ABI)
	if err != nil {
		return Toolchain{}, err
	}

	dir := filepath.Join(ndkRoot, "toolchains", "llvm", "prebuilt", hostTag)
	bin := filepath.Join(dir, "bin")

	cc := fmt.Sprintf("%s-linux-%s%d-clang", desc.CompilerMachine(), desc.OS, t.APILevel)
	if strings.HasPrefix(hostTag, "windows") {
		cc += ".cmd"
	}

	var extraConfigure []string
	for _, flag := range desc.ExtraConfigure {
		extraConfigure = append(extraConfigure, strings.ReplaceAll(flag, toolchainToken, filepath.ToSlash(dir)))
	}

	return Toolchain{
		Target:              t,
		HostTag:             hostTag,
		Dir:                 dir,
		Sysroot:             filepath.Join(dir, "sysroot"),
		Arch:                desc.BinutilsMachine,
		OS:                  desc.OS,
		CrossPrefix:         filepath.Join(bin, fmt.Sprintf("%s-linux-%s-", desc.BinutilsMachine, desc.OS)),
		CC:                  filepath.Join(bin, cc),
		ExtraCFlags:         append([]string(nil), desc.ExtraCFlags...),
		ExtraConfigureFlags: extraConfigure,
	}, nil
}

// HostTag maps a Go OS/arch pair to the NDK prebuilt directory name.
func HostTag(goos, goarch string) (string, error) {
	switch goos {
	case "darwin":
		return "darwin-x86_64", nil
	case "linux":
		return "linux-x86_64", nil
	case "windows":
		if goarch == "386" {
			return "windows", nil
		}
		return "windows-x86_64", nil
	default:
		return "", fmt.Errorf("no android ndk prebuilt toolchain for host %s/%s", goos, goarch)
	}
}

// CurrentHostTag returns override when set, otherwise the tag for the running host.
func CurrentHostTag(override string) (string, error) {
	if tag := strings.TrimSpace(override); tag != "" {
		return tag, nil
	}
	return HostTag(runtime.GOOS, runtime.GOARCH)
}
