package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"ffbuild/internal/toolchain"
)

// CheckExecutable reports whether path is an executable file.
func CheckExecutable(name, path, description string, optional bool) Status {
	status := Status{
		Name:        name,
		Command:     path,
		Description: description,
		Optional:    optional,
	}
	info, err := os.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		status.Detail = fmt.Sprintf("%s not found", path)
	case err != nil:
		status.Detail = fmt.Sprintf("stat %s: %v", path, err)
	case !isExecutable(info):
		status.Detail = fmt.Sprintf("%s is not executable", path)
	default:
		status.Path = path
		status.Available = true
	}
	return status
}

// CheckToolchain verifies the NDK binaries one target compiles with.
func CheckToolchain(tc toolchain.Toolchain) []Status {
	abi := tc.Target.String()
	results := []Status{
		CheckExecutable(abi+" compiler", tc.CC, "Clang wrapper for "+abi, false),
	}

	sysroot := Status{Name: abi + " sysroot", Command: tc.Sysroot, Description: "NDK sysroot headers and libraries"}
	if info, err := os.Stat(tc.Sysroot); err == nil && info.IsDir() {
		sysroot.Available = true
		sysroot.Path = tc.Sysroot
	} else {
		sysroot.Detail = fmt.Sprintf("%s not found", tc.Sysroot)
	}
	results = append(results, sysroot)

	for _, flag := range tc.ExtraConfigureFlags {
		if asm, ok := strings.CutPrefix(flag, "--x86asmexe="); ok && asm != "" {
			// Only older NDKs bundle yasm.
			results = append(results, CheckExecutable(abi+" assembler", filepath.FromSlash(asm), "x86 assembler bundled with the NDK", true))
		}
	}
	return results
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
