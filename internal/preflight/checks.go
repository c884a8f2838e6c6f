package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"ffbuild/internal/ffconfigure"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckNDK verifies the NDK root is set and readable.
func CheckNDK(home string) Result {
	const name = "Android NDK"
	if home == "" {
		return Result{Name: name, Detail: "not configured (set ndk.home or ANDROID_NDK_HOME)"}
	}
	info, err := os.Stat(home)
	if err != nil || !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a directory)", home)}
	}
	if err := unix.Access(home, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", home, err)}
	}
	return Result{Name: name, Passed: true, Detail: home}
}

// CheckDecoders verifies the decoder allowlist can be read.
func CheckDecoders(path string) Result {
	const name = "Decoder list"
	names, err := ffconfigure.ReadDecoders(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(names) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no decoders enabled)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d decoders)", path, len(names))}
}
