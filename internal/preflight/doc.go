// Package preflight verifies the build environment before any compilation
// starts.
//
// RunAll checks the work directory, the NDK root, every target's compiler
// and sysroot, the make binary, and the decoder list. The build command
// aborts on Failures; the check command renders every Result.
package preflight
