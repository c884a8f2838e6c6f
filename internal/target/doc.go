// Package target enumerates the Android ABIs ffbuild supports and the
// (ABI, API level) pairs that drive toolchain and flag computation.
package target
