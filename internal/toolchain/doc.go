// Package toolchain maps Android targets to NDK LLVM toolchain paths.
//
// Per-ABI naming differences live in a descriptor table instead of
// branching code: binutils machine, optional clang machine override, triple
// OS suffix, and ABI-specific compiler/configure flags. Resolve combines a
// descriptor with an NDK root, a host tag, and an API level into the
// cross-prefix and compiler paths FFmpeg's configure expects.
package toolchain
