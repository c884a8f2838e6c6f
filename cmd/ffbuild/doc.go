// Command ffbuild cross-compiles FFmpeg shared libraries for Android ABIs.
//
// The build subcommand fetches a release tarball or a git branch, runs
// FFmpeg's configure and make once per configured ABI against the Android
// NDK, and collects the libraries and headers under the output directory.
// Supporting subcommands inspect targets, verify the environment, list
// cached sources, and show the run history.
package main
