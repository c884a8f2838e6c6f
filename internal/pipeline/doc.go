// Package pipeline orchestrates a full ffbuild run.
//
// A run takes the workspace lock, resets the derived directories, resolves
// the FFmpeg source tree once and reads the decoder list once. Each target is
// then built in order: toolchain resolution, configure and make, the text
// relocation scan, and library installation. Headers are installed from the
// first target that completed. Every run gets a UUID that tags its log lines
// and its history rows.
package pipeline
