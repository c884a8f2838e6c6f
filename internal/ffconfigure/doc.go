// Package ffconfigure assembles FFmpeg's configure flags and runs the
// configure, clean, build and install steps for one Android target.
//
// Args is a pure function of its Params so the flag list can be checked
// without running anything. Invoker executes the four steps through a
// buildexec.Executor and stops at the first failure.
package ffconfigure
