// Package buildexec runs external build tools as fallible steps.
//
// Every subprocess (configure, make) goes through an Executor and comes back
// as an Outcome carrying the command line, working directory, duration, exit
// status, and the last lines of output. Failed outcomes convert into
// *StepError values that unwrap to ErrExternalTool, so callers can classify
// failures with errors.Is and decide per step whether to halt or continue.
package buildexec
