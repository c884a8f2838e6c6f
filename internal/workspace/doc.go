// Package workspace owns the on-disk layout of a build run: it resets the
// derived directories before each run and serialises runs on the same work
// directory with a gofrs/flock lock file.
package workspace
