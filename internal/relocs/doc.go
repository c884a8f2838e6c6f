// Package relocs detects text relocations in built shared libraries and
// records them in the stats report.
package relocs
