// Package fileutil holds the file and directory copy helpers used when
// collecting build artifacts and resetting derived workspace directories.
package fileutil
