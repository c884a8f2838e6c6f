package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and its parents, holding size bytes of filler.
// Sizes below one write a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'F'}, int(max(size, 1))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// InstallTree mimics `make install` into prefix: each named library lands in
// lib/ and one header per library lands in include/<lib>/.
func InstallTree(t testing.TB, prefix string, libs ...string) {
	t.Helper()
	for _, lib := range libs {
		WriteFile(t, filepath.Join(prefix, "lib", lib+".so"), 128)
		WriteFile(t, filepath.Join(prefix, "include", lib, lib[len("lib"):]+".h"), 32)
	}
}
