package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/fileutil"
)

// LibDir returns the output directory for abi's libraries.
func LibDir(outputDir, abi string) string {
	return filepath.Join(outputDir, "lib", abi)
}

// IncludeDir returns the shared output header directory.
func IncludeDir(outputDir string) string {
	return filepath.Join(outputDir, "include")
}

// InstallLibs copies build/<abi>/lib/*.so into output/lib/<abi>/ and returns
// the installed file names. Symlinked sonames are copied as regular files.
func InstallLibs(buildDir, outputDir, abi string) ([]string, error) {
	src := filepath.Join(buildDir, abi, "lib")
	matches, err := filepath.Glob(filepath.Join(src, "*.so"))
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	if len(matches) == 0 {
		return nil, buildexec.Wrap(buildexec.ErrNotFound, "artifacts", "install libs", fmt.Sprintf("no shared libraries in %s", src), nil)
	}
	sort.Strings(matches)

	dst := LibDir(outputDir, abi)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("create library directory: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		if err := fileutil.CopyFileVerified(path, filepath.Join(dst, name), 0o755); err != nil {
			return nil, fmt.Errorf("copy %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// InstallHeaders copies build/<abi>/include into output/include, replacing
// any previous header tree. Headers are identical across ABIs, so callers
// install them from a single target.
func InstallHeaders(buildDir, outputDir, abi string) error {
	src := filepath.Join(buildDir, abi, "include")
	if !fileutil.DirExists(src) {
		return buildexec.Wrap(buildexec.ErrNotFound, "artifacts", "install headers", fmt.Sprintf("no header tree in %s", src), nil)
	}
	dst := IncludeDir(outputDir)
	if err := fileutil.ResetDir(dst); err != nil {
		return err
	}
	if err := fileutil.CopyTree(src, dst); err != nil {
		return fmt.Errorf("copy headers: %w", err)
	}
	return nil
}
