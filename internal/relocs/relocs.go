package relocs

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ffbuild/internal/buildexec"
)

// Finding is the text relocation status of one shared object.
type Finding struct {
	Name string
	Path string
	// TextRel is set when the dynamic section carries DT_TEXTREL.
	TextRel bool
	// FlagTextRel is set when DT_FLAGS contains DF_TEXTREL.
	FlagTextRel bool
	// Err is non-nil when the file could not be read as ELF.
	Err error
}

// HasTextRelocations reports whether either marker is present.
func (f Finding) HasTextRelocations() bool {
	return f.TextRel || f.FlagTextRel
}

// Scan inspects every *.so in libDir. Files that are not ELF are returned
// with Err set rather than failing the scan.
func Scan(libDir string) ([]Finding, error) {
	matches, err := filepath.Glob(filepath.Join(libDir, "*.so"))
	if err != nil {
		return nil, fmt.Errorf("list shared objects: %w", err)
	}
	if len(matches) == 0 {
		if _, statErr := os.Stat(libDir); statErr != nil {
			return nil, buildexec.Wrap(buildexec.ErrNotFound, "relocs", "scan", libDir, statErr)
		}
	}
	sort.Strings(matches)

	findings := make([]Finding, 0, len(matches))
	for _, path := range matches {
		findings = append(findings, inspect(path))
	}
	return findings, nil
}

// Flagged returns the findings that carry text relocations.
func Flagged(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.HasTextRelocations() {
			out = append(out, f)
		}
	}
	return out
}

func inspect(path string) Finding {
	finding := Finding{Name: filepath.Base(path), Path: path}
	f, err := elf.Open(path)
	if err != nil {
		finding.Err = err
		return finding
	}
	defer f.Close()

	textrel, err := f.DynValue(elf.DT_TEXTREL)
	if err != nil {
		finding.Err = err
		return finding
	}
	finding.TextRel = len(textrel) > 0

	flags, err := f.DynValue(elf.DT_FLAGS)
	if err != nil {
		finding.Err = err
		return finding
	}
	for _, v := range flags {
		if v&uint64(elf.DF_TEXTREL) != 0 {
			finding.FlagTextRel = true
		}
	}
	return finding
}

// AppendReport appends a readelf-style block for abi to the report at path.
func AppendReport(path, abi string, findings []Finding) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create stats directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	if _, err := f.WriteString(FormatReport(abi, findings)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// FormatReport renders the report block for abi.
func FormatReport(abi string, findings []Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ABI: %s\n", abi)
	for _, f := range findings {
		fmt.Fprintf(&b, "File: %s\n", f.Path)
		switch {
		case f.Err != nil:
			fmt.Fprintf(&b, "  not an ELF file: %v\n", f.Err)
		case f.TextRel:
			fmt.Fprintf(&b, " 0x%016x (TEXTREL)            0x0\n", uint64(elf.DT_TEXTREL))
		}
		if f.Err == nil && f.FlagTextRel {
			fmt.Fprintf(&b, " 0x%016x (FLAGS)              (TEXTREL)\n", uint64(elf.DT_FLAGS))
		}
	}
	b.WriteString("\n")
	return b.String()
}
