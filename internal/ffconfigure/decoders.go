package ffconfigure

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"ffbuild/internal/buildexec"
)

// ReadDecoders loads the decoder allowlist. Blank lines and lines starting
// with # are skipped; order is preserved.
func ReadDecoders(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, buildexec.Wrap(buildexec.ErrNotFound, "ffconfigure", "read decoders", path, err)
		}
		return nil, buildexec.Wrap(buildexec.ErrConfiguration, "ffconfigure", "read decoders", path, err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan decoders file: %w", err)
	}
	return names, nil
}

// DecoderFlags expands decoder names into one --enable-decoder flag each.
func DecoderFlags(names []string) []string {
	flags := make([]string, 0, len(names))
	for _, name := range names {
		flags = append(flags, "--enable-decoder="+name)
	}
	return flags
}
