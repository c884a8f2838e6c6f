package source

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

func decompressor(format string, r io.Reader) (io.Reader, func() error, error) {
	switch format {
	case "tar.bz2":
		return bzip2.NewReader(r), func() error { return nil }, nil
	case "tar.xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open xz stream: %w", err)
		}
		return xr, func() error { return nil }, nil
	case "tar.gz":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return gr, gr.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive format %q", format)
	}
}

// extractArchive unpacks a compressed tarball into dir, which must exist.
// Entries may not escape dir.
func extractArchive(ctx context.Context, archive, format, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, closeStream, err := decompressor(format, f)
	if err != nil {
		return err
	}
	defer func() { _ = closeStream() }()

	type link struct {
		path   string
		target string
	}
	var hardlinks, symlinks []link

	tr := tar.NewReader(stream)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if header.Name == "" || header.Name == "./" {
			continue
		}
		path, err := safeJoin(dir, header.Name)
		if err != nil {
			return err
		}
		mode := header.FileInfo().Mode()

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755|mode.Perm()); err != nil {
				return fmt.Errorf("create directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create directory for %s: %w", header.Name, err)
			}
			if err := writeEntry(path, tr, 0o600|mode.Perm()); err != nil {
				return fmt.Errorf("write %s: %w", header.Name, err)
			}
		case tar.TypeLink:
			target, err := safeJoin(dir, header.Linkname)
			if err != nil {
				return err
			}
			hardlinks = append(hardlinks, link{path: path, target: target})
		case tar.TypeSymlink:
			resolved := header.Linkname
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(filepath.Dir(path), resolved)
			}
			if !within(dir, resolved) {
				return fmt.Errorf("symlink %s points outside the archive", header.Name)
			}
			symlinks = append(symlinks, link{path: path, target: header.Linkname})
		}
	}

	for _, l := range hardlinks {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return err
		}
		if err := os.Link(l.target, l.path); err != nil {
			return fmt.Errorf("create hard link %s: %w", l.path, err)
		}
	}
	for _, l := range symlinks {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return err
		}
		if err := os.Symlink(l.target, l.path); err != nil {
			return fmt.Errorf("create symlink %s: %w", l.path, err)
		}
	}
	return nil
}

func writeEntry(path string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(dir, name string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(name))
	if !within(dir, path) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return path, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
