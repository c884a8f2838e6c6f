package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cavaliercoder/grab"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/fileutil"
	"ffbuild/internal/logging"
)

// ReleaseURL returns the tarball URL for version.
func (p *Provider) ReleaseURL(version string) string {
	return fmt.Sprintf("%s/%s%s.%s", p.releaseBaseURL, treePrefix, version, p.archiveFormat)
}

func (p *Provider) ensureTag(ctx context.Context, version string) (Tree, error) {
	if err := validateVersion(version); err != nil {
		return Tree{}, err
	}
	dir := p.TagDir(version)
	tree := Tree{Kind: KindTag, Ref: version, Dir: dir}
	if fileutil.DirExists(dir) {
		p.logger.Info("using cached source tree", logging.String("version", version), logging.String("dir", dir))
		return tree, nil
	}

	url := p.ReleaseURL(version)
	archive := filepath.Join(p.sourcesDir, fmt.Sprintf("%s%s.%s", treePrefix, version, p.archiveFormat))
	p.logger.Info("downloading release", logging.String("version", version), logging.String("url", url))
	if err := p.downloader.Download(ctx, url, archive); err != nil {
		_ = os.Remove(archive)
		return Tree{}, err
	}
	defer func() {
		if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
			p.logger.Debug("remove archive", logging.String("path", archive), logging.Error(err))
		}
	}()

	// Extract next to the final location so the rename stays on one filesystem.
	tmp, err := os.MkdirTemp(p.sourcesDir, "."+treePrefix+version+"-*.tmp")
	if err != nil {
		return Tree{}, fmt.Errorf("create extraction directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			p.logger.Debug("remove extraction directory", logging.String("path", tmp), logging.Error(err))
		}
	}()

	if err := extractArchive(ctx, archive, p.archiveFormat, tmp); err != nil {
		return Tree{}, buildexec.Wrap(buildexec.ErrExternalTool, "source", "extract", filepath.Base(archive), err)
	}
	root, err := archiveRoot(tmp)
	if err != nil {
		return Tree{}, err
	}
	if err := os.Rename(root, dir); err != nil {
		return Tree{}, fmt.Errorf("move source tree into place: %w", err)
	}

	tree.Fetched = true
	p.logger.Info("source tree ready", logging.String("version", version), logging.String("dir", dir))
	return tree, nil
}

// archiveRoot returns the single top-level directory of an extracted
// release, or dir itself when the archive was flat.
func archiveRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read extraction directory: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	if len(entries) == 0 {
		return "", buildexec.Wrap(buildexec.ErrExternalTool, "source", "extract", "archive is empty", nil)
	}
	return dir, nil
}

type grabDownloader struct {
	client *grab.Client
}

func newGrabDownloader() grabDownloader {
	return grabDownloader{client: grab.NewClient()}
}

func (d grabDownloader) Download(ctx context.Context, url, dest string) error {
	req, err := grab.NewRequest(dest, url)
	if err != nil {
		return buildexec.Wrap(buildexec.ErrConfiguration, "source", "download", url, err)
	}
	req = req.WithContext(ctx)
	resp := d.client.Do(req)
	if err := resp.Err(); err != nil {
		if resp.HTTPResponse != nil && resp.HTTPResponse.StatusCode == http.StatusNotFound {
			return buildexec.Wrap(buildexec.ErrNotFound, "source", "download", url, err)
		}
		return buildexec.Wrap(buildexec.ErrNetwork, "source", "download", url, err)
	}
	return nil
}
