package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/config"
	"ffbuild/internal/logging"
)

// Kind selects how a source tree is obtained.
type Kind string

const (
	// KindTag fetches a released tarball. Trees are cached forever.
	KindTag Kind = "tag"
	// KindBranch force-pulls a branch of the shared git clone.
	KindBranch Kind = "branch"
)

const (
	treePrefix = "ffmpeg-"
	gitDirName = "ffmpeg-git"
)

// ParseKind maps a command-line word to a Kind. Unknown words yield "".
func ParseKind(value string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindTag:
		return KindTag
	case KindBranch:
		return KindBranch
	default:
		return ""
	}
}

// Request names the source tree a run should build from.
type Request struct {
	Kind Kind
	Ref  string
}

// Tree is a resolved source directory.
type Tree struct {
	Kind Kind
	Ref  string
	Dir  string
	// Commit is the checked out hash for branch trees.
	Commit string
	// Fetched reports whether the network was used to produce the tree.
	Fetched bool
}

// Cached describes a tree already present under the sources directory.
type Cached struct {
	Kind   Kind
	Ref    string
	Dir    string
	Commit string
}

// Downloader fetches a URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Repo performs the git operations needed for branch trees.
type Repo interface {
	Clone(ctx context.Context, dir, url, remote string) error
	// Sync force-fetches remote, checks out branch and hard-resets it to the
	// remote tip, returning the resulting commit hash.
	Sync(ctx context.Context, dir, remote, branch string) (string, error)
	Head(dir string) (string, error)
}

// Option configures the provider.
type Option func(*Provider)

// WithDownloader injects a custom downloader (primarily for tests).
func WithDownloader(d Downloader) Option {
	return func(p *Provider) {
		if d != nil {
			p.downloader = d
		}
	}
}

// WithRepo injects a custom git implementation (primarily for tests).
func WithRepo(r Repo) Option {
	return func(p *Provider) {
		if r != nil {
			p.repo = r
		}
	}
}

// Provider resolves FFmpeg source trees inside the sources directory.
type Provider struct {
	sourcesDir     string
	releaseBaseURL string
	archiveFormat  string
	gitURL         string
	gitRemote      string
	defaultVersion string
	downloader     Downloader
	repo           Repo
	logger         *slog.Logger
}

// New constructs a provider bound to the configured source settings.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		sourcesDir:     cfg.Paths.SourcesDir,
		releaseBaseURL: strings.TrimRight(cfg.Source.ReleaseBaseURL, "/"),
		archiveFormat:  cfg.Source.ArchiveFormat,
		gitURL:         cfg.Source.GitURL,
		gitRemote:      cfg.Source.GitRemote,
		defaultVersion: cfg.Source.DefaultVersion,
		downloader:     newGrabDownloader(),
		repo:           goGitRepo{},
		logger:         logging.NewComponentLogger(logger, "source"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve normalizes req: an unknown kind, or a tag without a version,
// falls back to the default release.
func (p *Provider) Resolve(req Request) Request {
	ref := strings.TrimSpace(req.Ref)
	switch req.Kind {
	case KindBranch:
		return Request{Kind: KindBranch, Ref: ref}
	case KindTag:
		if ref != "" {
			return Request{Kind: KindTag, Ref: ref}
		}
	}
	return Request{Kind: KindTag, Ref: p.defaultVersion}
}

// Ensure makes the requested tree available locally and returns its location.
func (p *Provider) Ensure(ctx context.Context, req Request) (Tree, error) {
	req = p.Resolve(req)
	if err := os.MkdirAll(p.sourcesDir, 0o755); err != nil {
		return Tree{}, fmt.Errorf("create sources directory: %w", err)
	}
	switch req.Kind {
	case KindBranch:
		return p.ensureBranch(ctx, req.Ref)
	default:
		return p.ensureTag(ctx, req.Ref)
	}
}

// TagDir returns the cache directory for a release version.
func (p *Provider) TagDir(version string) string {
	return filepath.Join(p.sourcesDir, treePrefix+version)
}

// GitDir returns the location of the shared git clone.
func (p *Provider) GitDir() string {
	return filepath.Join(p.sourcesDir, gitDirName)
}

// List reports cached trees: release trees ordered by version, then the git clone.
func (p *Provider) List() ([]Cached, error) {
	entries, err := os.ReadDir(p.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sources directory: %w", err)
	}

	type tagTree struct {
		version *semver.Version
		cached  Cached
	}
	var tags []tagTree
	var git *Cached
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(p.sourcesDir, name)
		if name == gitDirName {
			commit, err := p.repo.Head(dir)
			if err != nil {
				p.logger.Debug("git clone head unavailable", logging.String("dir", dir), logging.Error(err))
			}
			git = &Cached{Kind: KindBranch, Dir: dir, Commit: commit}
			continue
		}
		if !strings.HasPrefix(name, treePrefix) {
			continue
		}
		ref := strings.TrimPrefix(name, treePrefix)
		v, err := semver.NewVersion(ref)
		if err != nil {
			continue
		}
		tags = append(tags, tagTree{version: v, cached: Cached{Kind: KindTag, Ref: ref, Dir: dir}})
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].version.LessThan(tags[j].version) })
	out := make([]Cached, 0, len(tags)+1)
	for _, t := range tags {
		out = append(out, t.cached)
	}
	if git != nil {
		out = append(out, *git)
	}
	return out, nil
}

func validateVersion(version string) error {
	if _, err := semver.NewVersion(version); err != nil {
		return buildexec.Wrap(buildexec.ErrConfiguration, "source", "validate tag", fmt.Sprintf("%q is not a release version", version), err)
	}
	if strings.ContainsAny(version, `/\`) {
		return buildexec.Wrap(buildexec.ErrConfiguration, "source", "validate tag", fmt.Sprintf("%q contains a path separator", version), nil)
	}
	return nil
}
