package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"ffbuild/internal/buildexec"
	"ffbuild/internal/fileutil"
	"ffbuild/internal/logging"
)

func (p *Provider) ensureBranch(ctx context.Context, branch string) (Tree, error) {
	if branch == "" {
		return Tree{}, buildexec.Wrap(buildexec.ErrConfiguration, "source", "branch", "branch name is required", nil)
	}
	dir := p.GitDir()
	fetched := false
	if !fileutil.DirExists(dir) {
		p.logger.Info("cloning repository", logging.String("url", p.gitURL), logging.String("dir", dir))
		if err := p.repo.Clone(ctx, dir, p.gitURL, p.gitRemote); err != nil {
			_ = os.RemoveAll(dir)
			return Tree{}, err
		}
		fetched = true
	}

	p.logger.Info("updating branch", logging.String("branch", branch), logging.String("remote", p.gitRemote))
	commit, err := p.repo.Sync(ctx, dir, p.gitRemote, branch)
	if err != nil {
		return Tree{}, err
	}
	p.logger.Info("source tree ready",
		logging.String("branch", branch),
		logging.String("commit", commit),
		logging.Bool("cloned", fetched),
	)
	return Tree{Kind: KindBranch, Ref: branch, Dir: dir, Commit: commit, Fetched: true}, nil
}

type goGitRepo struct{}

func (goGitRepo) Clone(ctx context.Context, dir, url, remote string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:        url,
		RemoteName: remote,
	})
	if err != nil {
		return buildexec.Wrap(buildexec.ErrNetwork, "source", "clone", url, err)
	}
	return nil
}

func (goGitRepo) Sync(ctx context.Context, dir, remote, branch string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("open git clone: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", buildexec.Wrap(buildexec.ErrNetwork, "source", "fetch", remote, err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", buildexec.Wrap(buildexec.ErrNotFound, "source", "checkout", fmt.Sprintf("branch %q does not exist on %s", branch, remote), err)
		}
		return "", fmt.Errorf("resolve remote branch: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	local := plumbing.NewBranchReferenceName(branch)
	_, localErr := repo.Reference(local, false)
	checkout := &git.CheckoutOptions{Branch: local, Force: true}
	if localErr != nil {
		checkout.Create = true
		checkout.Hash = remoteRef.Hash()
	}
	if err := wt.Checkout(checkout); err != nil {
		return "", buildexec.Wrap(buildexec.ErrExternalTool, "source", "checkout", branch, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return "", buildexec.Wrap(buildexec.ErrExternalTool, "source", "reset", branch, err)
	}
	return remoteRef.Hash().String(), nil
}

func (goGitRepo) Head(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
