// Package remote fetches test suites that live in git repositories so
// they can be run like a local tests root.
package remote

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Fetcher clones git-hosted suites into temporary directories.
type Fetcher struct {
	Ref     string // branch, tag or commit to check out; empty means the default branch
	TempDir string // parent of the checkouts; empty means os.TempDir()
}

// Match reports whether root names a git repository rather than a
// directory. Accepted forms are "git+<url>", scp-like "git@host:path"
// and http(s) or ssh URLs ending in ".git".
func (f *Fetcher) Match(root string) bool {
	switch {
	case strings.HasPrefix(root, "git+"):
		return true
	case strings.HasPrefix(root, "git@"):
		return true
	case strings.HasSuffix(root, ".git"):
		for _, scheme := range []string{"https://", "http://", "ssh://"} {
			if strings.HasPrefix(root, scheme) {
				return true
			}
		}
	}
	return false
}

// Fetch clones root and checks out the configured ref. The returned
// release func removes the checkout.
func (f *Fetcher) Fetch(ctx context.Context, root string) (string, func(), error) {
	url := strings.TrimPrefix(root, "git+")

	dir, err := os.MkdirTemp(f.TempDir, "testrig-suite-*")
	if err != nil {
		return "", nil, err
	}
	release := func() { _ = os.RemoveAll(dir) }

	opts := &git.CloneOptions{URL: url}
	if f.Ref == "" {
		opts.Depth = 1
		opts.SingleBranch = true
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		release()
		return "", nil, fmt.Errorf("git clone %s: %w", url, err)
	}
	if f.Ref == "" {
		return dir, release, nil
	}

	hash, err := resolve(repo, f.Ref)
	if err != nil {
		release()
		return "", nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		release()
		return "", nil, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		release()
		return "", nil, fmt.Errorf("git checkout %s: %w", f.Ref, err)
	}
	return dir, release, nil
}

// resolve tries ref as given, then as a remote branch and as a tag.
func resolve(repo *git.Repository, ref string) (*plumbing.Hash, error) {
	candidates := []plumbing.Revision{
		plumbing.Revision(ref),
		plumbing.Revision("refs/remotes/origin/" + ref),
		plumbing.Revision("refs/tags/" + ref),
	}
	var firstErr error
	for _, rev := range candidates {
		hash, err := repo.ResolveRevision(rev)
		if err == nil {
			return hash, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("resolve revision %s: %w", ref, firstErr)
}
