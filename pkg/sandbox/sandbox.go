// Package sandbox detects the repository root enclosing a directory, used to
// anchor the file cache's path allow-list to a git worktree rather than an
// arbitrary filesystem location. Grounded on pkg/git/git.go's go-git/v5
// wrapper, trading its richer Repository/RepositoryWorktree abstraction for
// the single operation EmbedM needs: find the worktree root, or fail closed.
package sandbox

import (
	"context"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"k8s.io/klog/v2"
)

// DefaultTimeout bounds how long DetectRoot will wait for go-git to walk up
// the directory tree looking for a .git directory.
const DefaultTimeout = 5 * time.Second

// DetectRoot returns the git worktree root enclosing dir. It reports false
// if dir is not inside a git worktree, if opening the repository fails for
// any other reason, or if detection does not complete within ctx's deadline
// (or DefaultTimeout, whichever is sooner) — failing closed rather than
// letting the cache allow-list default to an unbounded filesystem root.
func DetectRoot(ctx context.Context, dir string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	type result struct {
		root string
		ok   bool
	}
	done := make(chan result, 1)
	go func() {
		root, ok := detect(dir)
		done <- result{root, ok}
	}()

	select {
	case r := <-done:
		return r.root, r.ok
	case <-ctx.Done():
		klog.Warningf("sandbox: git root detection for %s timed out after %s", dir, DefaultTimeout)
		return "", false
	}
}

func detect(dir string) (string, bool) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	root := wt.Filesystem.Root()
	if root == "" {
		return "", false
	}
	return root, true
}

// MustDetectRoot is a convenience wrapper for callers (cmd/embedm) that treat
// a missing git root as fatal configuration, returning an error instead of a
// bare bool.
func MustDetectRoot(ctx context.Context, dir string) (string, error) {
	root, ok := DetectRoot(ctx, dir)
	if !ok {
		return "", fmt.Errorf("%s is not inside a git worktree", dir)
	}
	return root, nil
}
