// Package workspace resolves repositories to local checkouts and reads
// committed blob content. Reads go through the git object store of a
// resolved branch, never the working directory, so uncommitted edits do
// not leak into any derived numbers.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/featurepulse/featurepulse/pkg/config"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
)

// FeatureBlob is one committed .feature file.
type FeatureBlob struct {
	Path    string
	Content []byte
}

// Workspace exposes read access to local repository checkouts.
type Workspace interface {
	// CheckoutPath resolves a repository to its local checkout path.
	CheckoutPath(repoID, localPath string) string

	// ResolveBranch returns branch, or the checkout's HEAD branch when
	// branch is empty.
	ResolveBranch(path, branch string) (string, error)

	// FeatureFiles reads all committed .feature blobs for a branch.
	// Unreadable blobs are skipped, not fatal.
	FeatureFiles(ctx context.Context, path, branch string) ([]FeatureBlob, error)
}

// Compile-time interface check.
var _ Workspace = (*workspace)(nil)

type workspace struct {
	log  logrus.FieldLogger
	root string
}

// New creates a Workspace rooted at the configured checkout directory.
func New(log logrus.FieldLogger, cfg *config.WorkspaceConfig) Workspace {
	return &workspace{
		log:  log.WithField("component", "workspace"),
		root: cfg.Root,
	}
}

// CheckoutPath returns the registered local path when present, otherwise
// a deterministic directory under the workspace root.
func (w *workspace) CheckoutPath(repoID, localPath string) string {
	if localPath != "" {
		return localPath
	}

	return filepath.Join(w.root, sanitizeDir(repoID))
}

// ResolveBranch resolves the effective branch name for a checkout.
func (w *workspace) ResolveBranch(path, branch string) (string, error) {
	if branch != "" {
		return branch, nil
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening repository %q: %w", path, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD of %q: %w", path, err)
	}

	return head.Name().Short(), nil
}

// FeatureFiles walks the committed tree of the resolved branch and
// returns every .feature blob.
func (w *workspace) FeatureFiles(
	ctx context.Context, path, branch string,
) ([]FeatureBlob, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository %q: %w", path, err)
	}

	commit, err := resolveCommit(repo, branch)
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading commit tree: %w", err)
	}

	var blobs []FeatureBlob

	err = tree.Files().ForEach(func(f *object.File) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !strings.HasSuffix(f.Name, ".feature") {
			return nil
		}

		content, cErr := f.Contents()
		if cErr != nil {
			w.log.WithError(cErr).
				WithField("path", f.Name).
				Warn("Skipping unreadable feature blob")

			return nil
		}

		blobs = append(blobs, FeatureBlob{
			Path:    f.Name,
			Content: []byte(content),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}

	return blobs, nil
}

// resolveCommit resolves a branch name (or HEAD when empty) to its tip
// commit, trying local then remote-tracking refs.
func resolveCommit(repo *git.Repository, branch string) (*object.Commit, error) {
	var hash *plumbing.Hash

	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD: %w", err)
		}

		h := head.Hash()
		hash = &h
	} else {
		revisions := []string{
			"refs/heads/" + branch,
			"refs/remotes/origin/" + branch,
			branch,
		}

		for _, rev := range revisions {
			h, err := repo.ResolveRevision(plumbing.Revision(rev))
			if err == nil {
				hash = h

				break
			}
		}

		if hash == nil {
			return nil, fmt.Errorf("branch %q not found", branch)
		}
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", hash, err)
	}

	return commit, nil
}

// sanitizeDir converts a normalized repo id into a filesystem-safe
// directory name.
func sanitizeDir(repoID string) string {
	replacer := strings.NewReplacer(
		"https://", "",
		"http://", "",
		"/", "_",
		":", "_",
	)

	return replacer.Replace(repoID)
}
