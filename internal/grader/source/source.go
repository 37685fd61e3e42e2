// Package source materializes a submission URL into a local directory.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	appErr "autograder/pkg/errors"
)

const archiveScheme = "s3://"

// Materializer fetches a submission into dest, which must not exist yet.
type Materializer interface {
	Materialize(ctx context.Context, url, dest string) error
}

// Router dispatches by URL scheme: s3:// archives go to the archive
// materializer, everything else is cloned with git.
type Router struct {
	git     Materializer
	archive Materializer
}

// NewRouter creates a router. archive may be nil when object storage is not configured.
func NewRouter(git, archive Materializer) *Router {
	return &Router{git: git, archive: archive}
}

func (r *Router) Materialize(ctx context.Context, url, dest string) error {
	if strings.TrimSpace(url) == "" {
		return appErr.ValidationError("url", "required")
	}
	if strings.HasPrefix(url, archiveScheme) {
		if r.archive == nil {
			return appErr.New(appErr.SubmissionFetchFailed).WithMessage("Failed to clone repo: object storage is not configured")
		}
		return r.archive.Materialize(ctx, url, dest)
	}
	if r.git == nil {
		return appErr.New(appErr.SubmissionFetchFailed).WithMessage("Failed to clone repo: git is not configured")
	}
	return r.git.Materialize(ctx, url, dest)
}

// fetchFailed is the single opaque failure every materializer reports.
func fetchFailed(err error) *appErr.Error {
	return appErr.Wrapf(err, appErr.SubmissionFetchFailed, "Failed to clone repo: %v", err)
}

// LocateEntry reports the absolute path of entryFile at the submission root
// and whether it exists as a regular file.
func LocateEntry(root, entryFile string) (string, bool) {
	path := filepath.Join(root, entryFile)
	info, err := os.Stat(path)
	if err != nil {
		return path, false
	}
	return path, info.Mode().IsRegular()
}
