// Package metadata resolves the last commit timestamp of a submission origin.
package metadata

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedRemote is returned for URLs that do not name a GitHub repository.
var ErrUnsupportedRemote = errors.New("remote is not a github repository")

// Fetcher resolves the last commit date of a remote repository.
// An empty string with a nil error means the repository has no commits.
type Fetcher interface {
	LastCommitDate(ctx context.Context, repoURL string) (string, error)
}

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// ParseGitHubURL extracts owner and name from https, scp-style or path-only
// remotes that contain a github.com segment.
func ParseGitHubURL(repoURL string) (Repo, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	trimmed = strings.Replace(trimmed, "git@github.com:", "github.com/", 1)

	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		if part != "github.com" {
			continue
		}
		if len(parts) <= i+2 {
			break
		}
		repo := Repo{Owner: parts[i+1], Name: strings.TrimSuffix(parts[i+2], ".git")}
		if repo.Owner == "" || repo.Name == "" {
			break
		}
		return repo, nil
	}
	return Repo{}, ErrUnsupportedRemote
}

// CacheKey is the cache key for one repository.
func (r Repo) CacheKey() string {
	return "grader:commit:" + strings.ToLower(r.Owner) + "/" + strings.ToLower(r.Name)
}
