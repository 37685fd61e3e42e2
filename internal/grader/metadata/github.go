package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// GitHubConfig configures the commit lookup.
type GitHubConfig struct {
	APIBase  string        `yaml:"apiBase"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// GitHubFetcher reads the newest commit from the GitHub REST API.
type GitHubFetcher struct {
	apiBase string
	token   string
	client  *http.Client
}

// NewGitHubFetcher creates a GitHub fetcher.
func NewGitHubFetcher(cfg GitHubConfig) *GitHubFetcher {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GitHubFetcher{
		apiBase: apiBase,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

type commitEntry struct {
	Commit struct {
		Committer struct {
			Date string `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

func (f *GitHubFetcher) LastCommitDate(ctx context.Context, repoURL string) (string, error) {
	repo, err := ParseGitHubURL(repoURL)
	if err != nil {
		return "", err
	}
	return f.fetch(ctx, repo)
}

func (f *GitHubFetcher) fetch(ctx context.Context, repo Repo) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=1", f.apiBase, url.PathEscape(repo.Owner), url.PathEscape(repo.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", fmt.Errorf("github returned status %d", resp.StatusCode)
	}

	var commits []commitEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&commits); err != nil {
		return "", fmt.Errorf("decode commits failed: %w", err)
	}
	if len(commits) == 0 {
		return "", nil
	}
	return commits[0].Commit.Committer.Date, nil
}
