package metadata

import (
	"context"
	"time"

	"autograder/internal/common/cache"
)

const (
	defaultCacheTTL = 10 * time.Minute
	emptyCacheTTL   = time.Minute
)

// CachedFetcher puts a shared cache in front of the GitHub lookup.
type CachedFetcher struct {
	inner *GitHubFetcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedFetcher wraps inner with cache-aside lookups.
func NewCachedFetcher(inner *GitHubFetcher, c cache.Cache, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedFetcher{inner: inner, cache: c, ttl: ttl}
}

func (f *CachedFetcher) LastCommitDate(ctx context.Context, repoURL string) (string, error) {
	repo, err := ParseGitHubURL(repoURL)
	if err != nil {
		return "", err
	}
	return cache.GetWithCached(ctx, f.cache, repo.CacheKey(), f.ttl, emptyCacheTTL,
		func(date string) bool { return date == "" },
		func(date string) string { return date },
		func(data string) (string, error) { return data, nil },
		func(ctx context.Context) (string, error) { return f.inner.fetch(ctx, repo) },
	)
}
