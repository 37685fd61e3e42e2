package source

import (
	"context"
	"time"

	"autograder/pkg/utils/logger"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

const defaultCloneTimeout = 2 * time.Minute

// GitConfig controls repository cloning.
type GitConfig struct {
	// Depth limits fetched history; zero clones everything.
	Depth   int           `yaml:"depth"`
	Timeout time.Duration `yaml:"timeout"`
	// Token is sent as basic auth password for private https remotes.
	Token string `yaml:"token"`
}

// GitMaterializer clones a remote repository.
type GitMaterializer struct {
	cfg GitConfig
}

// NewGitMaterializer creates a git materializer.
func NewGitMaterializer(cfg GitConfig) *GitMaterializer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCloneTimeout
	}
	return &GitMaterializer{cfg: cfg}
}

func (g *GitMaterializer) Materialize(ctx context.Context, url, dest string) error {
	cloneCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	opts := &git.CloneOptions{
		URL:          url,
		Depth:        g.cfg.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if g.cfg.Token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: g.cfg.Token}
	}

	start := time.Now()
	if _, err := git.PlainCloneContext(cloneCtx, dest, false, opts); err != nil {
		logger.Warn(ctx, "clone repository failed", zap.String("url", url), zap.Error(err))
		return fetchFailed(err)
	}
	logger.Info(ctx, "repository cloned",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
