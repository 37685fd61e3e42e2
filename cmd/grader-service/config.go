package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autograder/internal/common/cache"
	commonmw "autograder/internal/common/http/middleware"
	"autograder/internal/common/storage"
	"autograder/internal/grader/metadata"
	"autograder/internal/grader/sandbox/profile"
	"autograder/internal/grader/source"
	"autograder/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:5001"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultCaseTimeout     = 10 * time.Second
	defaultCompileTimeout  = 60 * time.Second
	defaultAcquireWait     = 2 * time.Second
	defaultGitDepth        = 1
	defaultGitTimeout      = 2 * time.Minute
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// GraderConfig holds grading settings.
type GraderConfig struct {
	WorkRoot       string        `yaml:"workRoot"`
	CaseTimeout    time.Duration `yaml:"caseTimeout"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	PoolSize       int           `yaml:"poolSize"`
	AcquireWait    time.Duration `yaml:"acquireWait"`
	MaxOutputBytes int64         `yaml:"maxOutputBytes"`
	WaitDelay      time.Duration `yaml:"waitDelay"`
}

// ArchiveConfig holds object storage submission settings.
type ArchiveConfig struct {
	MaxBytes          int64 `yaml:"maxBytes"`
	MaxExtractedBytes int64 `yaml:"maxExtractedBytes"`
}

// AppConfig holds grader-service config.
type AppConfig struct {
	Server    ServerConfig           `yaml:"server"`
	Logger    logger.Config          `yaml:"logger"`
	CORS      commonmw.CORSConfig    `yaml:"cors"`
	Grader    GraderConfig           `yaml:"grader"`
	Languages []profile.LanguageSpec `yaml:"languages"`
	Git       source.GitConfig       `yaml:"git"`
	MinIO     storage.MinIOConfig    `yaml:"minio"`
	Archive   ArchiveConfig          `yaml:"archive"`
	Redis     cache.RedisConfig      `yaml:"redis"`
	GitHub    metadata.GitHubConfig  `yaml:"github"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path, then applies secrets from the environment
// (optionally seeded from envFile) and fills defaults.
func loadAppConfig(path, envFile string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file failed: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Grader.PoolSize < 0 {
		return nil, fmt.Errorf("grader poolSize must not be negative")
	}
	if cfg.Grader.MaxOutputBytes < 0 {
		return nil, fmt.Errorf("grader maxOutputBytes must not be negative")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"GRADER_GITHUB_TOKEN", &cfg.GitHub.Token},
		{"GRADER_GIT_TOKEN", &cfg.Git.Token},
		{"GRADER_REDIS_ADDR", &cfg.Redis.Addr},
		{"GRADER_REDIS_PASSWORD", &cfg.Redis.Password},
		{"GRADER_MINIO_ENDPOINT", &cfg.MinIO.Endpoint},
		{"GRADER_MINIO_ACCESS_KEY", &cfg.MinIO.AccessKey},
		{"GRADER_MINIO_SECRET_KEY", &cfg.MinIO.SecretKey},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Grader.WorkRoot == "" {
		cfg.Grader.WorkRoot = filepath.Join(os.TempDir(), "autograder")
	}
	if cfg.Grader.CaseTimeout == 0 {
		cfg.Grader.CaseTimeout = defaultCaseTimeout
	}
	if cfg.Grader.CompileTimeout == 0 {
		cfg.Grader.CompileTimeout = defaultCompileTimeout
	}
	if cfg.Grader.PoolSize == 0 {
		cfg.Grader.PoolSize = 1
	}
	if cfg.Grader.AcquireWait == 0 {
		cfg.Grader.AcquireWait = defaultAcquireWait
	}
	if cfg.Git.Depth == 0 {
		cfg.Git.Depth = defaultGitDepth
	}
	if cfg.Git.Timeout == 0 {
		cfg.Git.Timeout = defaultGitTimeout
	}
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
}
