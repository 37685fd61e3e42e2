package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grader_service.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeConfig(t, "logger:\n  level: debug\n")
	cfg, err := loadAppConfig(path, "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr || cfg.Grader.CaseTimeout != 10*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Grader.PoolSize != 1 || cfg.Git.Depth != 1 || cfg.Grader.WorkRoot == "" {
		t.Fatalf("grader defaults not applied: %+v", cfg.Grader)
	}
	if cfg.Redis.PoolSize != 0 {
		t.Fatalf("redis defaults must only apply when redis is configured")
	}
}

func TestLoadAppConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:9000
grader:
  caseTimeout: 3s
  poolSize: 4
languages:
  - id: python
    name: Python
    kind: interpreted
    entryFile: main.py
    runCmd: python3 -u {src}
redis:
  addr: 127.0.0.1:6379
`)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("GRADER_GITHUB_TOKEN=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("GRADER_GITHUB_TOKEN", "")
	os.Unsetenv("GRADER_GITHUB_TOKEN")

	cfg, err := loadAppConfig(path, envFile)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Grader.CaseTimeout != 3*time.Second || cfg.Grader.PoolSize != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0].RunCmdTpl != "python3 -u {src}" {
		t.Fatalf("languages not parsed: %+v", cfg.Languages)
	}
	if cfg.GitHub.Token != "from-dotenv" {
		t.Fatalf("dotenv token not applied: %q", cfg.GitHub.Token)
	}
	if cfg.Redis.PoolSize == 0 {
		t.Fatalf("redis defaults not applied")
	}
}

func TestLoadAppConfigMissingEnvFileIsFine(t *testing.T) {
	path := writeConfig(t, "grader:\n  poolSize: 2\n")
	if _, err := loadAppConfig(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
}

func TestLoadAppConfigRejectsNegative(t *testing.T) {
	path := writeConfig(t, "grader:\n  maxOutputBytes: -1\n")
	if _, err := loadAppConfig(path, ""); err == nil {
		t.Fatalf("expected error for negative maxOutputBytes")
	}
}
