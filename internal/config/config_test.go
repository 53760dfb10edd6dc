package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadPathDefaults(t *testing.T) {
	path := writeConfig(t, `
env: dev
db:
  driver: memory
auth:
  jwtSecret: secret
`)

	cfg, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if cfg.HttpServer.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.HttpServer.Port)
	}
	if cfg.JudgingConfig.CompletionPolicy != "any_judge" {
		t.Errorf("completion policy = %q, want any_judge", cfg.JudgingConfig.CompletionPolicy)
	}
	if cfg.RedisConfig.ResultsTTL != 30*time.Second {
		t.Errorf("results ttl = %v, want 30s", cfg.RedisConfig.ResultsTTL)
	}
	if cfg.Path() != path {
		t.Errorf("path = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadPathRejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: memory
auth:
  jwtSecret: secret
judging:
  completionPolicy: majority
`)

	if _, err := LoadPath(path); err == nil {
		t.Fatal("expected error for unknown completion policy")
	}
}

func TestLoadPathMissingFile(t *testing.T) {
	if _, err := LoadPath(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDumpMasksSecrets(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: memory
  password: hunter2
auth:
  jwtSecret: topsecret
`)

	cfg, err := LoadPath(path)
	if err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	out, err := cfg.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "hunter2") || strings.Contains(s, "topsecret") {
		t.Errorf("dump leaks secrets:\n%s", s)
	}
	if cfg.AuthConfig.JWTSecret != "topsecret" {
		t.Error("Dump mutated the original config")
	}
}
