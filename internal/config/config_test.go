package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Context.MaxContextTokens != 200000 {
		t.Errorf("max context tokens = %d", cfg.Context.MaxContextTokens)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Session.Backend)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelsmith.yaml")
	content := `
server:
  addr: ":9090"
session:
  backend: sqlite
  path: /tmp/test.db
resilience:
  max_retries: 5
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Session.Backend != "sqlite" || cfg.Session.Path != "/tmp/test.db" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.RetryConfig().MaxRetries != 5 {
		t.Errorf("max retries = %d", cfg.RetryConfig().MaxRetries)
	}
	// Unset sections keep defaults.
	if cfg.LLM.Model == "" {
		t.Error("llm defaults lost on partial overlay")
	}
}

func TestLoadEnvOverridesAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-from-env")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	writeAndLoad := func(content string) error {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		return err
	}

	if err := writeAndLoad("session:\n  backend: postgres\n"); err == nil {
		t.Error("unknown backend should be rejected")
	}
	if err := writeAndLoad("logging:\n  format: xml\n"); err == nil {
		t.Error("unknown log format should be rejected")
	}
	if err := writeAndLoad("resilience:\n  jitter: 2.0\n"); err == nil {
		t.Error("out-of-range jitter should be rejected")
	}
}

func TestResilienceConversions(t *testing.T) {
	cfg := Default()
	cfg.Resilience.BaseDelayMS = 500
	cfg.Resilience.ResetSeconds = 30

	if got := cfg.RetryConfig().BaseDelay; got != 500*time.Millisecond {
		t.Errorf("base delay = %s", got)
	}
	if got := cfg.BreakerConfig().ResetTimeout; got != 30*time.Second {
		t.Errorf("reset timeout = %s", got)
	}
	// Zero fields fall back to the package defaults.
	if got := cfg.RetryConfig().MaxRetries; got != 3 {
		t.Errorf("max retries = %d", got)
	}
}
