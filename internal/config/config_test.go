package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.CacheCapacity != 256 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "http_addr: \":9090\"\ncache_capacity: 32\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.CacheCapacity != 32 {
		t.Errorf("CacheCapacity = %d, want 32", cfg.CacheCapacity)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", cfg.Level())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GROUNDTRACK_HTTP_ADDR", ":7070")
	t.Setenv("GROUNDTRACK_CACHE_CAPACITY", "64")
	t.Setenv("GROUNDTRACK_POOL_SIZE", "not-a-number")

	cfg, err := Load("", testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q, want env override", cfg.HTTPAddr)
	}
	if cfg.CacheCapacity != 64 {
		t.Errorf("CacheCapacity = %d, want 64", cfg.CacheCapacity)
	}
	// Invalid override keeps the default.
	if cfg.PoolSize != 0 {
		t.Errorf("PoolSize = %d, want default 0", cfg.PoolSize)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml", testLogger()); err == nil {
		t.Error("expected error for missing config file")
	}
}
