package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Mode != "live" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.JudgeModel == "" {
		t.Fatal("judge model default missing")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("COINQUEST_LISTEN_ADDR", ":9090")
	t.Setenv("COINQUEST_MODE", "mock")
	t.Setenv("COINQUEST_DB_DSN", "postgres://localhost/coinquest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Mode != "mock" || cfg.DBDSN != "postgres://localhost/coinquest" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestLoadArenaDefaults(t *testing.T) {
	arena, err := LoadArena("")
	if err != nil {
		t.Fatalf("LoadArena: %v", err)
	}
	if arena != DefaultArena() {
		t.Fatalf("arena = %+v", arena)
	}
	if arena.ActionTimeout() != 60*time.Second {
		t.Fatalf("timeout = %v", arena.ActionTimeout())
	}
}

func TestLoadArenaOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	doc := "max_turns: 25\ncurrency_target: 1000\naction_timeout_seconds: 15\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write arena file: %v", err)
	}

	arena, err := LoadArena(path)
	if err != nil {
		t.Fatalf("LoadArena: %v", err)
	}
	if arena.MaxTurns != 25 || arena.CurrencyTarget != 1000 {
		t.Fatalf("arena = %+v", arena)
	}
	// Untouched keys keep their defaults.
	if arena.WorldRadius != DefaultArena().WorldRadius {
		t.Fatalf("world radius = %d", arena.WorldRadius)
	}
	if arena.ActionTimeout() != 15*time.Second {
		t.Fatalf("timeout = %v", arena.ActionTimeout())
	}
}

func TestLoadArenaMissingFile(t *testing.T) {
	if _, err := LoadArena(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
