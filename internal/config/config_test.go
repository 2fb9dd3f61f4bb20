package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesFileEnvAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
sqlite:
  path: /tmp/quiz.db
session:
  timeLimit: 20s
  defaultCount: 5
  selectionPolicy: strict
log:
  format: text
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("unexpected server/storage %+v %+v", cfg.Server, cfg.Storage)
	}
	if cfg.Session.DefaultCount != 5 || cfg.Session.SelectionPolicy != "strict" {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("expected env level and file format, got %+v", cfg.Log)
	}
	if Duration(cfg.Session.TimeLimit, time.Minute) != 20*time.Second {
		t.Fatalf("expected 20s time limit")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Storage.Driver != DriverRedis || cfg.Log.Format != "json" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestDuration(t *testing.T) {
	if Duration("", time.Second) != time.Second {
		t.Fatalf("expected fallback for empty")
	}
	if Duration("bogus", time.Second) != time.Second {
		t.Fatalf("expected fallback for invalid")
	}
	if Duration("90s", time.Second) != 90*time.Second {
		t.Fatalf("expected parsed duration")
	}
}
