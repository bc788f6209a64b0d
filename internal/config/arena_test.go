package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadArenaConfigReturnsDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := LoadArenaConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadArenaConfig: %v", err)
	}
	want := defaultArenaConfig()
	if cfg != want {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadArenaConfigOverridesOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	if err := os.WriteFile(path, []byte("width: 4000\nprojectile_damage: 75\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadArenaConfig(path)
	if err != nil {
		t.Fatalf("LoadArenaConfig: %v", err)
	}
	if cfg.Width != 4000 {
		t.Errorf("Width = %v, want 4000", cfg.Width)
	}
	if cfg.ProjectileDamage != 75 {
		t.Errorf("ProjectileDamage = %v, want 75", cfg.ProjectileDamage)
	}
	// Fields absent from the override file keep their defaults.
	want := defaultArenaConfig()
	if cfg.Friction != want.Friction {
		t.Errorf("Friction = %v, want default %v", cfg.Friction, want.Friction)
	}
	if cfg.EnemiesPerPlayer != want.EnemiesPerPlayer {
		t.Errorf("EnemiesPerPlayer = %v, want default %v", cfg.EnemiesPerPlayer, want.EnemiesPerPlayer)
	}
}

func TestLoadArenaConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	if err := os.WriteFile(path, []byte("width: [this is not a float\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadArenaConfig(path); err == nil {
		t.Fatal("LoadArenaConfig accepted malformed YAML")
	}
}
