package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGameServerAppliesDefaultsThenOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gameserver.toml")
	body := `
[tcp]
bind_address = "0.0.0.0:9000"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadGameServer(path)
	if err != nil {
		t.Fatalf("LoadGameServer: %v", err)
	}
	if cfg.TCP.BindAddress != "0.0.0.0:9000" {
		t.Errorf("TCP.BindAddress = %q, want override", cfg.TCP.BindAddress)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want override", cfg.Logging.Level)
	}
	// UDP section wasn't in the file, so it keeps its default.
	if cfg.UDP.BindAddress != "0.0.0.0:7102" {
		t.Errorf("UDP.BindAddress = %q, want default", cfg.UDP.BindAddress)
	}
	if cfg.Scripts.EnemyAIDir != "scripts/ai" {
		t.Errorf("Scripts.EnemyAIDir = %q, want default", cfg.Scripts.EnemyAIDir)
	}
}

func TestLoadGameServerMissingFileErrors(t *testing.T) {
	if _, err := LoadGameServer(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("LoadGameServer accepted a missing config file")
	}
}

func TestLoadLobbyServerDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobbyserver.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadLobbyServer(path)
	if err != nil {
		t.Fatalf("LoadLobbyServer: %v", err)
	}
	if cfg.Orchestrator.PortRangeStart != 30000 || cfg.Orchestrator.PortRangeEnd != 60000 {
		t.Errorf("port range = [%d, %d), want [30000, 60000)", cfg.Orchestrator.PortRangeStart, cfg.Orchestrator.PortRangeEnd)
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Errorf("Database.MaxOpenConns = %d, want 20", cfg.Database.MaxOpenConns)
	}
}
