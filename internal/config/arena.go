package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ArenaConfig holds the simulation tuning constants the spec fixes as
// literals (friction, acceleration, damage, spawn density, ...). Exposed
// as data so a deploy can retune the arena without a rebuild, the same
// way the rest of the data tables are YAML-driven.
type ArenaConfig struct {
	Width            float32 `yaml:"width"`
	Height           float32 `yaml:"height"`
	Friction         float32 `yaml:"friction"`
	Acceleration     float32 `yaml:"acceleration"`
	MaxSpeed         float32 `yaml:"max_speed"`
	ProjectileSpeed  float32 `yaml:"projectile_speed"`
	ProjectileDamage int32   `yaml:"projectile_damage"`
	ShotCooldownMs   int64   `yaml:"shot_cooldown_ms"`
	EnemyChaseSpeed  float32 `yaml:"enemy_chase_speed"`
	EnemyTouchDamage int32   `yaml:"enemy_touch_damage"`
	EnemyKillScore   uint16  `yaml:"enemy_kill_score"`
	EnemiesPerPlayer int     `yaml:"enemies_per_player"`
	SpawnMargin      float32 `yaml:"spawn_margin"`
}

func defaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		Width: 2000, Height: 2000,
		Friction: 0.9, Acceleration: 22000, MaxSpeed: 2200,
		ProjectileSpeed: 1240, ProjectileDamage: 50, ShotCooldownMs: 200,
		EnemyChaseSpeed: 200, EnemyTouchDamage: 20, EnemyKillScore: 10,
		EnemiesPerPlayer: 30, SpawnMargin: 50,
	}
}

// LoadArenaConfig reads an ArenaConfig from YAML, falling back to the
// spec's literal defaults when path does not exist.
func LoadArenaConfig(path string) (ArenaConfig, error) {
	cfg := defaultArenaConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("arena: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("arena: parse %s: %w", path, err)
	}
	return cfg, nil
}
