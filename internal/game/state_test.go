package game

import (
	"testing"

	"github.com/rtypearena/server/internal/config"
	"github.com/rtypearena/server/internal/core/ecs"
)

func newTestState() *State {
	world := ecs.NewWorld()
	arena := config.ArenaConfig{
		Width: 2000, Height: 2000,
		ProjectileSpeed: 1000, ProjectileDamage: 50,
		EnemyChaseSpeed: 200, EnemiesPerPlayer: 1, SpawnMargin: 50,
	}
	return NewState(world, nil, arena)
}

func TestAddPlayerRejectsDuplicateID(t *testing.T) {
	st := newTestState()
	if _, err := st.AddPlayer(3, 0, 0); err != nil {
		t.Fatalf("AddPlayer(3): %v", err)
	}
	if _, err := st.AddPlayer(3, 0, 0); err == nil {
		t.Fatal("AddPlayer accepted a duplicate player id")
	}
}

func TestAddProjectileAssignsDistinctIDs(t *testing.T) {
	st := newTestState()
	seen := make(map[uint8]bool)
	for i := 0; i < 10; i++ {
		pid := st.AddProjectile(1, 0, 0, 1, 0)
		if seen[pid] {
			t.Fatalf("AddProjectile reused id %d while %d earlier ids are still live", pid, len(seen))
		}
		seen[pid] = true
	}
}

func TestAddProjectileWrapsAfter256Live(t *testing.T) {
	st := newTestState()
	for i := 0; i < 256; i++ {
		st.AddProjectile(1, 0, 0, 1, 0)
	}
	// The 257th projectile must not find a free id among the 256 live
	// ones and should fall back to a reused (colliding) one, matching
	// nextID8's documented wrap-around behavior rather than hanging.
	pid := st.AddProjectile(1, 0, 0, 1, 0)
	if _, ok := st.ProjectileEntity(pid); !ok {
		t.Fatalf("wrapped projectile id %d not indexed", pid)
	}
}

func TestRemoveProjectileFreesItsID(t *testing.T) {
	st := newTestState()
	pid := st.AddProjectile(2, 0, 0, 1, 0)
	st.RemoveProjectile(pid)
	if _, ok := st.ProjectileEntity(pid); ok {
		t.Fatalf("projectile %d still indexed after removal", pid)
	}
}

func TestAddProjectileNormalizesDirection(t *testing.T) {
	st := newTestState()
	pid := st.AddProjectile(1, 0, 0, 3, 4) // length 5
	ent, ok := st.ProjectileEntity(pid)
	if !ok {
		t.Fatal("projectile not indexed")
	}
	vel, ok := ecs.GetComponent[Velocity](st.Registry, ent)
	if !ok {
		t.Fatal("projectile missing Velocity component")
	}
	const speed = 1000
	wantX, wantY := float32(0.6)*speed, float32(0.8)*speed
	if diff := vel.X - wantX; diff > 0.01 || diff < -0.01 {
		t.Errorf("vel.X = %v, want ~%v", vel.X, wantX)
	}
	if diff := vel.Y - wantY; diff > 0.01 || diff < -0.01 {
		t.Errorf("vel.Y = %v, want ~%v", vel.Y, wantY)
	}
}
