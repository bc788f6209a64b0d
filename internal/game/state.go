package game

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rtypearena/server/internal/config"
	"github.com/rtypearena/server/internal/core/ecs"
	"github.com/rtypearena/server/internal/proto"
	"github.com/rtypearena/server/internal/transport"
)

const (
	PlayerMaxHealth = 100
	EnemyMaxHealth  = 100
)

type projectileEntry struct {
	OwnerID uint8
	Entity  ecs.Entity
}

// nextID8 hands out wrapping u8 ids, skipping any id still present in
// live. The wire format's projectile_id/enemy_id fields are u8, so ids
// must wrap well before a game instance could ever host 256 concurrent
// projectiles or enemies.
func nextID8(counter *atomic.Uint32, stillLive func(uint8) bool) uint8 {
	for i := 0; i < 256; i++ {
		id := uint8(counter.Add(1))
		if !stillLive(id) {
			return id
		}
	}
	return uint8(counter.Add(1))
}

// State holds the game-instance-unique index tables from spec §3.4 on top
// of the ECS world, plus the monotonic id counters used to name new
// projectiles and enemies. Arena carries every tunable constant the
// systems need, loaded once at startup from the deploy's YAML table.
type State struct {
	World    *ecs.World
	Registry *ecs.Registry
	TCP      *transport.Server
	Arena    config.ArenaConfig

	players     map[uint8]ecs.Entity
	projectiles map[uint8]projectileEntry
	enemies     map[uint8]ecs.Entity

	nextProjectileID atomic.Uint32
	nextEnemyID      atomic.Uint32
}

func NewState(world *ecs.World, tcp *transport.Server, arena config.ArenaConfig) *State {
	return &State{
		World:       world,
		Registry:    world.Registry(),
		TCP:         tcp,
		Arena:       arena,
		players:     make(map[uint8]ecs.Entity),
		projectiles: make(map[uint8]projectileEntry),
		enemies:     make(map[uint8]ecs.Entity),
	}
}

// AddPlayer spawns a player entity at (x, y). Fails if id already exists.
func (s *State) AddPlayer(id uint8, x, y float32) (ecs.Entity, error) {
	if _, exists := s.players[id]; exists {
		return 0, fmt.Errorf("game: player %d already exists", id)
	}
	e := s.Registry.SpawnEntity()
	ecs.AddComponent(s.Registry, e, Player{ID: id})
	ecs.AddComponent(s.Registry, e, Position{X: x, Y: y})
	ecs.AddComponent(s.Registry, e, InputState{})
	ecs.AddComponent(s.Registry, e, Velocity{})
	ecs.AddComponent(s.Registry, e, Health{Current: PlayerMaxHealth, Max: PlayerMaxHealth})
	ecs.AddComponent(s.Registry, e, DirtyFlag{Dirty: true})
	ecs.AddComponent(s.Registry, e, LastShotTime{})
	s.players[id] = e
	return e, nil
}

// RemovePlayer kills the entity, unindexes it, and broadcasts RemovePlayer
// over TCP.
func (s *State) RemovePlayer(id uint8) {
	e, ok := s.players[id]
	if !ok {
		return
	}
	s.World.MarkForDestruction(e)
	delete(s.players, id)
	if s.TCP != nil {
		s.TCP.BroadcastTCP(proto.CreatePacket(proto.TypeRemovePlayer, &proto.RemoveEntity{ID: uint32(id)}))
	}
}

func (s *State) PlayerEntity(id uint8) (ecs.Entity, bool) {
	e, ok := s.players[id]
	return e, ok
}

func (s *State) PlayerCount() int { return len(s.players) }

// AddProjectile normalizes (dirX, dirY), spawns a projectile moving at
// ProjectileSpeed, and returns its assigned id.
func (s *State) AddProjectile(owner uint8, x, y, dirX, dirY float32) uint8 {
	length := float32(math.Sqrt(float64(dirX*dirX + dirY*dirY)))
	if length > 0 {
		dirX /= length
		dirY /= length
	}
	pid := nextID8(&s.nextProjectileID, func(id uint8) bool { _, live := s.projectiles[id]; return live })

	e := s.Registry.SpawnEntity()
	ecs.AddComponent(s.Registry, e, Position{X: x, Y: y})
	ecs.AddComponent(s.Registry, e, Velocity{X: dirX * s.Arena.ProjectileSpeed, Y: dirY * s.Arena.ProjectileSpeed})
	ecs.AddComponent(s.Registry, e, Projectile{ID: pid, OwnerID: owner, Damage: s.Arena.ProjectileDamage})
	ecs.AddComponent(s.Registry, e, Shape{Kind: ShapeCircle, Radius: 5})
	ecs.AddComponent(s.Registry, e, DirtyFlag{Dirty: true})

	s.projectiles[pid] = projectileEntry{OwnerID: owner, Entity: e}
	return pid
}

// RemoveProjectile kills the entity, unindexes it, and broadcasts
// RemoveProjectile over TCP.
func (s *State) RemoveProjectile(pid uint8) {
	entry, ok := s.projectiles[pid]
	if !ok {
		return
	}
	s.World.MarkForDestruction(entry.Entity)
	delete(s.projectiles, pid)
	if s.TCP != nil {
		s.TCP.BroadcastTCP(proto.CreatePacket(proto.TypeRemoveProjectile, &proto.RemoveEntity{ID: uint32(pid)}))
	}
}

func (s *State) ProjectileEntity(pid uint8) (ecs.Entity, bool) {
	entry, ok := s.projectiles[pid]
	return entry.Entity, ok
}

func (s *State) ProjectileOwner(pid uint8) (uint8, bool) {
	entry, ok := s.projectiles[pid]
	return entry.OwnerID, ok
}

// AddEnemy spawns an enemy in the given AI state.
func (s *State) AddEnemy(x, y float32, state AIState) uint8 {
	eid := nextID8(&s.nextEnemyID, func(id uint8) bool { _, live := s.enemies[id]; return live })
	e := s.Registry.SpawnEntity()
	ecs.AddComponent(s.Registry, e, Enemy{ID: eid})
	ecs.AddComponent(s.Registry, e, Shape{Kind: ShapeCircle, Radius: 30})
	ecs.AddComponent(s.Registry, e, Position{X: x, Y: y})
	ecs.AddComponent(s.Registry, e, AIState(state))
	ecs.AddComponent(s.Registry, e, Target{})
	ecs.AddComponent(s.Registry, e, Velocity{})
	ecs.AddComponent(s.Registry, e, Health{Current: EnemyMaxHealth, Max: EnemyMaxHealth})
	ecs.AddComponent(s.Registry, e, DirtyFlag{Dirty: true})
	s.enemies[eid] = e
	return eid
}

// RemoveEnemy kills the entity, unindexes it, and broadcasts RemoveEnemy
// over TCP.
func (s *State) RemoveEnemy(eid uint8) {
	e, ok := s.enemies[eid]
	if !ok {
		return
	}
	s.World.MarkForDestruction(e)
	delete(s.enemies, eid)
	if s.TCP != nil {
		s.TCP.BroadcastTCP(proto.CreatePacket(proto.TypeRemoveEnemy, &proto.RemoveEntity{ID: uint32(eid)}))
	}
}

func (s *State) EnemyCount() int { return len(s.enemies) }

func (s *State) EachEnemyID(fn func(id uint8, e ecs.Entity)) {
	for id, e := range s.enemies {
		fn(id, e)
	}
}

// AddScoreToPlayer mutates the Player component's score by +n.
func (s *State) AddScoreToPlayer(id uint8, n uint16) {
	e, ok := s.players[id]
	if !ok {
		return
	}
	p, ok := ecs.GetComponent[Player](s.Registry, e)
	if !ok {
		return
	}
	p.Score += n
}
