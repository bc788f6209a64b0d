package game

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/core/ecs"
	"github.com/rtypearena/server/internal/core/event"
	"github.com/rtypearena/server/internal/proto"
	"github.com/rtypearena/server/internal/transport"
)

const (
	TickPeriod               = 8 * time.Millisecond // ≈125 Hz
	FullUpdateFrequencyTicks = 4
	inboundBudgetPackets     = 50
	inboundBudgetDuration    = 10 * time.Millisecond
)

// Engine owns one running game instance: its ECS world, game-state
// indices, the event bus feeding it, and the UDP endpoint deltas go out
// on. Run drives the fixed-cadence tick loop from spec §4.8.
type Engine struct {
	World  *ecs.World
	State  *State
	Bus    *event.Bus
	UDP    *transport.UDPEndpoint
	Inbox  <-chan InboundPacket
	Log    *zap.Logger

	rng     *rand.Rand
	tickNum uint64
}

// InboundPacket is a decoded frame waiting for simulation-thread handling,
// crossing from the I/O executor via a channel per §5.
type InboundPacket struct {
	PlayerID uint8
	Actions  uint16
	DirX     float32
	DirY     float32
}

func NewEngine(world *ecs.World, st *State, bus *event.Bus, udp *transport.UDPEndpoint, inbox <-chan InboundPacket, log *zap.Logger) *Engine {
	return &Engine{
		World: world,
		State: st,
		Bus:   bus,
		UDP:   udp,
		Inbox: inbox,
		Log:   log,
		rng:   rand.New(rand.NewSource(1)),
	}
}

// Run blocks until ctx-like stop channel closes, executing one tick every
// TickPeriod. An overrun tick is logged and the deadline restarts from
// "now" rather than trying to catch up.
func (e *Engine) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			start := now
			e.tick(now)
			if elapsed := time.Since(start); elapsed > TickPeriod {
				e.Log.Warn("tick overrun", zap.Duration("elapsed", elapsed))
				ticker.Reset(TickPeriod)
			}
		}
	}
}

func (e *Engine) tick(now time.Time) {
	e.tickNum++

	e.drainInbound()

	e.Bus.SwapBuffers()
	e.Bus.Process()

	r := e.World.Registry()
	MovementSystem(r, TickPeriod, e.State)
	EnemyMovementSystem(r, TickPeriod, e.State)
	ProjectileMovementSystem(r, TickPeriod, e.State)
	PlayerShootingSystem(r, now, e.State)
	CollisionSystem(r, e.State)
	EnemySpawnSystem(e.State, e.rng)

	e.World.FlushDestroyQueue()

	e.broadcastDeltas()
	if e.tickNum%FullUpdateFrequencyTicks == 0 {
		e.broadcastFullSnapshot()
	}
}

// drainInbound applies up to inboundBudgetPackets player inputs, or until
// inboundBudgetDuration elapses, whichever comes first. Anything left
// stays queued for the next tick — no ack is promised.
func (e *Engine) drainInbound() {
	deadline := time.Now().Add(inboundBudgetDuration)
	r := e.World.Registry()
	for i := 0; i < inboundBudgetPackets; i++ {
		if time.Now().After(deadline) {
			e.Log.Debug("inbound budget exhausted this tick")
			return
		}
		select {
		case pkt := <-e.Inbox:
			pe, ok := e.State.PlayerEntity(pkt.PlayerID)
			if !ok {
				continue
			}
			in, ok := ecs.GetComponent[InputState](r, pe)
			if !ok {
				continue
			}
			in.Actions = pkt.Actions
			in.DirX = pkt.DirX
			in.DirY = pkt.DirY
		default:
			return
		}
	}
}

// broadcastDeltas sends UpdatePlayer/UpdateProjectile/UpdateEnemy arrays
// for every dirty entity, clearing each flag, packed so no single UDP
// packet body exceeds MaxUpdateBatchBytes (spec §4.8 step 4).
func (e *Engine) broadcastDeltas() {
	r := e.World.Registry()

	var players []proto.UpdatePlayer
	ecs.Zipper3(r, func(_ ecs.Entity, p *Player, pos *Position, dirty *DirtyFlag) {
		if !dirty.Dirty {
			return
		}
		dirty.Dirty = false
		players = append(players, proto.UpdatePlayer{PlayerID: p.ID, X: pos.X, Y: pos.Y, Score: p.Score})
	})
	e.broadcastUpdatePlayers(players)

	var projectiles []proto.UpdateProjectile
	ecs.Zipper3(r, func(_ ecs.Entity, pos *Position, dirty *DirtyFlag, proj *Projectile) {
		if !dirty.Dirty {
			return
		}
		dirty.Dirty = false
		projectiles = append(projectiles, proto.UpdateProjectile{ProjectileID: proj.ID, OwnerID: proj.OwnerID, X: pos.X, Y: pos.Y})
	})
	e.broadcastUpdateProjectiles(projectiles)

	var enemies []proto.UpdateEnemy
	e.State.EachEnemyID(func(id uint8, ent ecs.Entity) {
		dirty, ok := ecs.GetComponent[DirtyFlag](r, ent)
		if !ok || !dirty.Dirty {
			return
		}
		pos, ok := ecs.GetComponent[Position](r, ent)
		if !ok {
			return
		}
		dirty.Dirty = false
		enemies = append(enemies, proto.UpdateEnemy{EnemyID: id, X: pos.X, Y: pos.Y})
	})
	e.broadcastUpdateEnemies(enemies)
}

// broadcastFullSnapshot sends every live Player/Projectile/Enemy entity
// regardless of dirty state.
func (e *Engine) broadcastFullSnapshot() {
	r := e.World.Registry()

	var players []proto.UpdatePlayer
	ecs.Zipper2(r, func(_ ecs.Entity, p *Player, pos *Position) {
		players = append(players, proto.UpdatePlayer{PlayerID: p.ID, X: pos.X, Y: pos.Y, Score: p.Score})
	})
	e.broadcastUpdatePlayers(players)

	var projectiles []proto.UpdateProjectile
	ecs.Zipper2(r, func(_ ecs.Entity, pos *Position, proj *Projectile) {
		projectiles = append(projectiles, proto.UpdateProjectile{ProjectileID: proj.ID, OwnerID: proj.OwnerID, X: pos.X, Y: pos.Y})
	})
	e.broadcastUpdateProjectiles(projectiles)

	var enemies []proto.UpdateEnemy
	e.State.EachEnemyID(func(id uint8, ent ecs.Entity) {
		pos, ok := ecs.GetComponent[Position](r, ent)
		if !ok {
			return
		}
		enemies = append(enemies, proto.UpdateEnemy{EnemyID: id, X: pos.X, Y: pos.Y})
	})
	e.broadcastUpdateEnemies(enemies)
}

func (e *Engine) broadcastUpdatePlayers(players []proto.UpdatePlayer) {
	for _, f := range proto.CreateArrayPackets[proto.UpdatePlayer](proto.TypeUpdatePlayer, players, proto.MaxUpdateBatchBytes) {
		e.UDP.BroadcastUDP(f)
	}
}

func (e *Engine) broadcastUpdateProjectiles(projectiles []proto.UpdateProjectile) {
	for _, f := range proto.CreateArrayPackets[proto.UpdateProjectile](proto.TypeUpdateProjectile, projectiles, proto.MaxUpdateBatchBytes) {
		e.UDP.BroadcastUDP(f)
	}
}

func (e *Engine) broadcastUpdateEnemies(enemies []proto.UpdateEnemy) {
	for _, f := range proto.CreateArrayPackets[proto.UpdateEnemy](proto.TypeUpdateEnemy, enemies, proto.MaxUpdateBatchBytes) {
		e.UDP.BroadcastUDP(f)
	}
}
