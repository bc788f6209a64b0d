package game

import (
	"math"
	"math/rand"
	"time"

	"github.com/rtypearena/server/internal/core/ecs"
)

const (
	maskMoveUp    uint16 = 1
	maskMoveDown  uint16 = 2
	maskMoveLeft  uint16 = 4
	maskMoveRight uint16 = 8
	maskShoot     uint16 = 16
	maskAutoShoot uint16 = 32
)

// MovementSystem advances every player's velocity and position from its
// current input, in the exact order the spec lists: friction, then
// acceleration along pressed axes, then clamp, then integrate, then wall
// clamp, then dirty-flag.
func MovementSystem(r *ecs.Registry, dt time.Duration, st *State) {
	dts := float32(dt.Seconds())
	a := st.Arena
	ecs.Zipper4(r, func(_ ecs.Entity, pos *Position, vel *Velocity, in *InputState, dirty *DirtyFlag) {
		startX, startY := pos.X, pos.Y

		left := in.Actions&maskMoveLeft != 0
		right := in.Actions&maskMoveRight != 0
		up := in.Actions&maskMoveUp != 0
		down := in.Actions&maskMoveDown != 0

		if left == right {
			vel.X *= a.Friction
		}
		if up == down {
			vel.Y *= a.Friction
		}

		if left && !right {
			vel.X -= a.Acceleration * dts
		} else if right && !left {
			vel.X += a.Acceleration * dts
		}
		if up && !down {
			vel.Y -= a.Acceleration * dts
		} else if down && !up {
			vel.Y += a.Acceleration * dts
		}

		speed := float32(math.Hypot(float64(vel.X), float64(vel.Y)))
		if speed > a.MaxSpeed {
			scale := a.MaxSpeed / speed
			vel.X *= scale
			vel.Y *= scale
		}

		pos.X += vel.X * dts
		pos.Y += vel.Y * dts

		if pos.X < 0 {
			pos.X = 0
			vel.X = 0
		} else if pos.X > a.Width {
			pos.X = a.Width
			vel.X = 0
		}
		if pos.Y < 0 {
			pos.Y = 0
			vel.Y = 0
		} else if pos.Y > a.Height {
			pos.Y = a.Height
			vel.Y = 0
		}

		ddx, ddy := pos.X-startX, pos.Y-startY
		dirty.Dirty = dirty.Dirty || (ddx*ddx+ddy*ddy) > 1e-4
	})
}

// EnemyMovementSystem drives enemy AI: Idle enemies hold still, Pursue
// enemies chase the nearest player (acquiring one if they have none), and
// Attack enemies hold still in melee range.
func EnemyMovementSystem(r *ecs.Registry, dt time.Duration, st *State) {
	dts := float32(dt.Seconds())
	chaseSpeed := st.Arena.EnemyChaseSpeed
	ecs.Zipper4(r, func(e ecs.Entity, pos *Position, vel *Velocity, target *Target, dirty *DirtyFlag) {
		aiPtr, ok := ecs.GetComponent[AIState](r, e)
		if !ok {
			return
		}

		switch *aiPtr {
		case AIIdle:
			vel.X, vel.Y = 0, 0
		case AIAttack:
			vel.X, vel.Y = 0, 0
		case AIPursue:
			if !target.HasTarget || !entityStillHasPlayer(st, target.PlayerID) {
				if pid, found := nearestPlayer(st, r, pos); found {
					target.HasTarget = true
					target.PlayerID = pid
				} else {
					target.HasTarget = false
				}
			}
			if target.HasTarget {
				tEntity, _ := st.PlayerEntity(target.PlayerID)
				tPos, ok := ecs.GetComponent[Position](r, tEntity)
				if !ok {
					target.HasTarget = false
					vel.X, vel.Y = 0, 0
					break
				}
				dx, dy := tPos.X-pos.X, tPos.Y-pos.Y
				dist := float32(math.Hypot(float64(dx), float64(dy)))
				if dist <= 1 {
					vel.X, vel.Y = 0, 0
				} else {
					vel.X = dx / dist * chaseSpeed
					vel.Y = dy / dist * chaseSpeed
				}
			} else {
				vel.X, vel.Y = 0, 0
			}
		}

		startX, startY := pos.X, pos.Y
		pos.X += vel.X * dts
		pos.Y += vel.Y * dts
		ddx, ddy := pos.X-startX, pos.Y-startY
		dirty.Dirty = dirty.Dirty || (ddx*ddx+ddy*ddy) > 1e-4
	})
}

func entityStillHasPlayer(st *State, id uint8) bool {
	_, ok := st.PlayerEntity(id)
	return ok
}

func nearestPlayer(st *State, r *ecs.Registry, from *Position) (uint8, bool) {
	var (
		best     uint8
		bestDist = float32(math.MaxFloat32)
		found    bool
	)
	ecs.Zipper2(r, func(_ ecs.Entity, p *Player, pos *Position) {
		dx, dy := pos.X-from.X, pos.Y-from.Y
		d := dx*dx + dy*dy
		if !found || d < bestDist {
			found = true
			bestDist = d
			best = p.ID
		}
	})
	return best, found
}

// ProjectileMovementSystem integrates projectiles and removes any that
// leave the arena bounds.
func ProjectileMovementSystem(r *ecs.Registry, dt time.Duration, st *State) {
	dts := float32(dt.Seconds())
	a := st.Arena
	var expired []uint8
	ecs.Zipper4(r, func(_ ecs.Entity, pos *Position, vel *Velocity, dirty *DirtyFlag, proj *Projectile) {
		startX, startY := pos.X, pos.Y
		pos.X += vel.X * dts
		pos.Y += vel.Y * dts
		ddx, ddy := pos.X-startX, pos.Y-startY
		dirty.Dirty = dirty.Dirty || (ddx*ddx+ddy*ddy) > 1e-4

		if pos.X < 0 || pos.X > a.Width || pos.Y < 0 || pos.Y > a.Height {
			expired = append(expired, proj.ID)
		}
	})
	for _, pid := range expired {
		st.RemoveProjectile(pid)
	}
}

// PlayerShootingSystem spawns a projectile for every player holding Shoot
// or AutoShoot whose cooldown has elapsed and whose aim direction is
// non-zero.
func PlayerShootingSystem(r *ecs.Registry, now time.Time, st *State) {
	cooldown := time.Duration(st.Arena.ShotCooldownMs) * time.Millisecond
	ecs.Zipper4(r, func(_ ecs.Entity, in *InputState, pos *Position, last *LastShotTime, p *Player) {
		if in.Actions&(maskShoot|maskAutoShoot) == 0 {
			return
		}
		if now.Sub(last.At) < cooldown {
			return
		}
		mag := math.Hypot(float64(in.DirX), float64(in.DirY))
		if mag <= 0.01 {
			return
		}
		st.AddProjectile(p.ID, pos.X, pos.Y, in.DirX, in.DirY)
		last.At = now
	})
}

// CollisionSystem resolves projectile↔enemy collisions before
// enemy↔player collisions, and within each class iterates in ascending
// entity index for deterministic tie-breaking.
func CollisionSystem(r *ecs.Registry, st *State) {
	type hit struct {
		projEntity, otherEntity ecs.Entity
		projID                  uint8
		ownerID                 uint8
		damage                  int32
	}

	var projHits []hit
	ecs.Zipper3(r, func(pe ecs.Entity, ppos *Position, pshape *Shape, proj *Projectile) {
		ecs.Zipper3(r, func(ee ecs.Entity, epos *Position, eshape *Shape, enemy *Enemy) {
			if !overlaps(*ppos, *pshape, *epos, *eshape) {
				return
			}
			projHits = append(projHits, hit{pe, ee, proj.ID, proj.OwnerID, proj.Damage})
		})
	})

	handledProjectiles := make(map[uint8]bool)
	for _, h := range projHits {
		if handledProjectiles[h.projID] {
			continue
		}
		eid, ok := enemyIDFor(st, h.otherEntity)
		if !ok {
			continue
		}
		hp, ok := ecs.GetComponent[Health](r, h.otherEntity)
		if !ok {
			continue
		}
		hp.Current -= h.damage
		handledProjectiles[h.projID] = true
		st.RemoveProjectile(h.projID)
		if hp.Current <= 0 {
			st.RemoveEnemy(eid)
			st.AddScoreToPlayer(h.ownerID, st.Arena.EnemyKillScore)
		}
	}

	type contact struct {
		playerID     uint8
		enemyID      uint8
		playerEntity ecs.Entity
	}
	var contacts []contact
	ecs.Zipper3(r, func(_ ecs.Entity, ppos *Position, player *Player, _ *Health) {
		ecs.Zipper3(r, func(ee ecs.Entity, epos *Position, eshape *Shape, enemy *Enemy) {
			if !overlaps(*ppos, Shape{Kind: ShapeCircle, Radius: 1}, *epos, *eshape) {
				return
			}
			pe, ok := st.PlayerEntity(player.ID)
			if !ok {
				return
			}
			contacts = append(contacts, contact{player.ID, enemy.ID, pe})
		})
	})

	handledEnemies := make(map[uint8]bool)
	for _, c := range contacts {
		if handledEnemies[c.enemyID] {
			continue
		}
		hp, ok := ecs.GetComponent[Health](r, c.playerEntity)
		if !ok {
			continue
		}
		hp.Current -= st.Arena.EnemyTouchDamage
		handledEnemies[c.enemyID] = true
		st.RemoveEnemy(c.enemyID)
		if hp.Current <= 0 {
			st.RemovePlayer(c.playerID)
		}
	}
}

func enemyIDFor(st *State, e ecs.Entity) (uint8, bool) {
	var found uint8
	var ok bool
	st.EachEnemyID(func(id uint8, ent ecs.Entity) {
		if ent == e {
			found, ok = id, true
		}
	})
	return found, ok
}

func overlaps(aPos Position, a Shape, bPos Position, b Shape) bool {
	switch {
	case a.Kind == ShapeCircle && b.Kind == ShapeCircle:
		dx, dy := aPos.X-bPos.X, aPos.Y-bPos.Y
		r := a.Radius + b.Radius
		return dx*dx+dy*dy <= r*r
	case a.Kind == ShapeRectangle && b.Kind == ShapeRectangle:
		return aabbOverlap(aPos, a, bPos, b)
	case a.Kind == ShapeCircle && b.Kind == ShapeRectangle:
		return circleRectOverlap(aPos, a.Radius, bPos, b)
	case a.Kind == ShapeRectangle && b.Kind == ShapeCircle:
		return circleRectOverlap(bPos, b.Radius, aPos, a)
	}
	return false
}

func aabbOverlap(aPos Position, a Shape, bPos Position, b Shape) bool {
	return aPos.X < bPos.X+b.W && aPos.X+a.W > bPos.X &&
		aPos.Y < bPos.Y+b.H && aPos.Y+a.H > bPos.Y
}

func circleRectOverlap(cPos Position, radius float32, rPos Position, rect Shape) bool {
	clampedX := clamp(cPos.X, rPos.X, rPos.X+rect.W)
	clampedY := clamp(cPos.Y, rPos.Y, rPos.Y+rect.H)
	dx, dy := cPos.X-clampedX, cPos.Y-clampedY
	return dx*dx+dy*dy <= radius*radius
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EnemySpawnSystem tops up the enemy population to EnemiesPerPlayer×
// playerCount, spawning the deficit just outside the arena border.
func EnemySpawnSystem(st *State, rng *rand.Rand) {
	target := st.Arena.EnemiesPerPlayer * st.PlayerCount()
	deficit := target - st.EnemyCount()
	for i := 0; i < deficit; i++ {
		x, y := spawnOutsideArena(rng, st.Arena.Width, st.Arena.Height, st.Arena.SpawnMargin)
		st.AddEnemy(x, y, AIPursue)
	}
}

// spawnOutsideArena picks a uniformly-random point in the padded bounding
// box, then pushes it back outside the arena via the nearest horizontal
// edge if it happened to land inside.
func spawnOutsideArena(rng *rand.Rand, width, height, margin float32) (float32, float32) {
	x := -margin + rng.Float32()*(width+2*margin)
	y := -margin + rng.Float32()*(height+2*margin)
	if x >= 0 && x <= width && y >= 0 && y <= height {
		if x < width/2 {
			x = -margin
		} else {
			x = width + margin
		}
	}
	return x, y
}
