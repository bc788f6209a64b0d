// Package game implements the arena simulation: components, game-state
// tables, and the systems that run once per tick.
package game

import "time"

// Player, Position, Velocity, ... — pure data, zero methods. They are
// mutated by the System functions in systems.go, by State's helpers in
// state.go, and by the tick loop in tick.go (input apply, dirty-flag clear).

type Player struct {
	ID    uint8
	Score uint16
}

type Position struct {
	X, Y float32
}

type Velocity struct {
	X, Y float32
}

// InputState holds a player's latest input. Actions uses proto's Action*
// bit values; systems.go keeps its own copies (maskMoveUp, ...) so systems
// don't import proto for a single field.
type InputState struct {
	Actions uint16
	DirX    float32
	DirY    float32
}

type Health struct {
	Current int32
	Max     int32
}

// DirtyFlag marks an entity as having changed this tick; cleared once its
// delta has been broadcast.
type DirtyFlag struct {
	Dirty bool
}

type LastShotTime struct {
	At time.Time
}

// Projectile identifies the shooter and damage dealt on contact. ID is a
// wrapping u8 to match the wire format's projectile_id field.
type Projectile struct {
	ID      uint8
	OwnerID uint8
	Damage  int32
}

// Enemy's ID is a wrapping u8 to match the wire format's enemy_id field.
type Enemy struct {
	ID uint8
}

type AIState int

const (
	AIIdle AIState = iota
	AIPursue
	AIAttack
)

// Target tracks the player id an enemy is pursuing, if any.
type Target struct {
	HasTarget bool
	PlayerID  uint8
}

// ShapeKind distinguishes the two collision primitives.
type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapeRectangle
)

// Shape is a tagged union: only the fields for Kind are meaningful.
type Shape struct {
	Kind   ShapeKind
	Radius float32 // Circle
	W, H   float32 // Rectangle
}
