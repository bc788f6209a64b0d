package event

import (
	"github.com/rtypearena/server/internal/core/ecs"
	"github.com/rtypearena/server/internal/transport"
)

// Game-server events. Published by packet handlers or simulation systems,
// consumed by the opposite side so transport and simulation never call
// into each other directly.

type PlayerConnected struct {
	PlayerID    uint8
	ConnID      transport.ConnID
	SpawnX      float32
	SpawnY      float32
}

type PlayerDisconnected struct {
	PlayerID uint8
	Entity   ecs.Entity
}

type PlayerInputReceived struct {
	PlayerID uint8
	Actions  uint16
	DirX     float32
	DirY     float32
}

type EnemyKilled struct {
	Enemy     ecs.Entity
	KilledBy  uint8 // player_id that gets the score credit
}

type PlayerKilled struct {
	Player ecs.Entity
	ID     uint8
}

// Lobby-server events. Published by lobby packet handlers, consumed by
// lobby services; each carries the originating connection so the service
// can reply without re-deriving authentication state.

type UserRegistered struct {
	ConnID   transport.ConnID
	Username string
	Password string
}

type UserLoginAttempted struct {
	ConnID   transport.ConnID
	Username string
	Password string
}

type LobbyCreateRequested struct {
	ConnID   transport.ConnID
	Name     string
	Password string
}

type LobbyJoinRequested struct {
	ConnID   transport.ConnID
	LobbyID  int32
	Password string
}

type LobbyLeaveRequested struct {
	ConnID transport.ConnID
}

type LobbyReadyToggled struct {
	ConnID  transport.ConnID
	IsReady bool
}

type LobbyListRequested struct {
	ConnID transport.ConnID
	Offset uint32
	Limit  uint32
	Search string
}

type LobbyPlayersRequested struct {
	ConnID  transport.ConnID
	LobbyID int32
}

type UserListRequested struct {
	ConnID transport.ConnID
	Offset uint32
	Limit  uint32
}

type PrivateMessageSent struct {
	ConnID      transport.ConnID
	RecipientID int32
	Content     string
}

type PrivateHistoryRequested struct {
	ConnID transport.ConnID
	WithID int32
}
