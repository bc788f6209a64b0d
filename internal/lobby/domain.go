// Package lobby implements the pre-game lobby domain: registration and
// login, room creation/joining, ready-up, private messaging, and handing
// a ready lobby off to the orchestrator for game server provisioning.
// Lobbies and lobby membership are in-memory only; users and messages are
// the two tables persisted to Postgres.
package lobby

import "github.com/rtypearena/server/internal/transport"

const maxLobbyPlayers = 10

// Lobby is a pre-game room. GameActive flips true once every member has
// readied up and a game server has been provisioned; active lobbies are
// excluded from listings.
type Lobby struct {
	ID           int32
	Name         string
	PasswordHash string // empty means open
	GameActive   bool
	Players      []*LobbyPlayer
}

func (l *Lobby) HasPassword() bool { return l.PasswordHash != "" }

func (l *Lobby) Player(userID int32) *LobbyPlayer {
	for _, p := range l.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (l *Lobby) AllReady() bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// LobbyPlayer is one user's membership in exactly one lobby at a time.
type LobbyPlayer struct {
	UserID   int32
	Username string
	IsReady  bool
}

// session tracks one authenticated connection: the user it belongs to
// and, transiently, which lobby that user currently sits in.
type session struct {
	userID   int32
	username string
	connID   transport.ConnID
	lobbyID  int32 // 0 when not in a lobby
}
