package proto

// Action bitmask values carried in PlayerInput.Actions.
const (
	ActionMoveUp    uint16 = 1
	ActionMoveDown  uint16 = 2
	ActionMoveLeft  uint16 = 4
	ActionMoveRight uint16 = 8
	ActionShoot     uint16 = 16
	ActionAutoShoot uint16 = 32
)

// Payload is implemented by every typed packet body. Encode/Decode mirror
// each other field-for-field; Extract verifies shape and returns a
// decode error rather than panicking on malformed input.
type Payload interface {
	Encode(w *Writer)
	Decode(r *Reader) error
}

type LoginPacket struct {
	Username string
	Password string
}

func (p *LoginPacket) Encode(w *Writer) { w.WriteFixed(p.Username, 32); w.WriteFixed(p.Password, 32) }
func (p *LoginPacket) Decode(r *Reader) (err error) {
	if p.Username, err = r.ReadFixed(32); err != nil {
		return err
	}
	p.Password, err = r.ReadFixed(32)
	return err
}

type RegisterPacket struct {
	Username string
	Password string
}

func (p *RegisterPacket) Encode(w *Writer) { w.WriteFixed(p.Username, 32); w.WriteFixed(p.Password, 32) }
func (p *RegisterPacket) Decode(r *Reader) (err error) {
	if p.Username, err = r.ReadFixed(32); err != nil {
		return err
	}
	p.Password, err = r.ReadFixed(32)
	return err
}

// StatusResponse carries a generic status code for Register/Login/JoinLobby/
// LeaveLobby replies and other lobby-server status replies (e.g. a failed
// game start). CreateLobby replies use CreateLobbyResponse instead.
type StatusResponse struct {
	Status int32
}

func (p *StatusResponse) Encode(w *Writer) { w.WriteI32(p.Status) }
func (p *StatusResponse) Decode(r *Reader) (err error) {
	p.Status, err = r.ReadI32()
	return err
}

type PlayerAssign struct {
	SpawnX   float32
	SpawnY   float32
	Score    uint16
	PlayerID uint8
	Health   uint8
}

func (p *PlayerAssign) Encode(w *Writer) {
	w.WriteF32(p.SpawnX)
	w.WriteF32(p.SpawnY)
	w.WriteU16(p.Score)
	w.WriteU8(p.PlayerID)
	w.WriteU8(p.Health)
}
func (p *PlayerAssign) Decode(r *Reader) (err error) {
	if p.SpawnX, err = r.ReadF32(); err != nil {
		return err
	}
	if p.SpawnY, err = r.ReadF32(); err != nil {
		return err
	}
	if p.Score, err = r.ReadU16(); err != nil {
		return err
	}
	if p.PlayerID, err = r.ReadU8(); err != nil {
		return err
	}
	p.Health, err = r.ReadU8()
	return err
}

type PlayerInput struct {
	PlayerID uint8
	Actions  uint16
	DirX     float32
	DirY     float32
}

func (p *PlayerInput) Encode(w *Writer) {
	w.WriteU8(p.PlayerID)
	w.WriteU16(p.Actions)
	w.WriteF32(p.DirX)
	w.WriteF32(p.DirY)
}
func (p *PlayerInput) Decode(r *Reader) (err error) {
	if p.PlayerID, err = r.ReadU8(); err != nil {
		return err
	}
	if p.Actions, err = r.ReadU16(); err != nil {
		return err
	}
	if p.DirX, err = r.ReadF32(); err != nil {
		return err
	}
	p.DirY, err = r.ReadF32()
	return err
}

type UpdatePlayer struct {
	PlayerID uint8
	X, Y     float32
	Score    uint16
	Health   uint8
}

func (p *UpdatePlayer) Encode(w *Writer) {
	w.WriteU8(p.PlayerID)
	w.WriteF32(p.X)
	w.WriteF32(p.Y)
	w.WriteU16(p.Score)
	w.WriteU8(p.Health)
}
func (p *UpdatePlayer) Decode(r *Reader) (err error) {
	if p.PlayerID, err = r.ReadU8(); err != nil {
		return err
	}
	if p.X, err = r.ReadF32(); err != nil {
		return err
	}
	if p.Y, err = r.ReadF32(); err != nil {
		return err
	}
	if p.Score, err = r.ReadU16(); err != nil {
		return err
	}
	p.Health, err = r.ReadU8()
	return err
}

type UpdateProjectile struct {
	ProjectileID uint8
	OwnerID      uint8
	X, Y         float32
}

func (p *UpdateProjectile) Encode(w *Writer) {
	w.WriteU8(p.ProjectileID)
	w.WriteU8(p.OwnerID)
	w.WriteF32(p.X)
	w.WriteF32(p.Y)
}
func (p *UpdateProjectile) Decode(r *Reader) (err error) {
	if p.ProjectileID, err = r.ReadU8(); err != nil {
		return err
	}
	if p.OwnerID, err = r.ReadU8(); err != nil {
		return err
	}
	if p.X, err = r.ReadF32(); err != nil {
		return err
	}
	p.Y, err = r.ReadF32()
	return err
}

type UpdateEnemy struct {
	EnemyID uint8
	X, Y    float32
}

func (p *UpdateEnemy) Encode(w *Writer) {
	w.WriteU8(p.EnemyID)
	w.WriteF32(p.X)
	w.WriteF32(p.Y)
}
func (p *UpdateEnemy) Decode(r *Reader) (err error) {
	if p.EnemyID, err = r.ReadU8(); err != nil {
		return err
	}
	if p.X, err = r.ReadF32(); err != nil {
		return err
	}
	p.Y, err = r.ReadF32()
	return err
}

// RemoveEntity covers RemovePlayer/RemoveProjectile/RemoveEnemy, which all
// carry just the id being removed.
type RemoveEntity struct {
	ID uint32
}

func (p *RemoveEntity) Encode(w *Writer) { w.WriteU32(p.ID) }
func (p *RemoveEntity) Decode(r *Reader) (err error) {
	p.ID, err = r.ReadU32()
	return err
}

type CreateLobby struct {
	Name     string
	Password string
}

func (p *CreateLobby) Encode(w *Writer) { w.WriteFixed(p.Name, 32); w.WriteFixed(p.Password, 32) }
func (p *CreateLobby) Decode(r *Reader) (err error) {
	if p.Name, err = r.ReadFixed(32); err != nil {
		return err
	}
	p.Password, err = r.ReadFixed(32)
	return err
}

type JoinLobby struct {
	LobbyID  int32
	Password string
}

func (p *JoinLobby) Encode(w *Writer) { w.WriteI32(p.LobbyID); w.WriteFixed(p.Password, 32) }
func (p *JoinLobby) Decode(r *Reader) (err error) {
	if p.LobbyID, err = r.ReadI32(); err != nil {
		return err
	}
	p.Password, err = r.ReadFixed(32)
	return err
}

type GetLobbyList struct {
	Offset uint32
	Limit  uint32
	Search string
}

func (p *GetLobbyList) Encode(w *Writer) {
	w.WriteU32(p.Offset)
	w.WriteU32(p.Limit)
	w.WriteFixed(p.Search, 32)
}
func (p *GetLobbyList) Decode(r *Reader) (err error) {
	if p.Offset, err = r.ReadU32(); err != nil {
		return err
	}
	if p.Limit, err = r.ReadU32(); err != nil {
		return err
	}
	p.Search, err = r.ReadFixed(32)
	return err
}

type LobbyEntry struct {
	ID          int32
	Name        string
	HasPassword bool
}

type LobbyListResponse struct {
	Status int32
	Lobbies []LobbyEntry
}

func (p *LobbyListResponse) Encode(w *Writer) {
	w.WriteI32(p.Status)
	w.WriteU32(uint32(len(p.Lobbies)))
	for _, l := range p.Lobbies {
		w.WriteI32(l.ID)
		w.WriteFixed(l.Name, 32)
		w.WriteBool(l.HasPassword)
	}
}
func (p *LobbyListResponse) Decode(r *Reader) error {
	status, err := r.ReadI32()
	if err != nil {
		return err
	}
	p.Status = status
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	p.Lobbies = make([]LobbyEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		var e LobbyEntry
		if e.ID, err = r.ReadI32(); err != nil {
			return err
		}
		if e.Name, err = r.ReadFixed(32); err != nil {
			return err
		}
		if e.HasPassword, err = r.ReadBool(); err != nil {
			return err
		}
		p.Lobbies = append(p.Lobbies, e)
	}
	return nil
}

type LobbyPlayerEntry struct {
	PlayerID int32
	Username string
	IsReady  bool
}

type LobbyPlayersResponse struct {
	Players []LobbyPlayerEntry
}

func (p *LobbyPlayersResponse) Encode(w *Writer) {
	w.WriteU32(uint32(len(p.Players)))
	for _, pl := range p.Players {
		w.WriteI32(pl.PlayerID)
		w.WriteFixed(pl.Username, 32)
		w.WriteBool(pl.IsReady)
	}
}
func (p *LobbyPlayersResponse) Decode(r *Reader) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	p.Players = make([]LobbyPlayerEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		var e LobbyPlayerEntry
		if e.PlayerID, err = r.ReadI32(); err != nil {
			return err
		}
		if e.Username, err = r.ReadFixed(32); err != nil {
			return err
		}
		if e.IsReady, err = r.ReadBool(); err != nil {
			return err
		}
		p.Players = append(p.Players, e)
	}
	return nil
}

type UserEntry struct {
	UserID   int32
	Username string
	IsOnline bool
}

type UserListResponse struct {
	Users []UserEntry
}

func (p *UserListResponse) Encode(w *Writer) {
	w.WriteU32(uint32(len(p.Users)))
	for _, u := range p.Users {
		w.WriteI32(u.UserID)
		w.WriteFixed(u.Username, 32)
		w.WriteBool(u.IsOnline)
	}
}
func (p *UserListResponse) Decode(r *Reader) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	p.Users = make([]UserEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		var u UserEntry
		if u.UserID, err = r.ReadI32(); err != nil {
			return err
		}
		if u.Username, err = r.ReadFixed(32); err != nil {
			return err
		}
		if u.IsOnline, err = r.ReadBool(); err != nil {
			return err
		}
		p.Users = append(p.Users, u)
	}
	return nil
}

// CreateLobbyResponse reports the result of a CreateLobby request; LobbyID
// is meaningless when Status is not a 2xx code.
type CreateLobbyResponse struct {
	Status  int32
	LobbyID int32
}

func (p *CreateLobbyResponse) Encode(w *Writer) { w.WriteI32(p.Status); w.WriteI32(p.LobbyID) }
func (p *CreateLobbyResponse) Decode(r *Reader) (err error) {
	if p.Status, err = r.ReadI32(); err != nil {
		return err
	}
	p.LobbyID, err = r.ReadI32()
	return err
}

type PlayerJoinedLobby struct {
	PlayerID int32
	Username string
}

func (p *PlayerJoinedLobby) Encode(w *Writer) { w.WriteI32(p.PlayerID); w.WriteFixed(p.Username, 32) }
func (p *PlayerJoinedLobby) Decode(r *Reader) (err error) {
	if p.PlayerID, err = r.ReadI32(); err != nil {
		return err
	}
	p.Username, err = r.ReadFixed(32)
	return err
}

type PlayerLeftLobby struct {
	PlayerID int32
}

func (p *PlayerLeftLobby) Encode(w *Writer) { w.WriteI32(p.PlayerID) }
func (p *PlayerLeftLobby) Decode(r *Reader) (err error) {
	p.PlayerID, err = r.ReadI32()
	return err
}

type PlayerReady struct {
	IsReady bool
}

func (p *PlayerReady) Encode(w *Writer) { w.WriteBool(p.IsReady) }
func (p *PlayerReady) Decode(r *Reader) (err error) {
	p.IsReady, err = r.ReadBool()
	return err
}

type LobbyPlayerReady struct {
	PlayerID int32
	IsReady  bool
}

func (p *LobbyPlayerReady) Encode(w *Writer) { w.WriteI32(p.PlayerID); w.WriteBool(p.IsReady) }
func (p *LobbyPlayerReady) Decode(r *Reader) (err error) {
	if p.PlayerID, err = r.ReadI32(); err != nil {
		return err
	}
	p.IsReady, err = r.ReadBool()
	return err
}

// GameConnectionInfo's Ports is fixed at 16 slots on the wire; only the
// first two are meaningful (TCP, UDP) but the array shape is preserved so
// future port lists don't require a wire-format bump.
type GameConnectionInfo struct {
	IP    string
	Ports [16]int32
}

func (p *GameConnectionInfo) Encode(w *Writer) {
	w.WriteFixed(p.IP, 64)
	for _, port := range p.Ports {
		w.WriteI32(port)
	}
}
func (p *GameConnectionInfo) Decode(r *Reader) (err error) {
	if p.IP, err = r.ReadFixed(64); err != nil {
		return err
	}
	for i := range p.Ports {
		if p.Ports[i], err = r.ReadI32(); err != nil {
			return err
		}
	}
	return nil
}

type PrivateMessage struct {
	ID          int32
	SenderID    int32
	RecipientID int32
	Content     string
	SentAtMs    int64
}

func (p *PrivateMessage) Encode(w *Writer) {
	w.WriteI32(p.ID)
	w.WriteI32(p.SenderID)
	w.WriteI32(p.RecipientID)
	w.WriteFixed(p.Content, 256)
	w.WriteU32(uint32(p.SentAtMs))
}
func (p *PrivateMessage) Decode(r *Reader) (err error) {
	if p.ID, err = r.ReadI32(); err != nil {
		return err
	}
	if p.SenderID, err = r.ReadI32(); err != nil {
		return err
	}
	if p.RecipientID, err = r.ReadI32(); err != nil {
		return err
	}
	if p.Content, err = r.ReadFixed(256); err != nil {
		return err
	}
	sentAt, err := r.ReadU32()
	p.SentAtMs = int64(sentAt)
	return err
}

type PrivateChatHistory struct {
	WithID   int32
	Messages []PrivateMessage
}

func (p *PrivateChatHistory) Encode(w *Writer) {
	w.WriteI32(p.WithID)
	w.WriteU32(uint32(len(p.Messages)))
	for i := range p.Messages {
		p.Messages[i].Encode(w)
	}
}
func (p *PrivateChatHistory) Decode(r *Reader) error {
	withID, err := r.ReadI32()
	if err != nil {
		return err
	}
	p.WithID = withID
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	p.Messages = make([]PrivateMessage, n)
	for i := range p.Messages {
		if err := p.Messages[i].Decode(r); err != nil {
			return err
		}
	}
	return nil
}

type PingPacket struct {
	TimestampMs uint32
}

func (p *PingPacket) Encode(w *Writer) { w.WriteU32(p.TimestampMs) }
func (p *PingPacket) Decode(r *Reader) (err error) {
	p.TimestampMs, err = r.ReadU32()
	return err
}
