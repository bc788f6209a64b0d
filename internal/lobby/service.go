package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/core/event"
	"github.com/rtypearena/server/internal/orchestrator"
	"github.com/rtypearena/server/internal/persist"
	"github.com/rtypearena/server/internal/proto"
	"github.com/rtypearena/server/internal/transport"
)

const (
	StatusOK           = 200
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusForbidden    = 403
	StatusNotFound     = 404
	StatusServerError  = 500
)

const busDrainPeriod = 5 * time.Millisecond

// Service owns every in-memory lobby and the bijective user↔connection
// map. It runs as the lobby server's single event consumer — like the
// game server's tick loop, all state here is touched from exactly one
// goroutine, so no locking is needed around it.
type Service struct {
	Bus *event.Bus

	users    *persist.UserRepo
	messages *persist.MessageRepo
	tcp      *transport.Server
	orch     *orchestrator.Client
	ports    *orchestrator.PortAllocator
	gameImage string
	log      *zap.Logger

	sessions    map[transport.ConnID]*session
	online      map[int32]transport.ConnID
	lobbies     map[int32]*Lobby
	nextLobbyID int32
}

func NewService(bus *event.Bus, users *persist.UserRepo, messages *persist.MessageRepo, tcp *transport.Server, orch *orchestrator.Client, ports *orchestrator.PortAllocator, gameImage string, log *zap.Logger) *Service {
	s := &Service{
		Bus:       bus,
		users:     users,
		messages:  messages,
		tcp:       tcp,
		orch:      orch,
		ports:     ports,
		gameImage: gameImage,
		log:       log,
		sessions:  make(map[transport.ConnID]*session),
		online:    make(map[int32]transport.ConnID),
		lobbies:   make(map[int32]*Lobby),
	}
	s.subscribe()
	return s
}

func (s *Service) subscribe() {
	event.Subscribe(s.Bus, s.onUserRegistered)
	event.Subscribe(s.Bus, s.onUserLoginAttempted)
	event.Subscribe(s.Bus, s.onLobbyCreateRequested)
	event.Subscribe(s.Bus, s.onLobbyJoinRequested)
	event.Subscribe(s.Bus, s.onLobbyLeaveRequested)
	event.Subscribe(s.Bus, s.onLobbyReadyToggled)
	event.Subscribe(s.Bus, s.onLobbyListRequested)
	event.Subscribe(s.Bus, s.onLobbyPlayersRequested)
	event.Subscribe(s.Bus, s.onUserListRequested)
	event.Subscribe(s.Bus, s.onPrivateMessageSent)
	event.Subscribe(s.Bus, s.onPrivateHistoryRequested)
}

// Run drains the event bus at a fixed cadence until stop closes. There is
// no simulation to keep in step with, so the period only bounds reply
// latency, not correctness.
func (s *Service) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(busDrainPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Bus.SwapBuffers()
			s.Bus.Process()
		}
	}
}

// OnDisconnect clears any session/online/lobby membership state tied to
// connID. Called by the acceptor's onDisconnect hook.
func (s *Service) OnDisconnect(connID transport.ConnID) {
	sess, ok := s.sessions[connID]
	if !ok {
		return
	}
	if sess.lobbyID != 0 {
		s.leaveLobby(sess)
	}
	delete(s.online, sess.userID)
	delete(s.sessions, connID)
}

func (s *Service) send(connID transport.ConnID, t proto.Type, p proto.Payload) {
	conn, ok := s.tcp.Conn(connID)
	if !ok {
		return
	}
	conn.Send(proto.CreatePacket(t, p))
}

func (s *Service) status(connID transport.ConnID, code int32) {
	s.send(connID, proto.TypeStatusResponse, &proto.StatusResponse{Status: code})
}

func (s *Service) onUserRegistered(e event.UserRegistered) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	existing, err := s.users.FindByUsername(ctx, e.Username)
	if err != nil {
		s.log.Error("register: lookup failed", zap.Error(err))
		s.status(e.ConnID, StatusServerError)
		return
	}
	if existing != nil {
		s.status(e.ConnID, StatusBadRequest)
		return
	}
	if _, err := s.users.Create(ctx, e.Username, e.Password); err != nil {
		s.log.Error("register: create failed", zap.Error(err))
		s.status(e.ConnID, StatusServerError)
		return
	}
	s.status(e.ConnID, StatusOK)
}

func (s *Service) onUserLoginAttempted(e event.UserLoginAttempted) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row, err := s.users.FindByUsername(ctx, e.Username)
	if err != nil {
		s.log.Error("login: lookup failed", zap.Error(err))
		s.status(e.ConnID, StatusServerError)
		return
	}
	if row == nil {
		s.status(e.ConnID, StatusNotFound)
		return
	}
	if !s.users.ValidatePassword(row.PasswordHash, e.Password) {
		s.status(e.ConnID, StatusUnauthorized)
		return
	}

	if prevConn, wasOnline := s.online[row.ID]; wasOnline {
		if prev, ok := s.tcp.Conn(prevConn); ok {
			prev.Close()
		}
		delete(s.sessions, prevConn)
	}
	s.sessions[e.ConnID] = &session{userID: row.ID, username: row.Username, connID: e.ConnID}
	s.online[row.ID] = e.ConnID
	s.status(e.ConnID, StatusOK)
}

func (s *Service) onLobbyCreateRequested(e event.LobbyCreateRequested) {
	sess, ok := s.sessions[e.ConnID]
	if !ok {
		s.status(e.ConnID, StatusUnauthorized)
		return
	}

	for _, l := range s.lobbies {
		if l.Name == e.Name {
			s.send(e.ConnID, proto.TypeCreateLobbyResponse, &proto.CreateLobbyResponse{Status: StatusBadRequest})
			return
		}
	}

	var passwordHash string
	if e.Password != "" {
		hash, err := hashLobbyPassword(e.Password)
		if err != nil {
			s.log.Error("create lobby: hash failed", zap.Error(err))
			s.send(e.ConnID, proto.TypeCreateLobbyResponse, &proto.CreateLobbyResponse{Status: StatusServerError})
			return
		}
		passwordHash = hash
	}

	s.nextLobbyID++
	l := &Lobby{ID: s.nextLobbyID, Name: e.Name, PasswordHash: passwordHash}
	l.Players = append(l.Players, &LobbyPlayer{UserID: sess.userID, Username: sess.username})
	s.lobbies[l.ID] = l
	sess.lobbyID = l.ID

	s.send(e.ConnID, proto.TypeCreateLobbyResponse, &proto.CreateLobbyResponse{Status: StatusOK, LobbyID: l.ID})
}

func (s *Service) onLobbyJoinRequested(e event.LobbyJoinRequested) {
	sess, ok := s.sessions[e.ConnID]
	if !ok {
		s.status(e.ConnID, StatusUnauthorized)
		return
	}
	l, ok := s.lobbies[e.LobbyID]
	if !ok || l.GameActive {
		s.status(e.ConnID, StatusNotFound)
		return
	}
	if l.HasPassword() && !checkLobbyPassword(l.PasswordHash, e.Password) {
		s.status(e.ConnID, StatusUnauthorized)
		return
	}
	if len(l.Players) >= maxLobbyPlayers {
		s.status(e.ConnID, StatusForbidden)
		return
	}

	if sess.lobbyID != 0 {
		s.leaveLobby(sess)
	}

	l.Players = append(l.Players, &LobbyPlayer{UserID: sess.userID, Username: sess.username})
	sess.lobbyID = l.ID

	for _, p := range l.Players {
		if p.UserID == sess.userID {
			continue
		}
		if connID, online := s.online[p.UserID]; online {
			s.send(connID, proto.TypePlayerJoinedLobby, &proto.PlayerJoinedLobby{PlayerID: sess.userID, Username: sess.username})
		}
	}
	s.status(e.ConnID, StatusOK)
}

func (s *Service) onLobbyLeaveRequested(e event.LobbyLeaveRequested) {
	sess, ok := s.sessions[e.ConnID]
	if !ok || sess.lobbyID == 0 {
		s.status(e.ConnID, StatusNotFound)
		return
	}
	s.leaveLobby(sess)
	s.status(e.ConnID, StatusOK)
}

// leaveLobby removes sess from its current lobby, notifies the remaining
// members, and tears down the lobby entirely once it is empty.
func (s *Service) leaveLobby(sess *session) {
	l, ok := s.lobbies[sess.lobbyID]
	if !ok {
		sess.lobbyID = 0
		return
	}
	for i, p := range l.Players {
		if p.UserID == sess.userID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			break
		}
	}
	sess.lobbyID = 0

	for _, p := range l.Players {
		if connID, online := s.online[p.UserID]; online {
			s.send(connID, proto.TypePlayerLeftLobby, &proto.PlayerLeftLobby{PlayerID: sess.userID})
		}
	}
	if len(l.Players) == 0 {
		delete(s.lobbies, l.ID)
	}
}

func (s *Service) onLobbyReadyToggled(e event.LobbyReadyToggled) {
	sess, ok := s.sessions[e.ConnID]
	if !ok || sess.lobbyID == 0 {
		s.status(e.ConnID, StatusNotFound)
		return
	}
	l, ok := s.lobbies[sess.lobbyID]
	if !ok {
		s.status(e.ConnID, StatusNotFound)
		return
	}
	player := l.Player(sess.userID)
	if player == nil {
		s.status(e.ConnID, StatusNotFound)
		return
	}
	player.IsReady = e.IsReady

	for _, p := range l.Players {
		if connID, online := s.online[p.UserID]; online {
			s.send(connID, proto.TypeLobbyPlayerReady, &proto.LobbyPlayerReady{PlayerID: sess.userID, IsReady: e.IsReady})
		}
	}

	if l.AllReady() {
		s.startGame(l, e.ConnID)
	}
}

// startGame provisions a game server pod+service for l and hands every
// member its connection info. Any failed step leaves l.GameActive false so
// the lobby can be retried, and reports a 500-class status back to
// triggerConn — the PlayerReady sender whose toggle completed the
// all-ready set and kicked off provisioning (spec §4.10).
func (s *Service) startGame(l *Lobby, triggerConn transport.ConnID) {
	tcpPort, err := s.ports.Allocate()
	if err != nil {
		s.log.Error("start game: no tcp port available", zap.Int32("lobby_id", l.ID), zap.Error(err))
		s.status(triggerConn, StatusServerError)
		return
	}
	udpPort, err := s.ports.Allocate()
	if err != nil {
		s.ports.Release(tcpPort)
		s.log.Error("start game: no udp port available", zap.Int32("lobby_id", l.ID), zap.Error(err))
		s.status(triggerConn, StatusServerError)
		return
	}

	l.GameActive = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	instance, err := s.orch.StartGame(ctx, l.ID, s.gameImage, tcpPort, udpPort)
	if err != nil {
		s.log.Error("start game: provisioning failed", zap.Int32("lobby_id", l.ID), zap.Error(err))
		l.GameActive = false
		s.ports.Release(tcpPort)
		s.ports.Release(udpPort)
		s.status(triggerConn, StatusServerError)
		return
	}

	info := &proto.GameConnectionInfo{IP: instance.IP}
	info.Ports[0] = int32(instance.TCPPort)
	info.Ports[1] = int32(instance.UDPPort)
	for _, p := range l.Players {
		if connID, online := s.online[p.UserID]; online {
			s.send(connID, proto.TypeGameConnectionInfo, info)
		}
	}
}

func (s *Service) onLobbyListRequested(e event.LobbyListRequested) {
	var matches []*Lobby
	for _, l := range s.lobbies {
		if l.GameActive {
			continue
		}
		if e.Search != "" && !containsFold(l.Name, e.Search) {
			continue
		}
		matches = append(matches, l)
	}

	resp := &proto.LobbyListResponse{Status: StatusOK}
	for _, l := range paginate(matches, e.Offset, e.Limit) {
		resp.Lobbies = append(resp.Lobbies, proto.LobbyEntry{ID: l.ID, Name: l.Name, HasPassword: l.HasPassword()})
	}
	s.send(e.ConnID, proto.TypeLobbyListResponse, resp)
}

func (s *Service) onLobbyPlayersRequested(e event.LobbyPlayersRequested) {
	sess, ok := s.sessions[e.ConnID]
	if !ok || sess.lobbyID == 0 {
		s.send(e.ConnID, proto.TypeLobbyPlayersResponse, &proto.LobbyPlayersResponse{})
		return
	}
	l, ok := s.lobbies[sess.lobbyID]
	if !ok {
		s.send(e.ConnID, proto.TypeLobbyPlayersResponse, &proto.LobbyPlayersResponse{})
		return
	}
	resp := &proto.LobbyPlayersResponse{}
	for _, p := range l.Players {
		resp.Players = append(resp.Players, proto.LobbyPlayerEntry{PlayerID: p.UserID, Username: p.Username, IsReady: p.IsReady})
	}
	s.send(e.ConnID, proto.TypeLobbyPlayersResponse, resp)
}

func (s *Service) onUserListRequested(e event.UserListRequested) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.users.ListPage(ctx, int32(e.Offset), int32(e.Limit), "")
	if err != nil {
		s.log.Error("user list: query failed", zap.Error(err))
		s.send(e.ConnID, proto.TypeUserListResponse, &proto.UserListResponse{})
		return
	}
	resp := &proto.UserListResponse{}
	for _, row := range rows {
		resp.Users = append(resp.Users, proto.UserEntry{UserID: row.ID, Username: row.Username})
	}
	s.send(e.ConnID, proto.TypeUserListResponse, resp)
}

func (s *Service) onPrivateMessageSent(e event.PrivateMessageSent) {
	sess, ok := s.sessions[e.ConnID]
	if !ok {
		s.status(e.ConnID, StatusUnauthorized)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row, err := s.messages.Insert(ctx, sess.userID, e.RecipientID, e.Content)
	if err != nil {
		s.log.Error("private message: insert failed", zap.Error(err))
		s.status(e.ConnID, StatusServerError)
		return
	}

	msg := proto.PrivateMessage{
		ID:          int32(row.ID),
		SenderID:    row.SenderID,
		RecipientID: row.RecipientID,
		Content:     row.Content,
		SentAtMs:    row.SentAt.UnixMilli(),
	}
	s.send(e.ConnID, proto.TypePrivateMessage, &msg)
	if recipientConn, online := s.online[e.RecipientID]; online {
		s.send(recipientConn, proto.TypePrivateMessage, &msg)
	}
}

func (s *Service) onPrivateHistoryRequested(e event.PrivateHistoryRequested) {
	sess, ok := s.sessions[e.ConnID]
	if !ok {
		s.send(e.ConnID, proto.TypePrivateChatHistory, &proto.PrivateChatHistory{WithID: e.WithID})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.messages.History(ctx, sess.userID, e.WithID)
	if err != nil {
		s.log.Error("private history: query failed", zap.Error(err))
		s.send(e.ConnID, proto.TypePrivateChatHistory, &proto.PrivateChatHistory{WithID: e.WithID})
		return
	}
	resp := &proto.PrivateChatHistory{WithID: e.WithID}
	for _, row := range rows {
		resp.Messages = append(resp.Messages, proto.PrivateMessage{
			ID:          int32(row.ID),
			SenderID:    row.SenderID,
			RecipientID: row.RecipientID,
			Content:     row.Content,
			SentAtMs:    row.SentAt.UnixMilli(),
		})
	}
	s.send(e.ConnID, proto.TypePrivateChatHistory, resp)
}
