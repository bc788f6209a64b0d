package lobby

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/core/event"
	"github.com/rtypearena/server/internal/orchestrator"
	"github.com/rtypearena/server/internal/proto"
	"github.com/rtypearena/server/internal/transport"
)

// testHarness wires a real loopback TCP server so Service.send has a live
// transport.Conn to write into, the same way the pack's other concurrency
// tests exercise real net.Pipe()/loopback sockets instead of mocking them.
type testHarness struct {
	t        *testing.T
	tcp      *transport.Server
	svc      *Service
	bus      *event.Bus
	accepted chan *transport.Conn
	conns    map[transport.ConnID]net.Conn
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	log := zap.NewNop()
	accepted := make(chan *transport.Conn, 8)
	tcp, err := transport.NewServer("127.0.0.1:0", 8, 8, log, func(c *transport.Conn) { accepted <- c }, func(transport.ConnID) {})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(tcp.Shutdown)
	go tcp.AcceptLoop()

	bus := event.NewBus(log)
	svc := NewService(bus, nil, nil, tcp, nil, nil, "", log)

	return &testHarness{t: t, tcp: tcp, svc: svc, bus: bus, accepted: accepted, conns: make(map[transport.ConnID]net.Conn)}
}

// login dials a fresh loopback connection and registers it as an
// authenticated session for userID, bypassing onUserLoginAttempted (which
// needs a live UserRepo) since these tests target lobby-only logic.
func (h *testHarness) login(userID int32, username string) transport.ConnID {
	h.t.Helper()
	nc, err := net.Dial("tcp", h.tcp.Addr().String())
	if err != nil {
		h.t.Fatalf("dial: %v", err)
	}
	h.t.Cleanup(func() { nc.Close() })

	select {
	case c := <-h.accepted:
		h.svc.sessions[c.ID] = &session{userID: userID, username: username, connID: c.ID}
		h.svc.online[userID] = c.ID
		h.conns[c.ID] = nc
		return c.ID
	case <-time.After(time.Second):
		h.t.Fatal("connection was never accepted")
		return 0
	}
}

// recvFrame returns a function that reads exactly one framed packet off
// connID's raw socket, for asserting on what Service.send actually wrote
// to the wire.
func (h *testHarness) recvFrame(connID transport.ConnID) func(t *testing.T) proto.Frame {
	nc := h.conns[connID]
	return func(t *testing.T) proto.Frame {
		t.Helper()
		nc.SetReadDeadline(time.Now().Add(2 * time.Second))
		var hdr [proto.HeaderSize]byte
		if _, err := io.ReadFull(nc, hdr[:]); err != nil {
			t.Fatalf("read header: %v", err)
		}
		header := proto.DecodeHeader(hdr[:])
		body := make([]byte, header.Size)
		if _, err := io.ReadFull(nc, body); err != nil {
			t.Fatalf("read body: %v", err)
		}
		return proto.Frame{Type: header.Type, Body: body}
	}
}

// process publishes ev and runs one bus cycle synchronously.
func process[T any](h *testHarness, ev T) {
	event.Publish(h.bus, ev)
	h.bus.SwapBuffers()
	h.bus.Process()
}

func TestLobbyCreateThenJoinThenLeave(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	joiner := h.login(2, "bob")

	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Nova Squad"})
	if len(h.svc.lobbies) != 1 {
		t.Fatalf("lobbies = %d, want 1 after create", len(h.svc.lobbies))
	}
	var lobbyID int32
	for id := range h.svc.lobbies {
		lobbyID = id
	}
	if h.svc.sessions[creator].lobbyID != lobbyID {
		t.Fatal("creator's session was not attached to the new lobby")
	}

	process(h, event.LobbyJoinRequested{ConnID: joiner, LobbyID: lobbyID})
	l := h.svc.lobbies[lobbyID]
	if len(l.Players) != 2 {
		t.Fatalf("lobby has %d players after join, want 2", len(l.Players))
	}
	if h.svc.sessions[joiner].lobbyID != lobbyID {
		t.Fatal("joiner's session was not attached to the lobby")
	}

	process(h, event.LobbyLeaveRequested{ConnID: joiner})
	l = h.svc.lobbies[lobbyID]
	if len(l.Players) != 1 {
		t.Fatalf("lobby has %d players after leave, want 1", len(l.Players))
	}
	if h.svc.sessions[joiner].lobbyID != 0 {
		t.Error("joiner's session still references the lobby after leaving")
	}
}

func TestLobbyCreateRejectsDuplicateName(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	other := h.login(2, "bob")

	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Nova Squad"})
	if len(h.svc.lobbies) != 1 {
		t.Fatalf("lobbies = %d, want 1 after first create", len(h.svc.lobbies))
	}

	process(h, event.LobbyCreateRequested{ConnID: other, Name: "Nova Squad"})
	if len(h.svc.lobbies) != 1 {
		t.Fatalf("lobbies = %d, want still 1 after a duplicate-name create", len(h.svc.lobbies))
	}
	if h.svc.sessions[other].lobbyID != 0 {
		t.Fatal("second creator's session was attached to a lobby despite the name collision")
	}
}

// readyUpPair creates a 2-player lobby, marks the creator ready, and
// returns the joiner's ConnID — toggling the joiner ready next completes
// the all-ready set and triggers startGame, letting the caller assert on
// the response that connection gets. The two frames the joiner has
// already been sent (its join status and the creator's ready broadcast)
// are read off its socket first, so the caller's next read sees only
// what the joiner's own toggle produces.
func readyUpPair(h *testHarness) (lobbyID int32, trigger transport.ConnID) {
	creator := h.login(1, "alice")
	joiner := h.login(2, "bob")
	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Duo"})
	for id := range h.svc.lobbies {
		lobbyID = id
	}
	process(h, event.LobbyJoinRequested{ConnID: joiner, LobbyID: lobbyID})
	process(h, event.LobbyReadyToggled{ConnID: creator, IsReady: true})
	recv := h.recvFrame(joiner)
	recv(h.t) // StatusResponse for the join
	recv(h.t) // LobbyPlayerReady for the creator's toggle
	return lobbyID, joiner
}

func TestStartGameNoPortAvailableNotifiesTrigger(t *testing.T) {
	h := newTestHarness(t)
	h.svc.ports = orchestrator.NewPortAllocator(30000, 30000) // empty range: Allocate always fails
	lobbyID, trigger := readyUpPair(h)

	recv := h.recvFrame(trigger)
	process(h, event.LobbyReadyToggled{ConnID: trigger, IsReady: true})

	// The trigger connection first gets the LobbyPlayerReady broadcast
	// every member receives, then the startGame failure status.
	if f := recv(t); f.Type != proto.TypeLobbyPlayerReady {
		t.Fatalf("first frame type = %v, want %v", f.Type, proto.TypeLobbyPlayerReady)
	}
	f := recv(t)
	if f.Type != proto.TypeStatusResponse {
		t.Fatalf("second frame type = %v, want %v", f.Type, proto.TypeStatusResponse)
	}
	status, err := proto.Extract[proto.StatusResponse](f.Body)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if status.Status != StatusServerError {
		t.Fatalf("status = %d, want %d", status.Status, StatusServerError)
	}
	if h.svc.lobbies[lobbyID].GameActive {
		t.Fatal("GameActive left true after a port allocation failure")
	}
}

func TestStartGameProvisioningFailureNotifiesTrigger(t *testing.T) {
	h := newTestHarness(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/namespaces/default/pods", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(tokenPath, []byte("test-token"), 0o600); err != nil {
		t.Fatalf("WriteFile token: %v", err)
	}
	missingCA := filepath.Join(t.TempDir(), "ca.crt")
	orch, err := orchestrator.NewClient(ts.URL, "default", tokenPath, missingCA, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	h.svc.orch = orch
	h.svc.ports = orchestrator.NewPortAllocator(30000, 30010)

	lobbyID, trigger := readyUpPair(h)
	recv := h.recvFrame(trigger)
	process(h, event.LobbyReadyToggled{ConnID: trigger, IsReady: true})

	if f := recv(t); f.Type != proto.TypeLobbyPlayerReady {
		t.Fatalf("first frame type = %v, want %v", f.Type, proto.TypeLobbyPlayerReady)
	}
	f := recv(t)
	if f.Type != proto.TypeStatusResponse {
		t.Fatalf("second frame type = %v, want %v", f.Type, proto.TypeStatusResponse)
	}
	status, err := proto.Extract[proto.StatusResponse](f.Body)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if status.Status != StatusServerError {
		t.Fatalf("status = %d, want %d", status.Status, StatusServerError)
	}
	if h.svc.lobbies[lobbyID].GameActive {
		t.Fatal("GameActive left true after provisioning failure")
	}
}

func TestLobbyJoinRejectsWrongPassword(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	joiner := h.login(2, "bob")

	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Locked Room", Password: "secret"})
	var lobbyID int32
	for id := range h.svc.lobbies {
		lobbyID = id
	}

	process(h, event.LobbyJoinRequested{ConnID: joiner, LobbyID: lobbyID, Password: "wrong"})
	if len(h.svc.lobbies[lobbyID].Players) != 1 {
		t.Fatal("joiner was admitted despite the wrong password")
	}

	process(h, event.LobbyJoinRequested{ConnID: joiner, LobbyID: lobbyID, Password: "secret"})
	if len(h.svc.lobbies[lobbyID].Players) != 2 {
		t.Fatal("joiner was not admitted with the correct password")
	}
}

func TestLastPlayerLeavingDeletesTheLobby(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Solo"})

	var lobbyID int32
	for id := range h.svc.lobbies {
		lobbyID = id
	}
	process(h, event.LobbyLeaveRequested{ConnID: creator})

	if _, ok := h.svc.lobbies[lobbyID]; ok {
		t.Fatal("empty lobby was not torn down")
	}
}

func TestOnDisconnectLeavesTheLobby(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	joiner := h.login(2, "bob")
	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Nova Squad"})
	var lobbyID int32
	for id := range h.svc.lobbies {
		lobbyID = id
	}
	process(h, event.LobbyJoinRequested{ConnID: joiner, LobbyID: lobbyID})

	h.svc.OnDisconnect(joiner)

	if len(h.svc.lobbies[lobbyID].Players) != 1 {
		t.Fatal("OnDisconnect did not remove the departing player from the lobby")
	}
	if _, ok := h.svc.sessions[joiner]; ok {
		t.Error("session not cleared after OnDisconnect")
	}
	if _, ok := h.svc.online[2]; ok {
		t.Error("online map not cleared after OnDisconnect")
	}
}

func TestLobbyListExcludesActiveGames(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Nova Squad"})
	var lobbyID int32
	for id := range h.svc.lobbies {
		lobbyID = id
	}
	h.svc.lobbies[lobbyID].GameActive = true

	other := h.login(2, "bob")
	process(h, event.LobbyCreateRequested{ConnID: other, Name: "Open Arena"})

	// Request the list through the service and parse the wire response.
	recv := h.recvFrame(other)
	if f := recv(t); f.Type != proto.TypeCreateLobbyResponse {
		t.Fatalf("first frame type = %v, want %v", f.Type, proto.TypeCreateLobbyResponse)
	}
	process(h, event.LobbyListRequested{ConnID: other})
	f := recv(t)
	if f.Type != proto.TypeLobbyListResponse {
		t.Fatalf("frame type = %v, want %v", f.Type, proto.TypeLobbyListResponse)
	}
	resp, err := proto.Extract[proto.LobbyListResponse](f.Body)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(resp.Lobbies) != 1 || resp.Lobbies[0].Name != "Open Arena" {
		t.Fatalf("listed lobbies = %+v, want only Open Arena", resp.Lobbies)
	}
}

func TestReadyToggleTracksPerPlayerState(t *testing.T) {
	h := newTestHarness(t)
	creator := h.login(1, "alice")
	joiner := h.login(2, "bob")
	third := h.login(3, "carol")
	process(h, event.LobbyCreateRequested{ConnID: creator, Name: "Trio"})
	var lobbyID int32
	for id := range h.svc.lobbies {
		lobbyID = id
	}
	process(h, event.LobbyJoinRequested{ConnID: joiner, LobbyID: lobbyID})
	process(h, event.LobbyJoinRequested{ConnID: third, LobbyID: lobbyID})

	process(h, event.LobbyReadyToggled{ConnID: creator, IsReady: true})
	l := h.svc.lobbies[lobbyID]
	if l.AllReady() {
		t.Fatal("lobby reports all-ready with only one of three players ready")
	}

	// Leaves "carol" unready so AllReady stays false and startGame (which
	// needs a live orchestrator client) never runs.
	process(h, event.LobbyReadyToggled{ConnID: joiner, IsReady: true})
	l = h.svc.lobbies[lobbyID]
	if !l.Player(1).IsReady || !l.Player(2).IsReady {
		t.Fatal("ready state was not recorded for both players who toggled")
	}
	if l.Player(3).IsReady {
		t.Fatal("carol's ready state was set without a toggle event")
	}
}
