package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/proto"
)

var errPacketTooLarge = errors.New("transport: packet exceeds udp mtu cap")

// UDPEndpoint wraps a single UDP socket shared by every player. Datagrams
// are unordered and unacknowledged; one packet equals one datagram, capped
// at proto.MaxUDPPacket including the header.
type UDPEndpoint struct {
	conn net.PacketConn
	log  *zap.Logger

	mu        sync.RWMutex
	byPlayer  map[uint8]net.Addr

	onPacket func(proto.Frame, net.Addr)
}

func NewUDPEndpoint(bindAddr string, log *zap.Logger, onPacket func(proto.Frame, net.Addr)) (*UDPEndpoint, error) {
	conn, err := net.ListenPacket("udp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &UDPEndpoint{
		conn:     conn,
		log:      log,
		byPlayer: make(map[uint8]net.Addr),
		onPacket: onPacket,
	}, nil
}

func (u *UDPEndpoint) Addr() net.Addr { return u.conn.LocalAddr() }

// RegisterPlayer binds a player id to a UDP source address, replacing any
// earlier binding for that id, so broadcasts know where to deliver deltas.
func (u *UDPEndpoint) RegisterPlayer(id uint8, addr net.Addr) {
	u.mu.Lock()
	u.byPlayer[id] = addr
	u.mu.Unlock()
}

func (u *UDPEndpoint) UnregisterPlayer(id uint8) {
	u.mu.Lock()
	delete(u.byPlayer, id)
	u.mu.Unlock()
}

// ReceiveLoop polls the socket until ctx is cancelled. Payloads smaller
// than a header or larger than the MTU cap are dropped silently — UDP
// decode errors are always drop-and-continue, never connection teardown
// since there is no connection to tear down.
func (u *UDPEndpoint) ReceiveLoop(ctx context.Context) {
	buf := make([]byte, proto.MaxUDPPacket)
	for {
		select {
		case <-ctx.Done():
			u.conn.Close()
			return
		default:
		}

		n, addr, err := u.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			u.log.Debug("udp read error", zap.Error(err))
			continue
		}
		if n < proto.HeaderSize || n > proto.MaxUDPPacket {
			continue
		}

		h := proto.DecodeHeader(buf[:proto.HeaderSize])
		body := make([]byte, n-proto.HeaderSize)
		copy(body, buf[proto.HeaderSize:n])
		if int(h.Size) != len(body) {
			continue
		}

		if u.onPacket != nil {
			u.onPacket(proto.Frame{Type: h.Type, Body: body}, addr)
		}
	}
}

// Send transmits f to addr directly. The caller is responsible for not
// exceeding proto.MaxUDPPacket; Send refuses rather than silently
// fragmenting.
func (u *UDPEndpoint) Send(f proto.Frame, addr net.Addr) error {
	data := f.Encode()
	if len(data) > proto.MaxUDPPacket {
		return errPacketTooLarge
	}
	_, err := u.conn.WriteTo(data, addr)
	return err
}

// BroadcastUDP sends f to every registered player address.
func (u *UDPEndpoint) BroadcastUDP(f proto.Frame) {
	data := f.Encode()
	if len(data) > proto.MaxUDPPacket {
		u.log.Warn("dropping oversized udp broadcast", zap.Int("size", len(data)))
		return
	}
	u.mu.RLock()
	addrs := make([]net.Addr, 0, len(u.byPlayer))
	for _, a := range u.byPlayer {
		addrs = append(addrs, a)
	}
	u.mu.RUnlock()

	for _, a := range addrs {
		if _, err := u.conn.WriteTo(data, a); err != nil {
			u.log.Debug("udp write failed", zap.Error(err))
		}
	}
}
