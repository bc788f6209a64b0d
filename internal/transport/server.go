package transport

import (
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/proto"
)

// Server owns the TCP listener and the connection registry. It is the
// single owner of every Conn; the accept loop only borrows connections
// out to callbacks, so closing and removing an entry can never race a
// still-running I/O operation on it.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint32
	inSize   int
	outSize  int
	log      *zap.Logger

	mu    sync.RWMutex
	conns map[ConnID]*Conn

	onAccepted    func(*Conn)
	onDisconnect  func(ConnID)
	closeCh       chan struct{}
	closeOnce     sync.Once
}

// NewServer binds a TCP listener. onAccepted is invoked from the accept
// loop; onDisconnect from a per-connection watcher goroutine (watchClose).
func NewServer(bindAddr string, inSize, outSize int, log *zap.Logger, onAccepted func(*Conn), onDisconnect func(ConnID)) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:     ln,
		inSize:       inSize,
		outSize:      outSize,
		log:          log,
		conns:        make(map[ConnID]*Conn),
		onAccepted:   onAccepted,
		onDisconnect: onDisconnect,
		closeCh:      make(chan struct{}),
	}, nil
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// AcceptLoop runs until the listener is closed. Each accepted connection
// gets a monotonically increasing ConnID and is registered before its
// pumps start, so OnClientAccepted always sees a connection broadcast can
// already reach.
func (s *Server) AcceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := ConnID(s.nextID.Add(1))
		c := newConn(id, nc, s.inSize, s.outSize, s.log)

		s.mu.Lock()
		s.conns[id] = c
		s.mu.Unlock()

		c.Start()
		go s.watchClose(c)

		s.log.Info("client connected", zap.Uint32("conn", uint32(id)), zap.String("ip", c.IP))
		if s.onAccepted != nil {
			s.onAccepted(c)
		}
	}
}

// watchClose removes the connection from the registry and fires
// onDisconnect once its pumps have torn it down.
func (s *Server) watchClose(c *Conn) {
	<-c.closeCh
	s.mu.Lock()
	delete(s.conns, c.ID)
	s.mu.Unlock()
	if s.onDisconnect != nil {
		s.onDisconnect(c.ID)
	}
}

func (s *Server) Conn(id ConnID) (*Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	return c, ok
}

// BroadcastTCP sends f to every currently registered connection, skipping
// ones already closed.
func (s *Server) BroadcastTCP(f proto.Frame) {
	s.mu.RLock()
	targets := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if c.IsClosed() {
			continue
		}
		c.Send(f)
	}
}

func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.listener.Close()
	})
}
