// Package transport provides the framed TCP connection and UDP endpoint
// that carry game and lobby traffic, plus the accept loop and broadcast
// helpers both servers share.
package transport

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/proto"
)

// ConnID uniquely identifies a TCP connection for its lifetime.
type ConnID uint32

// Conn is one framed TCP connection. Reads run a two-state machine
// (ReadHeader, ReadBody) on a dedicated goroutine; writes are serialized
// by a second goroutine draining OutQueue one frame at a time.
type Conn struct {
	ID   ConnID
	conn net.Conn
	IP   string

	InQueue  chan proto.Frame
	OutQueue chan proto.Frame

	closed    atomic.Bool
	closeCh   chan struct{}
	closeOnce sync.Once

	log *zap.Logger
}

func newConn(id ConnID, nc net.Conn, inSize, outSize int, log *zap.Logger) *Conn {
	return &Conn{
		ID:       id,
		conn:     nc,
		IP:       nc.RemoteAddr().String(),
		InQueue:  make(chan proto.Frame, inSize),
		OutQueue: make(chan proto.Frame, outSize),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint32("conn", uint32(id))),
	}
}

// Start launches the read and write pumps.
func (c *Conn) Start() {
	go c.readLoop()
	go c.writeLoop()
}

// Send enqueues a frame for the write pump. Non-blocking: a full outbound
// queue disconnects the peer rather than stalling the caller, matching
// the no-retry, no-ack backpressure policy.
func (c *Conn) Send(f proto.Frame) {
	if c.closed.Load() {
		return
	}
	select {
	case c.OutQueue <- f:
	default:
		c.log.Warn("outbound queue full, disconnecting slow peer")
		c.Close()
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		c.conn.Close()
	})
}

func (c *Conn) IsClosed() bool { return c.closed.Load() }

// Done returns a channel closed once the connection has torn down, so a
// caller pumping InQueue can stop without leaking a goroutine.
func (c *Conn) Done() <-chan struct{} { return c.closeCh }

// readLoop implements the ReadHeader/ReadBody state machine from the
// framing spec: a header is read, its size validated against the cap,
// then exactly that many body bytes are read before returning to
// ReadHeader.
func (c *Conn) readLoop() {
	defer c.Close()

	var hdr [proto.HeaderSize]byte
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		if _, err := io.ReadFull(c.conn, hdr[:]); err != nil {
			if !c.closed.Load() {
				c.log.Debug("read header failed", zap.Error(err))
			}
			return
		}
		h := proto.DecodeHeader(hdr[:])
		if h.Size > proto.MaxTCPBody {
			c.log.Warn("frame exceeds cap, closing", zap.Uint32("size", h.Size))
			return
		}

		var body []byte
		if h.Size > 0 {
			body = make([]byte, h.Size)
			if _, err := io.ReadFull(c.conn, body); err != nil {
				if !c.closed.Load() {
					c.log.Debug("read body failed", zap.Error(err))
				}
				return
			}
		}

		f := proto.Frame{Type: h.Type, Body: body}
		select {
		case c.InQueue <- f:
		case <-c.closeCh:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.Close()
	for {
		select {
		case f := <-c.OutQueue:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, err := c.conn.Write(f.Encode()); err != nil {
				if !c.closed.Load() {
					c.log.Debug("write failed", zap.Error(err))
				}
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
