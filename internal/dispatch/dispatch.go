// Package dispatch maps incoming packet types to handlers and bridges
// transport connections to the event bus.
package dispatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rtypearena/server/internal/proto"
	"github.com/rtypearena/server/internal/transport"
)

// Origin identifies where a packet came from: a TCP connection for
// lobby/control traffic, or a UDP endpoint for unreliable positional
// traffic. Exactly one of the two is non-nil.
type Origin struct {
	TCP *transport.Conn
	UDP *transport.UDPEndpoint
}

// HandlerFunc decodes and acts on a frame's body. Handlers typically
// decode the payload and publish an event, or reply directly via Origin.
type HandlerFunc func(origin Origin, body []byte) error

// Table is a fixed-size array of handlers keyed by proto.Type, with
// panic-safe dispatch so one bad packet or buggy handler never stalls the
// owning I/O or simulation thread.
type Table struct {
	handlers [proto.MaxTypes]HandlerFunc
	log      *zap.Logger
}

func NewTable(log *zap.Logger) *Table {
	return &Table{log: log}
}

// Register binds a handler to t. Re-registering overwrites the previous
// handler.
func (t *Table) Register(pt proto.Type, fn HandlerFunc) {
	t.handlers[pt] = fn
}

// Dispatch looks up the handler for f.Type and invokes it with origin. If
// none is registered, the default behavior is to log and discard.
func (t *Table) Dispatch(origin Origin, f proto.Frame) {
	h := t.handlers[f.Type]
	if h == nil {
		t.log.Debug("no handler for packet type, dropping", zap.Uint32("type", uint32(f.Type)))
		return
	}
	if err := t.safeCall(h, origin, f); err != nil {
		t.log.Warn("handler returned error", zap.Uint32("type", uint32(f.Type)), zap.Error(err))
	}
}

func (t *Table) safeCall(h HandlerFunc, origin Origin, f proto.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("packet handler panicked",
				zap.Uint32("type", uint32(f.Type)),
				zap.Any("recover", r),
			)
			err = fmt.Errorf("dispatch: handler panic for type %d: %v", f.Type, r)
		}
	}()
	return h(origin, f.Body)
}
