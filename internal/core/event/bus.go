package event

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is a double-buffered event bus. Events published in tick N are
// readable in tick N+1: Publish appends to the back buffer, SwapBuffers
// rotates back→front at tick start, and Process drains the front buffer.
// One handler panicking must not stop delivery to the next handler or the
// next event — Process recovers around every call and logs.
type Bus struct {
	mu       sync.Mutex // guards handler registration and back-buffer writes
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]any
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
		log:      log,
	}
}

// Publish enqueues an event into the back buffer.
func Publish[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.back[t] = append(b.back[t], event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T. Delivery order
// across handlers of the same type matches registration order.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back→front and clears the new back buffer. Called
// once at the start of each tick, before Process.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// Process delivers every front-buffer event to its subscribers, in FIFO
// order per event type. Ordering across event types is unspecified (map
// iteration order).
func (b *Bus) Process() {
	for t, events := range b.front {
		handlers := b.handlers[t]
		for _, ev := range events {
			for _, h := range handlers {
				b.dispatch(h, ev)
			}
		}
	}
}

func (b *Bus) dispatch(handler, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", zap.Any("event", event), zap.Any("recover", r))
		}
	}()
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
