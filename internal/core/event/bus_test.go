package event

import (
	"testing"

	"go.uber.org/zap"
)

type playerJoined struct{ ID uint8 }
type playerLeft struct{ ID uint8 }

func TestProcessDoesNotDeliverUntilSwapBuffers(t *testing.T) {
	b := NewBus(zap.NewNop())
	var got []uint8
	Subscribe(b, func(e playerJoined) { got = append(got, e.ID) })

	Publish(b, playerJoined{ID: 1})
	b.Process()
	if len(got) != 0 {
		t.Fatalf("Process delivered before SwapBuffers: %v", got)
	}

	b.SwapBuffers()
	b.Process()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got = %v, want [1] after SwapBuffers+Process", got)
	}
}

func TestSwapBuffersOnlyDeliversEventsPublishedBeforeTheSwap(t *testing.T) {
	b := NewBus(zap.NewNop())
	var got []uint8
	Subscribe(b, func(e playerJoined) { got = append(got, e.ID) })

	Publish(b, playerJoined{ID: 1})
	b.SwapBuffers()
	Publish(b, playerJoined{ID: 2}) // published after the swap, goes to the new back buffer
	b.Process()

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got = %v, want [1]", got)
	}

	b.SwapBuffers()
	b.Process()
	if len(got) != 2 || got[1] != 2 {
		t.Fatalf("got = %v, want [1 2] after second swap", got)
	}
}

func TestSubscribersOfOneTypeDoNotReceiveAnother(t *testing.T) {
	b := NewBus(zap.NewNop())
	var joined, left int
	Subscribe(b, func(playerJoined) { joined++ })
	Subscribe(b, func(playerLeft) { left++ })

	Publish(b, playerJoined{ID: 1})
	b.SwapBuffers()
	b.Process()

	if joined != 1 || left != 0 {
		t.Fatalf("joined=%d left=%d, want 1, 0", joined, left)
	}
}

func TestMultipleHandlersDeliveredInRegistrationOrder(t *testing.T) {
	b := NewBus(zap.NewNop())
	var order []int
	Subscribe(b, func(playerJoined) { order = append(order, 1) })
	Subscribe(b, func(playerJoined) { order = append(order, 2) })

	Publish(b, playerJoined{ID: 1})
	b.SwapBuffers()
	b.Process()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestFIFOOrderPerEventType(t *testing.T) {
	b := NewBus(zap.NewNop())
	var ids []uint8
	Subscribe(b, func(e playerJoined) { ids = append(ids, e.ID) })

	Publish(b, playerJoined{ID: 1})
	Publish(b, playerJoined{ID: 2})
	Publish(b, playerJoined{ID: 3})
	b.SwapBuffers()
	b.Process()

	want := []uint8{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestPanickingHandlerDoesNotStopDeliveryToOthers(t *testing.T) {
	b := NewBus(zap.NewNop())
	var secondCalled bool
	Subscribe(b, func(playerJoined) { panic("boom") })
	Subscribe(b, func(playerJoined) { secondCalled = true })

	Publish(b, playerJoined{ID: 1})
	Publish(b, playerJoined{ID: 2})
	b.SwapBuffers()
	b.Process() // must not panic out of the test

	if !secondCalled {
		t.Fatal("handler after a panicking one was never called")
	}
}
