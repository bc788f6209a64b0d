// Package ecs implements the sparse-array Entity-Component-System runtime:
// entity recycling, typed component stores, signature bitmasks, and the
// Zipper iteration primitive.
package ecs

import "container/heap"

// Entity is an opaque dense index into every component store.
type Entity uint32

// entityHeap is a min-heap of freed entity indices so reuse always picks
// the lowest available index first. A plain LIFO free list (as in a
// map-backed registry) would also satisfy "never recycle a live index",
// but a min-heap keeps the live set packed toward index 0, which matters
// here because Registry.GetEntitiesWithComponents walks every signature
// slot up to the highest index ever spawned.
type entityHeap []Entity

func (h entityHeap) Len() int           { return len(h) }
func (h entityHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h entityHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entityHeap) Push(x any)        { *h = append(*h, x.(Entity)) }
func (h *entityHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// EntityPool hands out dense entity indices and recycles killed ones
// through a min-priority-queue so the lowest freed index is reused first.
type EntityPool struct {
	next  Entity
	alive []bool
	free  entityHeap
}

func NewEntityPool() *EntityPool {
	return &EntityPool{alive: make([]bool, 0, 256)}
}

// Spawn allocates a new entity, reusing the smallest freed index if any.
func (p *EntityPool) Spawn() Entity {
	if len(p.free) > 0 {
		e := heap.Pop(&p.free).(Entity)
		p.alive[e] = true
		return e
	}
	e := p.next
	p.next++
	p.alive = append(p.alive, true)
	return e
}

// Kill marks e dead and queues its index for reuse. Killing a dead or
// out-of-range entity is a no-op.
func (p *EntityPool) Kill(e Entity) {
	if int(e) >= len(p.alive) || !p.alive[e] {
		return
	}
	p.alive[e] = false
	heap.Push(&p.free, e)
}

// Alive reports whether e currently refers to a live entity.
func (p *EntityPool) Alive(e Entity) bool {
	return int(e) < len(p.alive) && p.alive[e]
}

// Count returns the number of currently live entities.
func (p *EntityPool) Count() int {
	n := 0
	for _, a := range p.alive {
		if a {
			n++
		}
	}
	return n
}

// HighWater returns one past the largest index ever handed out, i.e. the
// bound iteration over dense arrays must use.
func (p *EntityPool) HighWater() int {
	return len(p.alive)
}
