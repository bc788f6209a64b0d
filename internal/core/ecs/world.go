package ecs

// World is the top-level ECS container. It owns the entity pool and the
// component registry, and layers a deferred destruction queue on top of
// Registry.KillEntity so systems can mark an entity dead mid-tick without
// invalidating component stores another system is still iterating over —
// the game tick loop (internal/game Engine.tick) flushes the queue once,
// after every system has run.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []Entity
}

func NewWorld() *World {
	pool := NewEntityPool()
	return &World{
		pool:         pool,
		registry:     NewRegistry(pool),
		destroyQueue: make([]Entity, 0, 64),
	}
}

func (w *World) Pool() *EntityPool     { return w.pool }
func (w *World) Registry() *Registry   { return w.registry }

// Spawn allocates a fresh entity with an empty signature.
func (w *World) Spawn() Entity {
	return w.registry.SpawnEntity()
}

// Alive reports whether e currently refers to a live entity.
func (w *World) Alive(e Entity) bool {
	return w.pool.Alive(e)
}

// MarkForDestruction queues e for end-of-tick cleanup. Safe to call multiple
// times or from multiple systems in the same tick.
func (w *World) MarkForDestruction(e Entity) {
	w.destroyQueue = append(w.destroyQueue, e)
}

// FlushDestroyQueue kills every queued entity, clearing its components and
// freeing its index for reuse, then empties the queue.
func (w *World) FlushDestroyQueue() {
	for _, e := range w.destroyQueue {
		if w.pool.Alive(e) {
			w.registry.KillEntity(e)
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
}
