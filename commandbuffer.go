package archway

// commandBufferLockBit is the World.locks bit a CommandBuffer holds for
// the duration of Commit; World.Locked reports it while a replay runs.
// The bit is only a marker: it does not block other goroutines and does
// not give readers a snapshot of the pre-commit world.
const commandBufferLockBit = 1

// cbOp is one deferred operation. It closes over whatever the caller
// supplied (entity handles, component id, value) and, at Commit time, is
// handed a resolve function that maps temporary handles (returned by
// Create/Copy) to the real entities they turned into.
type cbOp struct {
	apply func(w *World, resolve func(Entity) Entity) error
}

// CommandBuffer defers structural mutations — create, copy, add, remove,
// set, destroy — onto a log for later in-order replay, the way a reader
// goroutine that must not mutate the world directly stages work for the
// writer to drain. Handles returned by Create/Copy are temporary and
// resolve to real entities at Commit.
type CommandBuffer struct {
	world    *World
	ops      []cbOp
	nextTemp int
	tempReal map[Entity]Entity
}

// NewCommandBuffer creates an empty buffer bound to w.
func (w *World) NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{world: w, tempReal: make(map[Entity]Entity)}
}

// tempEntity mints a placeholder handle distinguishable from any real
// entity or pair: IsEntity and IsPair are both false, which MakeEntity
// never produces for a live allocation (entityStore.Alloc always sets
// isEntity=true).
func tempEntity(n int) Entity { return MakeEntity(uint32(n), 0, false, false, KindGen) }

func isTempHandle(e Entity) bool { return !e.IsEntity() && !e.IsPair() }

func (cb *CommandBuffer) resolve(e Entity) Entity {
	if !isTempHandle(e) {
		return e
	}
	if real, ok := cb.tempReal[e]; ok {
		return real
	}
	return e
}

// Create records a deferred NewEntity and returns a temporary handle that
// other operations in the same buffer (and the caller) can use before
// Commit actually allocates the real entity.
func (cb *CommandBuffer) Create() Entity {
	temp := tempEntity(cb.nextTemp)
	cb.nextTemp++
	cb.ops = append(cb.ops, cbOp{apply: func(w *World, resolve func(Entity) Entity) error {
		cb.tempReal[temp] = w.NewEntity()
		return nil
	}})
	return temp
}

// Copy records a deferred Copy of src (which may itself be a temporary
// handle created earlier in this buffer) and returns a temporary handle
// for the new entity.
func (cb *CommandBuffer) Copy(src Entity) Entity {
	temp := tempEntity(cb.nextTemp)
	cb.nextTemp++
	cb.ops = append(cb.ops, cbOp{apply: func(w *World, resolve func(Entity) Entity) error {
		e, err := w.Copy(resolve(src))
		if err != nil {
			return err
		}
		cb.tempReal[temp] = e
		return nil
	}})
	return temp
}

// Destroy records a deferred Delete of e.
func (cb *CommandBuffer) Destroy(e Entity) {
	cb.ops = append(cb.ops, cbOp{apply: func(w *World, resolve func(Entity) Entity) error {
		return w.Delete(resolve(e))
	}})
}

// CBAdd records a deferred Add<T>(e, value).
func CBAdd[T any](cb *CommandBuffer, e Entity, cid ComponentID[T], value T) {
	cb.ops = append(cb.ops, cbOp{apply: func(w *World, resolve func(Entity) Entity) error {
		return Add(w, resolve(e), cid, value)
	}})
}

// CBRemove records a deferred Remove<T>(e).
func CBRemove[T any](cb *CommandBuffer, e Entity, cid ComponentID[T]) {
	cb.ops = append(cb.ops, cbOp{apply: func(w *World, resolve func(Entity) Entity) error {
		return Remove(w, resolve(e), cid)
	}})
}

// CBSet records a deferred Set<T>(e, value); the entity must already
// carry T by the time this op replays, same as SetValue.
func CBSet[T any](cb *CommandBuffer, e Entity, cid ComponentID[T], value T) {
	cb.ops = append(cb.ops, cbOp{apply: func(w *World, resolve func(Entity) Entity) error {
		return SetValue(w, resolve(e), cid, value)
	}})
}

// Commit replays every recorded operation in insertion order while
// holding commandBufferLockBit (a marker only; concurrent readers are not
// blocked). If a step fails, replay
// stops immediately, every temporary handle this buffer ever resolved to
// a real entity is destroyed, and a CommandBufferAborted error wrapping
// the failing step's index and cause is returned — the previously
// replayed steps are not rolled back at the storage layer (the engine
// keeps no undo log), but no caller ever observes a handle from this
// buffer that didn't fully resolve.
func (cb *CommandBuffer) Commit() error {
	w := cb.world
	w.AddLock(commandBufferLockBit)
	defer w.RemoveLock(commandBufferLockBit)

	for i, op := range cb.ops {
		if err := op.apply(w, cb.resolve); err != nil {
			cb.abort()
			return commandBufferAbortError(i, err)
		}
	}
	cb.reset()
	return nil
}

func (cb *CommandBuffer) abort() {
	for _, real := range cb.tempReal {
		if cb.world.entities.Valid(real) {
			_ = cb.world.Delete(real)
		}
	}
	cb.reset()
}

func (cb *CommandBuffer) reset() {
	cb.ops = nil
	cb.tempReal = make(map[Entity]Entity)
}
