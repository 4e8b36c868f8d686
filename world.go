package archway

import (
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// World is the facade tying together the entity container, component
// cache, archetype graph, query cache, relationship resolver, and
// cleanup engine. It is the single point of structural mutation;
// everything else in the package operates on the pieces it owns.
type World struct {
	entities      *entityStore
	components    *componentCache
	archetypes    *archetypeGraph
	queryCache    *queryCache
	relationships *relationshipResolver
	cleanup       *cleanupEngine

	locks        mask.Mask256
	lockRefCount [256]uint32

	names  *pagedStorage[string]
	byName map[string]Entity

	version uint64

	emptyArchetype *Archetype
}

// NewWorld constructs an empty world with the reserved core entities
// (ChildOf, Is, OnDelete, …) pre-seeded into the entity container, and
// ChildOf wired with (OnDeleteTarget, ActionDelete) so deleting a parent
// recursively deletes its children.
func NewWorld() *World {
	w := &World{
		components: newComponentCache(),
		names:      newPagedStorage[string](),
		byName:     make(map[string]Entity),
	}
	w.entities = newEntityStore()
	w.archetypes = newArchetypeGraph(w)
	w.emptyArchetype = w.archetypes.findOrCreate(nil)
	w.entities.seedReserved(int(coreReservedCount), w.emptyArchetype)

	w.queryCache = newQueryCache(w)
	w.relationships = newRelationshipResolver(w)
	w.cleanup = newCleanupEngine(w)

	if err := w.addRaw(ChildOf, Pair(OnDeleteTarget, ActionDelete)); err != nil {
		panic("archway: failed to wire ChildOf cleanup policy: " + err.Error())
	}
	return w
}

// entityByIndex reconstructs the canonical entity-view value for a raw
// index found inside a pair's first/second slot. wildcardIndex is
// reserved for the All sentinel and never an allocated entity slot, so it
// is special-cased rather than handed to the entity container.
func (w *World) entityByIndex(idx uint32) Entity {
	if idx == wildcardIndex {
		return All
	}
	return w.entities.EntityAt(idx)
}

// --- locking ---

// AddLock marks bit as held, refcounted so nested/concurrent holders of
// the same bit don't unmark each other's hold early.
func (w *World) AddLock(bit uint32) {
	if w.lockRefCount[bit] == 0 {
		w.locks.Mark(bit)
	}
	w.lockRefCount[bit]++
}

// RemoveLock releases one hold on bit.
func (w *World) RemoveLock(bit uint32) {
	if w.lockRefCount[bit] == 0 {
		return
	}
	w.lockRefCount[bit]--
	if w.lockRefCount[bit] == 0 {
		w.locks.Unmark(bit)
	}
}

// Locked reports whether any structural lock bit is currently held.
func (w *World) Locked() bool { return !w.locks.IsEmpty() }

// --- entity lifecycle ---

// NewEntity allocates a fresh entity in the empty archetype.
func (w *World) NewEntity() Entity {
	e := w.entities.Alloc()
	rec := w.entities.Resolve(e)
	rec.archetype = w.emptyArchetype
	chunk, row, err := w.emptyArchetype.allocRow(e)
	if err != nil {
		panic("archway: empty archetype allocation failed: " + err.Error())
	}
	rec.chunk = chunk
	rec.row = row
	if hook := Config.hooks.OnEntityCreated; hook != nil {
		hook(e)
	}
	return e
}

// Valid reports whether e still refers to a live entity with matching
// generation.
func (w *World) Valid(e Entity) bool { return w.entities.Valid(e) }

// Delete removes e, running the full cleanup-policy cascade.
func (w *World) Delete(e Entity) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	return w.cleanup.Delete(e)
}

// destroyEntityRaw removes e's row from its archetype and reclaims its
// entity-container slot, without running the cleanup cascade. Used by
// cleanupEngine once propagation for e has already completed.
func (w *World) destroyEntityRaw(e Entity) {
	rec := w.entities.Resolve(e)
	a, c, row := rec.archetype, rec.chunk, rec.row
	moves, n := a.releaseRow(c, row)
	for i := 0; i < n; i++ {
		w.entities.Resolve(moves[i].Entity).row = moves[i].Row
	}
	w.names.Remove(e.Index())
	w.entities.Free(e)
	if hook := Config.hooks.OnEntityDeleted; hook != nil {
		hook(e)
	}
}

// Copy creates a new entity with the same archetype and component values
// as e.
func (w *World) Copy(e Entity) (Entity, error) {
	if !w.entities.Valid(e) {
		return IDBad, InvalidEntityError{Entity: e}
	}
	srcRec := w.entities.Resolve(e)
	a := srcRec.archetype
	srcChunk := srcRec.chunk

	dst := w.entities.Alloc()
	dstRec := w.entities.Resolve(dst)
	dstRec.archetype = a
	dstChunk, dstRow, err := a.allocRow(dst)
	if err != nil {
		return IDBad, err
	}
	dstRec.chunk = dstChunk
	dstRec.row = dstRow

	for i, id := range a.genericIDs {
		desc := a.descriptors[id]
		srcCol := &srcChunk.columns[i]
		dstCol := &dstChunk.columns[i]
		if desc.Size == 0 {
			continue
		}
		if desc.SoA > 0 {
			buf := make([]byte, desc.Size)
			srcCol.soaReadInto(srcRec.row, unsafe.Pointer(&buf[0]))
			dstCol.soaWriteFrom(dstRow, unsafe.Pointer(&buf[0]))
			continue
		}
		if desc.Copy != nil {
			desc.Copy(dstCol.aosPtr(dstRow), srcCol.aosPtr(srcRec.row))
		}
	}
	if hook := Config.hooks.OnEntityCreated; hook != nil {
		hook(dst)
	}
	return dst, nil
}

// Enable toggles e's row between the enabled and disabled partition of
// its chunk.
func (w *World) Enable(e Entity, state bool) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	rec := w.entities.Resolve(e)
	c, row := rec.chunk, rec.row
	c.Enable(row, state)
	// Chunk.Enable swaps row with the row at the partition boundary;
	// refresh the cached row of both entities it touched.
	other := c.enabledCount
	if state {
		other = c.enabledCount - 1
	}
	for _, r := range [2]uint32{row, other} {
		w.entities.Resolve(c.EntityAt(r)).row = r
	}
	return nil
}

// --- names ---

// Name assigns e a lookup name, replacing any prior name and overwriting
// any other entity previously registered under that name.
func (w *World) Name(e Entity, name string) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	w.names.Add(e.Index(), name)
	w.byName[name] = e
	return nil
}

// GetName returns e's name, if any.
func (w *World) GetName(e Entity) (string, bool) {
	return w.names.Get(e.Index())
}

// GetByName resolves a name to the entity registered under it.
func (w *World) GetByName(name string) (Entity, bool) {
	e, ok := w.byName[name]
	return e, ok
}

// --- relationships ---

// As is shorthand for adding (sub, Pair(Is, base)) — sub inherits base's
// query-visible relationships.
func (w *World) As(sub, base Entity) error {
	return w.addRaw(sub, Pair(Is, base))
}

// AddID attaches a plain marker entity or relationship pair to e with no
// associated value — the untyped counterpart to the generic Add (e.g.
// w.AddID(rabbit, archway.Pair(eats, carrot))).
func (w *World) AddID(e Entity, id Entity) error {
	return w.addRaw(e, id)
}

// RemoveID detaches a plain marker entity or relationship pair from e.
func (w *World) RemoveID(e Entity, id Entity) error {
	return w.removeRaw(e, id)
}

// HasID reports whether e's archetype carries id verbatim — the
// untyped counterpart to Has[T], for tags and relationship pairs that
// were never registered as a component type.
func (w *World) HasID(e Entity, id Entity) bool {
	return w.hasRaw(e, id)
}

// Target returns the first target entity for which (rel, target) is
// present on e.
func (w *World) Target(e Entity, rel Entity) (Entity, bool) {
	var found Entity
	ok := false
	w.relationships.Targets(e, rel, func(t Entity) bool {
		found, ok = t, true
		return false
	})
	return found, ok
}

// Targets enumerates every target for which (rel, target) is present on
// e, stopping early if fn returns false.
func (w *World) Targets(e Entity, rel Entity, fn func(Entity) bool) {
	w.relationships.Targets(e, rel, fn)
}

// Relations enumerates every relation for which (relation, tgt) is
// present on e, stopping early if fn returns false.
func (w *World) Relations(e Entity, tgt Entity, fn func(Entity) bool) {
	w.relationships.Relations(e, tgt, fn)
}

// Is reports whether b is reachable from a via the Is inheritance chain.
func (w *World) Is(a, b Entity) bool { return w.relationships.Is(a, b) }

// --- update ---

// Update advances the world version, the clock change-detection
// predicates use to interpret "since" baselines recorded before this
// Update.
func (w *World) Update() { w.advanceVersion() }

// advanceVersion bumps the monotonic world version and returns the new
// value. Every mutable component access stamps its chunk's per-component
// counter with this clock, which is what lets a query baseline taken from
// one chunk order against writes landing in another.
func (w *World) advanceVersion() uint64 {
	w.version++
	return w.version
}

// Version returns the current world version.
func (w *World) Version() uint64 { return w.version }
