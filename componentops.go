package archway

// This file implements the entity-granular half of the World facade's
// component operations — Add, Remove, Get, Set, SSet, Has — layered on
// top of the archetype-graph transitions and the chunk-level row
// accessors in chunk.go.

// Has reports whether e currently carries the component identified by
// cid.
func Has[T any](w *World, e Entity, cid ComponentID[T]) bool {
	if !w.entities.Valid(e) {
		return false
	}
	return w.entities.Resolve(e).archetype.Has(cid.Entity())
}

// Get returns a read-only pointer to e's T, or (nil, false) if e lacks
// it. It does not bump T's change-version.
func Get[T any](w *World, e Entity, cid ComponentID[T]) (*T, bool) {
	if !w.entities.Valid(e) {
		return nil, false
	}
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(cid.Entity()) {
		return nil, false
	}
	return RowGet(rec.chunk, rec.row, cid), true
}

// Set returns a mutable pointer to e's T, bumping its change-version.
// The caller is expected to write through the returned pointer (AoS
// components only — SoA-packed T always returns a detached copy; pass
// the written-through value to SSet/Set's value form to commit it).
func Set[T any](w *World, e Entity, cid ComponentID[T]) (*T, bool) {
	if !w.entities.Valid(e) {
		return nil, false
	}
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(cid.Entity()) {
		return nil, false
	}
	return RowGetMut(rec.chunk, rec.row, cid), true
}

// SetValue writes value into e's T, bumping its change-version. Works
// uniformly for AoS and SoA components.
func SetValue[T any](w *World, e Entity, cid ComponentID[T], value T) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(cid.Entity()) {
		return ComponentNotFoundError{Entity: e, Component: cid.Entity()}
	}
	RowSet(rec.chunk, rec.row, cid, value)
	if hook := cid.desc.OnSet; hook != nil {
		hook(w, e)
	}
	return nil
}

// SSet writes value into e's T without bumping its change-version — the
// silent set path used by systems that want to correct a value without
// triggering downstream changed<T> queries.
func SSet[T any](w *World, e Entity, cid ComponentID[T], value T) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(cid.Entity()) {
		return ComponentNotFoundError{Entity: e, Component: cid.Entity()}
	}
	RowSetSilent(rec.chunk, rec.row, cid, value)
	return nil
}

// Add attaches T to e (transitioning it to the archetype with T in its
// id set if it doesn't already have one) and writes value into the new
// slot. A no-op transition (e already has T) just overwrites the value.
func Add[T any](w *World, e Entity, cid ComponentID[T], value T) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	id := cid.Entity()
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(id) {
		if err := w.transition(e, id, true); err != nil {
			return err
		}
		rec = w.entities.Resolve(e)
	}
	RowSet(rec.chunk, rec.row, cid, value)
	if hook := cid.desc.OnAdd; hook != nil {
		hook(w, e)
	}
	return nil
}

// Remove detaches T from e. A no-op if e never had it.
func Remove[T any](w *World, e Entity, cid ComponentID[T]) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	id := cid.Entity()
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(id) {
		return nil
	}
	if hook := cid.desc.OnRemove; hook != nil {
		hook(w, e)
	}
	return w.transition(e, id, false)
}

// addRaw attaches a tag or relationship-pair id to e with no associated
// value (the untyped add path, also how As/ChildOf wiring and
// relationship bookkeeping attach pairs).
func (w *World) addRaw(e Entity, id Entity) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	rec := w.entities.Resolve(e)
	if rec.archetype.Has(id) {
		return nil
	}
	if err := w.transition(e, id, true); err != nil {
		return err
	}
	w.onPairAdded(e, id)
	return nil
}

// removeRaw detaches a tag or relationship-pair id from e.
func (w *World) removeRaw(e Entity, id Entity) error {
	if !w.entities.Valid(e) {
		return InvalidEntityError{Entity: e}
	}
	rec := w.entities.Resolve(e)
	if !rec.archetype.Has(id) {
		return nil
	}
	w.onPairRemoved(e, id)
	return w.transition(e, id, false)
}

// hasRaw reports whether e's archetype carries id verbatim (no Is
// inheritance, no wildcard matching — that belongs to the query layer).
func (w *World) hasRaw(e Entity, id Entity) bool {
	if !w.entities.Valid(e) {
		return false
	}
	return w.entities.Resolve(e).archetype.Has(id)
}

// transition moves e to the archetype obtained by adding (adding=true)
// or removing (adding=false) id from its current archetype's id set,
// relocating its row via Chunk.MoveEntityTo so every component e shares
// with the destination archetype survives the move untouched.
func (w *World) transition(e Entity, id Entity, adding bool) error {
	srcArch := w.entities.Resolve(e).archetype

	if adding && w.cantCombineConflict(srcArch, id) {
		return ArchetypeConflictError{Entity: e, Component: id}
	}
	if !adding && w.requiresConflict(srcArch, id) {
		return ArchetypeConflictError{Entity: e, Component: id}
	}

	var dstArch *Archetype
	if adding {
		dstArch = w.archetypes.transitionAdd(srcArch, id)
	} else {
		dstArch = w.archetypes.transitionRemove(srcArch, id)
	}
	if dstArch == srcArch {
		return nil
	}
	return w.moveEntityRow(e, dstArch)
}

// moveEntityRow relocates e's row from its current chunk into a chunk of
// dstArch, maintaining both archetypes' open/full chunk lists and
// refreshing the cached rows of every entity the removal swap displaced.
// Shared by transition (single-id add/remove) and BulkBuilder.Apply
// (many ids, one move).
func (w *World) moveEntityRow(e Entity, dstArch *Archetype) error {
	rec := w.entities.Resolve(e)
	srcArch, srcChunk, srcRow := rec.archetype, rec.chunk, rec.row

	dstChunk := dstArch.openChunk()
	srcWasFull := srcChunk.Full()
	dstRow, moves, n, err := srcChunk.MoveEntityTo(srcRow, dstChunk)
	if err != nil {
		return err
	}
	dstArch.promoteIfFull(dstChunk)
	if srcWasFull && !srcChunk.Full() {
		srcArch.moveChunkToOpen(srcChunk)
	}
	if srcChunk.Count() == 0 {
		srcArch.evictIfSurplusEmpty(srcChunk)
	}
	for i := 0; i < n; i++ {
		w.entities.Resolve(moves[i].Entity).row = moves[i].Row
	}
	rec.archetype = dstArch
	rec.chunk = dstChunk
	rec.row = dstRow
	return nil
}
