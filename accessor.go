package archway

// This file holds the batching and per-entity convenience entry points
// of the World facade: the bulk builder, which stages several additions
// and applies them in one archetype transition instead of one per
// component, and the read-only / mutating accessor handles, which bundle
// a world and an entity so call sites touching one entity many times
// don't repeat the pair at every call.

// BulkBuilder stages component, tag, and pair additions for one entity
// and applies them with a single archetype transition and a single row
// move, however many ids were staged. Adding N components one by one
// walks N intermediate archetypes and moves the row N times; the builder
// resolves the final id set up front and moves once.
type BulkBuilder struct {
	world  *World
	entity Entity
	ids    []Entity
	writes []func(c *Chunk, row uint32)
	err    error
}

// Build starts a bulk addition against e.
func (w *World) Build(e Entity) *BulkBuilder {
	b := &BulkBuilder{world: w, entity: e}
	if !w.entities.Valid(e) {
		b.err = InvalidEntityError{Entity: e}
	}
	return b
}

// With stages plain tag or relationship-pair ids, the untyped counterpart
// to BuildAdd.
func (b *BulkBuilder) With(ids ...Entity) *BulkBuilder {
	b.ids = append(b.ids, ids...)
	return b
}

// BuildAdd stages Add(e, cid, value) on b; the value write runs after the
// single combined transition lands the entity in its final chunk.
func BuildAdd[T any](b *BulkBuilder, cid ComponentID[T], value T) *BulkBuilder {
	b.ids = append(b.ids, cid.Entity())
	b.writes = append(b.writes, func(c *Chunk, row uint32) {
		RowSet(c, row, cid, value)
	})
	return b
}

// Apply resolves the destination archetype for everything staged and
// performs one row move, then runs the staged value writes. Conflict
// checks cover both staged-vs-existing and staged-vs-staged CantCombine
// declarations, so a combination refused by one-at-a-time adds is refused
// here too. On any error the entity is left exactly where it was.
func (b *BulkBuilder) Apply() error {
	if b.err != nil {
		return b.err
	}
	w := b.world
	if !w.entities.Valid(b.entity) {
		return InvalidEntityError{Entity: b.entity}
	}
	rec := w.entities.Resolve(b.entity)
	srcArch := rec.archetype

	for i, id := range b.ids {
		if w.cantCombineConflict(srcArch, id) {
			return ArchetypeConflictError{Entity: b.entity, Component: id}
		}
		for j := 0; j < i; j++ {
			if w.idsCantCombine(id, b.ids[j]) {
				return ArchetypeConflictError{Entity: b.entity, Component: id}
			}
		}
	}

	combined := make([]Entity, 0, len(srcArch.ids)+len(b.ids))
	combined = append(combined, srcArch.ids...)
	var added []Entity
	for _, id := range b.ids {
		if !srcArch.Has(id) {
			combined = append(combined, id)
			added = append(added, id)
		}
	}

	if len(added) > 0 {
		dstArch := w.archetypes.findOrCreate(combined)
		if err := w.moveEntityRow(b.entity, dstArch); err != nil {
			return err
		}
	}

	rec = w.entities.Resolve(b.entity)
	for _, write := range b.writes {
		write(rec.chunk, rec.row)
	}
	for _, id := range added {
		w.onPairAdded(b.entity, id)
	}
	b.ids = nil
	b.writes = nil
	return nil
}

// Accessor is a read-only handle over one entity. Its lookups go through
// the same paths as the package-level free functions; the handle only
// saves re-stating the (world, entity) pair.
type Accessor struct {
	world  *World
	entity Entity
}

// Acc returns a read-only accessor for e.
func (w *World) Acc(e Entity) Accessor { return Accessor{world: w, entity: e} }

// Entity returns the handle's entity.
func (a Accessor) Entity() Entity { return a.entity }

// Valid reports whether the entity is still alive.
func (a Accessor) Valid() bool { return a.world.entities.Valid(a.entity) }

// Has reports whether the entity's archetype carries id verbatim.
func (a Accessor) Has(id Entity) bool { return a.world.hasRaw(a.entity, id) }

// Name returns the entity's registered name, if any.
func (a Accessor) Name() (string, bool) { return a.world.GetName(a.entity) }

// Target returns the first target for which (rel, target) is present.
func (a Accessor) Target(rel Entity) (Entity, bool) { return a.world.Target(a.entity, rel) }

// AccGet reads a component through an accessor; same contract as Get.
func AccGet[T any](a Accessor, cid ComponentID[T]) (*T, bool) {
	return Get(a.world, a.entity, cid)
}

// MutAccessor extends Accessor with mutation entry points.
type MutAccessor struct {
	Accessor
}

// AccMut returns a mutating accessor for e.
func (w *World) AccMut(e Entity) MutAccessor {
	return MutAccessor{Accessor{world: w, entity: e}}
}

// AddID attaches a tag or pair id to the entity.
func (a MutAccessor) AddID(id Entity) error { return a.world.addRaw(a.entity, id) }

// RemoveID detaches a tag or pair id from the entity.
func (a MutAccessor) RemoveID(id Entity) error { return a.world.removeRaw(a.entity, id) }

// Enable toggles the entity between the enabled and disabled partition.
func (a MutAccessor) Enable(state bool) error { return a.world.Enable(a.entity, state) }

// AccAdd adds a component through a mutating accessor; same contract as
// Add.
func AccAdd[T any](a MutAccessor, cid ComponentID[T], value T) error {
	return Add(a.world, a.entity, cid, value)
}

// AccRemove removes a component through a mutating accessor.
func AccRemove[T any](a MutAccessor, cid ComponentID[T]) error {
	return Remove(a.world, a.entity, cid)
}

// AccSet writes a component value, bumping its change version.
func AccSet[T any](a MutAccessor, cid ComponentID[T], value T) error {
	return SetValue(a.world, a.entity, cid, value)
}

// AccSetSilent writes a component value without bumping the version.
func AccSetSilent[T any](a MutAccessor, cid ComponentID[T], value T) error {
	return SSet(a.world, a.entity, cid, value)
}
