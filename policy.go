package archway

// This file backs the cleanup-policy engine and the CantCombine/Requires
// archetype-conflict checks with the archetype-level scans that make
// "every entity holding pair (R, T)" and "every entity referencing
// relation R" cheap: archetype membership is shared by every entity
// inside it, so each candidate archetype's id set is tested once, and
// only matching archetypes pay the per-entity enumeration cost.

// forEachArchetypeEntity visits every live entity currently stored in a,
// across both its open and full chunks.
func forEachArchetypeEntity(a *Archetype, fn func(Entity)) {
	for _, c := range a.chunksOpen {
		for row := uint32(0); row < c.count; row++ {
			fn(c.EntityAt(row))
		}
	}
	for _, c := range a.chunksFull {
		for row := uint32(0); row < c.count; row++ {
			fn(c.EntityAt(row))
		}
	}
}

// holdersOfTarget returns one holderRef per (relation, holder) combination
// where holder's archetype carries a pair whose target side is target:
// "every pair (R, T) with E == T held by some entity X".
func (w *World) holdersOfTarget(target Entity) []holderRef {
	var out []holderRef
	w.archetypes.Each(func(a *Archetype) {
		var rels []Entity
		for _, id := range a.ids {
			if !id.IsPair() || id.Second() != target.Index() {
				continue
			}
			rels = append(rels, w.entityByIndex(id.First()))
		}
		if len(rels) == 0 {
			return
		}
		forEachArchetypeEntity(a, func(holder Entity) {
			for _, rel := range rels {
				out = append(out, holderRef{relation: rel, holder: holder})
			}
		})
	})
	return out
}

// holdersOfRelation returns every entity whose archetype carries at least
// one pair using relation as its first element: "every entity that
// references E" where E is used as a relation.
func (w *World) holdersOfRelation(relation Entity) []Entity {
	var out []Entity
	w.archetypes.Each(func(a *Archetype) {
		matches := false
		for _, id := range a.ids {
			if id.IsPair() && w.entityByIndex(id.First()) == relation {
				matches = true
				break
			}
		}
		if !matches {
			return
		}
		forEachArchetypeEntity(a, func(e Entity) { out = append(out, e) })
	})
	return out
}

// onDeleteTargetAction resolves relation's (OnDeleteTarget, action)
// policy, defaulting to ActionRemove when relation carries none.
func (w *World) onDeleteTargetAction(relation Entity) Entity {
	if !w.entities.Valid(relation) {
		return ActionRemove
	}
	if t, ok := w.Target(relation, OnDeleteTarget); ok {
		return t
	}
	return ActionRemove
}

// onDeleteActionsFor returns every action named by an (OnDelete, action)
// pair declared on e itself.
func (w *World) onDeleteActionsFor(e Entity) []Entity {
	var actions []Entity
	w.Targets(e, OnDelete, func(t Entity) bool {
		actions = append(actions, t)
		return true
	})
	return actions
}

// removePairRaw removes a specific pair identifier from holder, tolerating
// a holder that is no longer valid or no longer carries it (a prior branch
// of the same cascade may already have resolved it).
func (w *World) removePairRaw(holder Entity, pair Entity) {
	if !w.entities.Valid(holder) {
		return
	}
	_ = w.removeRaw(holder, pair)
}

// removeRelationFromAllPairs removes every pair on holder whose relation
// side is rel (the ActionRemove branch for a deleted relation).
func (w *World) removeRelationFromAllPairs(holder Entity, rel Entity) {
	if !w.entities.Valid(holder) {
		return
	}
	rec := w.entities.Resolve(holder)
	var toRemove []Entity
	for _, id := range rec.archetype.ids {
		if id.IsPair() && w.entityByIndex(id.First()) == rel {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		w.removePairRaw(holder, id)
	}
}

// onPairAdded reacts to id landing on e's archetype. A new (Is, base) pair
// can make archetypes that previously didn't satisfy a cached query's
// inheritance-aware terms now satisfy them, so the Is-reachability cache
// is dropped and every cached plan is re-tested.
func (w *World) onPairAdded(e Entity, id Entity) {
	if !id.IsPair() || w.entityByIndex(id.First()) != Is {
		return
	}
	w.relationships.invalidate()
	w.queryCache.onIsEdgeCreated()
}

// onPairRemoved reacts to id leaving e's archetype. Dropping an Is edge can
// only shrink reachability, so previously-cached positive matches remain
// valid without a re-test; the isCache is still invalidated since it can no
// longer be trusted to answer queries involving e or its descendants.
func (w *World) onPairRemoved(e Entity, id Entity) {
	if !id.IsPair() || w.entityByIndex(id.First()) != Is {
		return
	}
	w.relationships.invalidate()
}

// cantCombineConflict reports whether adding id to an entity currently in
// archetype a would violate a (CantCombine, *) relationship declared on
// either id or an existing member of a, checked in both directions since
// CantCombine is a symmetric incompatibility. Only plain component/tag
// ids can carry a CantCombine pair of their own (pair identifiers never
// appear in the entity container as standalone entities), so id itself
// being a pair never conflicts.
func (w *World) cantCombineConflict(a *Archetype, id Entity) bool {
	if id.IsPair() {
		return false
	}
	for _, existing := range a.ids {
		if existing == id || existing.IsPair() {
			continue
		}
		if w.idsCantCombine(id, existing) {
			return true
		}
	}
	return false
}

// idsCantCombine reports whether either of two plain ids declares a
// (CantCombine, other) relationship against the other.
func (w *World) idsCantCombine(x, y Entity) bool {
	if x.IsPair() || y.IsPair() {
		return false
	}
	return w.hasRaw(x, Pair(CantCombine, y)) || w.hasRaw(y, Pair(CantCombine, x))
}

// requiresConflict reports whether removing id from archetype a would
// violate a (Requires, id) relationship declared on some other member of
// a: the removal is refused and surfaced as an archetype conflict. As
// above, only plain component/tag ids participate; pair members of a
// never carry a Requires relationship of their own.
func (w *World) requiresConflict(a *Archetype, id Entity) bool {
	if id.IsPair() {
		return false
	}
	for _, existing := range a.ids {
		if existing == id || existing.IsPair() {
			continue
		}
		if w.hasRaw(existing, Pair(Requires, id)) {
			return true
		}
	}
	return false
}
