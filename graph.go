package archway

import "github.com/kamstrup/intmap"

// archetypeGraph is the registry of every archetype that currently exists
// in a world, indexed by fingerprint for find-or-create lookups, plus the
// lazily-populated add/remove transition edges between them. intmap backs
// the fingerprint index since the keys are dense integers.
type archetypeGraph struct {
	world *World

	byFingerprint *intmap.Map[uint64, *Archetype]
	all           []*Archetype
}

func newArchetypeGraph(w *World) *archetypeGraph {
	return &archetypeGraph{
		world:         w,
		byFingerprint: intmap.New[uint64, *Archetype](64),
	}
}

// findOrCreate returns the archetype whose canonical id set exactly
// matches ids (order-independent, duplicates collapsed), creating and
// registering a new one if none exists yet. Newly created archetypes run
// Config.OnArchetypeCreated and are tested against every cached query
// plan, since a new archetype may now match existing plans.
func (g *archetypeGraph) findOrCreate(ids []Entity) *Archetype {
	fp := fingerprintIDs(dedupSorted(ids))
	if a, ok := g.byFingerprint.Get(fp); ok {
		return a
	}
	a := newArchetype(g.world, ids)
	g.byFingerprint.Put(a.fingerprint, a)
	g.all = append(g.all, a)
	if g.world.queryCache != nil {
		g.world.queryCache.onArchetypeCreated(a)
	}
	if hook := Config.hooks.OnArchetypeCreated; hook != nil {
		hook(a)
	}
	return a
}

// transitionAdd returns the archetype reached from a by adding id, caching
// the edge on a for future lookups. Adding an id already present is a
// no-op transition back to a itself.
func (g *archetypeGraph) transitionAdd(a *Archetype, id Entity) *Archetype {
	if _, _, ok := a.componentIndex(id); ok {
		return a
	}
	if dst, ok := a.edgesAdd[id]; ok {
		return dst
	}
	ids := append(append([]Entity{}, a.ids...), id)
	dst := g.findOrCreate(ids)
	a.edgesAdd[id] = dst
	dst.edgesRemove[id] = a
	return dst
}

// transitionRemove returns the archetype reached from a by removing id,
// caching the edge on a for future lookups. Removing an id not present is
// a no-op transition back to a itself.
func (g *archetypeGraph) transitionRemove(a *Archetype, id Entity) *Archetype {
	if _, _, ok := a.componentIndex(id); !ok {
		return a
	}
	if dst, ok := a.edgesRemove[id]; ok {
		return dst
	}
	ids := make([]Entity, 0, len(a.ids)-1)
	for _, existing := range a.ids {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	dst := g.findOrCreate(ids)
	a.edgesRemove[id] = dst
	dst.edgesAdd[id] = a
	return dst
}

// Each visits every archetype currently registered in the world.
func (g *archetypeGraph) Each(fn func(*Archetype)) {
	for _, a := range g.all {
		fn(a)
	}
}
