package archway

// WorldStats is a point-in-time snapshot of a world's structural size:
// the counts archwayinspect reports rather than a full per-archetype
// breakdown.
type WorldStats struct {
	Archetypes    int
	Chunks        int
	Entities      int
	CachedQueries int
}

// Stats reports the current archetype count, total chunk count across
// every archetype, live entity count, and number of distinct compiled
// query plans cached for this world.
func (w *World) Stats() WorldStats {
	var s WorldStats
	w.archetypes.Each(func(a *Archetype) {
		s.Archetypes++
		s.Chunks += len(a.chunksOpen) + len(a.chunksFull)
	})
	s.Entities = w.entities.Len() - int(w.entities.freeLen)
	s.CachedQueries = len(w.queryCache.all)
	return s
}
