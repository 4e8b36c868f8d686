package archway

import "github.com/kamstrup/intmap"

// matchedArchetype pairs a matching archetype with its GroupBy bucket.
// No per-term column index is stored; iteration resolves each term's id
// against the archetype's component-index maps.
type matchedArchetype struct {
	archetype *Archetype
	groupID   Entity // IDBad if the plan has no GroupBy
}

// compiledQuery is a QueryPlan plus its live set of matching archetypes,
// kept current by queryCache.onArchetypeCreated and onIsEdgeCreated.
type compiledQuery struct {
	plan    QueryPlan
	matches []matchedArchetype
}

// queryCache owns every compiled plan for a world, keyed by stable plan
// hash so an identical Compile() call from elsewhere reuses the same
// compiledQuery and its already-computed match set. Like archetypeGraph,
// the intmap handles the hash lookup and a plain slice drives iteration.
type queryCache struct {
	world  *World
	byHash *intmap.Map[uint64, *compiledQuery]
	all    []*compiledQuery
}

func newQueryCache(w *World) *queryCache {
	return &queryCache{world: w, byHash: intmap.New[uint64, *compiledQuery](16)}
}

// compile finds an existing compiledQuery for plan's hash or builds one
// by testing every archetype currently registered in the world.
func (qc *queryCache) compile(plan QueryPlan) *compiledQuery {
	if cq, ok := qc.byHash.Get(plan.Hash); ok {
		return cq
	}
	cq := &compiledQuery{plan: plan}
	qc.world.archetypes.Each(func(a *Archetype) {
		if m, ok := matchArchetype(qc.world, a, plan); ok {
			cq.matches = append(cq.matches, m)
			a.matchingQueries = append(a.matchingQueries, cq)
		}
	})
	qc.byHash.Put(plan.Hash, cq)
	qc.all = append(qc.all, cq)
	return cq
}

// onArchetypeCreated re-tests a newly created archetype against every
// cached plan, since a new archetype may satisfy plans that no existing
// archetype did.
func (qc *queryCache) onArchetypeCreated(a *Archetype) {
	for _, cq := range qc.all {
		if m, ok := matchArchetype(qc.world, a, cq.plan); ok {
			cq.matches = append(cq.matches, m)
			a.matchingQueries = append(a.matchingQueries, cq)
		}
	}
}

// onIsEdgeCreated re-tests every archetype against every cached plan,
// since a new Is edge can make a pair term's Is-inheritance consultation
// succeed where it previously didn't, for archetypes already considered.
func (qc *queryCache) onIsEdgeCreated() {
	for _, cq := range qc.all {
		already := make(map[*Archetype]bool, len(cq.matches))
		for _, m := range cq.matches {
			already[m.archetype] = true
		}
		qc.world.archetypes.Each(func(a *Archetype) {
			if already[a] {
				return
			}
			if m, ok := matchArchetype(qc.world, a, cq.plan); ok {
				cq.matches = append(cq.matches, m)
				a.matchingQueries = append(a.matchingQueries, cq)
			}
		})
	}
}

// matchArchetype tests a's id set against every term group of plan, then
// resolves the plan's group bucket if one is configured.
func matchArchetype(w *World, a *Archetype, plan QueryPlan) (matchedArchetype, bool) {
	for _, t := range plan.AllTerms {
		if t.Source != IDBad {
			// Evaluated against the source entity per run, not against the
			// iterated archetype; see Cursor.sourceTermsSatisfied.
			continue
		}
		if !termPresent(w, a, t.ID) {
			return matchedArchetype{}, false
		}
	}
	if len(plan.AnyTerms) > 0 {
		any := false
		for _, t := range plan.AnyTerms {
			if termPresent(w, a, t.ID) {
				any = true
				break
			}
		}
		if !any {
			return matchedArchetype{}, false
		}
	}
	for _, t := range plan.NoneTerms {
		if t.Source != IDBad {
			continue
		}
		if termPresent(w, a, t.ID) {
			return matchedArchetype{}, false
		}
	}

	groupID := IDBad
	if plan.Group != IDBad {
		g, ok := groupOf(w, a, plan.Group)
		if !ok {
			return matchedArchetype{}, false
		}
		groupID = g
		if plan.Bucket != IDBad && groupID != plan.Bucket {
			return matchedArchetype{}, false
		}
	}
	return matchedArchetype{archetype: a, groupID: groupID}, true
}

// termPresent reports whether id is satisfied by archetype a: a direct
// id for non-pair terms, or, for pair terms, a scan of a's pair members
// checking each side against id's corresponding side (exact match, All
// wildcard, or Is-reachability through the inheritance resolver).
func termPresent(w *World, a *Archetype, id Entity) bool {
	if !id.IsPair() {
		return a.Has(id)
	}
	if a.Has(id) {
		return true
	}
	wantRel := w.entityByIndex(id.First())
	wantTgt := w.entityByIndex(id.Second())
	for _, member := range a.ids {
		if !member.IsPair() {
			continue
		}
		rel := w.entityByIndex(member.First())
		tgt := w.entityByIndex(member.Second())
		relOK := wantRel == All || rel == wantRel || w.relationships.Is(rel, wantRel)
		tgtOK := wantTgt == All || tgt == wantTgt || w.relationships.Is(tgt, wantTgt)
		if relOK && tgtOK {
			return true
		}
	}
	return false
}

// groupOf finds the target of (relation, *) on archetype a, if any.
func groupOf(w *World, a *Archetype, relation Entity) (Entity, bool) {
	for _, member := range a.ids {
		if !member.IsPair() {
			continue
		}
		if w.entityByIndex(member.First()) == relation {
			return w.entityByIndex(member.Second()), true
		}
	}
	return IDBad, false
}
