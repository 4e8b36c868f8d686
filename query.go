package archway

import "sort"

// TermOp is a query term's matching operator.
type TermOp uint8

const (
	OpAll TermOp = iota
	OpAny
	OpNone
	OpOpt
)

func (op TermOp) String() string {
	switch op {
	case OpAll:
		return "All"
	case OpAny:
		return "Any"
	case OpNone:
		return "None"
	case OpOpt:
		return "Opt"
	default:
		return "?"
	}
}

// AccessMode is the read/write intent a term declares over its component,
// used only for documentation/validation purposes at this layer — the
// actual version bump happens at RowGetMut/RowSet/SetValue/ViewMut call sites.
type AccessMode uint8

const (
	AccessNone AccessMode = iota
	AccessRead
	AccessWrite
)

// Term is one clause of a query: match id (a component, tag, pair, or
// wildcard-bearing pair) with op, optionally against a non-default
// Source entity instead of the entity being iterated.
type Term struct {
	Op      TermOp
	Access  AccessMode
	ID      Entity
	Source  Entity // IDBad means "the iterated entity" (the default)
	Changed bool   // require Chunk.Changed(ID, since) at iteration time
}

// QueryBuilder accumulates terms fluently before Compile produces a
// cached QueryPlan: All/Any/None/Opt term groups plus grouping and
// non-default sources.
type QueryBuilder struct {
	world  *World
	terms  []Term
	group  Entity // IDBad if group_by unset
	bucket Entity // IDBad if group_id unset
}

// Query starts a new query builder bound to w.
func (w *World) Query() *QueryBuilder {
	return &QueryBuilder{world: w, group: IDBad, bucket: IDBad}
}

func (q *QueryBuilder) add(op TermOp, access AccessMode, id Entity, source Entity) *QueryBuilder {
	q.terms = append(q.terms, Term{Op: op, Access: access, ID: id, Source: source})
	return q
}

// All requires every id to be present (read access).
func (q *QueryBuilder) All(ids ...Entity) *QueryBuilder {
	for _, id := range ids {
		q.add(OpAll, AccessRead, id, IDBad)
	}
	return q
}

// AllWrite is All but declares write access, so callers reading the plan
// back (e.g. a scheduler dependency analyzer) can tell mutators from
// readers; it does not itself change what Get/RowGetMut/Set allow.
func (q *QueryBuilder) AllWrite(ids ...Entity) *QueryBuilder {
	for _, id := range ids {
		q.add(OpAll, AccessWrite, id, IDBad)
	}
	return q
}

// AllSrc is All for a single id evaluated against a non-default source
// entity instead of the iterated entity (singleton/parent lookups). The
// check runs once per cursor run against the source's archetype at that
// moment, so mutating the source between runs flips the whole query on
// or off without recompiling it.
func (q *QueryBuilder) AllSrc(id Entity, source Entity) *QueryBuilder {
	return q.add(OpAll, AccessRead, id, source)
}

// Any requires at least one of ids to be present.
func (q *QueryBuilder) Any(ids ...Entity) *QueryBuilder {
	for _, id := range ids {
		q.add(OpAny, AccessRead, id, IDBad)
	}
	return q
}

// No excludes archetypes carrying any of ids.
func (q *QueryBuilder) No(ids ...Entity) *QueryBuilder {
	for _, id := range ids {
		q.add(OpNone, AccessNone, id, IDBad)
	}
	return q
}

// Opt does not affect matching but enables a presence flag per id during
// iteration.
func (q *QueryBuilder) Opt(ids ...Entity) *QueryBuilder {
	for _, id := range ids {
		q.add(OpOpt, AccessRead, id, IDBad)
	}
	return q
}

// Changed marks the most recently added term (which must be an All term)
// as additionally requiring Chunk.Changed(id, since) at iteration time.
func (q *QueryBuilder) Changed() *QueryBuilder {
	if n := len(q.terms); n > 0 {
		q.terms[n-1].Changed = true
	}
	return q
}

// GroupBy buckets matching archetypes by the target of (relation, *) on
// each archetype.
func (q *QueryBuilder) GroupBy(relation Entity) *QueryBuilder {
	q.group = relation
	return q
}

// GroupID narrows iteration to the bucket whose group id is g.
func (q *QueryBuilder) GroupID(g Entity) *QueryBuilder {
	q.bucket = g
	return q
}

// QAll/QAny/QNo/QOpt/QChanged are typed sugar over All/Any/No/Opt/Changed
// for a registered component, avoiding a raw Entity id at call sites.
func QAll[T any](q *QueryBuilder, cid ComponentID[T]) *QueryBuilder { return q.All(cid.Entity()) }
func QAny[T any](q *QueryBuilder, cid ComponentID[T]) *QueryBuilder { return q.Any(cid.Entity()) }
func QNo[T any](q *QueryBuilder, cid ComponentID[T]) *QueryBuilder  { return q.No(cid.Entity()) }
func QOpt[T any](q *QueryBuilder, cid ComponentID[T]) *QueryBuilder { return q.Opt(cid.Entity()) }
func QChanged[T any](q *QueryBuilder, cid ComponentID[T]) *QueryBuilder {
	return q.All(cid.Entity()).Changed()
}

// QueryPlan is a compiled, hashable query: All terms sorted by id
// (stable, so two orderings of the same terms share a hash), Any/None/
// Opt recorded as separate groups in insertion order; Any terms are
// evaluated in that order.
type QueryPlan struct {
	AllTerms  []Term
	AnyTerms  []Term
	NoneTerms []Term
	OptTerms  []Term
	Group     Entity
	Bucket    Entity
	Hash      uint64
}

// hasChangedTerms reports whether any All term carries the Changed flag,
// which is what makes a query's baseline advance run-over-run.
func (p *QueryPlan) hasChangedTerms() bool {
	for _, t := range p.AllTerms {
		if t.Changed {
			return true
		}
	}
	return false
}

// Compile finalizes the builder into a QueryPlan and registers it (or
// reuses an existing identical plan) with the world's query cache,
// returning a ready-to-iterate Query handle.
func (q *QueryBuilder) Compile() *Query {
	plan := QueryPlan{Group: q.group, Bucket: q.bucket}
	for _, t := range q.terms {
		switch t.Op {
		case OpAll:
			plan.AllTerms = append(plan.AllTerms, t)
		case OpAny:
			plan.AnyTerms = append(plan.AnyTerms, t)
		case OpNone:
			plan.NoneTerms = append(plan.NoneTerms, t)
		case OpOpt:
			plan.OptTerms = append(plan.OptTerms, t)
		}
	}
	sort.Slice(plan.AllTerms, func(i, j int) bool { return plan.AllTerms[i].ID < plan.AllTerms[j].ID })
	plan.Hash = hashPlan(plan)

	cq := q.world.queryCache.compile(plan)
	return &Query{world: q.world, compiled: cq}
}

func hashPlan(p QueryPlan) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	mix := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * uint(i))) & 0xff
			h *= prime64
		}
	}
	mixTerm := func(t Term) {
		mix(uint64(t.Op))
		mix(uint64(t.Access))
		mix(uint64(t.ID))
		mix(uint64(t.Source))
		if t.Changed {
			mix(1)
		}
	}
	for _, t := range p.AllTerms {
		mixTerm(t)
	}
	mix(0xA11) // group separator
	for _, t := range p.AnyTerms {
		mixTerm(t)
	}
	mix(0xA17)
	for _, t := range p.NoneTerms {
		mixTerm(t)
	}
	mix(0x0974)
	for _, t := range p.OptTerms {
		mixTerm(t)
	}
	mix(uint64(p.Group))
	mix(uint64(p.Bucket))
	return h
}

// Query is a compiled, iterable query handle.
type Query struct {
	world    *World
	compiled *compiledQuery
	since    uint64 // baseline for Changed()-marked terms; 0 means "ever changed"
}

// Since overrides the version baseline Changed()-marked terms are
// compared against for the next Cursor run from this handle: a chunk
// is only visited if every such term's component has been mutated
// (RowGetMut/RowSet/ViewMut/SetValue) since sinceVersion.
// Chunk-granularity, not per-row, since that is the granularity the
// underlying version counters in chunk.go are kept at. Each time a
// Cursor with Changed terms finishes, the baseline advances to the world
// version, replacing any value set here, so each run reports only what
// changed since the previous run.
func (qy *Query) Since(sinceVersion uint64) *Query {
	qy.since = sinceVersion
	return qy
}

// Cursor starts enabled-only iteration (the default mode) over the
// query's currently matching archetypes.
func (qy *Query) Cursor() *Cursor { return newCursor(qy, iterEnabled) }

// CursorDisabled starts disabled-only iteration.
func (qy *Query) CursorDisabled() *Cursor { return newCursor(qy, iterDisabled) }

// CursorAll starts iteration over every row regardless of enabled state.
func (qy *Query) CursorAll() *Cursor { return newCursor(qy, iterAll) }
