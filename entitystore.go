package archway

// entityRecord is one entity container slot: the archetype and row an
// entity currently lives at, its generation, and small status flags.
// Freed slots chain through nextFree, forming an intrusive singly-linked
// free-list stack so slots are reclaimed across archetype moves rather
// than only ever appended to.
type entityRecord struct {
	archetype *Archetype
	chunk     *Chunk
	row       uint32
	gen       uint32
	flags     entityFlags
	nextFree  uint32 // valid only while this slot is free
}

type entityFlags uint8

const (
	flagFree entityFlags = 1 << iota
)

// entityStore is the entity container: an intrusive free-list mapping
// entity index to archetype pointer, row index, generation and flags.
type entityStore struct {
	records  []entityRecord
	freeHead uint32
	freeLen  uint32
}

const noFree = ^uint32(0)

func newEntityStore() *entityStore {
	return &entityStore{freeHead: noFree}
}

// Alloc reuses a freed slot (bumping its generation) or appends a new one.
func (s *entityStore) Alloc() Entity {
	if s.freeHead != noFree {
		idx := s.freeHead
		rec := &s.records[idx]
		s.freeHead = rec.nextFree
		s.freeLen--
		rec.flags &^= flagFree
		return MakeEntity(idx, rec.gen, true, false, KindGen)
	}
	idx := uint32(len(s.records))
	s.records = append(s.records, entityRecord{})
	return MakeEntity(idx, 0, true, false, KindGen)
}

// Free reclaims e's slot, incrementing its generation so stale handles
// fail Valid. Freeing an already-free slot is undefined behavior per the
// entity-container contract; callers must check Valid first.
func (s *entityStore) Free(e Entity) {
	idx := e.Index()
	rec := &s.records[idx]
	rec.archetype = nil
	rec.chunk = nil
	rec.row = 0
	rec.gen++
	rec.flags |= flagFree
	rec.nextFree = s.freeHead
	s.freeHead = idx
	s.freeLen++
}

// Valid reports whether e still refers to a live slot with matching
// generation.
func (s *entityStore) Valid(e Entity) bool {
	idx := e.Index()
	if idx == wildcardIndex || int(idx) >= len(s.records) {
		return false
	}
	rec := &s.records[idx]
	return rec.flags&flagFree == 0 && rec.gen == e.Gen()
}

// Resolve returns the mutable record backing e. The caller must have
// already checked Valid.
func (s *entityStore) Resolve(e Entity) *entityRecord {
	return &s.records[e.Index()]
}

// Len returns the number of container slots, live or free.
func (s *entityStore) Len() int { return len(s.records) }

// seedReserved appends n permanently-used slots (never placed on the
// free list) at generation 0, backing the low reserved id range the core
// entities occupy: index i becomes MakeEntity(i,
// 0, true, false, KindGen). Each slot is placed into a real row of
// archetype, the same way NewEntity places a fresh allocation, so the
// reserved entities are ordinary (if permanent) members of the empty
// archetype rather than bare records with no backing chunk. Must be
// called before any Alloc, and exactly once, at world construction.
func (s *entityStore) seedReserved(n int, archetype *Archetype) {
	for i := 0; i < n; i++ {
		idx := uint32(len(s.records))
		s.records = append(s.records, entityRecord{archetype: archetype})
		e := MakeEntity(idx, 0, true, false, KindGen)
		chunk, row, err := archetype.allocRow(e)
		if err != nil {
			panic("archway: failed to seed reserved entity: " + err.Error())
		}
		rec := &s.records[idx]
		rec.chunk = chunk
		rec.row = row
	}
}

// EntityAt reconstructs the canonical entity-view Entity for index idx
// using its live generation, regardless of whether idx was originally
// allocated for a plain entity or a registered component — both share
// one id space.
func (s *entityStore) EntityAt(idx uint32) Entity {
	if int(idx) >= len(s.records) {
		return IDBad
	}
	return MakeEntity(idx, s.records[idx].gen, true, false, KindGen)
}
