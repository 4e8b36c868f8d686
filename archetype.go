package archway

import (
	"sort"

	"github.com/TheBitDrifter/mask"
)

// Archetype is the set of entities sharing an identical component/tag/pair
// id set. Its canonical id slice is kept sorted so two archetypes with
// the same members always compare equal by fingerprint, and its rows
// live in a list of fixed-capacity chunks split between those with open
// space and those already full.
type Archetype struct {
	world *World

	fingerprint uint64
	ids         []Entity // full canonical set, sorted by raw id value
	genericIDs  []Entity
	uniqueIDs   []Entity

	descriptors map[Entity]*Descriptor
	genericPos  map[Entity]int
	uniquePos   map[Entity]int

	// presenceMask is a fast pre-filter over registered component ids
	// (those with a bit slot assigned by the component cache); plain
	// marker entities and relationship pairs have no slot and always
	// fall through to the canonical id-set walk.
	presenceMask mask.Mask

	capacity uint32

	chunksOpen []*Chunk
	chunksFull []*Chunk

	edgesAdd    map[Entity]*Archetype
	edgesRemove map[Entity]*Archetype

	matchingQueries []*compiledQuery
}

// componentIndex reports where id's column lives within a chunk of this
// archetype: its position in the generic or unique column slice, and
// which. Ok is false if id is not a member of this archetype.
func (a *Archetype) componentIndex(id Entity) (pos int, unique bool, ok bool) {
	if p, found := a.genericPos[id]; found {
		return p, false, true
	}
	if p, found := a.uniquePos[id]; found {
		return p, true, true
	}
	return 0, false, false
}

// Has reports whether id is part of this archetype's id set.
func (a *Archetype) Has(id Entity) bool {
	if desc, ok := a.descriptors[id]; ok && desc.BitSlot >= 0 {
		var bitMask mask.Mask
		bitMask.Mark(uint32(desc.BitSlot))
		if !a.presenceMask.ContainsAll(bitMask) {
			return false
		}
	}
	_, _, ok := a.componentIndex(id)
	return ok
}

// Len returns the number of live entities currently held across all of
// this archetype's chunks.
func (a *Archetype) Len() int {
	n := 0
	for _, c := range a.chunksOpen {
		n += int(c.count)
	}
	for _, c := range a.chunksFull {
		n += int(c.count)
	}
	return n
}

// newArchetype builds an archetype over ids (need not be sorted or
// deduplicated by the caller) resolving each id's Descriptor through the
// world's component cache, synthesizing a zero-size tag descriptor for
// any id that isn't itself a registered component (plain marker entities,
// relationship pairs, and the like).
func newArchetype(w *World, ids []Entity) *Archetype {
	uniq := dedupSorted(ids)

	a := &Archetype{
		world:       w,
		ids:         uniq,
		descriptors: make(map[Entity]*Descriptor, len(uniq)),
		genericPos:  make(map[Entity]int),
		uniquePos:   make(map[Entity]int),
		edgesAdd:    make(map[Entity]*Archetype),
		edgesRemove: make(map[Entity]*Archetype),
	}

	for _, id := range uniq {
		desc := w.components.DescriptorFor(id)
		a.descriptors[id] = desc
		if desc.BitSlot >= 0 {
			a.presenceMask.Mark(uint32(desc.BitSlot))
		}
		if desc.Kind == KindUni {
			a.uniquePos[id] = len(a.uniqueIDs)
			a.uniqueIDs = append(a.uniqueIDs, id)
		} else {
			a.genericPos[id] = len(a.genericIDs)
			a.genericIDs = append(a.genericIDs, id)
		}
	}

	a.fingerprint = fingerprintIDs(uniq)
	a.capacity = computeChunkCapacity(a.genericIDs, a.uniqueIDs, a.descriptors)
	return a
}

// dedupSorted returns ids sorted by raw value with duplicates collapsed.
func dedupSorted(ids []Entity) []Entity {
	out := make([]Entity, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		return out
	}
	w := 0
	for r := 1; r < len(out); r++ {
		if out[r] != out[w] {
			w++
			out[w] = out[r]
		}
	}
	return out[:w+1]
}

// fingerprintIDs hashes a sorted, deduplicated id set into a stable
// archetype fingerprint; order-sensitivity is fine because callers always
// feed it the canonical sorted slice.
func fingerprintIDs(sortedIDs []Entity) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, id := range sortedIDs {
		v := uint64(id)
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * uint(i))) & 0xff
			h *= prime64
		}
	}
	return h
}

// computeChunkCapacity sizes a chunk's row count so the sum of every
// column's per-row footprint times capacity stays within ChunkBytes,
// with a floor of 1 so even an oversized row set still gets a
// (single-row) chunk instead of failing to allocate one at all.
func computeChunkCapacity(genericIDs, uniqueIDs []Entity, descriptors map[Entity]*Descriptor) uint32 {
	perRow := uintptr(0)
	for _, id := range genericIDs {
		perRow += uintptr(descriptors[id].Size)
	}
	// Unique columns hold exactly one value per chunk, not per row; they
	// contribute a fixed overhead rather than a per-row multiplier.
	fixed := uintptr(0)
	for _, id := range uniqueIDs {
		fixed += uintptr(descriptors[id].Size)
	}
	if perRow == 0 {
		return PageCapacity
	}
	budget := uintptr(ChunkBytes)
	if budget <= fixed {
		return 1
	}
	cap64 := (budget - fixed) / perRow
	if cap64 < 1 {
		return 1
	}
	if cap64 > PageCapacity {
		cap64 = PageCapacity
	}
	return uint32(cap64)
}

// allocRow finds (or creates) a chunk with room for one more entity,
// places e into it, and returns the chunk and row.
func (a *Archetype) allocRow(e Entity) (*Chunk, uint32, error) {
	var c *Chunk
	if n := len(a.chunksOpen); n > 0 {
		c = a.chunksOpen[n-1]
	} else {
		c = newChunk(a)
		a.chunksOpen = append(a.chunksOpen, c)
	}
	row, err := c.AddEntity(e)
	if err != nil {
		return nil, 0, err
	}
	if c.Full() {
		a.chunksOpen = a.chunksOpen[:len(a.chunksOpen)-1]
		a.chunksFull = append(a.chunksFull, c)
	}
	return c, row, nil
}

// openChunk returns a chunk in this archetype with room for at least one
// more row, creating one if every existing chunk is full. It does not
// place any entity — callers that go on to insert a row are responsible
// for calling promoteIfFull afterward, the way transition (componentops.go)
// does around Chunk.MoveEntityTo, which places rows outside allocRow's
// own bookkeeping.
func (a *Archetype) openChunk() *Chunk {
	if n := len(a.chunksOpen); n > 0 {
		return a.chunksOpen[n-1]
	}
	c := newChunk(a)
	a.chunksOpen = append(a.chunksOpen, c)
	return c
}

// promoteIfFull moves c from the open list to the full list if inserting
// a row into it (by a caller of openChunk) filled it.
func (a *Archetype) promoteIfFull(c *Chunk) {
	if !c.Full() {
		return
	}
	for i, oc := range a.chunksOpen {
		if oc == c {
			a.chunksOpen = append(a.chunksOpen[:i], a.chunksOpen[i+1:]...)
			break
		}
	}
	a.chunksFull = append(a.chunksFull, c)
}

// releaseRow removes the entity at row from chunk c, moving c back into
// the open list if removal freed space in a previously full chunk, and
// reports every entity (if any) that the swap-remove displaced into a new
// row, in moves[:n] (see Chunk.RemoveEntity — there can be up to two).
func (a *Archetype) releaseRow(c *Chunk, row uint32) (moves [2]rowMove, n int) {
	wasFull := c.Full()
	moves, n = c.RemoveEntity(row)
	if wasFull && !c.Full() {
		a.moveChunkToOpen(c)
	}
	if c.Count() == 0 {
		a.evictIfSurplusEmpty(c)
	}
	return moves, n
}

func (a *Archetype) moveChunkToOpen(c *Chunk) {
	for i, fc := range a.chunksFull {
		if fc == c {
			a.chunksFull = append(a.chunksFull[:i], a.chunksFull[i+1:]...)
			break
		}
	}
	a.chunksOpen = append(a.chunksOpen, c)
}

// evictIfSurplusEmpty drops empty chunks past emptyChunkThreshold so a
// churning archetype doesn't retain unbounded empty chunk shells.
func (a *Archetype) evictIfSurplusEmpty(c *Chunk) {
	empty := 0
	for _, oc := range a.chunksOpen {
		if oc.Count() == 0 {
			empty++
		}
	}
	if empty <= emptyChunkThreshold {
		return
	}
	for i, oc := range a.chunksOpen {
		if oc == c {
			a.chunksOpen = append(a.chunksOpen[:i], a.chunksOpen[i+1:]...)
			return
		}
	}
}
