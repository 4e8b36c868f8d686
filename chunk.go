package archway

import (
	"reflect"
	"unsafe"
)

// column is one component's backing storage within a chunk: either a
// packed AoS array of the component type, or — when the descriptor
// declares SoA packing — one parallel byte array per struct field.
type column struct {
	desc *Descriptor

	// AoS backing (desc.SoA == 0).
	buffer   reflect.Value
	base     unsafe.Pointer
	itemSize uintptr

	// SoA backing (desc.SoA > 0): one array per member.
	soaBuffers []reflect.Value
	soaBase    []unsafe.Pointer
}

func newColumn(desc *Descriptor, capacity uint32) column {
	col := column{desc: desc}
	if desc.Size == 0 {
		return col // tag component: no storage
	}
	if desc.SoA > 0 {
		col.soaBuffers = make([]reflect.Value, len(desc.SoAMembers))
		col.soaBase = make([]unsafe.Pointer, len(desc.SoAMembers))
		byteType := reflect.TypeOf(byte(0))
		for i, m := range desc.SoAMembers {
			n := int(m.size) * int(capacity)
			if n == 0 {
				n = 1
			}
			buf := reflect.New(reflect.ArrayOf(n, byteType)).Elem()
			col.soaBuffers[i] = buf
			col.soaBase[i] = buf.Addr().UnsafePointer()
		}
		return col
	}
	buf := reflect.New(reflect.ArrayOf(int(capacity), desc.ReflectType)).Elem()
	col.buffer = buf
	col.base = buf.Addr().UnsafePointer()
	col.itemSize = desc.ReflectType.Size()
	return col
}

func (c *column) aosPtr(row uint32) unsafe.Pointer {
	return unsafe.Add(c.base, c.itemSize*uintptr(row))
}

func (c *column) soaReadInto(row uint32, dst unsafe.Pointer) {
	for i, m := range c.desc.SoAMembers {
		src := unsafe.Add(c.soaBase[i], m.size*uintptr(row))
		d := unsafe.Add(dst, m.offset)
		copy(unsafe.Slice((*byte)(d), m.size), unsafe.Slice((*byte)(src), m.size))
	}
}

func (c *column) soaWriteFrom(row uint32, src unsafe.Pointer) {
	for i, m := range c.desc.SoAMembers {
		dst := unsafe.Add(c.soaBase[i], m.size*uintptr(row))
		s := unsafe.Add(src, m.offset)
		copy(unsafe.Slice((*byte)(dst), m.size), unsafe.Slice((*byte)(s), m.size))
	}
}

func (c *column) swap(i, j uint32) {
	if c.desc.Size == 0 || i == j {
		return
	}
	if c.desc.SoA > 0 {
		for k, m := range c.desc.SoAMembers {
			a := unsafe.Add(c.soaBase[k], m.size*uintptr(i))
			b := unsafe.Add(c.soaBase[k], m.size*uintptr(j))
			swapBytes(a, b, m.size)
		}
		return
	}
	if c.desc.Swap != nil {
		c.desc.Swap(c.aosPtr(i), c.aosPtr(j))
		return
	}
	swapBytes(c.aosPtr(i), c.aosPtr(j), c.itemSize)
}

func swapBytes(a, b unsafe.Pointer, size uintptr) {
	as := unsafe.Slice((*byte)(a), size)
	bs := unsafe.Slice((*byte)(b), size)
	for i := range as {
		as[i], bs[i] = bs[i], as[i]
	}
}

func (c *column) destroy(row uint32) {
	if c.desc.Size == 0 {
		return
	}
	if c.desc.SoA > 0 {
		var zero [256]byte
		for k, m := range c.desc.SoAMembers {
			dst := unsafe.Add(c.soaBase[k], m.size*uintptr(row))
			copy(unsafe.Slice((*byte)(dst), m.size), zero[:m.size])
		}
		return
	}
	if c.desc.Dtor != nil {
		c.desc.Dtor(c.aosPtr(row))
		return
	}
	clearBytes(c.aosPtr(row), c.itemSize)
}

func clearBytes(p unsafe.Pointer, size uintptr) {
	s := unsafe.Slice((*byte)(p), size)
	for i := range s {
		s[i] = 0
	}
}

// Chunk is a fixed-size block of packed component arrays for one
// archetype. Rows [0, enabledCount) are enabled; [enabledCount,
// count) are disabled. A per-component version counter is bumped only by
// mutable access, never by reads, which is what makes Changed meaningful.
type Chunk struct {
	archetype *Archetype

	capacity     uint32
	count        uint32
	enabledCount uint32

	entityIDs []Entity

	columns []column // parallel to archetype.genericIDs
	unique  []column // parallel to archetype.uniqueIDs, capacity 1 each

	versions       []uint64 // world version at last mutable access, parallel to columns
	uniqueVersions []uint64 // same, parallel to unique
	structVersion  uint64   // bumped by add/remove/move
}

func newChunk(a *Archetype) *Chunk {
	c := &Chunk{
		archetype: a,
		capacity:  a.capacity,
		entityIDs: make([]Entity, a.capacity),
	}
	c.columns = make([]column, len(a.genericIDs))
	c.versions = make([]uint64, len(a.genericIDs))
	for i, id := range a.genericIDs {
		c.columns[i] = newColumn(a.descriptors[id], a.capacity)
	}
	c.unique = make([]column, len(a.uniqueIDs))
	c.uniqueVersions = make([]uint64, len(a.uniqueIDs))
	for i, id := range a.uniqueIDs {
		c.unique[i] = newColumn(a.descriptors[id], 1)
		col := &c.unique[i]
		if col.desc.SoA == 0 && col.desc.Size > 0 {
			if col.desc.Ctor != nil {
				col.desc.Ctor(col.aosPtr(0))
			} else {
				clearBytes(col.aosPtr(0), col.itemSize)
			}
		}
	}
	return c
}

// Full reports whether the chunk has no spare capacity for AddEntity.
func (c *Chunk) Full() bool { return c.count >= c.capacity }

// Count returns the number of occupied rows (enabled + disabled).
func (c *Chunk) Count() int { return int(c.count) }

// EnabledCount returns the number of rows in the enabled partition.
func (c *Chunk) EnabledCount() int { return int(c.enabledCount) }

// EntityAt returns the entity occupying row.
func (c *Chunk) EntityAt(row uint32) Entity { return c.entityIDs[row] }

// AddEntity places e at the next free row, in the enabled partition, and
// bumps the chunk's structural version. Returns ErrChunkFull when
// saturated; the archetype is responsible for allocating a fresh chunk
// in that case.
func (c *Chunk) AddEntity(e Entity) (uint32, error) {
	if c.Full() {
		return 0, ErrChunkFull
	}
	row := c.placeRow(e)
	for i := range c.columns {
		col := &c.columns[i]
		if col.desc.SoA == 0 && col.desc.Size > 0 {
			if col.desc.Ctor != nil {
				col.desc.Ctor(col.aosPtr(row))
			} else {
				clearBytes(col.aosPtr(row), col.itemSize)
			}
		}
	}
	return row, nil
}

// placeRow reserves the next row for e, keeping the enabled/disabled
// partition intact, without initializing any component storage. Shared
// by AddEntity (which default-constructs every column) and MoveEntityTo
// (which move-constructs or default-constructs column-by-column).
func (c *Chunk) placeRow(e Entity) uint32 {
	row := c.count
	if row != c.enabledCount {
		// Disabled rows exist past enabledCount; place the new (enabled)
		// entity at enabledCount and relocate what was there to the new
		// tail slot so the partition stays contiguous.
		c.swapRows(c.enabledCount, row)
		row = c.enabledCount
	}
	c.entityIDs[row] = e
	c.count++
	c.enabledCount++
	c.structVersion++
	return row
}

// rowMove records that entity was relocated to row as a side effect of a
// RemoveEntity swap. Callers must refresh that entity's cached row in the
// entity store for every rowMove reported, not just the first.
type rowMove struct {
	Entity Entity
	Row    uint32
}

// RemoveEntity swap-removes row with the last row of its partition,
// destructing non-trivial components and decrementing count. If row was
// within the enabled partition, the removed slot is first swapped to the
// end of the enabled block and then with the end of the disabled block,
// so the disabled partition stays compact; only which indices are
// enabled vs. disabled matters, not their relative order. Each
// of those two swaps can displace a distinct entity into a new row, so
// both are reported in moves[:n] (n is 0, 1, or 2) rather than just the
// last one — a row displaced by the first swap and then left alone by a
// no-op second swap is still a real relocation the caller must record.
func (c *Chunk) RemoveEntity(row uint32) (moves [2]rowMove, n int) {
	if row < c.enabledCount {
		lastEnabled := c.enabledCount - 1
		if row != lastEnabled {
			c.swapRows(row, lastEnabled)
			moves[n] = rowMove{c.entityIDs[row], row}
			n++
		}
		lastRow := c.count - 1
		if lastEnabled != lastRow {
			c.swapRows(lastEnabled, lastRow)
			moves[n] = rowMove{c.entityIDs[lastEnabled], lastEnabled}
			n++
		}
		c.destroyRow(lastRow)
		c.enabledCount--
		c.count--
	} else {
		lastRow := c.count - 1
		if row != lastRow {
			c.swapRows(row, lastRow)
			moves[n] = rowMove{c.entityIDs[row], row}
			n++
		}
		c.destroyRow(lastRow)
		c.count--
	}
	c.structVersion++
	return moves, n
}

func (c *Chunk) destroyRow(row uint32) {
	for i := range c.columns {
		c.columns[i].destroy(row)
	}
	c.entityIDs[row] = IDBad
}

func (c *Chunk) swapRows(i, j uint32) {
	if i == j {
		return
	}
	for k := range c.columns {
		c.columns[k].swap(i, j)
	}
	c.entityIDs[i], c.entityIDs[j] = c.entityIDs[j], c.entityIDs[i]
}

// Enable moves row across the enabled/disabled partition boundary without
// relocating it between chunks, in O(1): disabling swaps row with the
// last enabled row and shrinks the partition; enabling does the inverse.
func (c *Chunk) Enable(row uint32, state bool) {
	if state {
		if row < c.enabledCount {
			return // already enabled
		}
		c.swapRows(row, c.enabledCount)
		c.enabledCount++
	} else {
		if row >= c.enabledCount {
			return // already disabled
		}
		c.enabledCount--
		c.swapRows(row, c.enabledCount)
	}
	c.structVersion++
}

// columnIndex resolves id to its position among generic or unique
// columns, per the archetype's precomputed offset table.
func (c *Chunk) columnIndex(id Entity) (pos int, unique bool, ok bool) {
	if p, isU, found := c.archetype.componentIndex(id); found {
		return p, isU, true
	}
	return 0, false, false
}

func (c *Chunk) bumpVersion(pos int, unique bool) {
	tick := c.archetype.world.advanceVersion()
	if unique {
		c.uniqueVersions[pos] = tick
	} else {
		c.versions[pos] = tick
	}
}

// Changed reports whether a mutable view onto the component named by id
// has been acquired in this chunk since sinceVersion.
func (c *Chunk) Changed(id Entity, sinceVersion uint64) bool {
	pos, unique, ok := c.columnIndex(id)
	if !ok {
		return false
	}
	if unique {
		return c.uniqueVersions[pos] > sinceVersion
	}
	return c.versions[pos] > sinceVersion
}

// StructVersion returns the chunk's structural (add/remove/move) version.
func (c *Chunk) StructVersion() uint64 { return c.structVersion }

// Version returns the world version stamped at the last mutable access
// onto id in this chunk, a watermark callers can save and later pass to
// Changed as sinceVersion to ask "has this component been mutated since
// I last looked".
func (c *Chunk) Version(id Entity) uint64 {
	pos, unique, ok := c.columnIndex(id)
	if !ok {
		return 0
	}
	if unique {
		return c.uniqueVersions[pos]
	}
	return c.versions[pos]
}

// --- typed accessors ---

// RowGet returns a read-only pointer to an AoS component at row, or nil
// if the chunk's archetype lacks that component. It does not bump the
// version counter.
func RowGet[T any](c *Chunk, row uint32, cid ComponentID[T]) *T {
	pos, unique, ok := c.columnIndex(cid.Entity())
	if !ok {
		return nil
	}
	col := &c.columns[pos]
	r := row
	if unique {
		col = &c.unique[pos]
		r = 0
	}
	if col.desc.SoA > 0 {
		var v T
		col.soaReadInto(r, unsafe.Pointer(&v))
		return &v
	}
	if col.desc.Size == 0 {
		var v T
		return &v
	}
	return (*T)(col.aosPtr(r))
}

// RowGetMut returns a mutable pointer to an AoS component at row, bumping
// the per-component version counter. SoA components cannot be returned
// as a live pointer (their bytes are not contiguous); use RowSet for
// them instead — RowGetMut on a SoA component still bumps the version and
// returns a pointer to a detached copy for convenience, but writes to it
// are not observed until RowSet is called with it.
func RowGetMut[T any](c *Chunk, row uint32, cid ComponentID[T]) *T {
	pos, unique, ok := c.columnIndex(cid.Entity())
	if !ok {
		return nil
	}
	c.bumpVersion(pos, unique)
	col := &c.columns[pos]
	r := row
	if unique {
		col = &c.unique[pos]
		r = 0
	}
	if col.desc.SoA > 0 {
		var v T
		col.soaReadInto(r, unsafe.Pointer(&v))
		return &v
	}
	if col.desc.Size == 0 {
		var v T
		return &v
	}
	return (*T)(col.aosPtr(r))
}

// RowSet writes value into row, bumping the version counter. It is the
// only mutation path for SoA components, and works for AoS ones too.
func RowSet[T any](c *Chunk, row uint32, cid ComponentID[T], value T) {
	pos, unique, ok := c.columnIndex(cid.Entity())
	if !ok {
		return
	}
	c.bumpVersion(pos, unique)
	col := &c.columns[pos]
	r := row
	if unique {
		col = &c.unique[pos]
		r = 0
	}
	if col.desc.SoA > 0 {
		col.soaWriteFrom(r, unsafe.Pointer(&value))
		return
	}
	if col.desc.Size == 0 {
		return
	}
	*(*T)(col.aosPtr(r)) = value
}

// RowSetSilent writes value into row without bumping the version
// counter (the SSet / "silent set" path).
func RowSetSilent[T any](c *Chunk, row uint32, cid ComponentID[T], value T) {
	pos, unique, ok := c.columnIndex(cid.Entity())
	if !ok {
		return
	}
	col := &c.columns[pos]
	r := row
	if unique {
		col = &c.unique[pos]
		r = 0
	}
	if col.desc.SoA > 0 {
		col.soaWriteFrom(r, unsafe.Pointer(&value))
		return
	}
	if col.desc.Size == 0 {
		return
	}
	*(*T)(col.aosPtr(r)) = value
}

// View returns a read-only contiguous slice over the enabled rows of an
// AoS component. SoA components have no contiguous backing and return
// nil; use SoAField for them.
func View[T any](c *Chunk, cid ComponentID[T]) []T {
	pos, unique, ok := c.columnIndex(cid.Entity())
	if !ok {
		return nil
	}
	col := &c.columns[pos]
	n := c.enabledCount
	if unique {
		col = &c.unique[pos]
		n = 1
	}
	if col.desc.SoA > 0 || col.desc.Size == 0 || n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(col.base), n)
}

// ViewMut is View but bumps the component's version counter.
func ViewMut[T any](c *Chunk, cid ComponentID[T]) []T {
	pos, unique, ok := c.columnIndex(cid.Entity())
	if !ok {
		return nil
	}
	c.bumpVersion(pos, unique)
	return View[T](c, cid)
}

// SoAField returns a contiguous slice over one member column of an SoA
// component (member index order matches the struct's field order). F
// must match that field's Go type.
func SoAField[F any](c *Chunk, id Entity, memberIndex int) []F {
	pos, unique, ok := c.columnIndex(id)
	if !ok {
		return nil
	}
	col := &c.columns[pos]
	n := c.enabledCount
	if unique {
		col = &c.unique[pos]
		n = 1
	}
	if col.desc.SoA == 0 || memberIndex >= len(col.soaBase) {
		return nil
	}
	return unsafe.Slice((*F)(col.soaBase[memberIndex]), n)
}

// Has reports whether the chunk's archetype carries component id at all
// (independent of row, since presence is archetype-wide).
func (c *Chunk) Has(id Entity) bool {
	_, _, ok := c.columnIndex(id)
	return ok
}

// MoveEntityTo move-constructs the components row has in common with
// dst's archetype, default-constructs components present only in dst,
// implicitly destructs (by omission) components present only in c, and
// finally removes row from c. Unique (per-chunk) components are never
// carried across a move: each chunk owns its own singleton slot. Any
// entities displaced within c by the removal are reported in moves[:n]
// (see RemoveEntity); the caller must refresh all of them.
func (c *Chunk) MoveEntityTo(row uint32, dst *Chunk) (dstRow uint32, moves [2]rowMove, n int, err error) {
	if dst.Full() {
		return 0, moves, 0, ErrChunkFull
	}
	e := c.entityIDs[row]
	dstRow = dst.placeRow(e)

	for i, id := range c.archetype.genericIDs {
		srcCol := &c.columns[i]
		if dstPos, isUnique, ok := dst.archetype.componentIndex(id); ok && !isUnique {
			moveColumnValue(srcCol, row, &dst.columns[dstPos], dstRow)
		}
	}
	for i, id := range dst.archetype.genericIDs {
		if _, _, ok := c.archetype.componentIndex(id); ok {
			continue // handled above
		}
		dstCol := &dst.columns[i]
		if dstCol.desc.SoA == 0 && dstCol.desc.Size > 0 {
			if dstCol.desc.Ctor != nil {
				dstCol.desc.Ctor(dstCol.aosPtr(dstRow))
			} else {
				clearBytes(dstCol.aosPtr(dstRow), dstCol.itemSize)
			}
		}
	}

	moves, n = c.RemoveEntity(row)
	return dstRow, moves, n, nil
}

// moveColumnValue relocates one component's value from (src, srow) to
// (dst, drow), preferring the descriptor's Move function for AoS columns
// and falling back to a byte-level copy through a small stack buffer when
// either side is SoA-packed (the two representations don't share a
// pointer shape, so they can't be moved directly into one another).
func moveColumnValue(src *column, srow uint32, dst *column, drow uint32) {
	if src.desc.Size == 0 {
		return
	}
	if src.desc.SoA > 0 || dst.desc.SoA > 0 {
		buf := make([]byte, src.desc.Size)
		if src.desc.SoA > 0 {
			src.soaReadInto(srow, unsafe.Pointer(&buf[0]))
		} else {
			copy(buf, unsafe.Slice((*byte)(src.aosPtr(srow)), src.desc.Size))
		}
		if dst.desc.SoA > 0 {
			dst.soaWriteFrom(drow, unsafe.Pointer(&buf[0]))
		} else {
			copy(unsafe.Slice((*byte)(dst.aosPtr(drow)), dst.desc.Size), buf)
		}
		return
	}
	if src.desc.Move != nil {
		src.desc.Move(dst.aosPtr(drow), src.aosPtr(srow))
		return
	}
	copy(unsafe.Slice((*byte)(dst.aosPtr(drow)), src.desc.Size), unsafe.Slice((*byte)(src.aosPtr(srow)), src.desc.Size))
}
