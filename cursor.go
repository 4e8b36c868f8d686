package archway

// iterMode selects which partition of each matching chunk a Cursor walks:
// enabled-only is the default, disabled-only and all are offered too,
// driven by the chunk's enabled/disabled split.
type iterMode uint8

const (
	iterEnabled iterMode = iota
	iterDisabled
	iterAll
)

// cursorLockBit is the single World.locks bit every live Cursor marks
// while iterating, refcounted so concurrent readers don't unmark each
// other's hold early.
const cursorLockBit = 0

// Cursor walks the rows of every archetype a compiled query currently
// matches, chunk by chunk, within one partition of the enabled/disabled
// split. It holds the world's read lock for its lifetime; Reset (called
// automatically once iteration is exhausted, or explicitly to abandon
// iteration early) releases it.
type Cursor struct {
	query *Query
	mode  iterMode

	chunks   []*Chunk
	chunkIdx int

	rowStart, rowEnd uint32
	row              uint32 // one past the current row; -1 state via started flag

	started     bool
	initialized bool
}

func newCursor(q *Query, mode iterMode) *Cursor {
	return &Cursor{query: q, mode: mode}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.query.world.AddLock(cursorLockBit)
	c.initialized = true
	if !c.sourceTermsSatisfied() {
		return // no chunks gathered; the cursor yields nothing
	}
	for _, m := range c.query.compiled.matches {
		a := m.archetype
		c.chunks = append(c.chunks, a.chunksOpen...)
		c.chunks = append(c.chunks, a.chunksFull...)
	}
	if len(c.chunks) > 0 {
		c.enterChunk(0)
	}
}

// sourceTermsSatisfied evaluates every All term bound to a non-default
// source entity (singleton/parent lookups) against that entity's current
// archetype, and every such None term for absence. Checked once per run
// rather than at plan-match time so a mutation of the source entity
// between runs is observed without recompiling the plan.
func (c *Cursor) sourceTermsSatisfied() bool {
	w := c.query.world
	plan := &c.query.compiled.plan
	for _, t := range plan.AllTerms {
		if t.Source != IDBad && !w.hasRaw(t.Source, t.ID) {
			return false
		}
	}
	for _, t := range plan.NoneTerms {
		if t.Source != IDBad && w.hasRaw(t.Source, t.ID) {
			return false
		}
	}
	return true
}

func (c *Cursor) enterChunk(idx int) {
	c.chunkIdx = idx
	ch := c.chunks[idx]
	switch c.mode {
	case iterEnabled:
		c.rowStart, c.rowEnd = 0, ch.enabledCount
	case iterDisabled:
		c.rowStart, c.rowEnd = ch.enabledCount, ch.count
	default:
		c.rowStart, c.rowEnd = 0, ch.count
	}
	if !c.passesChanged(ch) {
		c.rowStart, c.rowEnd = 0, 0
	}
	c.row = c.rowStart
}

// passesChanged reports whether ch satisfies every Changed()-marked All
// term in the query's plan against the query's Since baseline, evaluated
// at chunk granularity.
func (c *Cursor) passesChanged(ch *Chunk) bool {
	for _, t := range c.query.compiled.plan.AllTerms {
		if t.Changed && !ch.Changed(t.ID, c.query.since) {
			return false
		}
	}
	return true
}

// Next advances the cursor to the next row, returning false once every
// matching chunk's relevant partition has been exhausted, at which point
// the cursor's read lock is released automatically.
func (c *Cursor) Next() bool {
	c.initialize()
	for c.chunkIdx < len(c.chunks) {
		if c.row < c.rowEnd {
			c.started = true
			c.row++
			return true
		}
		if c.chunkIdx+1 >= len(c.chunks) {
			break
		}
		c.enterChunk(c.chunkIdx + 1)
	}
	c.Reset()
	return false
}

// Reset abandons iteration and releases the cursor's hold on the world's
// read lock. Safe to call multiple times or before Next ever returns
// true.
func (c *Cursor) Reset() {
	if c.initialized {
		c.query.world.RemoveLock(cursorLockBit)
		if c.query.compiled.plan.hasChangedTerms() {
			// The run is over: anything written up to now is old news for
			// the next run of this query handle.
			c.query.since = c.query.world.version
		}
	}
	c.chunks = nil
	c.chunkIdx = 0
	c.row = 0
	c.started = false
	c.initialized = false
}

// Chunk returns the chunk backing the current row. Valid only after Next
// has returned true.
func (c *Cursor) Chunk() *Chunk { return c.chunks[c.chunkIdx] }

// Row returns the current row index within Chunk(). Valid only after Next
// has returned true.
func (c *Cursor) Row() uint32 { return c.row - 1 }

// Entity returns the entity at the current row.
func (c *Cursor) Entity() Entity { return c.Chunk().EntityAt(c.Row()) }

// GroupID returns the current chunk's archetype's group id under the
// query's GroupBy relation, or IDBad if the query has no GroupBy.
func (c *Cursor) GroupID() Entity {
	return c.query.compiled.matches[c.matchIndexForChunk()].groupID
}

func (c *Cursor) matchIndexForChunk() int {
	archOfChunk := c.Chunk().archetype
	for i, m := range c.query.compiled.matches {
		if m.archetype == archOfChunk {
			return i
		}
	}
	return 0
}

// Has reports whether id is present on the current row's archetype,
// primarily useful for Opt terms.
func (c *Cursor) Has(id Entity) bool { return c.Chunk().Has(id) }

// Count returns the total number of rows the cursor will yield across
// every currently matching chunk's relevant partition. It does not
// consume the cursor but does initialize (and then reset) it if not
// already started.
func (c *Cursor) Count() int {
	c.initialize()
	n := 0
	for _, ch := range c.chunks {
		if !c.passesChanged(ch) {
			continue
		}
		switch c.mode {
		case iterEnabled:
			n += int(ch.enabledCount)
		case iterDisabled:
			n += int(ch.count - ch.enabledCount)
		default:
			n += int(ch.count)
		}
	}
	if !c.started {
		c.Reset()
	}
	return n
}
