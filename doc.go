/*
Package archway is an archetype-based Entity-Component-System storage and
query engine.

Archway groups entities that share the same component set into an
archetype, and packs each archetype's rows into fixed-size chunks so that
iteration over a query stays cache-friendly. Components are plain Go
structs registered once per type; relationships between entities (and
inheritance through the built-in Is relation) are expressed as pair
identifiers rather than a separate storage mechanism.

Core Concepts:

  - Entity: a 64-bit identifier with a generation counter, naming either a
    plain object or a (relation, target) pair.
  - Component: a registered Go type attachable to an entity.
  - Archetype: the set of component ids an entity carries.
  - Chunk: a fixed-size block of packed rows belonging to one archetype.
  - Query: a compiled, cached predicate over component ids, matched
    against archetypes and iterated chunk by chunk.

Basic Usage:

	w := archway.NewWorld()
	position := archway.Register[Position](w)

	e := w.NewEntity()
	archway.Add(w, e, position, Position{X: 1, Y: 2})

	q := w.Query().All(position.Entity()).Compile()
	for c := q.Cursor(); c.Next(); {
		pos := archway.RowGetMut(c.Chunk(), c.Row(), position)
		pos.X++
	}

World mutation (NewEntity, Add, Remove, Delete, ...) must come from a
single writer goroutine at a time; query iteration over a fixed world
state may run concurrently from multiple readers as long as no writer is
active for the duration. Use a CommandBuffer to defer mutations recorded
from reader goroutines until the writer can safely replay them.
*/
package archway
