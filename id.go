package archway

import "fmt"

// Entity is a 64-bit tagged identifier. It has two overlapping views of the
// same bits: the entity view (used for plain entities and pairs) and the
// component view (used for registered component descriptors). Both views
// agree on bits 0-31 holding the index/id part; the upper bits are
// interpreted differently depending on which view the value was built
// with. Fixing the bit widths keeps pair encoding and wildcard
// comparisons unambiguous.
type Entity uint64

// Kind distinguishes per-entity (generic) component storage from
// per-chunk (unique) singleton storage.
type Kind uint8

const (
	KindGen Kind = iota // one value per entity (row)
	KindUni             // one value per chunk
)

func (k Kind) String() string {
	if k == KindUni {
		return "Uni"
	}
	return "Gen"
}

// Entity-view bit layout: id:32, gen:28, isEntity:1, isPair:1, kind:1, _:1.
const (
	idBits  = 32
	genBits = 28

	idMask  = uint64(1)<<idBits - 1
	genMask = uint64(1)<<genBits - 1

	genShift      = idBits
	isEntityShift = idBits + genBits // 60
	isPairShift   = isEntityShift + 1
	kindShift     = isPairShift + 1
)

// Component-view bit layout, sharing bits 0-31 with the id field above:
// id:32, soa:3, size:8, align:10, _:11.
const (
	soaBits   = 3
	sizeBits  = 8
	alignBits = 10

	soaShift   = idBits
	sizeShift  = soaShift + soaBits
	alignShift = sizeShift + sizeBits

	soaMask   = uint64(1)<<soaBits - 1
	sizeMask  = uint64(1)<<sizeBits - 1
	alignMask = uint64(1)<<alignBits - 1
)

// wildcardIndex is the reserved index value meaning "match any id in this
// pair slot". All.Index() == wildcardIndex.
const wildcardIndex = uint32(idMask)

// IDBad is the reserved all-ones value; no valid entity or component ever
// compares equal to it.
const IDBad = Entity(^uint64(0))

// MakeEntity packs an entity-view identifier.
func MakeEntity(index uint32, gen uint32, isEntity, isPair bool, kind Kind) Entity {
	var v uint64
	v |= uint64(index) & idMask
	v |= (uint64(gen) & genMask) << genShift
	if isEntity {
		v |= 1 << isEntityShift
	}
	if isPair {
		v |= 1 << isPairShift
	}
	if kind == KindUni {
		v |= 1 << kindShift
	}
	return Entity(v)
}

// Index returns the id/index field common to both views.
func (e Entity) Index() uint32 { return uint32(uint64(e) & idMask) }

// Gen returns the generation counter (entity view only).
func (e Entity) Gen() uint32 { return uint32((uint64(e) >> genShift) & genMask) }

// IsEntity reports the entity-view "ent" bit.
func (e Entity) IsEntity() bool { return uint64(e)&(1<<isEntityShift) != 0 }

// IsPair reports whether this identifier names a (relation, target) pair.
func (e Entity) IsPair() bool { return uint64(e)&(1<<isPairShift) != 0 }

// EntityKind returns the Gen/Uni kind bit.
func (e Entity) EntityKind() Kind {
	if uint64(e)&(1<<kindShift) != 0 {
		return KindUni
	}
	return KindGen
}

// MakePair builds the single identifier representing the relationship
// (first, second): id = first's index, gen = second's index, isEntity =
// first's kind bit (reused as a spare slot since pairs otherwise have
// nowhere to store it), isPair = 1 always, kind = second's kind bit.
//
// Because the gen field is only 28 bits wide, second's index must fit in
// 28 bits (~268 million); this bounds the practical id space for entities
// that appear as the second element of a pair. The all-ones 28-bit value
// is reserved: it is what the All wildcard's index truncates to.
func MakePair(first, second Entity) Entity {
	return MakeEntity(first.Index(), second.Index(), first.EntityKind() == KindUni, true, second.EntityKind())
}

// First returns the first element's index, valid only when IsPair is true.
func (e Entity) First() uint32 { return e.Index() }

// Second returns the second element's index, valid only when IsPair is
// true. The all-ones gen value is the All wildcard truncated to 28 bits
// and reads back as wildcardIndex.
func (e Entity) Second() uint32 {
	if g := e.Gen(); g != uint32(genMask) {
		return g
	}
	return wildcardIndex
}

// String renders a debug form; never used for hashing or equality.
func (e Entity) String() string {
	if e == IDBad {
		return "Entity(bad)"
	}
	if e.IsPair() {
		return fmt.Sprintf("Pair(%d,%d)", e.First(), e.Second())
	}
	return fmt.Sprintf("Entity(%d,gen=%d)", e.Index(), e.Gen())
}

// --- Component view ---

// MakeComponentID packs a component-view identifier: id, SoA arity
// (0 = AoS), size in bytes (<=255), and alignment (power of two <=1024).
func MakeComponentID(index uint32, soa uint8, size uint8, align uint16) Entity {
	v := uint64(index) & idMask
	v |= (uint64(soa) & soaMask) << soaShift
	v |= (uint64(size) & sizeMask) << sizeShift
	v |= (uint64(align) & alignMask) << alignShift
	return Entity(v)
}

// SoA returns the component-view SoA arity (0 means AoS layout).
func (e Entity) SoA() uint8 { return uint8((uint64(e) >> soaShift) & soaMask) }

// Size returns the component-view byte size.
func (e Entity) Size() uint8 { return uint8((uint64(e) >> sizeShift) & sizeMask) }

// Align returns the component-view alignment.
func (e Entity) Align() uint16 { return uint16((uint64(e) >> alignShift) & alignMask) }

// --- Wildcards and reserved core entities ---

// All is the pair-wildcard sentinel: a term referencing All in either pair
// slot matches any concrete id in that slot.
var All = MakeEntity(wildcardIndex, 0, true, false, KindGen)

// Reserved low-id-range core entities, registered at world construction.
// Their ids are fixed so that two worlds built with the same registration
// order agree on them, which matters for query plans that reference them
// by value (e.g. a compiled term holding ChildOf directly).
const (
	coreChildOf uint32 = 1 + iota
	coreIs
	coreOnDelete
	coreOnDeleteTarget
	coreDelete
	coreRemove
	coreRequires
	coreCantCombine
	coreExclusive
	coreAcyclic
	coreTraversable
	coreDependsOn
	coreVar0
	coreVar1
	coreVar2
	coreVar3
	coreVar4
	coreVar5
	coreVar6
	coreVar7
	coreReservedCount // first id available for user entities/components
)

var (
	ChildOf        = MakeEntity(coreChildOf, 0, true, false, KindGen)
	Is             = MakeEntity(coreIs, 0, true, false, KindGen)
	OnDelete       = MakeEntity(coreOnDelete, 0, true, false, KindGen)
	OnDeleteTarget = MakeEntity(coreOnDeleteTarget, 0, true, false, KindGen)

	// ActionDelete and ActionRemove are the two cleanup actions a policy
	// pair can name as its target: (OnDelete, ActionDelete) deletes every
	// referrer, (OnDeleteTarget, ActionRemove) strips the dangling pair.
	ActionDelete = MakeEntity(coreDelete, 0, true, false, KindGen)
	ActionRemove = MakeEntity(coreRemove, 0, true, false, KindGen)

	Requires    = MakeEntity(coreRequires, 0, true, false, KindGen)
	CantCombine = MakeEntity(coreCantCombine, 0, true, false, KindGen)
	Exclusive   = MakeEntity(coreExclusive, 0, true, false, KindGen)
	Acyclic     = MakeEntity(coreAcyclic, 0, true, false, KindGen)
	Traversable = MakeEntity(coreTraversable, 0, true, false, KindGen)
	DependsOn   = MakeEntity(coreDependsOn, 0, true, false, KindGen)

	coreVars = [8]Entity{
		MakeEntity(coreVar0, 0, true, false, KindGen),
		MakeEntity(coreVar1, 0, true, false, KindGen),
		MakeEntity(coreVar2, 0, true, false, KindGen),
		MakeEntity(coreVar3, 0, true, false, KindGen),
		MakeEntity(coreVar4, 0, true, false, KindGen),
		MakeEntity(coreVar5, 0, true, false, KindGen),
		MakeEntity(coreVar6, 0, true, false, KindGen),
		MakeEntity(coreVar7, 0, true, false, KindGen),
	}
)

// Var returns one of the eight reserved query-variable marker entities
// (Var0..Var7), used as non-default query term sources.
func Var(n int) Entity {
	if n < 0 || n >= len(coreVars) {
		panic("archway: Var index out of range [0,8)")
	}
	return coreVars[n]
}

// Pair builds the identifier for the relationship (relation, target). It
// is a thin, readable wrapper over MakePair for call sites that think in
// terms of relation/target rather than first/second.
func Pair(relation, target Entity) Entity {
	return MakePair(relation, target)
}
