package archway

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Descriptor is the component cache's per-type record: stable id, layout,
// and the construct/destruct/copy/move/swap/compare/save/load function
// values a non-trivial type needs. Trivial (no finalizer, no pointers
// worth destructing) types leave Dtor nil, which callers read as "memcpy
// is safe".
type Descriptor struct {
	ID   Entity // entity-view identifier, shared with the world's entity id space
	Name string

	ReflectType reflect.Type
	Size        uint8
	Align       uint16
	Kind        Kind

	// SoA is the declared arity (0 = AoS). SoAMembers has len(SoA) entries
	// describing each struct field's byte offset/size when SoA packing is
	// requested via RegisterSoA.
	SoA        uint8
	SoAMembers []soaMember

	Ctor  func(dst unsafe.Pointer)
	Dtor  func(dst unsafe.Pointer)
	Copy  func(dst, src unsafe.Pointer)
	Move  func(dst, src unsafe.Pointer)
	Swap  func(a, b unsafe.Pointer)
	Equal func(a, b unsafe.Pointer) bool
	Save  func(dst []byte, src unsafe.Pointer) []byte
	Load  func(src []byte, dst unsafe.Pointer) []byte

	OnAdd    func(*World, Entity)
	OnRemove func(*World, Entity)
	OnSet    func(*World, Entity)

	Hash uint64

	// BitSlot is this descriptor's position in the component-presence
	// mask.Mask used by Archetype.Has/query matching as an O(1)
	// pre-filter. -1 for descriptors synthesized for
	// plain marker entities or relationship pairs, which have no slot
	// and are always checked via the canonical id-set walk instead.
	BitSlot int
}

// PackedLayout renders the component-view encoding (id, soa, size,
// align packed into one word) for debugging and for an external
// serializer to carry layout alongside identity without a cache lookup.
// It is never used as a stored identity — ID (entity-view) is — since a
// component is itself an ordinary entity in this id space.
func (d *Descriptor) PackedLayout() Entity {
	return MakeComponentID(d.ID.Index(), d.SoA, d.Size, d.Align)
}

type soaMember struct {
	offset uintptr
	size   uintptr
	align  uintptr
}

// componentCache is the registry of component descriptors, indexed both by
// stable id and by name. Registration is thread-unsafe by contract; it is
// meant to happen during single-threaded setup.
type componentCache struct {
	mu     sync.Mutex
	byType map[reflect.Type]*Descriptor
	byIdx  map[uint32]*Descriptor // keyed by the shared entity index, not a private counter
	byName map[string]*Descriptor

	// tags holds synthesized zero-size descriptors for plain entities
	// and relationship pairs used as archetype members without ever
	// being passed to Register/RegisterSoA/RegisterUnique.
	tags map[Entity]*Descriptor

	// maxBitSlots bounds how many distinct ids can participate in the
	// presence mask.Mask pre-filter; ids registered beyond this are given
	// BitSlot -1 and fall back to the canonical id-set walk.
	nextBitSlot int
}

// maxBitSlots matches the narrowest width mask.Mask is built with; slot
// allocation past it degrades to the id-set walk instead of marking bits
// the mask cannot hold.
const maxBitSlots = 64

func newComponentCache() *componentCache {
	return &componentCache{
		byType: make(map[reflect.Type]*Descriptor),
		byIdx:  make(map[uint32]*Descriptor),
		byName: make(map[string]*Descriptor),
		tags:   make(map[Entity]*Descriptor),
	}
}

// allocBitSlot hands out the next presence-mask bit slot, or -1 once
// maxBitSlots have been assigned.
func (cc *componentCache) allocBitSlot() int {
	if cc.nextBitSlot >= maxBitSlots {
		return -1
	}
	slot := cc.nextBitSlot
	cc.nextBitSlot++
	return slot
}

// DescriptorFor resolves id to its registered Descriptor if id was itself
// created via Register/RegisterSoA/RegisterUnique, or otherwise returns a
// cached, lazily synthesized zero-size tag descriptor so plain marker
// entities and relationship pairs can share Archetype/Chunk machinery
// with real components.
func (cc *componentCache) DescriptorFor(id Entity) *Descriptor {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	// A pair's Index() is a composite of two other ids' indices, not a
	// component-cache key in its own right, so pairs always synthesize.
	if !id.IsPair() {
		if d, ok := cc.FindByEntity(id); ok {
			return d
		}
	}
	if d, ok := cc.tags[id]; ok {
		return d
	}
	d := &Descriptor{
		ID:      id,
		Name:    id.String(),
		Kind:    id.EntityKind(),
		BitSlot: cc.allocBitSlot(),
	}
	cc.tags[id] = d
	return d
}

// ComponentID is a typed handle bundling a Descriptor with its Go type,
// returned by Register so call sites get compile-time checked Get/Set
// accessors instead of passing reflect.Type around.
type ComponentID[T any] struct {
	desc *Descriptor
}

// Entity returns the component's entity-view identifier (desc.ID),
// usable directly in query terms and Add/Remove/Has.
func (c ComponentID[T]) Entity() Entity { return c.desc.ID }

// Descriptor exposes the underlying registry record.
func (c ComponentID[T]) Descriptor() *Descriptor { return c.desc }

// Register records T in the world's component cache, idempotently: a
// second Register[T] call on the same world returns the same descriptor.
// Registration is not safe for concurrent use.
func Register[T any](w *World) ComponentID[T] {
	return registerGeneric[T](w, 0, nil)
}

// RegisterSoA records T with Structure-of-Arrays packing: each struct
// field of T is stored in its own parallel array within a chunk instead
// of one packed array of T values. The declared arity is T's field count.
func RegisterSoA[T any](w *World) ComponentID[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		panic("archway: RegisterSoA requires a struct type")
	}
	members := make([]soaMember, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		members[i] = soaMember{offset: f.Offset, size: f.Type.Size(), align: uintptr(f.Type.Align())}
	}
	if len(members) == 0 || len(members) > 7 {
		panic("archway: SoA arity must fit the 3-bit soa field (1-7 members)")
	}
	return registerGeneric[T](w, uint8(len(members)), members)
}

// RegisterUnique records T as a unique (per-chunk singleton) component.
func RegisterUnique[T any](w *World) ComponentID[T] {
	cid := registerGeneric[T](w, 0, nil)
	cid.desc.Kind = KindUni
	cid.desc.ID = MakeEntity(cid.desc.ID.Index(), 0, true, false, KindUni)
	return cid
}

func registerGeneric[T any](w *World, soa uint8, members []soaMember) ComponentID[T] {
	cc := w.components
	cc.mu.Lock()
	defer cc.mu.Unlock()

	var zero T
	t := reflect.TypeOf(zero)
	if d, ok := cc.byType[t]; ok {
		if d.SoA != soa {
			// Same type, different layout: the first registration wins and
			// re-registering with a mismatched descriptor is fatal for the
			// caller, per the DuplicateRegistration contract.
			panic(fmt.Sprintf("archway: %s already registered with SoA arity %d, re-registered with %d", d.Name, d.SoA, soa))
		}
		return ComponentID[T]{desc: d}
	}

	size := uintptr(0)
	align := uintptr(1)
	if t != nil {
		size = t.Size()
		align = uintptr(t.Align())
	}
	if size > 255 {
		panic(fmt.Sprintf("archway: component %s exceeds the 255-byte descriptor size field", t))
	}

	// Components live in the same id space as ordinary entities (a
	// component is itself an entity with a descriptor attached), so its
	// id comes from the world's entity allocator, not a private counter.
	compEntity := w.entities.Alloc()
	rec := w.entities.Resolve(compEntity)
	rec.archetype = w.emptyArchetype
	chunk, row, err := w.emptyArchetype.allocRow(compEntity)
	if err != nil {
		panic("archway: failed to place component descriptor entity: " + err.Error())
	}
	rec.chunk = chunk
	rec.row = row
	id := compEntity.Index()

	desc := &Descriptor{
		ID:          MakeEntity(id, 0, true, false, KindGen),
		Name:        t.String(),
		ReflectType: t,
		Size:        uint8(size),
		Align:       uint16(align),
		Kind:        KindGen,
		SoA:         soa,
		SoAMembers:  members,
		Copy:        func(dst, src unsafe.Pointer) { *(*T)(dst) = *(*T)(src) },
		Move: func(dst, src unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
			var z T
			*(*T)(src) = z
		},
		Swap: func(a, b unsafe.Pointer) {
			*(*T)(a), *(*T)(b) = *(*T)(b), *(*T)(a)
		},
		Equal: func(a, b unsafe.Pointer) bool {
			return reflect.DeepEqual(*(*T)(a), *(*T)(b))
		},
		Hash:    fnv64(t.String()),
		BitSlot: cc.allocBitSlot(),
	}
	cc.byType[t] = desc
	cc.byIdx[id] = desc
	cc.byName[desc.Name] = desc
	return ComponentID[T]{desc: desc}
}

// FindByName looks up a previously registered descriptor by its canonical
// Go type name.
func (cc *componentCache) FindByName(name string) (*Descriptor, bool) {
	d, ok := cc.byName[name]
	return d, ok
}

// FindByEntity looks up a previously registered descriptor by component id.
func (cc *componentCache) FindByEntity(e Entity) (*Descriptor, bool) {
	d, ok := cc.byIdx[e.Index()]
	return d, ok
}

// ComponentByName resolves a registered component's descriptor by its
// canonical Go type name (e.g. "main.Position").
func (w *World) ComponentByName(name string) (*Descriptor, bool) {
	return w.components.FindByName(name)
}

// ComponentFor resolves the descriptor registered for component id e, or
// (nil, false) if e was never registered through Register/RegisterSoA/
// RegisterUnique.
func (w *World) ComponentFor(e Entity) (*Descriptor, bool) {
	return w.components.FindByEntity(e)
}

func fnv64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
