package archway

import "testing"

// TestPagedStorageLifecycle covers lazy page allocation, idempotent
// insertion, and page reclamation once the last slot empties.
func TestPagedStorageLifecycle(t *testing.T) {
	p := newPagedStorage[string]()
	if p.Contains(7) {
		t.Fatalf("Contains(7) = true on an empty store")
	}

	p.Add(7, "seven")
	p.Add(7, "seven again") // overwrite, same slot
	p.Add(PageCapacity+3, "far away")

	if got, ok := p.Get(7); !ok || got != "seven again" {
		t.Errorf("Get(7) = (%q, %v), want (seven again, true)", got, ok)
	}
	if len(p.pages) != 2 {
		t.Errorf("pages allocated = %d, want 2 (one per touched range)", len(p.pages))
	}

	seen := map[uint32]string{}
	p.Each(func(id uint32, v string) { seen[id] = v })
	if len(seen) != 2 {
		t.Errorf("Each visited %d entries, want 2", len(seen))
	}

	if !p.Remove(7) {
		t.Fatalf("Remove(7) = false, want true")
	}
	if p.Remove(7) {
		t.Errorf("second Remove(7) = true, want false")
	}
	if len(p.pages) != 1 {
		t.Errorf("pages after emptying one = %d, want 1 (empty page freed)", len(p.pages))
	}
}

// TestSparseSetSwapRemoveCompacts covers the dense-array compaction: a
// removal swaps the tail into the hole and both sparse indices stay
// consistent.
func TestSparseSetSwapRemoveCompacts(t *testing.T) {
	s := NewSparseSet[int]()
	for i := uint32(0); i < 4; i++ {
		if !s.Add(i*10, int(i)) {
			t.Fatalf("Add(%d) reported already-present on first insert", i*10)
		}
	}
	if s.Add(10, 99) {
		t.Errorf("re-Add(10) reported newly inserted, want overwrite")
	}

	if !s.Remove(10) {
		t.Fatalf("Remove(10) = false, want true")
	}
	if s.Contains(10) {
		t.Errorf("Contains(10) = true after Remove")
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	for _, id := range []uint32{0, 20, 30} {
		if _, ok := s.Get(id); !ok {
			t.Errorf("Get(%d) missing after unrelated Remove", id)
		}
	}
}
