package archway

import "testing"

// TestEntitySlotReuseBumpsGeneration covers the free-list contract: a
// deleted entity's slot is reused by the next allocation with a strictly
// greater generation, and the stale handle stays invalid.
func TestEntitySlotReuseBumpsGeneration(t *testing.T) {
	w := NewWorld()
	e1 := w.NewEntity()
	if err := w.Delete(e1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if w.Valid(e1) {
		t.Fatalf("Valid(e1) = true after Delete")
	}

	e2 := w.NewEntity()
	if e2.Index() != e1.Index() {
		t.Fatalf("new entity got index %d, want reused slot %d", e2.Index(), e1.Index())
	}
	if e2.Gen() <= e1.Gen() {
		t.Errorf("reused slot generation = %d, want > %d", e2.Gen(), e1.Gen())
	}
	if w.Valid(e1) {
		t.Errorf("stale handle became valid again after slot reuse")
	}
	if !w.Valid(e2) {
		t.Errorf("fresh handle invalid")
	}
}
