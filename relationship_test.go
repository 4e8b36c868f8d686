package archway_test

import (
	"testing"

	"github.com/archway-ecs/archway"
)

func TestIsReflexiveAndTransitive(t *testing.T) {
	w := archway.NewWorld()
	animal := w.NewEntity()
	mammal := w.NewEntity()
	dog := w.NewEntity()

	if !w.Is(animal, animal) {
		t.Errorf("Is(animal, animal) = false, want true (reflexive)")
	}

	if err := w.As(mammal, animal); err != nil {
		t.Fatalf("As failed: %v", err)
	}
	if err := w.As(dog, mammal); err != nil {
		t.Fatalf("As failed: %v", err)
	}

	if !w.Is(dog, mammal) {
		t.Errorf("Is(dog, mammal) = false, want true (direct edge)")
	}
	if !w.Is(dog, animal) {
		t.Errorf("Is(dog, animal) = false, want true (transitive through mammal)")
	}
	if w.Is(animal, dog) {
		t.Errorf("Is(animal, dog) = true, want false (Is is not symmetric)")
	}
}

// TestIsCacheInvalidatedByNewEdge ensures a negative Is result computed
// before a new edge exists doesn't stay memoized stale once the edge is
// added.
func TestIsCacheInvalidatedByNewEdge(t *testing.T) {
	w := archway.NewWorld()
	cat := w.NewEntity()
	mammal := w.NewEntity()

	if w.Is(cat, mammal) {
		t.Fatalf("Is(cat, mammal) = true before any edge exists")
	}
	if err := w.As(cat, mammal); err != nil {
		t.Fatalf("As failed: %v", err)
	}
	if !w.Is(cat, mammal) {
		t.Errorf("Is(cat, mammal) = false after As(cat, mammal), want true")
	}
}

func TestTargetsAndRelationsEnumerate(t *testing.T) {
	w := archway.NewWorld()
	likes := w.NewEntity()
	owns := w.NewEntity()
	cake := w.NewEntity()
	pie := w.NewEntity()

	alice := w.NewEntity()
	if err := w.AddID(alice, archway.Pair(likes, cake)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}
	if err := w.AddID(alice, archway.Pair(likes, pie)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}
	if err := w.AddID(alice, archway.Pair(owns, cake)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	var targets []archway.Entity
	w.Targets(alice, likes, func(tgt archway.Entity) bool {
		targets = append(targets, tgt)
		return true
	})
	if len(targets) != 2 {
		t.Fatalf("Targets(alice, likes) returned %d targets, want 2", len(targets))
	}
	if targets[0] != cake && targets[0] != pie {
		t.Errorf("unexpected target %v, want cake or pie", targets[0])
	}
	if targets[1] != cake && targets[1] != pie {
		t.Errorf("unexpected target %v, want cake or pie", targets[1])
	}

	var relations []archway.Entity
	w.Relations(alice, cake, func(rel archway.Entity) bool {
		relations = append(relations, rel)
		return true
	})
	if len(relations) != 2 {
		t.Fatalf("Relations(alice, cake) returned %d relations, want 2", len(relations))
	}

	tgt, ok := w.Target(alice, owns)
	if !ok || tgt != cake {
		t.Errorf("Target(alice, owns) = (%v, %v), want (cake, true)", tgt, ok)
	}
}
