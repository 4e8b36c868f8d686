package archway_test

import (
	"errors"
	"testing"

	"github.com/archway-ecs/archway"
)

// TestCleanupOnDeleteTargetRemoveDefault checks the default (OnDeleteTarget)
// policy: a relation with no explicit policy just drops the dangling pair
// from its holder instead of cascading a delete.
func TestCleanupOnDeleteTargetRemoveDefault(t *testing.T) {
	w := archway.NewWorld()
	ownerOf := w.NewEntity() // no (OnDeleteTarget, *) policy -> defaults to Remove
	item := w.NewEntity()
	owner := w.NewEntity()
	if err := w.AddID(owner, archway.Pair(ownerOf, item)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	if err := w.Delete(item); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !w.Valid(owner) {
		t.Errorf("owner was deleted, want only the dangling pair removed")
	}
	if w.HasID(owner, archway.Pair(ownerOf, item)) {
		t.Errorf("owner still carries the pair referencing the deleted item")
	}
}

// TestCleanupOnDeleteTargetDeleteCascades sets an explicit (OnDeleteTarget,
// Delete) policy on a custom relation and checks it cascades the way
// ChildOf does by default.
func TestCleanupOnDeleteTargetDeleteCascades(t *testing.T) {
	w := archway.NewWorld()
	partOf := w.NewEntity()
	if err := w.AddID(partOf, archway.Pair(archway.OnDeleteTarget, archway.ActionDelete)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	whole := w.NewEntity()
	part := w.NewEntity()
	if err := w.AddID(part, archway.Pair(partOf, whole)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	if err := w.Delete(whole); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if w.Valid(part) {
		t.Errorf("part still valid after deleting whole under (OnDeleteTarget, Delete)")
	}
}

// TestCleanupOnDeleteRemoveReferences covers step 2 of the cascade: an
// (OnDelete, Remove) pair on E strips every pair referencing E as a
// relation from entities that hold one, without deleting those entities.
func TestCleanupOnDeleteRemoveReferences(t *testing.T) {
	w := archway.NewWorld()
	poisoned := w.NewEntity()
	if err := w.AddID(poisoned, archway.Pair(archway.OnDelete, archway.ActionRemove)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	victim := w.NewEntity()
	if err := w.AddID(victim, archway.Pair(poisoned, w.NewEntity())); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	if err := w.Delete(poisoned); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !w.Valid(victim) {
		t.Errorf("victim was deleted, want only the poisoned relation stripped")
	}
}

// TestCleanupOnDeleteDeleteCascadesReferrers covers step 2 with an
// (OnDelete, Delete) policy: every entity that references E as a relation
// is itself deleted when E is deleted.
func TestCleanupOnDeleteDeleteCascadesReferrers(t *testing.T) {
	w := archway.NewWorld()
	bondedTo := w.NewEntity()
	if err := w.AddID(bondedTo, archway.Pair(archway.OnDelete, archway.ActionDelete)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	other := w.NewEntity()
	referrer := w.NewEntity()
	if err := w.AddID(referrer, archway.Pair(bondedTo, other)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	if err := w.Delete(bondedTo); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if w.Valid(referrer) {
		t.Errorf("referrer still valid after deleting its (OnDelete, Delete) relation")
	}
}

// TestCleanupCycleDetected constructs two entities whose (OnDeleteTarget,
// Delete) relations point at each other and checks the recursion is
// reported as ErrCleanupCycle instead of recursing forever.
func TestCleanupCycleDetected(t *testing.T) {
	w := archway.NewWorld()
	a := w.NewEntity()
	b := w.NewEntity()
	if err := w.AddID(a, archway.Pair(archway.ChildOf, b)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}
	if err := w.AddID(b, archway.Pair(archway.ChildOf, a)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	err := w.Delete(a)
	if err == nil {
		t.Fatalf("Delete succeeded, want ErrCleanupCycle")
	}
	if !errors.Is(err, archway.ErrCleanupCycle) {
		t.Errorf("error = %v, want wrapping ErrCleanupCycle", err)
	}
}

type conflictA struct{ V int }
type conflictB struct{ V int }

// TestCantCombineRefusesAdd: two tags declared incompatible via
// (CantCombine, *) cannot both land on the same entity.
func TestCantCombineRefusesAdd(t *testing.T) {
	w := archway.NewWorld()
	fire := w.NewEntity()
	water := w.NewEntity()
	if err := w.AddID(fire, archway.Pair(archway.CantCombine, water)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	e := w.NewEntity()
	if err := w.AddID(e, fire); err != nil {
		t.Fatalf("AddID(fire) failed: %v", err)
	}

	err := w.AddID(e, water)
	if err == nil {
		t.Fatalf("AddID(water) succeeded, want ArchetypeConflict from CantCombine")
	}
	if !errors.Is(err, archway.ErrArchetypeConflict) {
		t.Errorf("error = %v, want wrapping ErrArchetypeConflict", err)
	}
	if w.HasID(e, water) {
		t.Errorf("entity carries water after a refused add")
	}
}

// TestRequiresRefusesRemoval: removing a component that another
// still-present component depends on via (Requires, *) is refused rather
// than silently allowed.
func TestRequiresRefusesRemoval(t *testing.T) {
	w := archway.NewWorld()
	engine := archway.Register[conflictA](w)
	chassis := archway.Register[conflictB](w)
	if err := w.AddID(engine.Entity(), archway.Pair(archway.Requires, chassis.Entity())); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	e := w.NewEntity()
	if err := archway.Add(w, e, chassis, conflictB{}); err != nil {
		t.Fatalf("Add(chassis) failed: %v", err)
	}
	if err := archway.Add(w, e, engine, conflictA{}); err != nil {
		t.Fatalf("Add(engine) failed: %v", err)
	}

	err := archway.Remove(w, e, chassis)
	if err == nil {
		t.Fatalf("Remove(chassis) succeeded, want ArchetypeConflict from Requires")
	}
	if !errors.Is(err, archway.ErrArchetypeConflict) {
		t.Errorf("error = %v, want wrapping ErrArchetypeConflict", err)
	}
	if !archway.Has(w, e, chassis) {
		t.Errorf("chassis was removed despite the refused removal")
	}
}

