package archway_test

import (
	"errors"
	"testing"

	"github.com/archway-ecs/archway"
)

type accPos struct{ X, Y float64 }
type accVel struct{ X, Y float64 }

// TestBulkBuilderAppliesInOneTransition stages two components and checks
// Apply lands the entity directly in the combined archetype without
// materializing the intermediate single-component one.
func TestBulkBuilderAppliesInOneTransition(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[accPos](w)
	vel := archway.Register[accVel](w)

	e := w.NewEntity()
	before := w.Stats().Archetypes

	b := w.Build(e)
	archway.BuildAdd(b, pos, accPos{X: 1, Y: 2})
	archway.BuildAdd(b, vel, accVel{X: 3, Y: 4})
	if err := b.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if after := w.Stats().Archetypes; after != before+1 {
		t.Errorf("Apply created %d archetypes, want 1 (no intermediate)", after-before)
	}
	if !archway.Has(w, e, pos) || !archway.Has(w, e, vel) {
		t.Fatalf("entity missing staged components after Apply")
	}
	gotPos, _ := archway.Get(w, e, pos)
	gotVel, _ := archway.Get(w, e, vel)
	if gotPos.X != 1 || gotVel.Y != 4 {
		t.Errorf("staged values = %+v / %+v, want {1 2} / {3 4}", *gotPos, *gotVel)
	}
}

// TestBulkBuilderRefusesStagedCantCombine checks staged-vs-staged conflict
// detection: two ids declared incompatible cannot sneak past the checks by
// arriving in the same Apply.
func TestBulkBuilderRefusesStagedCantCombine(t *testing.T) {
	w := archway.NewWorld()
	fire := w.NewEntity()
	water := w.NewEntity()
	if err := w.AddID(fire, archway.Pair(archway.CantCombine, water)); err != nil {
		t.Fatalf("AddID failed: %v", err)
	}

	e := w.NewEntity()
	err := w.Build(e).With(fire, water).Apply()
	if err == nil {
		t.Fatalf("Apply succeeded, want ArchetypeConflict from staged CantCombine pair")
	}
	if !errors.Is(err, archway.ErrArchetypeConflict) {
		t.Errorf("error = %v, want wrapping ErrArchetypeConflict", err)
	}
	if w.HasID(e, fire) || w.HasID(e, water) {
		t.Errorf("entity carries staged ids after a refused Apply")
	}
}

// TestAccessorReadAndMutate exercises the Acc/AccMut handles against the
// same entity the free functions operate on.
func TestAccessorReadAndMutate(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[accPos](w)

	e := w.NewEntity()
	w.Name(e, "player")

	mut := w.AccMut(e)
	if err := archway.AccAdd(mut, pos, accPos{X: 1}); err != nil {
		t.Fatalf("AccAdd failed: %v", err)
	}
	if err := archway.AccSet(mut, pos, accPos{X: 7}); err != nil {
		t.Fatalf("AccSet failed: %v", err)
	}

	acc := w.Acc(e)
	if !acc.Valid() {
		t.Fatalf("Valid() = false for a live entity")
	}
	if !acc.Has(pos.Entity()) {
		t.Errorf("Has(position) = false, want true")
	}
	if name, ok := acc.Name(); !ok || name != "player" {
		t.Errorf("Name() = (%q, %v), want (player, true)", name, ok)
	}
	got, ok := archway.AccGet(acc, pos)
	if !ok || got.X != 7 {
		t.Errorf("AccGet = (%+v, %v), want ({7 0}, true)", got, ok)
	}

	if err := archway.AccRemove(mut, pos); err != nil {
		t.Fatalf("AccRemove failed: %v", err)
	}
	if acc.Has(pos.Entity()) {
		t.Errorf("Has(position) = true after AccRemove")
	}
}
