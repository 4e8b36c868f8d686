// Command archwayinspect builds a small fixture world, runs a handful of
// queries against it, and prints archetype-graph and query-cache
// statistics. It exercises the engine as an ordinary library consumer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/archway-ecs/archway"
	"github.com/pkg/profile"
)

type position struct{ X, Y float64 }
type velocity struct{ X, Y float64 }
type name struct{ Value string }

func main() {
	profileFlag := flag.String("profile", "", "enable pkg/profile mode (cpu, mem, or empty to disable)")
	entities := flag.Int("entities", 2000, "number of fixture entities to create")
	flag.Parse()

	if p := startProfile(*profileFlag); p != nil {
		defer p.Stop()
	}

	w := buildFixtureWorld(*entities)
	report(w)
}

func startProfile(mode string) interface{ Stop() } {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return nil
	}
}

// buildFixtureWorld seeds a world with a mix of archetypes (position-only,
// position+velocity, position+velocity+name, and a parent/child pair
// relationship) so the printed stats have something nontrivial to show.
func buildFixtureWorld(n int) *archway.World {
	w := archway.NewWorld()
	pos := archway.Register[position](w)
	vel := archway.Register[velocity](w)
	nm := archway.Register[name](w)

	for i := 0; i < n; i++ {
		e := w.NewEntity()
		_ = archway.Add(w, e, pos, position{X: float64(i)})
		if i%2 == 0 {
			_ = archway.Add(w, e, vel, velocity{X: 1})
		}
		if i%5 == 0 {
			_ = archway.Add(w, e, nm, name{Value: fmt.Sprintf("entity-%d", i)})
		}
	}

	parent := w.NewEntity()
	for i := 0; i < 3; i++ {
		child := w.NewEntity()
		if err := w.As(child, parent); err != nil {
			fmt.Fprintln(os.Stderr, "warning: failed to wire Is relation:", err)
		}
	}

	_ = w.Query().All(pos.Entity()).Compile()
	_ = w.Query().All(pos.Entity(), vel.Entity()).Compile()
	_ = w.Query().All(pos.Entity()).No(vel.Entity()).Compile()

	return w
}

func report(w *archway.World) {
	stats := w.Stats()
	fmt.Printf("archetypes:     %d\n", stats.Archetypes)
	fmt.Printf("chunks:         %d\n", stats.Chunks)
	fmt.Printf("live entities:  %d\n", stats.Entities)
	fmt.Printf("cached queries: %d\n", stats.CachedQueries)
	fmt.Printf("world version:  %d\n", w.Version())
}
