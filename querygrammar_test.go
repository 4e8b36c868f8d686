package archway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archway-ecs/archway"
)

type gqPos struct{ X, Y float64 }
type gqVel struct{ X, Y float64 }

func TestAddTermsParsesPlainIdentifier(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[gqPos](w)
	w.Name(pos.Entity(), "position")

	e := w.NewEntity()
	archway.Add(w, e, pos, gqPos{})

	b, err := w.Query().AddTerms("position")
	require.NoError(t, err)

	q := b.Compile()
	n := 0
	for c := q.Cursor(); c.Next(); {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestAddTermsParsesWriteAccessTerm(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[gqPos](w)
	w.Name(pos.Entity(), "position")

	e := w.NewEntity()
	archway.Add(w, e, pos, gqPos{X: 1})

	b, err := w.Query().AddTerms("&position")
	require.NoError(t, err)

	q := b.Compile()
	n := 0
	for c := q.Cursor(); c.Next(); {
		n++
		got := archway.RowGetMut(c.Chunk(), c.Row(), pos)
		got.X = 9
	}
	assert.Equal(t, 1, n)
	got, _ := archway.Get(w, e, pos)
	assert.Equal(t, 9.0, got.X)
}

func TestAddTermsParsesIndividualOperators(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[gqPos](w)
	vel := archway.Register[gqVel](w)
	w.Name(pos.Entity(), "position")
	w.Name(vel.Entity(), "velocity")

	both := w.NewEntity()
	archway.Add(w, both, pos, gqPos{})
	archway.Add(w, both, vel, gqVel{})
	onlyPos := w.NewEntity()
	archway.Add(w, onlyPos, pos, gqPos{})

	b, err := w.Query().AddTerms("+position;!velocity")
	require.NoError(t, err)
	q := b.Compile()
	n := 0
	for c := q.Cursor(); c.Next(); {
		n++
	}
	assert.Equal(t, 1, n, "+position;!velocity should match only the entity without velocity")
}

func TestAddTermsParsesPairAndWildcard(t *testing.T) {
	w := archway.NewWorld()
	likes := w.NewEntity()
	cake := w.NewEntity()
	w.Name(likes, "likes")
	w.Name(cake, "cake")

	e := w.NewEntity()
	require.NoError(t, w.AddID(e, archway.Pair(likes, cake)))

	b, err := w.Query().AddTerms("(likes,*)")
	require.NoError(t, err)
	q := b.Compile()
	n := 0
	for c := q.Cursor(); c.Next(); {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestAddTermsSubstitutesArgs(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[gqPos](w)

	e := w.NewEntity()
	archway.Add(w, e, pos, gqPos{})

	b, err := w.Query().AddTerms("%e", pos.Entity())
	require.NoError(t, err)
	q := b.Compile()
	n := 0
	for c := q.Cursor(); c.Next(); {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestAddTermsRejectsUnknownIdentifier(t *testing.T) {
	w := archway.NewWorld()
	_, err := w.Query().AddTerms("nonexistent")
	require.ErrorIs(t, err, archway.ErrUnknownQueryID)
}

func TestAddTermsRejectsMalformedGrammar(t *testing.T) {
	w := archway.NewWorld()
	pos := archway.Register[gqPos](w)
	w.Name(pos.Entity(), "position")

	tests := []string{
		"(position,*",
		"position velocity",
		"%e",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := w.Query().AddTerms(text)
			require.ErrorIs(t, err, archway.ErrMalformedQueryText)
		})
	}
}
