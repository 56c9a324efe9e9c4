package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyToDoesNotMutateInput(t *testing.T) {
	in := map[string]string{"amenity": "bench", "backrest": "yes"}
	out := ApplyTo(in, []Mutation{Remove("backrest"), Set("material", "wood")})

	assert.Equal(t, map[string]string{"amenity": "bench", "material": "wood"}, out)
	assert.Equal(t, "yes", in["backrest"])
}

func TestMutationString(t *testing.T) {
	assert.Equal(t, "natural=tree", Set("natural", "tree").String())
	assert.Equal(t, "-natural", Remove("natural").String())
}

func TestModifiers(t *testing.T) {
	m, err := ParseModifiers("Ctrl+Shift")
	assert.NoError(t, err)
	assert.Equal(t, Modifiers{Ctrl: true, Shift: true}, m)
	assert.Equal(t, "ctrl+shift", m.String())

	assert.True(t, m.Contains(Modifiers{Ctrl: true}))
	assert.False(t, m.Contains(Modifiers{Alt: true}))
	assert.False(t, m.Contains(Modifiers{}))

	_, err = ParseModifiers("meta")
	assert.Error(t, err)

	none, err := ParseModifiers("none")
	assert.NoError(t, err)
	assert.Equal(t, "none", none.String())
}

func TestParseGeometry(t *testing.T) {
	for in, want := range map[string]Geometry{
		"node": Point, "point": Point, "way": OpenPath, "area": ClosedPath, "closed_path": ClosedPath,
	} {
		g, err := ParseGeometry(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, g, in)
	}
	_, err := ParseGeometry("relation")
	assert.Error(t, err)
}
