package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstamp/internal/model"
)

func TestLoadCUE(t *testing.T) {
	src := []byte(`
templates: [
	{
		name: "Bench"
		icon: "amenity/bench.svg"
		tags: {amenity: "bench", "check_date": "2024-01-01"}
		ctrl_tags: {backrest: "yes"}
	},
	{separator: true},
	{
		id:   "bld"
		name: "Building"
		tags: {building: "yes"}
		for_closed_ways:   true
		not_for_nodes:     true
		only_for_untagged: true
	},
]
`)
	entries, err := LoadCUE(src, "catalog.cue")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	bench := model.AsTemplate(entries[0])
	require.NotNil(t, bench)
	assert.Equal(t, "Bench", bench.Name)
	assert.Equal(t, "amenity/bench.svg", bench.IconRef)
	assert.Equal(t, []string{"amenity", "check_date"}, bench.Tags.Keys())
	assert.Equal(t, "backrest=yes", bench.CtrlTags.String())
	assert.Equal(t, [4]bool{}, bench.Flags())

	assert.True(t, model.IsSeparator(entries[1]))

	building := model.AsTemplate(entries[2])
	assert.Equal(t, "bld", building.ID)
	assert.Equal(t, [4]bool{false, true, true, true}, building.Flags())
}

func TestLoadCUE_SchemaErrors(t *testing.T) {
	tests := map[string]string{
		"missing templates": `other: 1`,
		"missing name":      `templates: [{tags: {a: "b"}}]`,
		"non-string value":  `templates: [{name: "A", tags: {a: 1}}]`,
		"unknown field":     `templates: [{name: "A", tags: {}, colour: "red"}]`,
		"bad flag":          `templates: [{name: "A", tags: {}, for_ways: "yes"}]`,
		"syntax":            `templates: [`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCUE([]byte(src), "bad.cue")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTemplate), "got %v", err)
		})
	}
}
