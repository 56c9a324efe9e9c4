package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstamp/internal/model"
)

func TestYAML_RoundTrip(t *testing.T) {
	in := sampleEntries()

	var buf bytes.Buffer
	require.NoError(t, ExportYAML(&buf, in))

	out, err := ImportYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, Encode(in), Encode(out))
}

func TestExportYAML_Shape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportYAML(&buf, sampleEntries()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "templates:\n"))
	assert.Contains(t, out, "- separator: true\n")
	assert.Contains(t, out, "for_ways: true")
	assert.NotContains(t, out, "for_closed_ways", "false flags are omitted")
	assert.Less(t, strings.Index(out, "highway"), strings.Index(out, "surface"), "tag order is kept")
}

func TestImportYAML(t *testing.T) {
	doc := `
templates:
  - name: Fountain
    tags:
      amenity: drinking_water
      drinking_water: "yes"
    ctrl_tags:
      bottle: "yes"
  - separator: true
  - id: fixed
    name: Lane
    tags: {highway: service}
    for_ways: true
    not_for_nodes: true
`
	entries, err := ImportYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	fountain := model.AsTemplate(entries[0])
	assert.Equal(t, "", fountain.ID)
	assert.Equal(t, []string{"amenity", "drinking_water"}, fountain.Tags.Keys())
	assert.Equal(t, "bottle=yes", fountain.CtrlTags.String())
	assert.True(t, model.IsSeparator(entries[1]))

	lane := model.AsTemplate(entries[2])
	assert.Equal(t, "fixed", lane.ID)
	assert.Equal(t, [4]bool{true, false, true, false}, lane.Flags())
}

func TestImportYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown field":       "templates:\n  - name: A\n    colour: red\n",
		"empty template":      "templates:\n  - icon: x.svg\n",
		"separator with name": "templates:\n  - separator: true\n    name: A\n",
		"not a document":      "templates: 3\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ImportYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestImportYAML_Empty(t *testing.T) {
	entries, err := ImportYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
