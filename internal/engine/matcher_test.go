package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tagstamp/internal/model"
)

func target(g model.Geometry, kv ...string) model.Target {
	return model.Target{Geometry: g, Tags: model.NewTagMap(kv...).Map()}
}

func TestIsCompatible_GeometryGate(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     model.Template
		geometry model.Geometry
		want     bool
	}{
		{"point allowed by default", model.Template{}, model.Point, true},
		{"point excluded", model.Template{NotForNodes: true}, model.Point, false},
		{"way needs ForWays", model.Template{}, model.OpenPath, false},
		{"way allowed", model.Template{ForWays: true}, model.OpenPath, true},
		{"area needs ForClosedWays", model.Template{ForWays: true}, model.ClosedPath, false},
		{"area allowed", model.Template{ForClosedWays: true}, model.ClosedPath, true},
		{"unknown geometry", model.Template{ForWays: true, ForClosedWays: true}, model.Geometry(9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompatible(&tt.tmpl, target(tt.geometry)))
		})
	}
}

func TestIsCompatible_NilTemplate(t *testing.T) {
	assert.False(t, IsCompatible(nil, target(model.Point)))
}

func TestIsCompatible_TaggedTargetWithoutOnlyForUntagged(t *testing.T) {
	tmpl := &model.Template{Tags: model.NewTagMap("natural", "tree")}
	assert.True(t, IsCompatible(tmpl, target(model.Point, "a", "1", "b", "2", "c", "3")))
}

func TestIsCompatible_ScenarioA(t *testing.T) {
	tmpl := &model.Template{Tags: model.NewTagMap("natural", "tree")}
	assert.True(t, IsCompatible(tmpl, target(model.Point)))
}

func TestIsCompatible_ScenarioB(t *testing.T) {
	tmpl := &model.Template{Tags: model.NewTagMap("natural", "tree"), OnlyForUntagged: true}
	assert.False(t, IsCompatible(tmpl, target(model.Point, "name", "Oak")))
}

func TestIsCompatible_OnlyMatchingTags(t *testing.T) {
	tmpl := &model.Template{
		Tags:            model.NewTagMap("amenity", "bench"),
		CtrlTags:        model.NewTagMap("backrest", "yes"),
		ShiftTags:       model.NewTagMap("backrest", "no", "material", "stone"),
		OnlyForUntagged: true,
	}

	tests := []struct {
		name string
		tags []string
		want bool
	}{
		{"untagged", nil, true},
		{"exact base", []string{"amenity", "bench"}, true},
		{"base value differs", []string{"amenity", "table"}, false},
		{"base plus complete ctrl", []string{"amenity", "bench", "backrest", "yes"}, true},
		{"base plus complete shift", []string{"amenity", "bench", "backrest", "no", "material", "stone"}, true},
		{"base plus partial shift", []string{"amenity", "bench", "material", "stone"}, false},
		{"count matches but foreign tag", []string{"amenity", "bench", "colour", "red"}, false},
		{"size matches no set", []string{"amenity", "bench", "backrest", "yes", "x", "1", "y", "2"}, false},
		{"base missing", []string{"backrest", "yes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompatible(tmpl, target(model.Point, tt.tags...)))
		})
	}
}

func TestIsCompatible_AmbiguousExtensionSets(t *testing.T) {
	// Same size ctrl and shift sets sharing a key: the target matches both
	// partially, which is ambiguous and therefore incompatible.
	tmpl := &model.Template{
		Tags:            model.NewTagMap("shop", "bakery"),
		CtrlTags:        model.NewTagMap("organic", "yes", "opening_hours", "24/7"),
		ShiftTags:       model.NewTagMap("organic", "yes", "wheelchair", "no"),
		OnlyForUntagged: true,
	}

	assert.False(t, IsCompatible(tmpl, target(model.Point,
		"shop", "bakery", "organic", "yes", "opening_hours", "24/7")))
	assert.False(t, IsCompatible(tmpl, target(model.Point,
		"shop", "bakery", "organic", "yes", "wheelchair", "no")))
}

func TestIsCompatible_GeometryAndTagGatesCombine(t *testing.T) {
	tmpl := &model.Template{
		Tags:            model.NewTagMap("building", "yes"),
		ForClosedWays:   true,
		NotForNodes:     true,
		OnlyForUntagged: true,
	}

	assert.True(t, IsCompatible(tmpl, target(model.ClosedPath)))
	assert.False(t, IsCompatible(tmpl, target(model.Point)))
	assert.False(t, IsCompatible(tmpl, target(model.ClosedPath, "landuse", "grass")))
}

func TestIsCompatible_Deterministic(t *testing.T) {
	tmpl := &model.Template{
		Tags:            model.NewTagMap("amenity", "bench"),
		CtrlTags:        model.NewTagMap("backrest", "yes"),
		OnlyForUntagged: true,
	}
	tg := target(model.Point, "amenity", "bench", "backrest", "yes")

	first := IsCompatible(tmpl, tg)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, IsCompatible(tmpl, tg))
	}
}
