package harness

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/model"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "raw_clicks.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Canonical(s.Name, first)
	require.NoError(t, err)
	b, err := Canonical(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_DefaultCatalog(t *testing.T) {
	bench := catalog.Defaults()[0].(*model.Template)

	s := &Scenario{
		Name:        "defaults",
		Description: "built-in templates are available without a catalog section",
		Steps: []Step{
			{Select: &SelectStep{Features: []FeatureSpec{{ID: "n1", Geometry: model.Point, Tags: map[string]string{}}}}},
			{Click: &ClickStep{Template: bench.ID, Count: 1}},
		},
		Assertions: []Assertion{
			{Type: AssertFeatureTags, Feature: "n1", Tags: map[string]string{"amenity": "bench"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.State.Armed)
	assert.Equal(t, bench.ID, result.State.TemplateID)
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	armed := true
	s := &Scenario{
		Name:        "fails",
		Description: "nothing arms",
		Catalog: []catalog.DocumentEntry{
			{ID: "bench", Name: "Bench", Tags: model.NewTagMap("amenity", "bench")},
		},
		Steps: []Step{{DatasetChanged: true}},
		Assertions: []Assertion{
			{Type: AssertState, Armed: &armed},
			{Type: AssertTraceCount, Kind: KindApply, Count: 1},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "armed=false (want true)")
	assert.Contains(t, result.Errors[1], "appeared 0 times")
}

func TestRun_InvalidCatalog(t *testing.T) {
	s := &Scenario{
		Name:        "bad",
		Description: "separator with a name",
		Catalog:     []catalog.DocumentEntry{{Separator: true, Name: "x"}},
		Steps:       []Step{{Toggle: true}},
		Assertions:  []Assertion{{Type: AssertTraceCount, Kind: KindApply}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrInvalidTemplate)
}

func TestRun_ConfigSectionIsApplied(t *testing.T) {
	zero := int64(0)
	s := &Scenario{
		Name:        "no_countdown",
		Description: "countdown 0 never times out",
		Config:      map[string]string{"autoapply.countdown_seconds": "0"},
		Catalog: []catalog.DocumentEntry{
			{ID: "bench", Name: "Bench", Tags: model.NewTagMap("amenity", "bench")},
		},
		Steps: []Step{
			{Click: &ClickStep{Template: "bench", Count: 1}},
			{Advance: time.Minute},
		},
		Assertions: []Assertion{
			{Type: AssertState, RemainingMs: &zero},
			{Type: AssertTraceCount, Kind: KindTransition, Count: 1},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.State.Armed)
}
