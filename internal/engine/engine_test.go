package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstamp/internal/model"
	"github.com/roach88/tagstamp/internal/store"
	"github.com/roach88/tagstamp/internal/testutil"
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	e       *Engine
	src     testutil.Templates
	mut     *testutil.RecordingMutator
	clip    *testutil.RecordingClipboard
	clock   *testutil.FakeClock
	updates []Update
}

func benchTemplate() *model.Template {
	return &model.Template{
		ID:       "bench",
		Name:     "Bench",
		Tags:     model.NewTagMap("amenity", "bench"),
		CtrlTags: model.NewTagMap("backrest", "yes"),
	}
}

func treeTemplate() *model.Template {
	return &model.Template{ID: "tree", Name: "Tree", Tags: model.NewTagMap("natural", "tree")}
}

func roadTemplate() *model.Template {
	return &model.Template{
		ID:          "road",
		Name:        "Road",
		Tags:        model.NewTagMap("highway", "residential"),
		ForWays:     true,
		NotForNodes: true,
	}
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		src:   testutil.Templates{benchTemplate(), model.Separator, treeTemplate(), roadTemplate()},
		mut:   &testutil.RecordingMutator{},
		clip:  &testutil.RecordingClipboard{},
		clock: testutil.NewFakeClock(),
	}
	all := append([]Option{
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMutator(f.mut),
		WithClipboard(f.clip),
		WithTimeSource(f.clock),
		WithManualTicks(),
	}, opts...)
	f.e = New(f.src, all...)
	f.e.Subscribe(func(u Update) { f.updates = append(f.updates, u) })
	return f
}

func (f *fixture) drain() {
	f.t.Helper()
	f.e.Drain(f.ctx)
}

func (f *fixture) selectFeatures(features ...model.Feature) {
	f.t.Helper()
	f.e.SelectionChanged(model.Selection{Features: features})
	f.drain()
}

func (f *fixture) click(id string, count int) {
	f.t.Helper()
	require.True(f.t, f.e.Click(id, count))
	f.drain()
}

func (f *fixture) ticks(n int) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		f.e.Enqueue(Event{Kind: EventTick})
	}
	f.drain()
}

func (f *fixture) reasons() []Reason {
	var out []Reason
	for _, u := range f.updates {
		if u.Transition != nil {
			out = append(out, u.Transition.Reason)
		}
	}
	return out
}

func TestEngine_SingleClickAppliesAndArms(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.selectFeatures(testutil.Point("n1"))

	f.click("bench", 1)

	require.Equal(t, 1, f.mut.Calls())
	assert.Equal(t, []model.MutationGroup{{
		FeatureID: "n1",
		Mutations: []model.Mutation{model.Set("amenity", "bench")},
	}}, f.mut.Last())

	st := f.e.State()
	assert.True(t, st.Armed)
	assert.Equal(t, "bench", st.TemplateID)
	assert.Equal(t, int64(10500), st.RemainingMs)
	assert.Equal(t, []Reason{ReasonClick}, f.reasons())
}

func TestEngine_SingleClickWithoutAutoActivate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoActivate = false
	f := newFixture(t, cfg)
	f.selectFeatures(testutil.Point("n1"))

	f.click("tree", 1)

	assert.Equal(t, 1, f.mut.Calls())
	assert.False(t, f.e.State().Armed)
}

func TestEngine_ArmedReappliesOnSelection(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.click("tree", 1)
	require.True(t, f.e.State().Armed)
	assert.Equal(t, 0, f.mut.Calls(), "nothing selected yet")

	f.ticks(10)
	assert.Equal(t, int64(8500), f.e.State().RemainingMs)

	f.selectFeatures(testutil.Point("n7", "name", "Oak"))

	require.Equal(t, 1, f.mut.Calls())
	assert.Equal(t, "n7", f.mut.Last()[0].FeatureID)
	assert.Equal(t, int64(10500), f.e.State().RemainingMs, "successful application resets the countdown")
}

func TestEngine_EmptySelectionIsNoop(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.click("tree", 1)

	f.selectFeatures()

	assert.True(t, f.e.State().Armed)
	assert.Equal(t, 0, f.mut.Calls())
}

func TestEngine_IncompatibleSelectionDisarms(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.click("bench", 1)
	require.True(t, f.e.State().Armed)

	f.selectFeatures(testutil.Way("w1"))

	assert.False(t, f.e.State().Armed)
	assert.Equal(t, []Reason{ReasonClick, ReasonIncompatible}, f.reasons())
	assert.Equal(t, 0, f.mut.Calls())
}

func TestEngine_BootstrapKeepsArmedInEditMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.e.SelectTemplate("road")
	f.drain()
	require.True(t, f.e.Toggle())
	f.drain()
	require.True(t, f.e.State().Armed)

	f.e.SelectionChanged(model.Selection{Features: []model.Feature{testutil.Point("n1")}, Editing: true})
	f.drain()

	assert.True(t, f.e.State().Armed, "a new untagged point while drawing does not disarm")
	assert.Equal(t, 0, f.mut.Calls())
}

func TestEngine_CountdownExpires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownSeconds = 1
	f := newFixture(t, cfg)
	f.click("tree", 1)

	f.ticks(4)
	assert.True(t, f.e.State().Armed)
	f.ticks(1)
	assert.False(t, f.e.State().Armed)
	assert.Equal(t, []Reason{ReasonClick, ReasonTimeout}, f.reasons())
}

func TestEngine_DatasetChangeResetsCountdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownSeconds = 1
	f := newFixture(t, cfg)
	f.click("tree", 1)
	f.ticks(3)
	assert.Equal(t, int64(900), f.e.State().RemainingMs)

	f.e.DatasetChanged()
	f.drain()
	assert.Equal(t, int64(1500), f.e.State().RemainingMs)
}

func TestEngine_DoubleClickCopies(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.click("tree", 2)

	require.Len(t, f.clip.Copies, 1)
	assert.Contains(t, f.clip.Copies[0], `<tag k="natural" v="tree"/>`)
	assert.False(t, f.e.State().Armed)
	assert.Equal(t, "tree", f.e.State().TemplateID)
}

func TestEngine_ClipboardFailureIsLogged(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.clip.Fail = true

	f.click("tree", 2)

	assert.Empty(t, f.clip.Copies)
	assert.False(t, f.e.State().Armed)
}

func TestEngine_TripleClickPastes(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.click("bench", 3)

	require.Len(t, f.mut.Creates, 1)
	assert.Equal(t, model.Point, f.mut.Creates[0].Geometry)
	assert.True(t, model.NewTagMap("amenity", "bench").Equal(f.mut.Creates[0].Tags))
	assert.False(t, f.e.State().Armed)
}

func TestEngine_QuadClickForceArms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoActivate = false
	f := newFixture(t, cfg)

	f.click("tree", 4)

	st := f.e.State()
	assert.True(t, st.Armed)
	assert.False(t, st.SuppressAutoOff)
}

func TestEngine_QuintupleClickSuppressesAutoOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownSeconds = 1
	f := newFixture(t, cfg)

	f.click("tree", 7)

	assert.True(t, f.e.State().SuppressAutoOff)
	f.ticks(100)
	assert.True(t, f.e.State().Armed)

	require.True(t, f.e.Deactivate())
	f.drain()
	assert.False(t, f.e.State().Armed)
}

func TestEngine_ClickOnIncompatibleDoesNotArm(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.selectFeatures(testutil.Way("w1"))

	f.click("bench", 4)

	assert.False(t, f.e.State().Armed)
	assert.Equal(t, 0, f.mut.Calls())
}

func TestEngine_MultiFeatureSelection(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.selectFeatures(testutil.Point("n1"), testutil.Way("w1"), testutil.Point("n2", "amenity", "bench"))

	f.click("bench", 1)

	assert.Equal(t, []model.MutationGroup{{
		FeatureID: "n1",
		Mutations: []model.Mutation{model.Set("amenity", "bench")},
	}}, f.mut.Last())
	assert.True(t, f.e.State().Armed)
}

func TestEngine_RawClicksAreDebounced(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.click("tree", 0)
	f.clock.Advance(100 * time.Millisecond)
	f.click("tree", 0)
	assert.Empty(t, f.clip.Copies, "burst still pending")

	f.clock.Advance(400 * time.Millisecond)
	f.ticks(1)

	assert.Len(t, f.clip.Copies, 1, "two clicks resolve to a copy")
}

func TestEngine_ResolvedClickFlushesPendingBurst(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.click("tree", 0)
	f.click("bench", 2)

	assert.True(t, f.e.State().Armed, "pending single click on tree armed first")
	assert.Len(t, f.clip.Copies, 1)
	assert.Equal(t, "bench", f.e.State().TemplateID)
}

func TestEngine_SingleFlightDropsReentrantTrigger(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	assert.True(t, f.e.Click("tree", 2))
	assert.True(t, f.e.InFlight(ClickAction("tree")))
	assert.False(t, f.e.Click("tree", 2), "second trigger while in flight is dropped")
	assert.True(t, f.e.Click("bench", 2), "other actions are independent")

	f.drain()
	assert.False(t, f.e.InFlight(ClickAction("tree")))
	assert.Len(t, f.clip.Copies, 2)

	assert.True(t, f.e.Click("tree", 2))
}

func TestEngine_ToggleRequiresTemplate(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.True(t, f.e.Toggle())
	f.drain()
	assert.False(t, f.e.State().Armed)

	f.e.SelectTemplate("bench")
	f.e.Toggle()
	f.drain()
	assert.True(t, f.e.State().Armed)

	f.e.Toggle()
	f.drain()
	assert.False(t, f.e.State().Armed)
	assert.Equal(t, []Reason{ReasonToggle, ReasonToggle}, f.reasons())
}

func TestEngine_SelectUnknownTemplate(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.e.SelectTemplate("missing")
	f.drain()

	assert.Equal(t, "", f.e.State().TemplateID)
}

func TestEngine_ArmModifiersEdge(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.e.ModifiersChanged(model.Modifiers{Alt: true})
	f.drain()
	assert.False(t, f.e.State().Armed, "no template selected")

	f.e.ModifiersChanged(model.Modifiers{})
	f.e.SelectTemplate("tree")
	f.e.ModifiersChanged(model.Modifiers{Alt: true})
	f.drain()
	assert.True(t, f.e.State().Armed)

	f.e.Deactivate()
	f.e.ModifiersChanged(model.Modifiers{Alt: true, Ctrl: true})
	f.drain()
	assert.False(t, f.e.State().Armed, "still held is not an edge")
}

func TestEngine_ModifiersShapeMutations(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.click("bench", 1)

	f.e.ModifiersChanged(model.Modifiers{Ctrl: true})
	f.selectFeatures(testutil.Point("n1", "amenity", "bench"))

	assert.Equal(t, []model.Mutation{model.Set("backrest", "yes")}, f.mut.Last()[0].Mutations)
}

func TestEngine_LocalSelectionTracksMutations(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.selectFeatures(testutil.Point("n1"))

	f.click("bench", 1)
	f.click("bench", 1)

	assert.Equal(t, 1, f.mut.Calls(), "second click finds the tags already applied")
}

func TestEngine_ClearSelectionAfterTagging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClearSelectionAfterTagging = true
	f := newFixture(t, cfg)
	f.selectFeatures(testutil.Point("n1"))

	f.click("tree", 1)
	assert.Equal(t, 1, f.mut.Clears)
	assert.Equal(t, 0, f.e.State().Selected)

	f.e.SelectionChanged(model.Selection{Features: []model.Feature{testutil.Point("n2")}, Drawing: true})
	f.drain()
	assert.Equal(t, 1, f.mut.Clears, "never deselect while drawing")
}

func TestEngine_MutationFailureDoesNotArm(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.selectFeatures(testutil.Point("n1"))
	f.mut.FailNext = true

	f.click("tree", 1)

	assert.Equal(t, 0, f.mut.Calls())
	assert.False(t, f.e.State().Armed)
}

func TestEngine_CatalogChangeDropsRemovedTemplate(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.click("bench", 1)
	require.True(t, f.e.State().Armed)

	f.src[0] = model.Separator
	f.e.CatalogChanged()
	f.drain()

	st := f.e.State()
	assert.False(t, st.Armed)
	assert.Equal(t, "", st.TemplateID)
	assert.Equal(t, []Reason{ReasonClick, ReasonCatalog}, f.reasons())
}

func TestEngine_ConfigChanged(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	cfg := DefaultConfig()
	cfg.CountdownSeconds = 0
	f.e.Enqueue(Event{Kind: EventConfigChanged, Config: &cfg})
	f.drain()

	f.click("tree", 1)
	f.ticks(200)

	assert.True(t, f.e.State().Armed)
	assert.Equal(t, int64(0), f.e.State().RemainingMs)
}

func TestEngine_WatchConfigReloadsOnWrite(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	prefs := store.NewMemory()
	cancel := f.e.WatchConfig(f.ctx, prefs)
	defer cancel()

	require.NoError(t, prefs.PutScalar(f.ctx, "templates.ids", "ignored"))
	assert.Equal(t, 0, f.e.QueueLen())

	require.NoError(t, prefs.PutScalar(f.ctx, KeyAutoActivate, "false"))
	require.Equal(t, 1, f.e.QueueLen())
	f.drain()

	f.selectFeatures(testutil.Point("n1"))
	f.click("tree", 1)
	assert.False(t, f.e.State().Armed)
	assert.Len(t, f.mut.Applied, 1)
}

func TestEngine_UnknownEventIsLoggedAndSkipped(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.e.Enqueue(Event{Kind: EventKind(99)})

	assert.Equal(t, 1, f.e.Drain(f.ctx))
	assert.Equal(t, 0, f.e.QueueLen())
}

func TestEngine_IconLoadedInBackground(t *testing.T) {
	tree := treeTemplate()
	tree.IconRef = "tree.svg"
	icons := testutil.StaticIcons{Icons: map[string]model.Icon{
		"tree.svg": {Ref: "tree.svg", ContentType: "image/svg+xml", Data: []byte("<svg/>")},
	}}

	e := New(testutil.Templates{tree},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIconSource(icons),
		WithManualTicks(),
	)
	e.SelectTemplate("tree")

	ctx := context.Background()
	require.Eventually(t, func() bool {
		e.Drain(ctx)
		_, ok := e.Icon("tree")
		return ok
	}, time.Second, 5*time.Millisecond)

	icon, _ := e.Icon("tree")
	assert.Equal(t, "image/svg+xml", icon.ContentType)
}

func TestEngine_IconLoadTimesOut(t *testing.T) {
	tree := treeTemplate()
	tree.IconRef = "slow.svg"
	cfg := DefaultConfig()
	cfg.IconTimeout = 20 * time.Millisecond

	e := New(testutil.Templates{tree},
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIconSource(testutil.StaticIcons{Block: map[string]bool{"slow.svg": true}}),
		WithManualTicks(),
	)
	e.SelectTemplate("tree")

	ctx := context.Background()
	e.Drain(ctx)
	require.True(t, e.iconsPending["tree"])
	require.Eventually(t, func() bool {
		e.Drain(ctx)
		return !e.iconsPending["tree"]
	}, time.Second, 5*time.Millisecond)

	_, ok := e.Icon("tree")
	assert.False(t, ok, "a timed out load leaves the template without an icon")
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e := New(testutil.Templates{treeTemplate()},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithManualTicks(),
	)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	e.SelectTemplate("tree")
	require.Eventually(t, func() bool { return e.State().TemplateID == "tree" }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, e.Toggle(), "enqueue after shutdown fails")
}

func TestEngine_RunStopsOnStop(t *testing.T) {
	e := New(testutil.Templates{},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithManualTicks(),
	)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestEngine_TickerDrivesCountdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownSeconds = 1
	cfg.TickInterval = 5 * time.Millisecond
	e := New(testutil.Templates{treeTemplate()},
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Click("tree", 1)
	require.Eventually(t, func() bool { return e.State().Armed }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !e.State().Armed }, 5*time.Second, time.Millisecond)
}

func TestEngine_SubscribeCancel(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	var got []Update
	cancel := f.e.Subscribe(func(u Update) { got = append(got, u) })

	f.click("tree", 1)
	require.NotEmpty(t, got)
	n := len(got)

	cancel()
	f.ticks(3)
	assert.Len(t, got, n)
	assert.Greater(t, len(f.updates), n, "other subscribers keep receiving")
}
