package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
	"github.com/roach88/tagstamp/internal/store"
	"github.com/roach88/tagstamp/internal/testutil"
)

// Harness drives one engine through a scenario. It plays the host: it
// owns the features, receives mutations and clipboard copies, and records
// every observation in the trace.
type Harness struct {
	ctx     context.Context
	clock   *testutil.FakeClock
	prefs   *store.Memory
	catalog *catalog.Catalog
	engine  *engine.Engine
	tick    time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	step     int
	result   *Result
	features map[string]model.Feature
	failNext bool
}

var (
	_ engine.FeatureMutator = (*Harness)(nil)
	_ engine.Clipboard      = (*Harness)(nil)
)

// Run executes a scenario and returns the result.
//
// Each scenario gets fresh in-memory preferences, a fake clock starting at
// testutil.Epoch and an engine with manual ticks. The event queue is
// drained after every step.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.engine.Stop()

	cancelWatch := h.engine.WatchConfig(ctx, h.prefs)
	defer cancelWatch()
	cancelSub := h.engine.Subscribe(h.onUpdate)
	defer cancelSub()

	for i, step := range scenario.Steps {
		h.setStep(i)
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		h.engine.Drain(ctx)
	}

	result := h.finish()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFakeClock()
	prefs := store.NewMemory()

	keys := make([]string, 0, len(scenario.Config))
	for k := range scenario.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := prefs.PutScalar(ctx, k, scenario.Config[k]); err != nil {
			return nil, fmt.Errorf("config %s: %w", k, err)
		}
	}

	cat := catalog.New(prefs, catalog.WithLogger(logger), catalog.WithNow(clock.Now))
	if scenario.Catalog == nil {
		cat.Load(ctx)
	} else {
		entries, err := catalog.Document{Templates: scenario.Catalog}.Entries()
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if err := cat.Replace(entries); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	h := &Harness{
		ctx:      ctx,
		clock:    clock,
		prefs:    prefs,
		catalog:  cat,
		logger:   logger,
		result:   NewResult(),
		features: make(map[string]model.Feature),
	}

	cfg := engine.LoadConfig(ctx, prefs, logger)
	h.tick = cfg.TickInterval
	h.engine = engine.New(cat,
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
		engine.WithMutator(h),
		engine.WithClipboard(h),
		engine.WithTimeSource(clock),
		engine.WithManualTicks(),
	)
	cat.OnChange(func() { h.engine.CatalogChanged() })
	return h, nil
}

// execute feeds one step to the engine. Unknown templates are passed
// through; the engine logs and ignores them.
func (h *Harness) execute(step Step) error {
	eng := h.engine
	switch {
	case step.Select != nil:
		eng.SelectionChanged(h.selection(step.Select))
	case step.Modifiers != nil:
		m, err := model.ParseModifiers(*step.Modifiers)
		if err != nil {
			return err
		}
		eng.ModifiersChanged(m)
	case step.Click != nil:
		if !eng.Click(step.Click.Template, step.Click.Count) {
			return fmt.Errorf("click %s dropped", step.Click.Template)
		}
	case step.SelectTemplate != "":
		eng.SelectTemplate(step.SelectTemplate)
	case step.Toggle:
		eng.Toggle()
	case step.Deactivate:
		eng.Deactivate()
	case step.DatasetChanged:
		eng.DatasetChanged()
	case step.Advance > 0:
		h.advance(step.Advance)
	case len(step.Set) > 0:
		return h.set(step.Set)
	case step.FailNextApply:
		h.mu.Lock()
		h.failNext = true
		h.mu.Unlock()
	}
	return nil
}

// advance moves the clock in tick-sized increments, ticking the engine
// after each one. A remainder shorter than a tick only moves the clock.
func (h *Harness) advance(d time.Duration) {
	for d >= h.tick {
		h.clock.Advance(h.tick)
		h.engine.Enqueue(engine.Event{Kind: engine.EventTick})
		h.engine.Drain(h.ctx)
		d -= h.tick
	}
	if d > 0 {
		h.clock.Advance(d)
	}
}

func (h *Harness) set(values map[string]string) error {
	return h.prefs.Update(h.ctx, func(w store.Writer) error {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.PutScalar(h.ctx, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// selection registers declared features and builds the snapshot.
func (h *Harness) selection(s *SelectStep) model.Selection {
	h.mu.Lock()
	defer h.mu.Unlock()

	sel := model.Selection{Editing: s.Editing, Drawing: s.Drawing}
	for _, id := range s.IDs {
		if f, ok := h.features[id]; ok {
			sel.Features = append(sel.Features, cloneFeature(f))
		}
	}
	for _, fs := range s.Features {
		f := model.Feature{ID: fs.ID, Target: model.Target{Geometry: fs.Geometry, Tags: copyTags(fs.Tags)}}
		h.features[fs.ID] = f
		sel.Features = append(sel.Features, cloneFeature(f))
	}
	return sel
}

func (h *Harness) setStep(i int) {
	h.mu.Lock()
	h.step = i
	h.mu.Unlock()
}

func (h *Harness) record(e TraceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e.Step = h.step
	h.result.Trace = append(h.result.Trace, e)
}

func (h *Harness) onUpdate(u engine.Update) {
	if u.Transition == nil {
		return
	}
	t := u.Transition
	h.record(TraceEvent{
		Kind:     KindTransition,
		From:     t.From.String(),
		To:       t.To.String(),
		Reason:   string(t.Reason),
		Suppress: t.Suppress,
	})
}

// Apply records the groups and updates the tracked features.
func (h *Harness) Apply(_ context.Context, groups []model.MutationGroup) error {
	h.mu.Lock()
	if h.failNext {
		h.failNext = false
		h.mu.Unlock()
		return testutil.ErrInjected
	}
	for _, g := range groups {
		if f, ok := h.features[g.FeatureID]; ok {
			f.Tags = model.ApplyTo(f.Tags, g.Mutations)
			h.features[g.FeatureID] = f
		}
	}
	h.mu.Unlock()

	recorded := make([]model.MutationGroup, len(groups))
	for i, g := range groups {
		recorded[i] = model.MutationGroup{FeatureID: g.FeatureID, Mutations: append([]model.Mutation(nil), g.Mutations...)}
	}
	h.record(TraceEvent{Kind: KindApply, Groups: recorded})
	return nil
}

// ClearSelection records a deselect.
func (h *Harness) ClearSelection(context.Context) error {
	h.record(TraceEvent{Kind: KindClear})
	return nil
}

// CreateFeature records a created feature.
func (h *Harness) CreateFeature(_ context.Context, geometry model.Geometry, tags model.TagMap) error {
	h.record(TraceEvent{Kind: KindCreate, Geometry: geometry.String(), Tags: tags.Map()})
	return nil
}

// Copy records copied text.
func (h *Harness) Copy(text string) error {
	h.record(TraceEvent{Kind: KindCopy, Text: text})
	return nil
}

func (h *Harness) finish() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.result
	r.State = h.engine.State()
	for id, f := range h.features {
		r.Features[id] = copyTags(f.Tags)
	}
	return r
}

func cloneFeature(f model.Feature) model.Feature {
	f.Tags = copyTags(f.Tags)
	return f
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
