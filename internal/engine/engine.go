package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/tagstamp/internal/model"
)

// State is a point-in-time view of the engine, safe to read from any
// goroutine via Engine.State.
type State struct {
	Armed           bool            `json:"armed"`
	RemainingMs     int64           `json:"remaining_ms"`
	SuppressAutoOff bool            `json:"suppress_auto_off"`
	TemplateID      string          `json:"template_id,omitempty"`
	Modifiers       model.Modifiers `json:"modifiers"`
	Selected        int             `json:"selected_features"`
}

// Update is published to subscribers after an event changed the state.
// Transition is set when the auto-apply controller reported one.
type Update struct {
	Seq        int64       `json:"seq"`
	Transition *Transition `json:"transition,omitempty"`
	State      State       `json:"state"`
}

// Engine is the single event-processing loop.
//
// All state (the auto-apply controller, the click debouncer, the active
// template, the latest selection and modifiers) is owned by the goroutine
// that runs Run, or by the caller of Drain. Other goroutines only enqueue
// events and read the published State snapshot.
//
// Thread-safety model:
//   - Enqueue(), Trigger() and the convenience senders: safe from any goroutine
//   - State(), Icon(), Subscribe(): safe from any goroutine
//   - Run() / Drain(): must not run concurrently with each other
type Engine struct {
	cfg       Config
	log       *slog.Logger
	clock     *Clock
	now       TimeSource
	queue     *eventQueue
	guard     *flightGuard
	templates TemplateSource

	selectionSrc SelectionProvider
	mutator      FeatureMutator
	clipboard    Clipboard
	iconSrc      IconSource
	manualTicks  bool

	controller   *AutoApply
	clicks       *ClickDebouncer
	selected     string
	selection    model.Selection
	modifiers    model.Modifiers
	icons        map[string]model.Icon
	iconsPending map[string]bool
	transitions  []Transition

	subMu   sync.Mutex
	subs    map[int]func(Update)
	nextSub int

	state     atomic.Pointer[State]
	iconsSnap atomic.Pointer[map[string]model.Icon]
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithConfig sets the auto-apply policy. Default: DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSelectionProvider sets the provider consulted when a selection event
// carries no snapshot.
func WithSelectionProvider(p SelectionProvider) Option {
	return func(e *Engine) { e.selectionSrc = p }
}

// WithMutator sets the feature mutator. Default: discard.
func WithMutator(m FeatureMutator) Option {
	return func(e *Engine) { e.mutator = m }
}

// WithClipboard sets the clipboard. Default: discard.
func WithClipboard(c Clipboard) Option {
	return func(e *Engine) { e.clipboard = c }
}

// WithIconSource sets the icon source. Default: no icons.
func WithIconSource(s IconSource) Option {
	return func(e *Engine) { e.iconSrc = s }
}

// WithTimeSource sets the time used for click debouncing.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) { e.now = ts }
}

// WithManualTicks stops Run from starting its ticker; callers enqueue
// EventTick themselves. Used by the scenario harness.
func WithManualTicks() Option {
	return func(e *Engine) { e.manualTicks = true }
}

// New creates an Engine reading templates from src.
func New(src TemplateSource, opts ...Option) *Engine {
	e := &Engine{
		cfg:          DefaultConfig(),
		log:          slog.Default(),
		clock:        NewClock(),
		now:          systemTime{},
		queue:        newEventQueue(),
		guard:        newFlightGuard(),
		templates:    src,
		mutator:      nopMutator{},
		clipboard:    nopClipboard{},
		iconSrc:      nopIcons{},
		icons:        make(map[string]model.Icon),
		iconsPending: make(map[string]bool),
		subs:         make(map[int]func(Update)),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cfg.TickInterval <= 0 {
		e.cfg.TickInterval = DefaultTickInterval
	}
	if e.cfg.IconTimeout <= 0 {
		e.cfg.IconTimeout = DefaultIconTimeout
	}
	e.controller = NewAutoApply(e.cfg)
	e.clicks = NewClickDebouncer(e.cfg.ClickInterval)
	e.refreshState()
	empty := map[string]model.Icon{}
	e.iconsSnap.Store(&empty)
	return e
}

// Enqueue stamps ev with the next sequence number and submits it to the
// Run loop. Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	ev.Seq = e.clock.Next()
	return e.queue.Enqueue(ev)
}

// Trigger enqueues ev unless action is already in flight. The action stays
// in flight until the loop has processed ev; a second trigger in between is
// dropped and Trigger returns false.
func (e *Engine) Trigger(action Action, ev Event) bool {
	if !e.guard.TryAcquire(action) {
		e.log.Debug("dropping re-entrant trigger", "event", "trigger_dropped", "action", string(action))
		return false
	}
	ev.action = action
	if !e.Enqueue(ev) {
		e.guard.Release(action)
		return false
	}
	return true
}

// InFlight reports whether action has a queued, unprocessed trigger.
func (e *Engine) InFlight(action Action) bool {
	return e.guard.InFlight(action)
}

// ClickAction is the single-flight action for clicks on one template.
func ClickAction(templateID string) Action {
	return ActionClick + Action(":"+templateID)
}

// Click triggers a click on a template. count > 0 is an already-resolved
// gesture; zero sends a raw click through the debouncer.
func (e *Engine) Click(templateID string, count int) bool {
	return e.Trigger(ClickAction(templateID), Event{Kind: EventClick, TemplateID: templateID, Clicks: count})
}

// Toggle triggers an auto-apply toggle.
func (e *Engine) Toggle() bool {
	return e.Trigger(ActionToggle, Event{Kind: EventToggle})
}

// Deactivate triggers auto-apply deactivation.
func (e *Engine) Deactivate() bool {
	return e.Trigger(ActionDeactivate, Event{Kind: EventDeactivate})
}

// SelectTemplate triggers a change of the active template.
func (e *Engine) SelectTemplate(id string) bool {
	return e.Trigger(ActionSelect, Event{Kind: EventSelectTemplate, TemplateID: id})
}

// SelectionChanged delivers a selection snapshot.
func (e *Engine) SelectionChanged(sel model.Selection) bool {
	return e.Enqueue(Event{Kind: EventSelectionChanged, Selection: &sel})
}

// SelectionInvalidated reports a selection change without a snapshot; the
// loop reads the current selection from the SelectionProvider.
func (e *Engine) SelectionInvalidated() bool {
	return e.Enqueue(Event{Kind: EventSelectionChanged})
}

// ModifiersChanged delivers the modifier-key state.
func (e *Engine) ModifiersChanged(m model.Modifiers) bool {
	return e.Enqueue(Event{Kind: EventModifiersChanged, Modifiers: m})
}

// DatasetChanged reports a structural edit of the host dataset.
func (e *Engine) DatasetChanged() bool {
	return e.Enqueue(Event{Kind: EventDatasetChanged})
}

// ConfigChanged delivers a new auto-apply policy.
func (e *Engine) ConfigChanged(cfg Config) bool {
	return e.Enqueue(Event{Kind: EventConfigChanged, Config: &cfg})
}

// CatalogChanged reports that catalog entries were edited.
func (e *Engine) CatalogChanged() bool {
	return e.Enqueue(Event{Kind: EventCatalogChanged})
}

// Subscribe registers fn to receive updates. fn runs on the event loop
// goroutine and must not block. The returned function unsubscribes.
func (e *Engine) Subscribe(fn func(Update)) (cancel func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

// State returns the latest published state.
func (e *Engine) State() State {
	return *e.state.Load()
}

// Icon returns the loaded icon of a template.
func (e *Engine) Icon(templateID string) (model.Icon, bool) {
	icon, ok := (*e.iconsSnap.Load())[templateID]
	return icon, ok
}

// QueueLen returns the number of unprocessed events.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the event loop.
// Blocks until context is cancelled or Stop() is called.
//
// Must be called from exactly ONE goroutine. Unless WithManualTicks was
// given, a ticker goroutine posts EventTick every TickInterval; it never
// touches engine state itself.
//
// ERROR HANDLING: On event processing failure, the error is logged with the
// event context and processing continues.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting", "countdown_seconds", e.cfg.CountdownSeconds)

	e.loadIcons(ctx)
	if !e.manualTicks {
		go e.tickLoop(ctx, e.cfg.TickInterval)
	}

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			e.handle(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			e.log.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, so this case also
			// fires on Stop.
			if e.queue.Len() == 0 && e.stopped() {
				e.log.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain processes every queued event on the calling goroutine and returns
// how many were handled. It is the synchronous alternative to Run.
func (e *Engine) Drain(ctx context.Context) int {
	n := 0
	for {
		event, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		e.handle(ctx, event)
		n++
	}
}

// Stop gracefully shuts down the engine.
// Closes the event queue, which will cause Run() to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

func (e *Engine) tickLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.Enqueue(Event{Kind: EventTick}) {
				return
			}
		}
	}
}

// handle processes one event, releases its single-flight action and
// publishes the resulting state.
func (e *Engine) handle(ctx context.Context, event Event) {
	if event.action != "" {
		defer e.guard.Release(event.action)
	}

	e.transitions = e.transitions[:0]
	prev := e.State()

	if err := e.processEvent(ctx, event); err != nil {
		e.log.Error("event processing failed",
			"event", event.Kind.String(),
			"seq", event.Seq,
			"template", event.TemplateID,
			"error", err,
		)
	}

	e.refreshState()
	e.publish(event.Seq, prev)
}

// processEvent routes an event to the appropriate handler.
// Called only from the goroutine owning the engine state.
func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventSelectionChanged:
		return e.onSelection(ctx, event)
	case EventDatasetChanged:
		e.controller.DatasetChanged()
		return nil
	case EventModifiersChanged:
		return e.onModifiers(event.Modifiers)
	case EventClick:
		return e.onClick(ctx, event)
	case EventToggle:
		return e.onToggle()
	case EventDeactivate:
		e.disarm(ReasonDeactivate)
		return nil
	case EventSelectTemplate:
		return e.onSelectTemplate(ctx, event.TemplateID)
	case EventTick:
		return e.onTick(ctx)
	case EventIconLoaded:
		e.onIconLoaded(event)
		return nil
	case EventConfigChanged:
		e.onConfig(event.Config)
		return nil
	case EventCatalogChanged:
		return e.onCatalogChanged(ctx)
	default:
		return &RuntimeError{Code: ErrCodeUnknownEvent, Message: "unhandled event " + event.Kind.String()}
	}
}

func (e *Engine) onSelection(ctx context.Context, event Event) error {
	switch {
	case event.Selection != nil:
		e.selection = *event.Selection
	case e.selectionSrc != nil:
		e.selection = e.selectionSrc.Selection()
	}

	if !e.controller.Armed() || e.selection.Empty() {
		return nil
	}

	tmpl, err := e.activeTemplate()
	if err != nil {
		e.disarm(ReasonCatalog)
		return err
	}

	applicable, err := e.apply(ctx, tmpl)
	if err != nil {
		return err
	}
	e.record(e.controller.Applied(applicable))
	return nil
}

func (e *Engine) onModifiers(m model.Modifiers) error {
	prev := e.modifiers
	e.modifiers = m

	arm := e.cfg.ArmModifiers
	if prev.Contains(arm) || !m.Contains(arm) {
		return nil
	}

	tmpl, err := e.activeTemplate()
	if err != nil {
		e.log.Debug("arm modifiers held without a template", "modifiers", m.String())
		return nil
	}
	if e.eligible(tmpl) {
		e.record(e.controller.Arm(false, ReasonModifiers), true)
	}
	return nil
}

func (e *Engine) onClick(ctx context.Context, event Event) error {
	if event.Clicks > 0 {
		// A resolved gesture supersedes any pending raw clicks.
		if pending, ok := e.clicks.Flush(); ok {
			if err := e.gesture(ctx, pending); err != nil {
				return err
			}
		}
		return e.gesture(ctx, Gesture{TemplateID: event.TemplateID, Count: min(event.Clicks, MaxClicks)})
	}
	if g, ok := e.clicks.Click(event.TemplateID, e.now.Now()); ok {
		return e.gesture(ctx, g)
	}
	return nil
}

// gesture runs the action bound to a click count.
func (e *Engine) gesture(ctx context.Context, g Gesture) error {
	tmpl, ok := e.templates.Template(g.TemplateID)
	if !ok {
		return NewNoTemplateError(g.TemplateID)
	}
	e.selected = tmpl.ID

	e.log.Debug("click gesture", "event", "gesture", "template", tmpl.ID, "clicks", g.Count)

	switch g.Count {
	case 2:
		if err := e.clipboard.Copy(NodeSnippet(tmpl)); err != nil {
			return NewClipboardError(tmpl.ID, err)
		}
		e.log.Info("template copied", "event", "copy", "template", tmpl.ID)
		return nil
	case 3:
		if err := e.mutator.CreateFeature(ctx, model.Point, tmpl.Tags.Clone()); err != nil {
			return NewMutationError("create feature", tmpl.ID, err)
		}
		e.log.Info("feature created", "event", "paste", "template", tmpl.ID)
		return nil
	}

	eligible := e.eligible(tmpl)
	applicable, err := e.apply(ctx, tmpl)
	if err != nil {
		return err
	}

	switch {
	case !eligible:
		e.record(e.controller.Applied(applicable))
	case g.Count == 1 && !e.cfg.AutoActivate:
		e.record(e.controller.Applied(applicable))
	default:
		e.record(e.controller.Arm(g.Count >= MaxClicks, ReasonClick), true)
	}
	return nil
}

func (e *Engine) onToggle() error {
	if e.controller.Armed() {
		e.disarm(ReasonToggle)
		return nil
	}
	if _, err := e.activeTemplate(); err != nil {
		return err
	}
	e.record(e.controller.Arm(false, ReasonToggle), true)
	return nil
}

func (e *Engine) onSelectTemplate(ctx context.Context, id string) error {
	tmpl, ok := e.templates.Template(id)
	if !ok {
		return NewNoTemplateError(id)
	}
	e.selected = tmpl.ID
	e.loadIcon(ctx, tmpl)
	return nil
}

func (e *Engine) onTick(ctx context.Context) error {
	e.record(e.controller.Tick())
	if g, ok := e.clicks.Resolve(e.now.Now()); ok {
		return e.gesture(ctx, g)
	}
	return nil
}

func (e *Engine) onIconLoaded(event Event) {
	delete(e.iconsPending, event.TemplateID)
	if event.Icon == nil {
		e.log.Debug("icon unavailable", "event", "icon_missing", "template", event.TemplateID)
		return
	}
	e.icons[event.TemplateID] = *event.Icon
	snap := make(map[string]model.Icon, len(e.icons))
	for id, icon := range e.icons {
		snap[id] = icon
	}
	e.iconsSnap.Store(&snap)
}

func (e *Engine) onConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	next := *cfg
	next.TickInterval = e.cfg.TickInterval
	if next.IconTimeout <= 0 {
		next.IconTimeout = e.cfg.IconTimeout
	}
	e.cfg = next
	e.controller.SetConfig(next)
	e.clicks.SetInterval(next.ClickInterval)
	e.log.Info("config reloaded",
		"event", "config",
		"countdown_seconds", next.CountdownSeconds,
		"auto_activate", next.AutoActivate,
		"arm_modifiers", next.ArmModifiers.String(),
	)
}

func (e *Engine) onCatalogChanged(ctx context.Context) error {
	if e.selected != "" {
		if _, ok := e.templates.Template(e.selected); !ok {
			e.log.Info("active template removed", "event", "catalog", "template", e.selected)
			e.selected = ""
			e.disarm(ReasonCatalog)
		}
	}
	e.loadIcons(ctx)
	return nil
}

// apply synchronizes tmpl against every selected feature and sends the
// resulting mutations to the host as one unit.
func (e *Engine) apply(ctx context.Context, tmpl *model.Template) (bool, error) {
	sel := e.selection
	opts := SyncOptions{
		Ctrl:                     e.modifiers.Ctrl,
		Shift:                    e.modifiers.Shift,
		DeactivateIfIncompatible: e.cfg.DeactivateIfIncompatible,
		EditMode:                 sel.Editing,
	}

	applicable := false
	var groups []model.MutationGroup
	for _, f := range sel.Features {
		res := Synchronize(tmpl, f.Target, opts)
		applicable = applicable || res.Applicable
		if len(res.Mutations) > 0 {
			groups = append(groups, model.MutationGroup{FeatureID: f.ID, Mutations: res.Mutations})
		}
	}

	if len(groups) > 0 {
		if err := e.mutator.Apply(ctx, groups); err != nil {
			return false, NewMutationError("apply", tmpl.ID, err)
		}
		e.selection = withMutations(sel, groups)
		e.log.Info("template applied",
			"event", "apply",
			"template", tmpl.ID,
			"features", len(groups),
			"modifiers", e.modifiers.String(),
		)
	}

	if applicable && e.cfg.ClearSelectionAfterTagging && !sel.Drawing {
		if err := e.mutator.ClearSelection(ctx); err != nil {
			return applicable, NewMutationError("clear selection", tmpl.ID, err)
		}
		e.selection = model.Selection{Editing: sel.Editing}
	}
	return applicable, nil
}

// eligible reports whether tmpl may arm auto-apply for the current
// selection: nothing is selected, or it fits at least one feature.
func (e *Engine) eligible(tmpl *model.Template) bool {
	if e.selection.Empty() {
		return true
	}
	for _, f := range e.selection.Features {
		if IsCompatible(tmpl, f.Target) {
			return true
		}
	}
	return false
}

func (e *Engine) activeTemplate() (*model.Template, error) {
	if e.selected == "" {
		return nil, NewNoTemplateError("")
	}
	tmpl, ok := e.templates.Template(e.selected)
	if !ok {
		return nil, NewNoTemplateError(e.selected)
	}
	return tmpl, nil
}

func (e *Engine) disarm(reason Reason) {
	e.record(e.controller.Disarm(reason))
}

// record keeps a reportable transition for publishing and logs it.
func (e *Engine) record(t Transition, report bool) {
	if !report {
		return
	}
	e.transitions = append(e.transitions, t)
	e.log.Info("auto-apply transition",
		"event", "transition",
		"from", t.From.String(),
		"to", t.To.String(),
		"reason", string(t.Reason),
		"remaining", t.Remaining,
		"suppress_auto_off", t.Suppress,
	)
}

func (e *Engine) refreshState() {
	e.state.Store(&State{
		Armed:           e.controller.Armed(),
		RemainingMs:     e.controller.Remaining().Milliseconds(),
		SuppressAutoOff: e.controller.SuppressAutoOff(),
		TemplateID:      e.selected,
		Modifiers:       e.modifiers,
		Selected:        len(e.selection.Features),
	})
}

func (e *Engine) publish(seq int64, prev State) {
	cur := e.State()
	if len(e.transitions) == 0 && cur == prev {
		return
	}

	e.subMu.Lock()
	subs := make([]func(Update), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()

	var updates []Update
	for i := range e.transitions {
		t := e.transitions[i]
		updates = append(updates, Update{Seq: seq, Transition: &t, State: cur})
	}
	if len(updates) == 0 {
		updates = append(updates, Update{Seq: seq, State: cur})
	}
	for _, fn := range subs {
		for _, u := range updates {
			fn(u)
		}
	}
}

// loadIcons starts background loads for every template icon not yet
// loaded or loading.
func (e *Engine) loadIcons(ctx context.Context) {
	for _, entry := range e.templates.Entries() {
		if tmpl := model.AsTemplate(entry); tmpl != nil {
			e.loadIcon(ctx, tmpl)
		}
	}
}

// loadIcon resolves one icon in its own goroutine with a bounded wait. The
// result, or its absence, comes back as EventIconLoaded.
func (e *Engine) loadIcon(ctx context.Context, tmpl *model.Template) {
	if tmpl.IconRef == "" || e.iconsPending[tmpl.ID] {
		return
	}
	if icon, ok := e.icons[tmpl.ID]; ok && icon.Ref == tmpl.IconRef {
		return
	}
	e.iconsPending[tmpl.ID] = true

	id, ref, timeout := tmpl.ID, tmpl.IconRef, e.cfg.IconTimeout
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		ev := Event{Kind: EventIconLoaded, TemplateID: id}
		if icon, ok := e.iconSrc.Resolve(loadCtx, ref); ok && loadCtx.Err() == nil {
			ev.Icon = &icon
		}
		e.Enqueue(ev)
	}()
}

// withMutations returns sel with groups applied to the matching features.
func withMutations(sel model.Selection, groups []model.MutationGroup) model.Selection {
	byID := make(map[string][]model.Mutation, len(groups))
	for _, g := range groups {
		byID[g.FeatureID] = g.Mutations
	}
	out := sel
	out.Features = make([]model.Feature, len(sel.Features))
	for i, f := range sel.Features {
		if muts, ok := byID[f.ID]; ok {
			f.Target.Tags = model.ApplyTo(f.Target.Tags, muts)
		}
		out.Features[i] = f
	}
	return out
}
