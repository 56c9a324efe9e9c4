package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tagstamp/internal/model"
	"github.com/roach88/tagstamp/internal/store"
)

// Catalog is the ordered, persisted list of templates and separators.
// It is safe for concurrent use. Readers get copies; a template returned
// by Template or Entries can be modified without affecting the catalog.
type Catalog struct {
	mu        sync.RWMutex
	backend   store.Backend
	entries   []model.Entry
	reordered bool

	log *slog.Logger
	now func() time.Time

	listenMu  sync.Mutex
	listeners []func()
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		c.log = l
	}
}

// WithNow sets the clock used to derive ids for new templates.
func WithNow(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// New creates an empty catalog persisted to backend. Call Load to populate it.
func New(backend store.Backend, opts ...Option) *Catalog {
	c := &Catalog{
		backend: backend,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to run after every change to the entries. fn runs
// on the goroutine that made the change, after the catalog lock is released.
func (c *Catalog) OnChange(fn func()) {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Catalog) changed() {
	c.listenMu.Lock()
	fns := append([]func(){}, c.listeners...)
	c.listenMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Load replaces the entries with the persisted catalog. When nothing is
// persisted, or the persisted lists are unreadable, the built-in defaults
// are used instead. Reports whether the defaults were used.
func (c *Catalog) Load(ctx context.Context) (usedDefaults bool) {
	entries, err := c.read(ctx)
	if err != nil {
		c.log.Warn("catalog unreadable, using defaults", "event", "catalog_load", "error", err)
		entries = Defaults()
		usedDefaults = true
	} else if entries == nil {
		c.log.Info("no persisted catalog, using defaults", "event", "catalog_load")
		entries = Defaults()
		usedDefaults = true
	}

	c.mu.Lock()
	c.entries = entries
	c.reordered = false
	c.mu.Unlock()

	c.log.Debug("catalog loaded", "event", "catalog_load", "entries", len(entries), "defaults", usedDefaults)
	c.changed()
	return usedDefaults
}

// read returns nil entries and a nil error when no catalog is persisted.
func (c *Catalog) read(ctx context.Context) ([]model.Entry, error) {
	var p Persisted
	var missing []string

	ids, ok, err := c.backend.List(ctx, KeyIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		missing = append(missing, KeyIDs)
	}
	p.IDs = ids

	names, ok, err := c.backend.List(ctx, KeyNames)
	if err != nil {
		return nil, err
	}
	if !ok {
		missing = append(missing, KeyNames)
	}
	p.Names = names

	tags, ok, err := c.backend.Maps(ctx, KeyTags)
	if err != nil {
		return nil, err
	}
	if !ok {
		missing = append(missing, KeyTags)
	}
	p.Tags = tags

	if len(missing) == 3 {
		return nil, nil
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", errInconsistent, missing)
	}

	if p.CtrlTags, _, err = c.backend.Maps(ctx, KeyCtrlTags); err != nil {
		return nil, err
	}
	if p.ShiftTags, _, err = c.backend.Maps(ctx, KeyShiftTags); err != nil {
		return nil, err
	}
	return Decode(p)
}

// Save writes all five lists in one backend transaction.
func (c *Catalog) Save(ctx context.Context) error {
	c.mu.RLock()
	p := Encode(c.entries)
	c.mu.RUnlock()

	err := c.backend.Update(ctx, func(w store.Writer) error {
		if err := w.PutList(ctx, KeyIDs, p.IDs); err != nil {
			return err
		}
		if err := w.PutList(ctx, KeyNames, p.Names); err != nil {
			return err
		}
		if err := w.PutMaps(ctx, KeyTags, p.Tags); err != nil {
			return err
		}
		if err := w.PutMaps(ctx, KeyCtrlTags, p.CtrlTags); err != nil {
			return err
		}
		return w.PutMaps(ctx, KeyShiftTags, p.ShiftTags)
	})
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	c.log.Debug("catalog saved", "event", "catalog_save", "entries", len(p.IDs))
	return nil
}

// Len returns the number of entries, separators included.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of the ordered entries.
func (c *Catalog) Entries() []model.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneEntries(c.entries)
}

// Template returns a copy of the template with the given id.
func (c *Catalog) Template(id string) (*model.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return model.AsTemplate(c.entries[i]).Clone(), true
	}
	return nil, false
}

// Index returns the position of the template with the given id, or -1.
func (c *Catalog) Index(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(id)
}

func (c *Catalog) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range c.entries {
		if t := model.AsTemplate(e); t != nil && t.ID == id {
			return i
		}
	}
	return -1
}

// Add appends a template and returns its index. A template without an id
// gets a new one; the stored copy is normalized.
func (c *Catalog) Add(t *model.Template) (int, error) {
	c.mu.Lock()
	i, err := c.insert(len(c.entries), t)
	c.mu.Unlock()
	if err != nil {
		return -1, err
	}
	c.changed()
	return i, nil
}

// Insert places e at index, shifting later entries. index may equal Len.
func (c *Catalog) Insert(index int, e model.Entry) error {
	c.mu.Lock()
	var err error
	if model.IsSeparator(e) {
		err = c.insertSeparator(index)
	} else {
		_, err = c.insert(index, model.AsTemplate(e))
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.changed()
	return nil
}

func (c *Catalog) insertSeparator(index int) error {
	if index < 0 || index > len(c.entries) {
		return fmt.Errorf("insert at %d of %d: %w", index, len(c.entries), ErrIndexOutOfRange)
	}
	c.entries = insertAt(c.entries, index, model.Separator)
	return nil
}

func (c *Catalog) insert(index int, t *model.Template) (int, error) {
	if index < 0 || index > len(c.entries) {
		return -1, fmt.Errorf("insert at %d of %d: %w", index, len(c.entries), ErrIndexOutOfRange)
	}
	stored, err := c.prepare(t)
	if err != nil {
		return -1, err
	}
	if stored.ID == "" {
		id, err := model.NewTemplateID(c.now(), stored.Name)
		if err != nil {
			return -1, err
		}
		stored.ID = id
	}
	if c.indexOf(stored.ID) >= 0 {
		return -1, fmt.Errorf("%w: duplicate id %q", ErrInvalidTemplate, stored.ID)
	}
	c.entries = insertAt(c.entries, index, model.Entry(stored))
	c.log.Info("template added", "event", "catalog_add", "template", stored.ID, "index", index)
	return index, nil
}

// Edit replaces the template with the given id. The id is kept; reserved
// markers are stripped from the name and the icon reference.
func (c *Catalog) Edit(id string, t *model.Template) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("edit %q: %w", id, ErrNotFound)
	}
	stored, err := c.prepare(t)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	stored.ID = id
	c.entries[i] = stored
	c.mu.Unlock()

	c.log.Info("template edited", "event", "catalog_edit", "template", id)
	c.changed()
	return nil
}

// Rename changes only the name of a template.
func (c *Catalog) Rename(id, name string) error {
	t, ok := c.Template(id)
	if !ok {
		return fmt.Errorf("rename %q: %w", id, ErrNotFound)
	}
	t.Name = name
	return c.Edit(id, t)
}

// prepare returns a normalized copy of t fit for storage.
func (c *Catalog) prepare(t *model.Template) (*model.Template, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	out := t.Clone()
	out.Name = StripReserved(model.NormalizeText(out.Name))
	out.IconRef = StripReserved(model.NormalizeText(out.IconRef))

	var err error
	for _, m := range []*model.TagMap{&out.Tags, &out.CtrlTags, &out.ShiftTags} {
		if *m, err = model.NormalizeTags(*m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
		}
	}
	return out, nil
}

// Delete removes the entry at index and returns it. Callers confirm with
// the user first; nothing else in the catalog removes entries.
func (c *Catalog) Delete(index int) (model.Entry, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.entries) {
		n := len(c.entries)
		c.mu.Unlock()
		return nil, fmt.Errorf("delete %d of %d: %w", index, n, ErrIndexOutOfRange)
	}
	removed := c.entries[index]
	c.entries = append(c.entries[:index:index], c.entries[index+1:]...)
	c.mu.Unlock()

	if t := model.AsTemplate(removed); t != nil {
		c.log.Info("template deleted", "event", "catalog_delete", "template", t.ID, "index", index)
	} else {
		c.log.Info("separator deleted", "event", "catalog_delete", "index", index)
	}
	c.changed()
	return cloneEntry(removed), nil
}

// Move relocates the entry at from to position to. Moves are not persisted
// until FinishReorder.
func (c *Catalog) Move(from, to int) error {
	c.mu.Lock()
	n := len(c.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		c.mu.Unlock()
		return fmt.Errorf("move %d to %d of %d: %w", from, to, n, ErrIndexOutOfRange)
	}
	if from == to {
		c.mu.Unlock()
		return nil
	}
	e := c.entries[from]
	c.entries = append(c.entries[:from:from], c.entries[from+1:]...)
	c.entries = insertAt(c.entries, to, e)
	c.reordered = true
	c.mu.Unlock()

	c.changed()
	return nil
}

// FinishReorder persists the catalog if entries were moved since the last
// load or reorder. Reports whether it saved.
func (c *Catalog) FinishReorder(ctx context.Context) (bool, error) {
	c.mu.Lock()
	pending := c.reordered
	c.reordered = false
	c.mu.Unlock()
	if !pending {
		return false, nil
	}
	if err := c.Save(ctx); err != nil {
		c.mu.Lock()
		c.reordered = true
		c.mu.Unlock()
		return false, err
	}
	c.log.Info("reorder saved", "event", "catalog_reorder")
	return true, nil
}

// Replace swaps in a new entry list, as after an import. Every template
// is validated first; on error the catalog is unchanged.
func (c *Catalog) Replace(entries []model.Entry) error {
	next := make([]model.Entry, 0, len(entries))
	ids := make(map[string]bool)
	for i, e := range entries {
		if model.IsSeparator(e) {
			next = append(next, model.Separator)
			continue
		}
		t, err := c.prepare(model.AsTemplate(e))
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if t.ID == "" {
			if t.ID, err = model.NewTemplateID(c.now(), t.Name); err != nil {
				return err
			}
		}
		if ids[t.ID] {
			return fmt.Errorf("entry %d: %w: duplicate id %q", i, ErrInvalidTemplate, t.ID)
		}
		ids[t.ID] = true
		next = append(next, t)
	}

	c.mu.Lock()
	c.entries = next
	c.reordered = false
	c.mu.Unlock()

	c.log.Info("catalog replaced", "event", "catalog_replace", "entries", len(next))
	c.changed()
	return nil
}

func insertAt(entries []model.Entry, i int, e model.Entry) []model.Entry {
	entries = append(entries, nil)
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}

func cloneEntry(e model.Entry) model.Entry {
	if t := model.AsTemplate(e); t != nil {
		return t.Clone()
	}
	return e
}

func cloneEntries(entries []model.Entry) []model.Entry {
	out := make([]model.Entry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out
}
