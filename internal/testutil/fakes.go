package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/tagstamp/internal/model"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// Created records a FeatureMutator.CreateFeature call.
type Created struct {
	Geometry model.Geometry
	Tags     model.TagMap
}

// RecordingMutator is an engine.FeatureMutator that records every call.
type RecordingMutator struct {
	mu       sync.Mutex
	Applied  [][]model.MutationGroup
	Clears   int
	Creates  []Created
	FailNext bool
}

// Apply records groups.
func (m *RecordingMutator) Apply(_ context.Context, groups []model.MutationGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return ErrInjected
	}
	m.Applied = append(m.Applied, groups)
	return nil
}

// ClearSelection records a deselect.
func (m *RecordingMutator) ClearSelection(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
	return nil
}

// CreateFeature records a created feature.
func (m *RecordingMutator) CreateFeature(_ context.Context, g model.Geometry, tags model.TagMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates = append(m.Creates, Created{Geometry: g, Tags: tags})
	return nil
}

// Last returns the most recent Apply call, or nil.
func (m *RecordingMutator) Last() []model.MutationGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Applied) == 0 {
		return nil
	}
	return m.Applied[len(m.Applied)-1]
}

// Calls returns how many Apply calls succeeded.
func (m *RecordingMutator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Applied)
}

// RecordingClipboard is an engine.Clipboard that keeps copied text.
type RecordingClipboard struct {
	mu     sync.Mutex
	Copies []string
	Fail   bool
}

// Copy records text.
func (c *RecordingClipboard) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return ErrInjected
	}
	c.Copies = append(c.Copies, text)
	return nil
}

// StaticIcons is an engine.IconSource backed by a map. Refs listed in Block
// wait for the context to end, simulating a hung load.
type StaticIcons struct {
	Icons map[string]model.Icon
	Block map[string]bool
}

// Resolve returns the icon for ref.
func (s StaticIcons) Resolve(ctx context.Context, ref string) (model.Icon, bool) {
	if s.Block[ref] {
		<-ctx.Done()
		return model.Icon{}, false
	}
	icon, ok := s.Icons[ref]
	return icon, ok
}

// Templates is an engine.TemplateSource over a fixed entry list.
type Templates []model.Entry

// Template finds a template by ID.
func (ts Templates) Template(id string) (*model.Template, bool) {
	for _, e := range ts {
		if t := model.AsTemplate(e); t != nil && t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Entries returns the entries.
func (ts Templates) Entries() []model.Entry {
	return ts
}

// Point returns an untagged-or-tagged point feature.
func Point(id string, kv ...string) model.Feature {
	return feature(id, model.Point, kv)
}

// Way returns an open path feature.
func Way(id string, kv ...string) model.Feature {
	return feature(id, model.OpenPath, kv)
}

// Area returns a closed path feature.
func Area(id string, kv ...string) model.Feature {
	return feature(id, model.ClosedPath, kv)
}

func feature(id string, g model.Geometry, kv []string) model.Feature {
	return model.Feature{ID: id, Target: model.Target{Geometry: g, Tags: model.NewTagMap(kv...).Map()}}
}
