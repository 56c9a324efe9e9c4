package engine

import (
	"context"

	"github.com/roach88/tagstamp/internal/model"
)

// SelectionProvider returns the host's current active-layer selection.
type SelectionProvider interface {
	Selection() model.Selection
}

// FeatureMutator applies changes to host features.
type FeatureMutator interface {
	// Apply performs all groups as one undoable unit.
	Apply(ctx context.Context, groups []model.MutationGroup) error
	ClearSelection(ctx context.Context) error
	CreateFeature(ctx context.Context, geometry model.Geometry, tags model.TagMap) error
}

// Clipboard receives copied feature representations.
type Clipboard interface {
	Copy(text string) error
}

// IconSource resolves template icon references. A false result means the
// template is shown without an icon.
type IconSource interface {
	Resolve(ctx context.Context, ref string) (model.Icon, bool)
}

// TemplateSource looks up catalog templates. catalog.Catalog implements it.
type TemplateSource interface {
	Template(id string) (*model.Template, bool)
	Entries() []model.Entry
}

type nopMutator struct{}

func (nopMutator) Apply(context.Context, []model.MutationGroup) error { return nil }
func (nopMutator) ClearSelection(context.Context) error               { return nil }
func (nopMutator) CreateFeature(context.Context, model.Geometry, model.TagMap) error {
	return nil
}

type nopClipboard struct{}

func (nopClipboard) Copy(string) error { return nil }

type nopIcons struct{}

func (nopIcons) Resolve(context.Context, string) (model.Icon, bool) { return model.Icon{}, false }
