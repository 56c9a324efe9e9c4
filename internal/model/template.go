package model

import (
	"errors"
	"strings"
	"time"
)

// Entry is an element of the ordered catalog list: a *Template or the
// Separator.
type Entry interface {
	entry()
}

type separator struct{}

func (*separator) entry() {}

// Separator is the display-only grouping marker. There is exactly one
// instance; compare with == or IsSeparator.
var Separator Entry = &separator{}

// IsSeparator reports whether e is the Separator sentinel.
func IsSeparator(e Entry) bool {
	return e == Separator
}

// AsTemplate returns e as a template, or nil for the separator.
func AsTemplate(e Entry) *Template {
	t, _ := e.(*Template)
	return t
}

// Template is a named, reusable bundle of tags plus applicability rules.
type Template struct {
	// ID is assigned once and never changes.
	ID      string
	Name    string
	IconRef string

	// Tags are applied unconditionally; CtrlTags and ShiftTags are layered
	// on top while the matching modifier is held.
	Tags      TagMap
	CtrlTags  TagMap
	ShiftTags TagMap

	ForWays         bool
	ForClosedWays   bool
	NotForNodes     bool
	OnlyForUntagged bool
}

func (*Template) entry() {}

// ErrEmptyKey is returned when a template would carry a tag with an empty key.
var ErrEmptyKey = errors.New("tag key must not be empty")

// NewTemplate creates a template with a freshly generated ID. Name, keys and
// values are normalized (see NormalizeText).
func NewTemplate(name string, tags TagMap) (*Template, error) {
	name = NormalizeText(name)
	id, err := NewTemplateID(time.Now(), name)
	if err != nil {
		return nil, err
	}
	norm, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}
	return &Template{ID: id, Name: name, Tags: norm}, nil
}

// Clone returns a deep copy. The ID is preserved.
func (t *Template) Clone() *Template {
	c := *t
	c.Tags = t.Tags.Clone()
	c.CtrlTags = t.CtrlTags.Clone()
	c.ShiftTags = t.ShiftTags.Clone()
	return &c
}

// Label returns the display name, falling back to the base tags for
// unnamed templates.
func (t *Template) Label() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return t.Tags.String()
}

// Flags returns the four applicability flags in persisted order.
func (t *Template) Flags() [4]bool {
	return [4]bool{t.ForWays, t.ForClosedWays, t.NotForNodes, t.OnlyForUntagged}
}

// SetFlags is the inverse of Flags.
func (t *Template) SetFlags(f [4]bool) {
	t.ForWays, t.ForClosedWays, t.NotForNodes, t.OnlyForUntagged = f[0], f[1], f[2], f[3]
}

// Equal compares all persisted fields.
func (t *Template) Equal(o *Template) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.ID == o.ID &&
		t.Name == o.Name &&
		t.IconRef == o.IconRef &&
		t.Flags() == o.Flags() &&
		t.Tags.Equal(o.Tags) &&
		t.CtrlTags.Equal(o.CtrlTags) &&
		t.ShiftTags.Equal(o.ShiftTags)
}
