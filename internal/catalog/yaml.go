package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tagstamp/internal/model"
)

// Document is the exchange format shared by YAML import/export and CUE
// import.
type Document struct {
	Templates []DocumentEntry `json:"templates" yaml:"templates"`
}

// DocumentEntry is a template, or a separator when Separator is set.
type DocumentEntry struct {
	Separator bool `json:"separator,omitempty" yaml:"separator,omitempty"`

	ID        string       `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string       `json:"name,omitempty" yaml:"name,omitempty"`
	Icon      string       `json:"icon,omitempty" yaml:"icon,omitempty"`
	Tags      model.TagMap `json:"tags" yaml:"tags,omitempty"`
	CtrlTags  model.TagMap `json:"ctrl_tags,omitzero" yaml:"ctrl_tags,omitempty"`
	ShiftTags model.TagMap `json:"shift_tags,omitzero" yaml:"shift_tags,omitempty"`

	ForWays         bool `json:"for_ways,omitempty" yaml:"for_ways,omitempty"`
	ForClosedWays   bool `json:"for_closed_ways,omitempty" yaml:"for_closed_ways,omitempty"`
	NotForNodes     bool `json:"not_for_nodes,omitempty" yaml:"not_for_nodes,omitempty"`
	OnlyForUntagged bool `json:"only_for_untagged,omitempty" yaml:"only_for_untagged,omitempty"`
}

// NewDocument converts entries to the exchange format.
func NewDocument(entries []model.Entry) Document {
	doc := Document{Templates: make([]DocumentEntry, 0, len(entries))}
	for _, e := range entries {
		t := model.AsTemplate(e)
		if t == nil {
			doc.Templates = append(doc.Templates, DocumentEntry{Separator: true})
			continue
		}
		doc.Templates = append(doc.Templates, DocumentEntry{
			ID:              t.ID,
			Name:            t.Name,
			Icon:            t.IconRef,
			Tags:            t.Tags.Clone(),
			CtrlTags:        t.CtrlTags.Clone(),
			ShiftTags:       t.ShiftTags.Clone(),
			ForWays:         t.ForWays,
			ForClosedWays:   t.ForClosedWays,
			NotForNodes:     t.NotForNodes,
			OnlyForUntagged: t.OnlyForUntagged,
		})
	}
	return doc
}

// Entries converts the document back to catalog entries. Ids may be empty;
// the catalog assigns them on Replace.
func (d Document) Entries() ([]model.Entry, error) {
	entries := make([]model.Entry, 0, len(d.Templates))
	for i, de := range d.Templates {
		if de.Separator {
			if de.Name != "" || de.ID != "" || !de.Tags.IsZero() {
				return nil, fmt.Errorf("templates[%d]: %w: separator with template fields", i, ErrInvalidTemplate)
			}
			entries = append(entries, model.Separator)
			continue
		}
		if de.Name == "" && de.Tags.IsZero() {
			return nil, fmt.Errorf("templates[%d]: %w: needs a name or tags", i, ErrInvalidTemplate)
		}
		entries = append(entries, &model.Template{
			ID:              de.ID,
			Name:            de.Name,
			IconRef:         de.Icon,
			Tags:            de.Tags.Clone(),
			CtrlTags:        de.CtrlTags.Clone(),
			ShiftTags:       de.ShiftTags.Clone(),
			ForWays:         de.ForWays,
			ForClosedWays:   de.ForClosedWays,
			NotForNodes:     de.NotForNodes,
			OnlyForUntagged: de.OnlyForUntagged,
		})
	}
	return entries, nil
}

// ExportYAML writes entries as a YAML document.
func ExportYAML(w io.Writer, entries []model.Entry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(entries)); err != nil {
		return fmt.Errorf("export yaml: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a YAML document. Unknown fields are rejected.
func ImportYAML(r io.Reader) ([]model.Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("import yaml: %w", err)
	}
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.Entry{}, nil
		}
		return nil, fmt.Errorf("import yaml: %w", err)
	}
	return doc.Entries()
}
