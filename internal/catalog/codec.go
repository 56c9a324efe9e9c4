package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/tagstamp/internal/model"
)

// Preference keys of the persisted lists.
const (
	KeyIDs       = "templates.ids"
	KeyNames     = "templates.names"
	KeyTags      = "templates.tags"
	KeyCtrlTags  = "templates.ctrl_tags"
	KeyShiftTags = "templates.shift_tags"

	// KeyPrefix is the common prefix of all catalog keys.
	KeyPrefix = "templates."
)

// Reserved markers inside an encoded name.
const (
	SeparatorName = "---"

	markFlags  = "#F#"
	markDedupe = "#D#"
	markIcon   = "#I#"
)

var reserved = []string{markFlags, markDedupe, markIcon}

// Persisted is the stored representation of a catalog. CtrlTags and
// ShiftTags are nil when absent, which older data may be.
type Persisted struct {
	IDs       []string
	Names     []string
	Tags      []model.TagMap
	CtrlTags  []model.TagMap
	ShiftTags []model.TagMap
}

// Encode converts entries into parallel lists. Duplicate template names get
// a #D# suffix on every occurrence after the first.
func Encode(entries []model.Entry) Persisted {
	p := Persisted{
		IDs:       make([]string, 0, len(entries)),
		Names:     make([]string, 0, len(entries)),
		Tags:      []model.TagMap{},
		CtrlTags:  []model.TagMap{},
		ShiftTags: []model.TagMap{},
	}
	seen := make(map[string]int)
	for _, e := range entries {
		t := model.AsTemplate(e)
		if t == nil {
			p.IDs = append(p.IDs, "")
			p.Names = append(p.Names, SeparatorName)
			continue
		}
		seen[t.Name]++
		p.IDs = append(p.IDs, t.ID)
		p.Names = append(p.Names, encodeName(t, seen[t.Name]))
		p.Tags = append(p.Tags, t.Tags.Clone())
		p.CtrlTags = append(p.CtrlTags, t.CtrlTags.Clone())
		p.ShiftTags = append(p.ShiftTags, t.ShiftTags.Clone())
	}
	return p
}

// Decode rebuilds entries from parallel lists. Missing ctrl or shift lists
// decode as empty maps. Templates stored without an id get a new one.
func Decode(p Persisted) ([]model.Entry, error) {
	if len(p.IDs) != len(p.Names) {
		return nil, fmt.Errorf("%w: %d ids, %d names", errInconsistent, len(p.IDs), len(p.Names))
	}
	templates := 0
	for _, name := range p.Names {
		if name != SeparatorName {
			templates++
		}
	}
	if len(p.Tags) != templates {
		return nil, fmt.Errorf("%w: %d templates, %d tag maps", errInconsistent, templates, len(p.Tags))
	}
	if p.CtrlTags != nil && len(p.CtrlTags) != templates {
		return nil, fmt.Errorf("%w: %d templates, %d ctrl tag maps", errInconsistent, templates, len(p.CtrlTags))
	}
	if p.ShiftTags != nil && len(p.ShiftTags) != templates {
		return nil, fmt.Errorf("%w: %d templates, %d shift tag maps", errInconsistent, templates, len(p.ShiftTags))
	}

	entries := make([]model.Entry, 0, len(p.Names))
	ids := make(map[string]bool)
	ti := 0
	for i, name := range p.Names {
		if name == SeparatorName {
			entries = append(entries, model.Separator)
			continue
		}
		t := decodeName(name)
		t.ID = p.IDs[i]
		if t.ID == "" {
			id, err := model.NewTemplateID(time.Now(), t.Name)
			if err != nil {
				return nil, err
			}
			t.ID = id
		}
		if ids[t.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", errInconsistent, t.ID)
		}
		ids[t.ID] = true

		t.Tags = p.Tags[ti].Clone()
		if p.CtrlTags != nil {
			t.CtrlTags = p.CtrlTags[ti].Clone()
		}
		if p.ShiftTags != nil {
			t.ShiftTags = p.ShiftTags[ti].Clone()
		}
		ti++
		entries = append(entries, t)
	}
	return entries, nil
}

func encodeName(t *model.Template, occurrence int) string {
	flags := t.Flags()
	tokens := make([]string, len(flags))
	for i, f := range flags {
		tokens[i] = strconv.FormatBool(f)
	}

	var b strings.Builder
	b.WriteString(strings.Join(tokens, ","))
	b.WriteString(markFlags)
	b.WriteString(t.Name)
	if occurrence > 1 {
		b.WriteString(markDedupe)
		b.WriteString(strconv.Itoa(occurrence))
	}
	if t.IconRef != "" {
		b.WriteString(markIcon)
		b.WriteString(t.IconRef)
	}
	return b.String()
}

// decodeName parses an encoded name. Flag tokens that do not parse are
// false; a name without #F# carries no flags at all.
func decodeName(encoded string) *model.Template {
	t := &model.Template{}

	rest := encoded
	if flags, after, ok := strings.Cut(encoded, markFlags); ok {
		var f [4]bool
		for i, tok := range strings.Split(flags, ",") {
			if i >= len(f) {
				break
			}
			f[i], _ = strconv.ParseBool(strings.TrimSpace(tok))
		}
		t.SetFlags(f)
		rest = after
	}
	if name, icon, ok := strings.Cut(rest, markIcon); ok {
		t.IconRef = icon
		rest = name
	}
	if name, _, ok := strings.Cut(rest, markDedupe); ok {
		rest = name
	}
	t.Name = rest
	return t
}

// StripReserved removes the encoding markers from s.
func StripReserved(s string) string {
	for {
		before := s
		for _, m := range reserved {
			s = strings.ReplaceAll(s, m, "")
		}
		if s == before {
			return s
		}
	}
}
