package model

import (
	"fmt"
	"strings"
)

// Geometry is the shape of a map feature.
type Geometry int

const (
	Point Geometry = iota
	OpenPath
	ClosedPath
)

func (g Geometry) String() string {
	switch g {
	case Point:
		return "point"
	case OpenPath:
		return "open_path"
	case ClosedPath:
		return "closed_path"
	default:
		return fmt.Sprintf("geometry(%d)", int(g))
	}
}

// ParseGeometry accepts the String forms plus the OSM aliases node, way and
// area.
func ParseGeometry(s string) (Geometry, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "node":
		return Point, nil
	case "open_path", "open", "way", "line":
		return OpenPath, nil
	case "closed_path", "closed", "area", "polygon":
		return ClosedPath, nil
	}
	return Point, fmt.Errorf("unknown geometry %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Geometry) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Geometry) UnmarshalText(b []byte) error {
	parsed, err := ParseGeometry(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Target is the feature a template may be applied to.
type Target struct {
	Geometry Geometry          `json:"geometry"`
	Tags     map[string]string `json:"tags"`
}

// Feature is a Target with the host's identifier.
type Feature struct {
	ID string `json:"id"`
	Target
}

// Selection is a snapshot of the host's active-layer selection.
type Selection struct {
	Features []Feature `json:"features"`

	// Editing is set while the host is in a feature-creation mode; newly
	// created untagged points are then eligible for the bootstrap allowance.
	Editing bool `json:"editing"`

	// Drawing suppresses clearing the selection after tagging.
	Drawing bool `json:"drawing"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.Features) == 0
}

// Modifiers is the current modifier-key state.
type Modifiers struct {
	Ctrl  bool `json:"ctrl"`
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
}

// Contains reports whether every key held in want is also held in m.
func (m Modifiers) Contains(want Modifiers) bool {
	if want == (Modifiers{}) {
		return false
	}
	return (!want.Ctrl || m.Ctrl) && (!want.Shift || m.Shift) && (!want.Alt || m.Alt)
}

func (m Modifiers) String() string {
	var parts []string
	if m.Ctrl {
		parts = append(parts, "ctrl")
	}
	if m.Shift {
		parts = append(parts, "shift")
	}
	if m.Alt {
		parts = append(parts, "alt")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// ParseModifiers parses "ctrl+shift" style combinations. "none" and the
// empty string yield no modifiers.
func ParseModifiers(s string) (Modifiers, error) {
	var m Modifiers
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return m, nil
	}
	for _, part := range strings.Split(s, "+") {
		switch strings.TrimSpace(part) {
		case "ctrl", "control":
			m.Ctrl = true
		case "shift":
			m.Shift = true
		case "alt", "option":
			m.Alt = true
		default:
			return Modifiers{}, fmt.Errorf("unknown modifier %q", part)
		}
	}
	return m, nil
}

// Icon is a resolved template icon. Data is opaque to the core.
type Icon struct {
	Ref         string
	ContentType string
	Data        []byte
}
