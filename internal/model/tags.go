package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tag is a single key/value pair.
type Tag struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// TagMap is an insertion-ordered string map.
//
// The zero value is an empty map ready to use. Setting an existing key
// updates the value in place and keeps the key's original position.
// Tag sets are small (a handful of keys), so lookups are linear.
type TagMap struct {
	tags []Tag
}

// NewTagMap builds a TagMap from alternating key/value arguments.
// Panics on an odd number of arguments; intended for literals and tests.
func NewTagMap(kv ...string) TagMap {
	if len(kv)%2 != 0 {
		panic("model.NewTagMap: odd number of arguments")
	}
	var m TagMap
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

// TagMapOf builds a TagMap from tags in order. Later duplicates overwrite
// earlier values without moving them.
func TagMapOf(tags []Tag) TagMap {
	var m TagMap
	for _, t := range tags {
		m.Set(t.Key, t.Value)
	}
	return m
}

func (m TagMap) index(key string) int {
	for i, t := range m.tags {
		if t.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (m TagMap) Get(key string) (string, bool) {
	if i := m.index(key); i >= 0 {
		return m.tags[i].Value, true
	}
	return "", false
}

// Has reports whether key is present.
func (m TagMap) Has(key string) bool {
	return m.index(key) >= 0
}

// Set stores value under key.
func (m *TagMap) Set(key, value string) {
	if i := m.index(key); i >= 0 {
		m.tags[i].Value = value
		return
	}
	m.tags = append(m.tags, Tag{Key: key, Value: value})
}

// Delete removes key, preserving the order of the remaining entries.
func (m *TagMap) Delete(key string) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.tags = append(m.tags[:i:i], m.tags[i+1:]...)
	return true
}

// Len returns the number of entries.
func (m TagMap) Len() int {
	return len(m.tags)
}

// IsZero reports whether the map is empty. yaml.v3 consults it for
// omitempty.
func (m TagMap) IsZero() bool {
	return len(m.tags) == 0
}

// Tags returns a copy of the entries in insertion order.
func (m TagMap) Tags() []Tag {
	out := make([]Tag, len(m.tags))
	copy(out, m.tags)
	return out
}

// Keys returns the keys in insertion order.
func (m TagMap) Keys() []string {
	keys := make([]string, len(m.tags))
	for i, t := range m.tags {
		keys[i] = t.Key
	}
	return keys
}

// Clone returns an independent copy.
func (m TagMap) Clone() TagMap {
	return TagMap{tags: m.Tags()}
}

// Map converts to an unordered Go map.
func (m TagMap) Map() map[string]string {
	out := make(map[string]string, len(m.tags))
	for _, t := range m.tags {
		out[t.Key] = t.Value
	}
	return out
}

// Equal reports whether both maps hold the same entries in the same order.
func (m TagMap) Equal(other TagMap) bool {
	if len(m.tags) != len(other.tags) {
		return false
	}
	for i := range m.tags {
		if m.tags[i] != other.tags[i] {
			return false
		}
	}
	return true
}

// String renders the map as k=v pairs, e.g. "amenity=bench backrest=yes".
func (m TagMap) String() string {
	var buf bytes.Buffer
	for i, t := range m.tags {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(t.Key)
		buf.WriteByte('=')
		buf.WriteString(t.Value)
	}
	return buf.String()
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m TagMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range m.tags {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(t.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(t.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (m *TagMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("tag map: %w", err)
	}
	if tok == nil {
		*m = TagMap{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tag map: expected object, got %v", tok)
	}
	var out TagMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("tag map: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("tag map: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("tag map: value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("tag map: %w", err)
	}
	*m = out
	return nil
}

// MarshalYAML encodes the map as a YAML mapping in insertion order.
func (m TagMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, t := range m.tags {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.Value},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping the document's key order.
func (m *TagMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*m = TagMap{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("tag map: line %d: expected mapping", node.Line)
	}
	var out TagMap
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("tag map: line %d: value for %q must be a scalar", v.Line, k.Value)
		}
		out.Set(k.Value, v.Value)
	}
	*m = out
	return nil
}
