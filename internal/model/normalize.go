package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and applies Unicode NFC, so
// visually identical keys typed on different platforms compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeTags returns a normalized copy of tags. Keys that collapse onto
// the same normalized form keep the first position and the last value.
func NormalizeTags(tags TagMap) (TagMap, error) {
	var out TagMap
	for _, t := range tags.tags {
		key := NormalizeText(t.Key)
		if key == "" {
			return TagMap{}, fmt.Errorf("%w (value %q)", ErrEmptyKey, t.Value)
		}
		out.Set(key, NormalizeText(t.Value))
	}
	return out, nil
}

// ParseTag splits "key=value". A missing "=" yields an empty value.
func ParseTag(s string) (Tag, error) {
	key, value, _ := strings.Cut(s, "=")
	key = NormalizeText(key)
	if key == "" {
		return Tag{}, fmt.Errorf("parse tag %q: %w", s, ErrEmptyKey)
	}
	return Tag{Key: key, Value: NormalizeText(value)}, nil
}
