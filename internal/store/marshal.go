package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/tagstamp/internal/model"
)

// Kind is the type of a stored preference.
type Kind string

const (
	KindScalar Kind = "scalar"
	KindList   Kind = "list"
	KindMaps   Kind = "maps"
)

// ErrKindMismatch is returned when a key is read with an accessor for a
// different kind than the one it was written with.
var ErrKindMismatch = errors.New("preference kind mismatch")

// marshalScalar encodes a scalar as canonical JSON TEXT.
func marshalScalar(value string) (string, error) {
	data, err := model.MarshalCanonical(value)
	if err != nil {
		return "", fmt.Errorf("marshal scalar: %w", err)
	}
	return string(data), nil
}

// marshalList encodes a string list as canonical JSON TEXT.
// A nil list is stored as [].
func marshalList(values []string) (string, error) {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	data, err := model.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

// marshalMaps encodes ordered tag maps as a JSON array of objects.
// TagMap.MarshalJSON keeps insertion order, which canonical form would sort
// away, so the array is assembled from each map's own encoding.
func marshalMaps(maps []model.TagMap) (string, error) {
	raw := make([]json.RawMessage, len(maps))
	for i, m := range maps {
		data, err := json.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("marshal maps[%d]: %w", i, err)
		}
		raw[i] = data
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("marshal maps: %w", err)
	}
	return string(data), nil
}

func unmarshalScalar(data string) (string, error) {
	var v string
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return "", fmt.Errorf("unmarshal scalar: %w", err)
	}
	return v, nil
}

// unmarshalList returns an empty (non-nil) slice for an empty list.
func unmarshalList(data string) ([]string, error) {
	v := []string{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return v, nil
}

func unmarshalMaps(data string) ([]model.TagMap, error) {
	v := []model.TagMap{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("unmarshal maps: %w", err)
	}
	return v, nil
}
