package model

import "fmt"

// Mutation is a single tag change on a feature.
type Mutation struct {
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
	Remove bool   `json:"remove,omitempty"`
}

// Set returns a mutation assigning value to key.
func Set(key, value string) Mutation {
	return Mutation{Key: key, Value: value}
}

// Remove returns a mutation deleting key.
func Remove(key string) Mutation {
	return Mutation{Key: key, Remove: true}
}

func (m Mutation) String() string {
	if m.Remove {
		return fmt.Sprintf("-%s", m.Key)
	}
	return fmt.Sprintf("%s=%s", m.Key, m.Value)
}

// ApplyTo applies the mutations to a copy of tags and returns it.
func ApplyTo(tags map[string]string, mutations []Mutation) map[string]string {
	out := make(map[string]string, len(tags)+len(mutations))
	for k, v := range tags {
		out[k] = v
	}
	for _, m := range mutations {
		if m.Remove {
			delete(out, m.Key)
			continue
		}
		out[m.Key] = m.Value
	}
	return out
}

// MutationGroup holds the mutations for one feature within an atomic,
// undoable multi-tag update.
type MutationGroup struct {
	FeatureID string     `json:"feature_id"`
	Mutations []Mutation `json:"mutations"`
}
