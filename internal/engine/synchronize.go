package engine

import "github.com/roach88/tagstamp/internal/model"

// SyncOptions carries the modifier and policy state for one synchronization.
type SyncOptions struct {
	Ctrl  bool
	Shift bool

	// DeactivateIfIncompatible and EditMode together enable the bootstrap
	// allowance for freshly created untagged points.
	DeactivateIfIncompatible bool
	EditMode                 bool
}

// SyncResult is the outcome of Synchronize.
type SyncResult struct {
	Mutations  []model.Mutation
	Applicable bool
}

// Synchronize computes the mutations that bring target in line with t.
//
// Base tags are set first, in insertion order. The modifier pass follows:
// ctrl applies CtrlTags and retracts ShiftTags, shift does the opposite, and
// each key receives at most one modifier mutation. CtrlTags are processed
// first, so a key in both extension maps is decided by its ctrl entry.
// An incompatible template never yields mutations.
func Synchronize(t *model.Template, target model.Target, opts SyncOptions) SyncResult {
	applicable := opts.DeactivateIfIncompatible && opts.EditMode &&
		target.Geometry == model.Point && len(target.Tags) == 0

	if !IsCompatible(t, target) {
		return SyncResult{Applicable: applicable}
	}

	var mutations []model.Mutation
	for _, tag := range t.Tags.Tags() {
		if !hasValue(target.Tags, tag.Key, tag.Value) {
			mutations = append(mutations, model.Set(tag.Key, tag.Value))
		}
	}

	staged := make(map[string]bool)
	for _, tag := range t.CtrlTags.Tags() {
		switch {
		case opts.Ctrl && !opts.Shift && !hasValue(target.Tags, tag.Key, tag.Value):
			mutations = append(mutations, model.Set(tag.Key, tag.Value))
			staged[tag.Key] = true
		case opts.Shift && hasValue(target.Tags, tag.Key, tag.Value):
			mutations = append(mutations, model.Remove(tag.Key))
			staged[tag.Key] = true
		}
	}
	for _, tag := range t.ShiftTags.Tags() {
		if staged[tag.Key] {
			continue
		}
		switch {
		case opts.Shift && !opts.Ctrl && !hasValue(target.Tags, tag.Key, tag.Value):
			mutations = append(mutations, model.Set(tag.Key, tag.Value))
			staged[tag.Key] = true
		case opts.Ctrl && hasValue(target.Tags, tag.Key, tag.Value):
			mutations = append(mutations, model.Remove(tag.Key))
			staged[tag.Key] = true
		}
	}

	return SyncResult{Mutations: mutations, Applicable: true}
}

func hasValue(tags map[string]string, key, value string) bool {
	v, ok := tags[key]
	return ok && v == value
}
