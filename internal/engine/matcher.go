package engine

import "github.com/roach88/tagstamp/internal/model"

// IsCompatible reports whether t may be applied to target.
//
// Two gates must both pass. The geometry gate checks the template's
// way/area/node flags against the target's geometry. The tag gate only
// applies to OnlyForUntagged templates: the target must be untagged, or
// carry exactly the base tags, optionally completed by exactly one of the
// ctrl or shift extension sets.
//
// IsCompatible is pure; the same inputs always produce the same result.
func IsCompatible(t *model.Template, target model.Target) bool {
	if t == nil {
		return false
	}
	return geometryAllowed(t, target.Geometry) && tagsAllowed(t, target.Tags)
}

func geometryAllowed(t *model.Template, g model.Geometry) bool {
	switch g {
	case model.OpenPath:
		return t.ForWays
	case model.ClosedPath:
		return t.ForClosedWays
	case model.Point:
		return !t.NotForNodes
	}
	return false
}

func tagsAllowed(t *model.Template, tags map[string]string) bool {
	if !t.OnlyForUntagged {
		return true
	}
	return onlyMatchingTags(t, tags)
}

// onlyMatchingTags accepts an untagged target, or one whose tags are the
// template's base tags plus, at most, one complete extension set. Anything
// ambiguous is rejected.
func onlyMatchingTags(t *model.Template, tags map[string]string) bool {
	n := len(tags)
	if n == 0 {
		return true
	}

	base, ctrl, shift := t.Tags.Len(), t.CtrlTags.Len(), t.ShiftTags.Len()
	if n != base && n != base+ctrl && n != base+shift {
		return false
	}

	if present(t.Tags, tags) != base {
		return false
	}
	if n == base {
		return true
	}

	ctrlHits := present(t.CtrlTags, tags)
	shiftHits := present(t.ShiftTags, tags)
	ctrlAny, ctrlComplete := ctrlHits > 0, ctrlHits == ctrl
	shiftAny, shiftComplete := shiftHits > 0, shiftHits == shift

	switch {
	case ctrlComplete && !shiftAny && n == base+ctrl:
		return true
	case shiftComplete && !ctrlAny && n == base+shift:
		return true
	}
	return false
}

// present counts the entries of want found in tags with an identical value.
func present(want model.TagMap, tags map[string]string) int {
	hits := 0
	for _, tag := range want.Tags() {
		if v, ok := tags[tag.Key]; ok && v == tag.Value {
			hits++
		}
	}
	return hits
}
