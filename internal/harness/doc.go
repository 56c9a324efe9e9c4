// Package harness runs scripted auto-apply scenarios against the real
// engine and records what the host would have seen.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: arm_and_apply
//	description: "Single click arms; the next selection is tagged"
//	config:
//	  autoapply.countdown_seconds: "10"
//	catalog:                      # optional; the built-in set otherwise
//	  - id: bench
//	    name: Bench
//	    tags: {amenity: bench}
//	steps:
//	  - click: {template: bench, count: 1}
//	  - select:
//	      features:
//	        - {id: n1, geometry: point, tags: {}}
//	  - advance: 2s
//	assertions:
//	  - type: state
//	    armed: true
//	  - type: feature_tags
//	    feature: n1
//	    tags: {amenity: bench}
//
// Each step holds exactly one action. Steps are fed to the engine in order
// and the queue is drained after every step, so the trace is deterministic.
//
// # Steps
//
//   - select: a selection snapshot. Features listed by ids reuse the tags
//     the harness tracked for them so far.
//   - modifiers: "ctrl", "shift+alt", "none", ...
//   - click: a resolved gesture (count 1..5) or a raw click (count 0)
//   - select_template, toggle, deactivate, dataset_changed
//   - advance: moves the fake clock and ticks once per tick interval
//   - set: writes preferences; autoapply.* keys reload the policy
//   - fail_next_apply: the next Apply on the host fails
//
// # Assertion Types
//
//   - state: the final armed flag, template, suppression and remaining time
//   - trace_count: how often an event kind was recorded
//   - trace_contains: an event with the given kind and fields was recorded
//   - trace_order: event kinds appear in this relative order
//   - feature_tags: the tags a feature ended up with
//
// # Trace
//
// The trace lists transitions, applies, deselects, creates and copies with
// the index of the step that caused them. RunWithGolden compares its
// canonical JSON form against testdata/golden/<name>.golden.
package harness
