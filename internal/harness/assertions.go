package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s\n", i+1, event.Step, event.summary())
		}
	}
	return buf.String()
}

// summary is a one-line description used in failure output.
func (e TraceEvent) summary() string {
	switch e.Kind {
	case KindTransition:
		return fmt.Sprintf("transition %s->%s (%s)", e.From, e.To, e.Reason)
	case KindApply:
		parts := make([]string, 0, len(e.Groups))
		for _, g := range e.Groups {
			muts := make([]string, 0, len(g.Mutations))
			for _, m := range g.Mutations {
				muts = append(muts, m.String())
			}
			parts = append(parts, g.FeatureID+"["+strings.Join(muts, " ")+"]")
		}
		return "apply " + strings.Join(parts, " ")
	case KindCreate:
		return fmt.Sprintf("create %s %v", e.Geometry, e.Tags)
	case KindCopy:
		return fmt.Sprintf("copy (%d bytes)", len(e.Text))
	}
	return e.Kind
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty slice means all passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertState:
		return assertState(result, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertFeatureTags:
		return assertFeatureTags(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertState(result *Result, a Assertion) error {
	s := result.State
	var diffs []string
	if a.Armed != nil && *a.Armed != s.Armed {
		diffs = append(diffs, fmt.Sprintf("armed=%t (want %t)", s.Armed, *a.Armed))
	}
	if a.Template != nil && *a.Template != s.TemplateID {
		diffs = append(diffs, fmt.Sprintf("template=%q (want %q)", s.TemplateID, *a.Template))
	}
	if a.Suppress != nil && *a.Suppress != s.SuppressAutoOff {
		diffs = append(diffs, fmt.Sprintf("suppress_auto_off=%t (want %t)", s.SuppressAutoOff, *a.Suppress))
	}
	if a.RemainingMs != nil && *a.RemainingMs != s.RemainingMs {
		diffs = append(diffs, fmt.Sprintf("remaining_ms=%d (want %d)", s.RemainingMs, *a.RemainingMs))
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertState,
		Expected: "final state to match",
		Actual:   strings.Join(diffs, ", "),
		Trace:    result.Trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, e := range trace {
		if e.Kind == a.Kind {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s to appear %d times", a.Kind, a.Count),
		Actual:   fmt.Sprintf("appeared %d times", count),
		Trace:    trace,
	}
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, e := range trace {
		if e.Kind == a.Kind && e.matches(a.Fields) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with %s", a.Kind, formatFields(a.Fields)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of the kinds appear in
// the given order. Other events may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, e := range trace {
		if _, seen := positions[e.Kind]; !seen {
			positions[e.Kind] = i
		}
	}

	for _, k := range a.Kinds {
		if _, ok := positions[k]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all kinds present: %v", a.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", k),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Kinds); i++ {
		prev, curr := a.Kinds[i-1], a.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev]+1, curr, positions[curr]+1),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertFeatureTags(result *Result, a Assertion) error {
	got, ok := result.Features[a.Feature]
	if !ok {
		return &AssertionError{
			Type:     AssertFeatureTags,
			Expected: fmt.Sprintf("feature %s", a.Feature),
			Actual:   "feature was never selected",
		}
	}
	if diff := cmp.Diff(a.Tags, got, cmpopts.EquateEmpty()); diff != "" {
		return &AssertionError{
			Type:     AssertFeatureTags,
			Expected: fmt.Sprintf("feature %s tags %v", a.Feature, a.Tags),
			Actual:   "diff (-want +got):\n" + diff,
			Trace:    result.Trace,
		}
	}
	return nil
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return "any fields"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + fields[k]
	}
	return strings.Join(parts, " ")
}
