package harness

import (
	"strconv"

	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// Trace event kinds.
const (
	KindTransition = "transition"
	KindApply      = "apply"
	KindClear      = "clear"
	KindCreate     = "create"
	KindCopy       = "copy"
)

func validKind(k string) bool {
	switch k {
	case KindTransition, KindApply, KindClear, KindCreate, KindCopy:
		return true
	}
	return false
}

// TraceEvent is one thing the host observed. Step is the index of the
// scenario step that caused it.
type TraceEvent struct {
	Step int    `json:"step"`
	Kind string `json:"kind"`

	// transition
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Suppress bool   `json:"suppress_auto_off,omitempty"`

	// apply
	Groups []model.MutationGroup `json:"groups,omitempty"`

	// create
	Geometry string            `json:"geometry,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`

	// copy
	Text string `json:"text,omitempty"`
}

// matches reports whether every field in want has the given value. Group
// fields match when any feature or mutation does.
func (e TraceEvent) matches(want map[string]string) bool {
	for field, value := range want {
		var ok bool
		switch field {
		case "from":
			ok = e.From == value
		case "to":
			ok = e.To == value
		case "reason":
			ok = e.Reason == value
		case "suppress_auto_off":
			ok = strconv.FormatBool(e.Suppress) == value
		case "geometry":
			ok = e.Geometry == value
		case "text":
			ok = e.Text == value
		case "feature":
			ok = e.hasFeature(value)
		case "mutation":
			ok = e.hasMutation(value)
		}
		if !ok {
			return false
		}
	}
	return true
}

func (e TraceEvent) hasFeature(id string) bool {
	for _, g := range e.Groups {
		if g.FeatureID == id {
			return true
		}
	}
	return false
}

func (e TraceEvent) hasMutation(m string) bool {
	for _, g := range e.Groups {
		for _, mut := range g.Mutations {
			if mut.String() == m {
				return true
			}
		}
	}
	return false
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// State is the engine state after the last step.
	State engine.State `json:"state"`

	// Features holds the final tags of every feature the scenario declared.
	Features map[string]map[string]string `json:"features"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Features: make(map[string]map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns how many events of kind were recorded.
func (r *Result) Count(kind string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
