package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// Scenario is a scripted interaction with the engine.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config holds preference values written before the engine starts.
	Config map[string]string `yaml:"config,omitempty"`

	// Catalog replaces the built-in templates when set.
	Catalog []catalog.DocumentEntry `yaml:"catalog,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	Select         *SelectStep       `yaml:"select,omitempty"`
	Modifiers      *string           `yaml:"modifiers,omitempty"`
	Click          *ClickStep        `yaml:"click,omitempty"`
	SelectTemplate string            `yaml:"select_template,omitempty"`
	Toggle         bool              `yaml:"toggle,omitempty"`
	Deactivate     bool              `yaml:"deactivate,omitempty"`
	DatasetChanged bool              `yaml:"dataset_changed,omitempty"`
	Advance        time.Duration     `yaml:"advance,omitempty"`
	Set            map[string]string `yaml:"set,omitempty"`
	FailNextApply  bool              `yaml:"fail_next_apply,omitempty"`
}

// SelectStep is a selection snapshot.
type SelectStep struct {
	// Features are new or redefined features.
	Features []FeatureSpec `yaml:"features,omitempty"`

	// IDs reselects features the harness already knows.
	IDs []string `yaml:"ids,omitempty"`

	Editing bool `yaml:"editing,omitempty"`
	Drawing bool `yaml:"drawing,omitempty"`
}

// FeatureSpec declares a host feature.
type FeatureSpec struct {
	ID       string            `yaml:"id"`
	Geometry model.Geometry    `yaml:"geometry"`
	Tags     map[string]string `yaml:"tags"`
}

// ClickStep clicks a template. Count 0 is a raw click that goes through the
// debouncer.
type ClickStep struct {
	Template string `yaml:"template"`
	Count    int    `yaml:"count"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the trace event kind (trace_count, trace_contains).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Fields are matched against the event (trace_contains). Keys are the
	// trace JSON field names.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Kinds is the expected relative order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Armed, Template, Suppress and RemainingMs check the final state.
	Armed       *bool   `yaml:"armed,omitempty"`
	Template    *string `yaml:"template,omitempty"`
	Suppress    *bool   `yaml:"suppress_auto_off,omitempty"`
	RemainingMs *int64  `yaml:"remaining_ms,omitempty"`

	// Feature and Tags check a feature's final tags (feature_tags).
	Feature string            `yaml:"feature,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty"`
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertTraceCount    = "trace_count"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertFeatureTags   = "feature_tags"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("steps[%d]: exactly one action is required, got %d", i, n)
		}
		if step.Click != nil {
			if step.Click.Template == "" {
				return fmt.Errorf("steps[%d].click: template is required", i)
			}
			if step.Click.Count < 0 || step.Click.Count > engine.MaxClicks {
				return fmt.Errorf("steps[%d].click: count must be 0..%d", i, engine.MaxClicks)
			}
		}
		if step.Modifiers != nil {
			if _, err := model.ParseModifiers(*step.Modifiers); err != nil {
				return fmt.Errorf("steps[%d].modifiers: %w", i, err)
			}
		}
		if step.Select != nil {
			for j, f := range step.Select.Features {
				if f.ID == "" {
					return fmt.Errorf("steps[%d].select.features[%d]: id is required", i, j)
				}
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// actions counts the actions set on a step.
func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Select != nil,
		s.Modifiers != nil,
		s.Click != nil,
		s.SelectTemplate != "",
		s.Toggle,
		s.Deactivate,
		s.DatasetChanged,
		s.Advance > 0,
		len(s.Set) > 0,
		s.FailNextApply,
	} {
		if set {
			n++
		}
	}
	return n
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertState:
		if a.Armed == nil && a.Template == nil && a.Suppress == nil && a.RemainingMs == nil {
			return fmt.Errorf("assertions[%d]: state needs at least one of armed, template, suppress_auto_off, remaining_ms", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: trace_count requires kind", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: trace_count count must be non-negative", index)
		}
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: trace_contains requires kind", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order requires at least 2 kinds", index)
		}
	case AssertFeatureTags:
		if a.Feature == "" {
			return fmt.Errorf("assertions[%d]: feature_tags requires feature", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	if a.Kind != "" && !validKind(a.Kind) {
		return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Kind)
	}
	for _, k := range a.Kinds {
		if !validKind(k) {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, k)
		}
	}
	return nil
}
