package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tagstamp/internal/model"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot for model.MarshalCanonical, which
// only handles maps, slices and primitives. Empty fields are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, e := range s.Trace {
		m := map[string]any{
			"step": e.Step,
			"kind": e.Kind,
		}
		for k, v := range map[string]string{
			"from":     e.From,
			"to":       e.To,
			"reason":   e.Reason,
			"geometry": e.Geometry,
			"text":     e.Text,
		} {
			if v != "" {
				m[k] = v
			}
		}
		if e.Suppress {
			m["suppress_auto_off"] = true
		}
		if len(e.Groups) > 0 {
			groups := make([]any, len(e.Groups))
			for j, g := range e.Groups {
				muts := make([]any, len(g.Mutations))
				for k, mut := range g.Mutations {
					muts[k] = mut.String()
				}
				groups[j] = map[string]any{"feature_id": g.FeatureID, "mutations": muts}
			}
			m["groups"] = groups
		}
		if e.Tags != nil {
			m["tags"] = e.Tags
		}
		traceList[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// Canonical returns the canonical JSON of a result's trace.
func Canonical(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return model.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Canonical(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
