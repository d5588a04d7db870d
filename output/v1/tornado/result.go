// Package tornado defines the on-disk result shape a CLI run writes: a
// plain-data mirror of matcher.ProcessedEvent, sorted into a canonical
// order so repeated runs over the same input diff cleanly.
package tornado

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Result is the per-event outcome of a matcher run, ready for yaml/json
// encoding without pulling in value.Value's internal tagging.
type Result struct {
	TraceID string       `yaml:"trace_id" json:"trace_id"`
	Root    FilterResult `yaml:"root" json:"root"`
}

// FilterResult mirrors matcher.ProcessedFilter.
type FilterResult struct {
	Name     string       `yaml:"name" json:"name"`
	Status   string       `yaml:"status" json:"status"`
	Children []NodeResult `yaml:"children,omitempty" json:"children,omitempty"`
}

// NodeResult mirrors matcher.ProcessedNode: exactly one field is non-nil.
type NodeResult struct {
	Filter   *FilterResult   `yaml:"filter,omitempty" json:"filter,omitempty"`
	Iterator *IteratorResult `yaml:"iterator,omitempty" json:"iterator,omitempty"`
	Ruleset  *RulesetResult  `yaml:"ruleset,omitempty" json:"ruleset,omitempty"`
}

// IteratorResult mirrors matcher.ProcessedIterator.
type IteratorResult struct {
	Name     string                   `yaml:"name" json:"name"`
	Elements []IteratorElementResult `yaml:"elements,omitempty" json:"elements,omitempty"`
}

// IteratorElementResult mirrors matcher.ProcessedIteratorElement.
type IteratorElementResult struct {
	Index    int          `yaml:"index" json:"index"`
	Children []NodeResult `yaml:"children,omitempty" json:"children,omitempty"`
}

// RulesetResult mirrors matcher.ProcessedRuleset.
type RulesetResult struct {
	Name  string                    `yaml:"name" json:"name"`
	Rules []RuleResult              `yaml:"rules,omitempty" json:"rules,omitempty"`
	Vars  map[string]map[string]any `yaml:"vars,omitempty" json:"vars,omitempty"`
}

// RuleResult mirrors matcher.ProcessedRule.
type RuleResult struct {
	Name    string         `yaml:"name" json:"name"`
	Status  string         `yaml:"status" json:"status"`
	Error   string         `yaml:"error,omitempty" json:"error,omitempty"`
	Actions []ActionResult `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// ActionResult mirrors action.Resolved.
type ActionResult struct {
	ID      string          `yaml:"id" json:"id"`
	Payload any             `yaml:"payload" json:"payload"`
	Dynamic map[string]bool `yaml:"dynamic,omitempty" json:"dynamic,omitempty"`
}

// sortFields orders a RulesetResult's rules by name so that output from a
// concurrently-evaluated graph (spec §5) is still diff-stable; rule
// evaluation order within one ruleset is already deterministic, but a
// ruleset can be reached through concurrently-evaluated sibling filters, so
// results are re-sorted here rather than relying on arrival order.
func (r *RulesetResult) sortFields() {
	sort.SliceStable(r.Rules, func(i, j int) bool {
		return r.Rules[i].Name < r.Rules[j].Name
	})
}

func (r RulesetResult) MarshalYAML() (interface{}, error) {
	r.sortFields()
	return r, nil
}

// MarshalJSON round-trips through yaml.Marshal rather than calling
// json.Marshal(r) directly, which would recurse into this same method
// (mirrors the teacher's RuleSet.MarshalJSON in output/v1/konveyor).
func (r RulesetResult) MarshalJSON() ([]byte, error) {
	r.sortFields()
	b, err := yaml.Marshal(r)
	if err != nil {
		return nil, err
	}
	// yaml.v3 decodes nested mappings as map[string]any, which json.Marshal
	// accepts; yaml.v2 would yield map[interface{}]interface{}.
	m := map[string]any{}
	if err := yamlv3.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
