package config

import (
	"fmt"
	"io"

	yamlv2 "gopkg.in/yaml.v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/extractor"
	"github.com/konveyor-labs/tornado/operator"
	"github.com/konveyor-labs/tornado/value"
)

// wireConfig is the on-disk shape shared by both the v1 and v2 serializations
// (spec §4.10); v2 additionally carries an ApiVersion marker the v1 decoder
// ignores.
type wireConfig struct {
	ApiVersion string    `yaml:"apiVersion,omitempty"`
	Root       wireFilter `yaml:"root"`
}

type wireNode struct {
	Filter   *wireFilter   `yaml:"filter,omitempty"`
	Iterator *wireIterator `yaml:"iterator,omitempty"`
	Ruleset  *wireRuleset  `yaml:"ruleset,omitempty"`
}

type wireFilter struct {
	Name   string        `yaml:"name"`
	Where  *wireOperator `yaml:"where,omitempty"`
	Active bool          `yaml:"active"`
	Labels []string      `yaml:"labels,omitempty"`
	Nodes  []wireNode    `yaml:"nodes,omitempty"`
}

type wireIterator struct {
	Name   string     `yaml:"name"`
	Target string     `yaml:"target"`
	Nodes  []wireNode `yaml:"nodes,omitempty"`
}

type wireRuleset struct {
	Name   string     `yaml:"name"`
	Labels []string   `yaml:"labels,omitempty"`
	Rules  []wireRule `yaml:"rules,omitempty"`
}

type wireRule struct {
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description,omitempty"`
	Active      bool                      `yaml:"active"`
	DoContinue  bool                      `yaml:"do_continue"`
	Labels      []string                  `yaml:"labels,omitempty"`
	Where       *wireOperator             `yaml:"where,omitempty"`
	With        map[string]wireExtractor  `yaml:"with,omitempty"`
	Actions     []wireAction              `yaml:"actions,omitempty"`
}

type wireOperator struct {
	Kind string `yaml:"kind"`

	Ops []wireOperator  `yaml:"ops,omitempty"`
	Op  *wireOperator   `yaml:"op,omitempty"`

	A        string `yaml:"a,omitempty"`
	B        string `yaml:"b,omitempty"`
	Haystack string `yaml:"haystack,omitempty"`
	Needle   string `yaml:"needle,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"`
	Target   string `yaml:"target,omitempty"`
}

type wireExtractor struct {
	From       string `yaml:"from"`
	Mode       string `yaml:"mode"` // "indexed" | "named"
	Pattern    string `yaml:"pattern"`
	GroupIdx   *int   `yaml:"group_idx,omitempty"`
	AllMatches bool   `yaml:"all_matches"`
}

type wireAction struct {
	ID      string                 `yaml:"id"`
	Payload map[string]interface{} `yaml:"payload"`
	Text    map[string]string      `yaml:"text,omitempty"`
}

// LoadError wraps a YAML decode or structural-conversion failure with the
// document section it occurred in.
type LoadError struct {
	Section string
	Err     error
}

func (e *LoadError) Error() string { return fmt.Sprintf("config: %s: %v", e.Section, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Load decodes the v1 (directory-implicit) serialization using yaml.v2, the
// same library the teacher uses for its own RuleSet/Violation YAML (spec
// §4.10).
func Load(r io.Reader) (*MatcherConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Section: "read", Err: err}
	}
	var w wireConfig
	if err := yamlv2.Unmarshal(data, &w); err != nil {
		return nil, &LoadError{Section: "yaml.v2 decode", Err: err}
	}
	return toMatcherConfig(w)
}

// LoadV2 decodes the v2 (directory-explicit, apiVersion-marked)
// serialization using yaml.v3 for its richer numeric/node fidelity, needed
// so number sub-tags (unsigned/signed/float) survive decoding into the
// Value model (spec §4.10).
func LoadV2(r io.Reader) (*MatcherConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Section: "read", Err: err}
	}
	var w wireConfig
	if err := yamlv3.Unmarshal(data, &w); err != nil {
		return nil, &LoadError{Section: "yaml.v3 decode", Err: err}
	}
	if w.ApiVersion == "" {
		return nil, &LoadError{Section: "apiVersion", Err: fmt.Errorf("v2 documents require an apiVersion marker")}
	}
	return toMatcherConfig(w)
}

func toMatcherConfig(w wireConfig) (*MatcherConfig, error) {
	root, err := toFilterNode(w.Root)
	if err != nil {
		return nil, err
	}
	return &MatcherConfig{Root: *root}, nil
}

func toNode(w wireNode) (Node, error) {
	switch {
	case w.Filter != nil:
		f, err := toFilterNode(*w.Filter)
		if err != nil {
			return Node{}, err
		}
		return Node{Filter: f}, nil
	case w.Iterator != nil:
		it, err := toIteratorNode(*w.Iterator)
		if err != nil {
			return Node{}, err
		}
		return Node{Iterator: it}, nil
	case w.Ruleset != nil:
		rs, err := toRulesetNode(*w.Ruleset)
		if err != nil {
			return Node{}, err
		}
		return Node{Ruleset: rs}, nil
	default:
		return Node{}, &LoadError{Section: "node", Err: fmt.Errorf("node has no filter, iterator or ruleset")}
	}
}

func toFilterNode(w wireFilter) (*FilterNode, error) {
	var filterNode *operator.Node
	if w.Where != nil {
		n := toOperatorNode(*w.Where)
		filterNode = &n
	}
	nodes := make([]Node, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		n, err := toNode(wn)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return &FilterNode{
		Name: w.Name, Filter: filterNode, Active: w.Active,
		Nodes: nodes, LabelList: w.Labels,
	}, nil
}

func toIteratorNode(w wireIterator) (*IteratorNode, error) {
	nodes := make([]Node, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		n, err := toNode(wn)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return &IteratorNode{Name: w.Name, Target: w.Target, Nodes: nodes}, nil
}

func toRulesetNode(w wireRuleset) (*RulesetNode, error) {
	rules := make([]RuleNode, 0, len(w.Rules))
	for _, wr := range w.Rules {
		r, err := toRuleNode(wr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return &RulesetNode{Name: w.Name, Rules: rules, LabelList: w.Labels}, nil
}

func toRuleNode(w wireRule) (*RuleNode, error) {
	var where *operator.Node
	if w.Where != nil {
		n := toOperatorNode(*w.Where)
		where = &n
	}
	with := make(map[string]extractor.Spec, len(w.With))
	for name, we := range w.With {
		mode := extractor.Indexed
		if we.Mode == "named" {
			mode = extractor.Named
		}
		with[name] = extractor.Spec{
			VarName: name, From: we.From, Mode: mode,
			Pattern: we.Pattern, GroupIdx: we.GroupIdx, AllMatches: we.AllMatches,
		}
	}
	actions := make([]action.RawTemplate, 0, len(w.Actions))
	for _, wa := range w.Actions {
		actions = append(actions, action.RawTemplate{
			ID:      wa.ID,
			Payload: value.FromAny(wa.Payload),
			Text:    wa.Text,
		})
	}
	return &RuleNode{
		Name: w.Name, Description: w.Description, Active: w.Active, DoContinue: w.DoContinue,
		Where: where, With: with, Actions: actions, LabelList: w.Labels,
	}, nil
}

func toOperatorNode(w wireOperator) operator.Node {
	n := operator.Node{
		Kind: w.Kind, A: w.A, B: w.B, Haystack: w.Haystack, Needle: w.Needle,
		Pattern: w.Pattern, Target: w.Target,
	}
	for _, op := range w.Ops {
		n.Ops = append(n.Ops, toOperatorNode(op))
	}
	if w.Op != nil {
		sub := toOperatorNode(*w.Op)
		n.Op = &sub
	}
	return n
}
