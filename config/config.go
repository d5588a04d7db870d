// Package config defines Tornado's declarative configuration tree
// (MatcherConfig, spec §3) and its structural validator (spec §4.7 step 1).
// Node bodies (Operator, Extractor, Action templates) are carried as
// uncompiled strings/specs here; compilation into executable form happens
// in the operator/extractor/action/matcher packages.
package config

import (
	"fmt"
	"regexp"

	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/extractor"
	"github.com/konveyor-labs/tornado/operator"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Node is the recursive MatcherConfig sum (spec §3): exactly one of Filter,
// Iterator or Ruleset is non-nil, mirroring the teacher's Rule{*ImportRule}
// embed-by-pointer pattern but made explicit since the three node kinds
// don't share a method set.
type Node struct {
	Filter   *FilterNode
	Iterator *IteratorNode
	Ruleset  *RulesetNode
}

// Name returns whichever node kind is populated; used by the validator and
// by error messages that need a dotted path.
func (n Node) Name() string {
	switch {
	case n.Filter != nil:
		return n.Filter.Name
	case n.Iterator != nil:
		return n.Iterator.Name
	case n.Ruleset != nil:
		return n.Ruleset.Name
	default:
		return ""
	}
}

// FilterNode gates descent into its children on an operator predicate.
type FilterNode struct {
	Name   string
	Filter *operator.Node // nil means "always matches" (spec's Operator|Default)
	Active bool
	Nodes  []Node
	LabelList []string
}

func (f *FilterNode) Labels() []string { return f.LabelList }

// IteratorNode resolves Target to a sequence and recurses into Nodes once
// per element, binding the element to an iterator-local ignored namespace
// (spec §4.7).
type IteratorNode struct {
	Name   string
	Target string
	Nodes  []Node
}

// RulesetNode evaluates Rules in declaration order against a shared
// per-ruleset ExtractedVars scope. A ruleset has no children (spec §3).
type RulesetNode struct {
	Name      string
	Rules     []RuleNode
	LabelList []string
}

func (r *RulesetNode) Labels() []string { return r.LabelList }

// RuleNode is one rule within a ruleset (spec §3).
type RuleNode struct {
	Name        string
	Description string
	Active      bool
	DoContinue  bool
	Where       *operator.Node
	With        map[string]extractor.Spec
	Actions     []action.RawTemplate
	LabelList   []string
}

func (r *RuleNode) Labels() []string { return r.LabelList }

// MatcherConfig is the root of a compiled-from-YAML configuration tree.
// The root node is always a Filter named "root" (spec §3).
type MatcherConfig struct {
	Root FilterNode
}

// ValidationError reports a structural violation caught before compilation
// (spec §4.7 step 1 / §7's configuration-error class), carrying a dotted
// path to the offending node.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Path, e.Reason)
}

// Validate checks every structural invariant from spec §3: name grammar,
// sibling-name uniqueness, no children under a ruleset, no iterator nested
// inside another iterator, and a root filter literally named "root".
func Validate(cfg *MatcherConfig) error {
	if cfg.Root.Name != "root" {
		return &ValidationError{Path: "root", Reason: "root node must be a filter named \"root\""}
	}
	return validateFilter(&cfg.Root, "root", false)
}

func validateName(path, name string) error {
	if !nameRe.MatchString(name) {
		return &ValidationError{Path: path, Reason: fmt.Sprintf("name %q does not match [A-Za-z0-9_]+", name)}
	}
	return nil
}

func validateSiblingUniqueness(path string, nodes []Node) error {
	seen := map[string]bool{}
	for _, n := range nodes {
		name := n.Name()
		if seen[name] {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("duplicate sibling name %q", name)}
		}
		seen[name] = true
	}
	return nil
}

func validateFilter(f *FilterNode, path string, insideIterator bool) error {
	if err := validateName(path, f.Name); err != nil {
		return err
	}
	if !f.Active {
		return nil // spec §4.7: inactive filters produce empty children, not validated further
	}
	if err := validateSiblingUniqueness(path, f.Nodes); err != nil {
		return err
	}
	for _, child := range f.Nodes {
		if err := validateNode(child, path+"."+child.Name(), insideIterator); err != nil {
			return err
		}
	}
	return nil
}

func validateIterator(it *IteratorNode, path string, insideIterator bool) error {
	if err := validateName(path, it.Name); err != nil {
		return err
	}
	if insideIterator {
		return &ValidationError{Path: path, Reason: "an iterator cannot have an iterator ancestor"}
	}
	if err := validateSiblingUniqueness(path, it.Nodes); err != nil {
		return err
	}
	for _, child := range it.Nodes {
		if err := validateNode(child, path+"."+child.Name(), true); err != nil {
			return err
		}
	}
	return nil
}

func validateRuleset(rs *RulesetNode, path string) error {
	if err := validateName(path, rs.Name); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, r := range rs.Rules {
		if err := validateName(path+"."+r.Name, r.Name); err != nil {
			return err
		}
		if seen[r.Name] {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("duplicate rule name %q", r.Name)}
		}
		seen[r.Name] = true
		for varName := range r.With {
			if err := validateName(path+"."+r.Name+"."+varName, varName); err != nil {
				return err
			}
		}
		for _, act := range r.Actions {
			if err := validateName(path+"."+r.Name+"."+act.ID, act.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateNode(n Node, path string, insideIterator bool) error {
	switch {
	case n.Filter != nil:
		return validateFilter(n.Filter, path, insideIterator)
	case n.Iterator != nil:
		return validateIterator(n.Iterator, path, insideIterator)
	case n.Ruleset != nil:
		return validateRuleset(n.Ruleset, path)
	default:
		return &ValidationError{Path: path, Reason: "node has neither filter, iterator nor ruleset populated"}
	}
}
