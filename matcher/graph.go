// Package matcher compiles a config.MatcherConfig into an executable
// processing graph and evaluates it against events (spec §4.7/§5). It is
// the one place the earlier packages (operator, extractor, action,
// selector) are wired together, the way the teacher's engine.go wires
// RuleSet/Rule/ConditionContext into a running RuleEngine.
package matcher

import (
	"fmt"
	"sort"

	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/config"
	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/parser"
	"github.com/konveyor-labs/tornado/extractor"
	"github.com/konveyor-labs/tornado/operator"
)

// itemNamespace is the iterator-local binding made concrete only while
// compiling and evaluating an iterator's descendant subtree (spec §4.7).
const itemNamespace = "item"

// compiledNode mirrors config.Node: exactly one of the three is populated.
type compiledNode struct {
	filter   *compiledFilter
	iterator *compiledIterator
	ruleset  *compiledRuleset
}

type compiledFilter struct {
	name     string
	active   bool
	where    operator.Operator // nil means "always matches"
	children []compiledNode
	labels   []string
}

func (f *compiledFilter) Labels() []string { return f.labels }

type compiledIterator struct {
	name   string
	target parser.Expr
	nodes  []compiledNode
}

type compiledRuleset struct {
	name     string
	rules    []compiledRule
	labels   []string
	siblings map[string]bool
}

func (r *compiledRuleset) Labels() []string { return r.labels }

type compiledExtractor struct {
	varName string
	ex      *extractor.Extractor
}

type compiledRule struct {
	name        string
	description string
	doContinue  bool
	where       operator.Operator
	with        []compiledExtractor // ordered by varName for deterministic evaluation
	actions     []*action.Template
	labels      []string
}

func (r *compiledRule) Labels() []string { return r.labels }

// CompileError reports a failure turning a config node into executable form.
type CompileError struct {
	Path   string
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("matcher compile: %s: %s", e.Path, e.Reason)
}

// Compile structurally validates cfg (config.Validate) and compiles every
// operator/extractor/action expression it contains, rejecting unresolved
// accessor roots and invalid regex at this stage rather than at eval time
// (spec §4.7 step 1-2).
func Compile(cfg *config.MatcherConfig) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	outer := parser.NewBuilder(
		[]string{"_variables", "_ruleset"},
		[]string{itemNamespace},
	).Build()
	root, err := compileFilter(&cfg.Root, outer, "root", false)
	if err != nil {
		return nil, err
	}
	return &Engine{root: *root}, nil
}

func compileFilter(f *config.FilterNode, p *parser.Parser, path string, insideIterator bool) (*compiledFilter, error) {
	var where operator.Operator
	if f.Filter != nil {
		extra := extraNamespacesFor(insideIterator)
		op, err := operator.Compile(p, *f.Filter, extra...)
		if err != nil {
			return nil, &CompileError{Path: path, Reason: err.Error()}
		}
		where = op
	}
	var children []compiledNode
	if f.Active {
		// spec §4.7 step 3: an inactive filter's children are never
		// compiled, so they're neither validated nor exercised.
		var err error
		children, err = compileChildren(f.Nodes, p, path, insideIterator)
		if err != nil {
			return nil, err
		}
	}
	return &compiledFilter{name: f.Name, active: f.Active, where: where, children: children, labels: f.LabelList}, nil
}

func compileIterator(it *config.IteratorNode, p *parser.Parser, path string, insideIterator bool) (*compiledIterator, error) {
	// The target resolves in the scope *surrounding* the iterator, so it is
	// compiled with whatever namespaces already apply there, never "item"
	// itself (config.Validate already forbids nested iterators).
	extra := extraNamespacesFor(insideIterator)
	targetExpr, err := p.Parse(it.Target)
	if err != nil {
		return nil, &CompileError{Path: path, Reason: err.Error()}
	}
	if err := accessor.ValidateRoot(targetExpr, extra...); err != nil {
		return nil, &CompileError{Path: path, Reason: err.Error()}
	}
	inner := parser.NewBuilder(
		[]string{"_variables", "_ruleset", itemNamespace},
		nil,
	).Build()
	nodes, err := compileChildren(it.Nodes, inner, path, true)
	if err != nil {
		return nil, err
	}
	return &compiledIterator{name: it.Name, target: targetExpr, nodes: nodes}, nil
}

func compileRuleset(rs *config.RulesetNode, p *parser.Parser, path string, insideIterator bool) (*compiledRuleset, error) {
	siblings := make(map[string]bool, len(rs.Rules))
	for _, r := range rs.Rules {
		siblings[r.Name] = true
	}
	rules := make([]compiledRule, 0, len(rs.Rules))
	for i := range rs.Rules {
		r := rs.Rules[i]
		if !r.Active {
			continue // spec §4.7 step 2: inactive rules are skipped entirely
		}
		cr, err := compileRule(&r, p, path+"."+r.Name, insideIterator)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *cr)
	}
	return &compiledRuleset{name: rs.Name, rules: rules, labels: rs.LabelList, siblings: siblings}, nil
}

func compileRule(r *config.RuleNode, p *parser.Parser, path string, insideIterator bool) (*compiledRule, error) {
	extra := extraNamespacesFor(insideIterator)
	var where operator.Operator
	if r.Where != nil {
		op, err := operator.Compile(p, *r.Where, extra...)
		if err != nil {
			return nil, &CompileError{Path: path, Reason: err.Error()}
		}
		where = op
	}
	varNames := make([]string, 0, len(r.With))
	for name := range r.With {
		varNames = append(varNames, name)
	}
	sort.Strings(varNames)
	with := make([]compiledExtractor, 0, len(varNames))
	for _, name := range varNames {
		ex, err := extractor.Compile(p, r.With[name], extra...)
		if err != nil {
			return nil, &CompileError{Path: path + "." + name, Reason: err.Error()}
		}
		with = append(with, compiledExtractor{varName: name, ex: ex})
	}
	actions := make([]*action.Template, 0, len(r.Actions))
	for _, raw := range r.Actions {
		tmpl, err := action.Compile(p, raw, extra...)
		if err != nil {
			return nil, &CompileError{Path: path + "." + raw.ID, Reason: err.Error()}
		}
		actions = append(actions, tmpl)
	}
	return &compiledRule{
		name: r.Name, description: r.Description, doContinue: r.DoContinue,
		where: where, with: with, actions: actions, labels: r.LabelList,
	}, nil
}

func compileChildren(nodes []config.Node, p *parser.Parser, path string, insideIterator bool) ([]compiledNode, error) {
	out := make([]compiledNode, 0, len(nodes))
	for _, n := range nodes {
		childPath := path + "." + n.Name()
		switch {
		case n.Filter != nil:
			f, err := compileFilter(n.Filter, p, childPath, insideIterator)
			if err != nil {
				return nil, err
			}
			out = append(out, compiledNode{filter: f})
		case n.Iterator != nil:
			it, err := compileIterator(n.Iterator, p, childPath, insideIterator)
			if err != nil {
				return nil, err
			}
			out = append(out, compiledNode{iterator: it})
		case n.Ruleset != nil:
			rs, err := compileRuleset(n.Ruleset, p, childPath, insideIterator)
			if err != nil {
				return nil, err
			}
			out = append(out, compiledNode{ruleset: rs})
		}
	}
	return out, nil
}

func extraNamespacesFor(insideIterator bool) []string {
	if insideIterator {
		return []string{itemNamespace}
	}
	return nil
}

