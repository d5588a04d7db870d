package operator

import (
	"regexp"

	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/parser"
)

// Node is the uncompiled config-tree shape for an operator (spec §3/§4.5).
// Exactly one field beyond Kind is populated, matching the Kind tag; this
// mirrors how MatcherConfig nodes are deserialized from YAML before being
// compiled into the closed Operator sum type.
type Node struct {
	Kind string // "and","or","not","eq","ne","gt","lt","ge","le","contains","contains_ci","regex"
	Ops  []Node // and/or
	Op   *Node  // not

	A, B             string // eq/ne/gt/lt/ge/le operand expressions
	Haystack, Needle string // contains/contains_ci operand expressions
	Pattern, Target  string // regex
}

// Compile walks a Node tree and produces an Operator, validating every
// regex and accessor root along the way (spec §4.7's compile-time error
// list: invalid regex, invalid accessor root). extraNamespaces widens
// accessor root validation beyond "event"/"_variables"/"_ruleset" — the
// matcher passes "item" here when compiling operators inside an iterator.
func Compile(p *parser.Parser, n Node, extraNamespaces ...string) (Operator, error) {
	switch n.Kind {
	case "and":
		ops, err := compileAll(p, n.Ops, extraNamespaces...)
		if err != nil {
			return nil, err
		}
		return And{Ops: ops}, nil
	case "or":
		ops, err := compileAll(p, n.Ops, extraNamespaces...)
		if err != nil {
			return nil, err
		}
		return Or{Ops: ops}, nil
	case "not":
		if n.Op == nil {
			return nil, &CompileError{Reason: "not requires exactly one operand"}
		}
		inner, err := Compile(p, *n.Op, extraNamespaces...)
		if err != nil {
			return nil, err
		}
		return Not{Op: inner}, nil
	case "eq", "ne", "gt", "lt", "ge", "le":
		a, b, err := compilePair(p, n.A, n.B, extraNamespaces...)
		if err != nil {
			return nil, err
		}
		switch n.Kind {
		case "eq":
			return Equals{A: a, B: b}, nil
		case "ne":
			return NotEquals{A: a, B: b}, nil
		case "gt":
			return GreaterThan{A: a, B: b}, nil
		case "lt":
			return LessThan{A: a, B: b}, nil
		case "ge":
			return GE{A: a, B: b}, nil
		default:
			return LE{A: a, B: b}, nil
		}
	case "contains", "contains_ci":
		h, needle, err := compilePair(p, n.Haystack, n.Needle, extraNamespaces...)
		if err != nil {
			return nil, err
		}
		if n.Kind == "contains" {
			return Contains{Haystack: h, Needle: needle}, nil
		}
		return ContainsIgnoreCase{Haystack: h, Needle: needle}, nil
	case "regex":
		re, err := regexp.Compile(n.Pattern)
		if err != nil {
			return nil, &CompileError{Reason: "invalid regex: " + err.Error()}
		}
		target, err := p.Parse(n.Target)
		if err != nil {
			return nil, &CompileError{Reason: err.Error()}
		}
		if err := accessor.ValidateRoot(target, extraNamespaces...); err != nil {
			return nil, &CompileError{Reason: err.Error()}
		}
		return Regex{Pattern: re, Target: target}, nil
	default:
		return nil, &CompileError{Reason: "unknown operator kind \"" + n.Kind + "\""}
	}
}

func compileAll(p *parser.Parser, nodes []Node, extraNamespaces ...string) ([]Operator, error) {
	out := make([]Operator, 0, len(nodes))
	for _, n := range nodes {
		op, err := Compile(p, n, extraNamespaces...)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func compilePair(p *parser.Parser, a, b string, extraNamespaces ...string) (parser.Expr, parser.Expr, error) {
	aExpr, err := p.Parse(a)
	if err != nil {
		return nil, nil, &CompileError{Reason: err.Error()}
	}
	if err := accessor.ValidateRoot(aExpr, extraNamespaces...); err != nil {
		return nil, nil, &CompileError{Reason: err.Error()}
	}
	bExpr, err := p.Parse(b)
	if err != nil {
		return nil, nil, &CompileError{Reason: err.Error()}
	}
	if err := accessor.ValidateRoot(bExpr, extraNamespaces...); err != nil {
		return nil, nil, &CompileError{Reason: err.Error()}
	}
	return aExpr, bExpr, nil
}
