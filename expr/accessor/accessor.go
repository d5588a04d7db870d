// Package accessor resolves a compiled expression (spec §4.1) against an
// event, a rule's extracted-variable scope, and a ruleset-level constant
// scope (spec §4.3). It never errors at evaluation time: a missing key or
// an invalid root simply resolves to "not found", the way a borrowed Value
// lookup in the teacher's ConditionContext.Template either finds a
// ChainTemplate entry or doesn't.
package accessor

import (
	"github.com/konveyor-labs/tornado/expr/parser"
	"github.com/konveyor-labs/tornado/value"
)

// RootEvent and the reserved namespace names are the only roots accepted at
// the matcher level (spec §4.3); everything else fails ValidateRoot at
// compile time.
const (
	RootEvent     = "event"
	NamespaceVars = "_variables"
	NamespaceSet  = "_ruleset"
)

// Context carries everything a Resolve call needs to root an accessor: the
// event's virtual object, the per-event extracted-variable scope, the name
// of the rule currently being evaluated (for the "_variables" current-rule
// precedence rule), the set of sibling rule names in the same ruleset, and
// the ruleset-scoped constant object.
type Context struct {
	Event        value.Value
	Vars         VarsScope
	CurrentRule  string
	SiblingRules map[string]bool
	Ruleset      value.Value

	// CustomRoots holds namespace -> root bindings established dynamically,
	// such as an Iterator's "item" binding (spec §4.7) which only exists
	// while evaluating that iterator's descendant nodes.
	CustomRoots map[string]value.Value
}

// VarsScope is the subset of event.ExtractedVars the accessor package
// depends on, kept as an interface so this package doesn't import event
// (which would create an import cycle back through config/matcher).
type VarsScope interface {
	RuleObject(rule string) value.Value
	Root() value.Value
}

// ValidateRoot is the compile-time check from spec §4.3: "only the roots
// above are accepted at the matcher level; unknown roots fail validation at
// compile time." Called once per compiled Accessor/Custom during
// config/matcher compilation, never during evaluation.
func ValidateRoot(expr parser.Expr, extraNamespaces ...string) error {
	switch e := expr.(type) {
	case parser.Accessor:
		if len(e.Path) == 0 || e.Path[0].Kind != parser.MapGetter || e.Path[0].Key != RootEvent {
			return &parser.Error{Kind: parser.ErrUnknownKey, Msg: "accessor root must be \"event\""}
		}
	case parser.Custom:
		if e.Namespace != NamespaceVars && e.Namespace != NamespaceSet {
			ok := false
			for _, ns := range extraNamespaces {
				if ns == e.Namespace {
					ok = true
					break
				}
			}
			if !ok {
				return &parser.Error{Kind: parser.ErrUnknownKey, Msg: "unknown namespace \"" + e.Namespace + "\""}
			}
		}
	case parser.Interpolator:
		for _, seg := range e.Segments {
			if seg.Expr != nil {
				if err := ValidateRoot(seg.Expr, extraNamespaces...); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Resolve evaluates a Literal, Accessor or Custom expression against ctx.
// Interpolator is not accepted here — render it with the interpolator
// package, which calls Resolve per embedded expression.
func Resolve(expr parser.Expr, ctx *Context) (value.Value, bool) {
	switch e := expr.(type) {
	case parser.Literal:
		return value.Text(e.Text), true
	case parser.Accessor:
		if len(e.Path) == 0 || e.Path[0].Key != RootEvent {
			return value.Value{}, false
		}
		return walk(ctx.Event, e.Path[1:])
	case parser.Custom:
		switch e.Namespace {
		case NamespaceVars:
			return resolveVariables(e.Tail, ctx)
		case NamespaceSet:
			return walk(ctx.Ruleset, e.Tail)
		default:
			if root, ok := ctx.CustomRoots[e.Namespace]; ok {
				return walk(root, e.Tail)
			}
			return value.Value{}, false
		}
	}
	return value.Value{}, false
}

func resolveVariables(tail parser.Path, ctx *Context) (value.Value, bool) {
	if len(tail) == 0 {
		return ctx.Vars.Root(), true
	}
	if first := tail[0]; first.Kind == parser.MapGetter && ctx.SiblingRules[first.Key] {
		return walk(ctx.Vars.RuleObject(first.Key), tail[1:])
	}
	if v, ok := walk(ctx.Vars.RuleObject(ctx.CurrentRule), tail); ok {
		return v, true
	}
	// bare ${_variables.X} falls back to a root-level lookup when the
	// current rule doesn't have X; current-rule wins when both exist
	// (spec §9 open question, resolved in favor of current-rule).
	return walk(ctx.Vars.Root(), tail)
}

func walk(root value.Value, path parser.Path) (value.Value, bool) {
	cur := root
	for _, g := range path {
		switch g.Kind {
		case parser.MapGetter:
			v, ok := cur.Field(g.Key)
			if !ok {
				return value.Value{}, false
			}
			cur = v
		case parser.ArrayGetter:
			v, ok := cur.Index(g.Index)
			if !ok {
				return value.Value{}, false
			}
			cur = v
		}
	}
	return cur, true
}
