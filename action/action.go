// Package action compiles and resolves the action templates attached to a
// rule (spec §4.6). A template is a Value tree whose text leaves are parser
// expressions (Literal, Accessor or Interpolator); resolution walks the
// tree substituting each leaf's resolved Value, failing the whole action
// if any leaf is unresolvable.
package action

import (
	"fmt"

	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/interpolator"
	"github.com/konveyor-labs/tornado/expr/parser"
	"github.com/konveyor-labs/tornado/value"
)

// Template is a compiled action: an id and a tree of Node leaves/branches.
type Template struct {
	ID      string
	Payload Node
}

// Node mirrors value.Value's shape but with compiled expressions at text
// leaves instead of literal text.
type Node struct {
	Kind     value.Kind
	Bool     bool
	Number   value.Number
	Expr     parser.Expr // populated when Kind == KindText
	Elements []Node      // KindArray
	Fields   map[string]Node
}

// RawTemplate is the uncompiled template shape, as it arrives from config:
// every scalar position may carry literal text or a "${…}" expression.
type RawTemplate struct {
	ID      string
	Payload value.Value
	// Text holds the raw text for any position in Payload that should be
	// treated as a template string rather than a literal Value; paths are
	// dotted strings matching the Payload tree (e.g. "message" or
	// "details[0].code"). Positions not listed here are copied as-is.
	Text map[string]string
}

// CompileError reports a Parser failure while compiling a template leaf.
type CompileError struct{ Path, Reason string }

func (e *CompileError) Error() string {
	return fmt.Sprintf("action template: %s: %s", e.Path, e.Reason)
}

// Compile walks raw.Payload, replacing every path listed in raw.Text with
// its compiled expression, and every other text leaf with a Literal so
// resolution is uniform; bool and number leaves stay Bool/Number nodes.
// extraNamespaces widens accessor root validation
// beyond "event"/"_variables"/"_ruleset" — the matcher passes "item" here
// when compiling an action template inside an iterator.
func Compile(p *parser.Parser, raw RawTemplate, extraNamespaces ...string) (*Template, error) {
	node, err := compileNode(p, raw.Payload, "", raw.Text, extraNamespaces)
	if err != nil {
		return nil, err
	}
	return &Template{ID: raw.ID, Payload: node}, nil
}

func compileNode(p *parser.Parser, v value.Value, path string, text map[string]string, extraNamespaces []string) (Node, error) {
	if raw, ok := text[path]; ok {
		expr, err := p.Parse(raw)
		if err != nil {
			return Node{}, &CompileError{Path: path, Reason: err.Error()}
		}
		if err := accessor.ValidateRoot(expr, extraNamespaces...); err != nil {
			return Node{}, &CompileError{Path: path, Reason: err.Error()}
		}
		return Node{Kind: value.KindText, Expr: expr}, nil
	}
	switch v.Kind() {
	case value.KindText:
		s, _ := v.AsText()
		return Node{Kind: value.KindText, Expr: parser.Literal{Text: s}}, nil
	case value.KindArray:
		arr, _ := v.AsArray()
		elems := make([]Node, len(arr))
		for i, el := range arr {
			child, err := compileNode(p, el, fmt.Sprintf("%s[%d]", path, i), text, extraNamespaces)
			if err != nil {
				return Node{}, err
			}
			elems[i] = child
		}
		return Node{Kind: value.KindArray, Elements: elems}, nil
	case value.KindObject:
		obj, _ := v.AsObject()
		fields := make(map[string]Node, len(obj))
		for k, fv := range obj {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			child, err := compileNode(p, fv, childPath, text, extraNamespaces)
			if err != nil {
				return Node{}, err
			}
			fields[k] = child
		}
		return Node{Kind: value.KindObject, Fields: fields}, nil
	case value.KindBool:
		b, _ := v.AsBool()
		return Node{Kind: value.KindBool, Bool: b}, nil
	case value.KindNumber:
		n, _ := v.AsNumber()
		return Node{Kind: value.KindNumber, Number: n}, nil
	default:
		return Node{Kind: value.KindNull}, nil
	}
}

// ResolveError is returned when a template leaf fails to resolve (spec
// §4.6: "missing accessor → CreateActionError").
type ResolveError struct{ Path, Reason string }

func (e *ResolveError) Error() string {
	return fmt.Sprintf("action template: %s: %s", e.Path, e.Reason)
}

// Resolved is a fully-substituted action payload, plus optional per-leaf
// dynamic-origin metadata (spec §4.6's audit variant).
type Resolved struct {
	ID      string
	Payload value.Value
	Dynamic map[string]bool // path -> true if the leaf's value came from an expression, not a literal
}

// Resolve substitutes every Template leaf against ctx, recording dynamic
// origins when withMetadata is true.
func Resolve(t *Template, ctx *accessor.Context, withMetadata bool) (*Resolved, error) {
	dynamic := map[string]bool{}
	payload, err := resolveNode(t.Payload, ctx, "", dynamic, withMetadata)
	if err != nil {
		return nil, err
	}
	r := &Resolved{ID: t.ID, Payload: payload}
	if withMetadata {
		r.Dynamic = dynamic
	}
	return r, nil
}

func resolveNode(n Node, ctx *accessor.Context, path string, dynamic map[string]bool, withMetadata bool) (value.Value, error) {
	switch n.Kind {
	case value.KindText:
		if lit, ok := n.Expr.(parser.Literal); ok {
			if withMetadata {
				dynamic[path] = false
			}
			return value.Text(lit.Text), nil
		}
		if interp, ok := n.Expr.(parser.Interpolator); ok {
			s, err := interpolator.Render(interp, ctx)
			if err != nil {
				return value.Value{}, &ResolveError{Path: path, Reason: err.Error()}
			}
			if withMetadata {
				dynamic[path] = true
			}
			return value.Text(s), nil
		}
		v, ok := accessor.Resolve(n.Expr, ctx)
		if !ok {
			return value.Value{}, &ResolveError{Path: path, Reason: "accessor did not resolve"}
		}
		if withMetadata {
			dynamic[path] = true
		}
		return v, nil
	case value.KindArray:
		out := make([]value.Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := resolveNode(el, ctx, fmt.Sprintf("%s[%d]", path, i), dynamic, withMetadata)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = v
		}
		return value.Array(out), nil
	case value.KindObject:
		out := make(map[string]value.Value, len(n.Fields))
		for k, fn := range n.Fields {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			v, err := resolveNode(fn, ctx, childPath, dynamic, withMetadata)
			if err != nil {
				return value.Value{}, err
			}
			out[k] = v
		}
		return value.Object(out), nil
	case value.KindBool:
		return value.Bool(n.Bool), nil
	case value.KindNumber:
		return value.Num(n.Number), nil
	default:
		return value.Null(), nil
	}
}
