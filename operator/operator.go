// Package operator implements the boolean predicate tree compiled from a
// rule's "where" clause (spec §4.5). Operator is a closed sum type: every
// node evaluates totally against (event, extracted_vars), never erroring or
// panicking at evaluation time — unresolvable accessors and type mismatches
// resolve to false, with all fallibility shifted to compile time.
package operator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/parser"
	"github.com/konveyor-labs/tornado/value"
)

// Operator is the closed sum of predicate node kinds.
type Operator interface {
	Evaluate(ctx *accessor.Context) bool
	isOperator()
}

type And struct{ Ops []Operator }
type Or struct{ Ops []Operator }
type Not struct{ Op Operator }

type Equals struct{ A, B parser.Expr }
type NotEquals struct{ A, B parser.Expr }
type GreaterThan struct{ A, B parser.Expr }
type LessThan struct{ A, B parser.Expr }
type GE struct{ A, B parser.Expr }
type LE struct{ A, B parser.Expr }

type Contains struct{ Haystack, Needle parser.Expr }
type ContainsIgnoreCase struct{ Haystack, Needle parser.Expr }

type Regex struct {
	Pattern *regexp.Regexp
	Target  parser.Expr
}

func (And) isOperator()                {}
func (Or) isOperator()                 {}
func (Not) isOperator()                {}
func (Equals) isOperator()             {}
func (NotEquals) isOperator()          {}
func (GreaterThan) isOperator()        {}
func (LessThan) isOperator()           {}
func (GE) isOperator()                 {}
func (LE) isOperator()                 {}
func (Contains) isOperator()           {}
func (ContainsIgnoreCase) isOperator() {}
func (Regex) isOperator()              {}

func (o And) Evaluate(ctx *accessor.Context) bool {
	for _, op := range o.Ops {
		if !op.Evaluate(ctx) {
			return false
		}
	}
	return true
}

func (o Or) Evaluate(ctx *accessor.Context) bool {
	for _, op := range o.Ops {
		if op.Evaluate(ctx) {
			return true
		}
	}
	return false
}

func (o Not) Evaluate(ctx *accessor.Context) bool { return !o.Op.Evaluate(ctx) }

func (o Equals) Evaluate(ctx *accessor.Context) bool {
	a, aok := accessor.Resolve(o.A, ctx)
	b, bok := accessor.Resolve(o.B, ctx)
	if !aok || !bok {
		return false
	}
	return a.Equal(b)
}

func (o NotEquals) Evaluate(ctx *accessor.Context) bool {
	return !Equals(o).Evaluate(ctx)
}

func (o GreaterThan) Evaluate(ctx *accessor.Context) bool {
	return ordering(o.A, o.B, ctx) == value.GreaterThan
}
func (o LessThan) Evaluate(ctx *accessor.Context) bool {
	return ordering(o.A, o.B, ctx) == value.LessThan
}
func (o GE) Evaluate(ctx *accessor.Context) bool {
	c := ordering(o.A, o.B, ctx)
	return c == value.GreaterThan || c == value.EqualTo
}
func (o LE) Evaluate(ctx *accessor.Context) bool {
	c := ordering(o.A, o.B, ctx)
	return c == value.LessThan || c == value.EqualTo
}

// ordering resolves A and B and compares them; an unresolved accessor
// reports value.Unordered, which every caller above treats as false.
func ordering(aExpr, bExpr parser.Expr, ctx *accessor.Context) value.Ordering {
	a, aok := accessor.Resolve(aExpr, ctx)
	b, bok := accessor.Resolve(bExpr, ctx)
	if !aok || !bok {
		return value.Unordered
	}
	return a.Compare(b)
}

func (o Contains) Evaluate(ctx *accessor.Context) bool {
	h, hok := accessor.Resolve(o.Haystack, ctx)
	n, nok := accessor.Resolve(o.Needle, ctx)
	if !hok || !nok {
		return false
	}
	return h.Contains(n)
}

func (o ContainsIgnoreCase) Evaluate(ctx *accessor.Context) bool {
	h, hok := accessor.Resolve(o.Haystack, ctx)
	n, nok := accessor.Resolve(o.Needle, ctx)
	if !hok || !nok {
		return false
	}
	ht, htok := h.AsText()
	nt, ntok := n.AsText()
	if !htok || !ntok {
		return false
	}
	return strings.Contains(strings.ToLower(ht), strings.ToLower(nt))
}

func (o Regex) Evaluate(ctx *accessor.Context) bool {
	v, ok := accessor.Resolve(o.Target, ctx)
	if !ok {
		return false
	}
	s, ok := v.AsText()
	if !ok {
		return false
	}
	return o.Pattern.MatchString(s)
}

// CompileError reports an invalid regex pattern or an invalid accessor root
// discovered while compiling an operator node (spec §4.7's compile-time
// error list).
type CompileError struct{ Reason string }

func (e *CompileError) Error() string { return fmt.Sprintf("operator: %s", e.Reason) }
