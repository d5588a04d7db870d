// Package parser compiles Tornado's "${…}" expression language into one of
// a Literal, an Accessor, an Interpolator, or a Custom (namespace-scoped)
// expression, per spec §4.1. It mirrors the teacher's rule_parser.go in
// spirit — a small hand-written compiler over a declarative surface — but
// the grammar here is the accessor/template language, not a JSON rule tree.
package parser

import "strings"

// Expr is the closed sum of compiled expression forms. Concrete types are
// Literal, Accessor, Interpolator and Custom.
type Expr interface{ isExpr() }

// Literal is a plain string containing no "${…}" delimiters, carried as a
// Value(Text) per spec §4.1.
type Literal struct{ Text string }

func (Literal) isExpr() {}

// Accessor is a fully-resolved "${path}" expression spanning the whole
// source string.
type Accessor struct{ Path Path }

func (Accessor) isExpr() {}

// Custom is an accessor whose first path segment matched a namespace
// registered at builder time (e.g. "_variables"). Namespace is the matched
// segment; Tail is the remaining path compiled the same way as Accessor.
type Custom struct {
	Namespace string
	Tail      Path
}

func (Custom) isExpr() {}

// Segment is one piece of an Interpolator template: either literal text
// (Expr == nil) or a compiled sub-expression (Accessor or Custom; never
// another Interpolator or Literal, since each "${…}" run parses to exactly
// one accessor-shaped expression).
type Segment struct {
	Text string
	Expr Expr
}

// Interpolator is a template mixing literal text with one or more "${…}"
// expressions, or a single "${…}" that doesn't span the whole string.
type Interpolator struct{ Segments []Segment }

func (Interpolator) isExpr() {}

// Builder configures reserved and ignored namespaces before compiling
// expressions (spec §4.1). Reserved namespaces compile their tail into a
// Custom expression; ignored namespaces are passed through as literal text
// so a nested scope (e.g. an iterator body) can re-resolve them later.
type Builder struct {
	reserved map[string]bool
	ignored  map[string]bool
}

// NewBuilder constructs a Parser builder. reserved and ignored are the
// first-path-segment namespace names; spec's defaults are "_variables" and
// "_ruleset" (reserved), "item" (ignored, inside an iterator body).
func NewBuilder(reserved, ignored []string) *Builder {
	b := &Builder{reserved: map[string]bool{}, ignored: map[string]bool{}}
	for _, r := range reserved {
		b.reserved[r] = true
	}
	for _, i := range ignored {
		b.ignored[i] = true
	}
	return b
}

// Parser compiles expression strings using the namespaces fixed at Build time.
type Parser struct{ b *Builder }

func (b *Builder) Build() *Parser { return &Parser{b: b} }

// Parse compiles a single expression string into its closed-sum form.
func (p *Parser) Parse(s string) (Expr, error) {
	runs, err := splitTemplateRuns(s)
	if err != nil {
		return nil, err
	}
	if len(runs) == 1 && !runs[0].isExpr && runs[0].text == s {
		// no "${…}" delimiters at all.
		return Literal{Text: s}, nil
	}
	if len(runs) == 1 && runs[0].isExpr && runs[0].text == s {
		// the entire string is exactly "${…}".
		return p.compileAccessorBody(runs[0].body)
	}
	segments := make([]Segment, 0, len(runs))
	for _, r := range runs {
		if !r.isExpr {
			segments = append(segments, Segment{Text: r.text})
			continue
		}
		expr, err := p.compileAccessorBody(r.body)
		if err != nil {
			return nil, err
		}
		if lit, ok := expr.(Literal); ok {
			// an ignored-namespace expression compiled back to literal
			// text that already carries its "${…}" wrapper (see
			// compileAccessorBody), so re-resolution in a nested scope
			// still sees the original expression form.
			segments = append(segments, Segment{Text: lit.Text})
			continue
		}
		segments = append(segments, Segment{Expr: expr})
	}
	return Interpolator{Segments: segments}, nil
}

// compileAccessorBody compiles the text between "${" and "}" into an
// Accessor or a Custom, depending on whether the first path segment is a
// registered namespace.
func (p *Parser) compileAccessorBody(body string) (Expr, error) {
	if body == "" {
		return nil, newErr(ErrEmptyAccessor, "empty accessor \"${}\"")
	}
	path, err := ParsePath(body)
	if err != nil {
		return nil, err
	}
	if len(path) > 0 && path[0].Kind == MapGetter {
		first := path[0].Key
		if p.b.ignored[first] {
			return Literal{Text: "${" + body + "}"}, nil
		}
		if p.b.reserved[first] {
			return Custom{Namespace: first, Tail: path[1:]}, nil
		}
	}
	return Accessor{Path: path}, nil
}

type templateRun struct {
	isExpr bool
	text   string // literal text, valid when !isExpr
	body   string // accessor body (without ${ }), valid when isExpr
}

// splitTemplateRuns scans s for "${…}" runs, returning alternating literal
// and expression runs in source order. Brace matching is naive (first "}"
// closes), which is sufficient since the accessor grammar itself never
// contains "{" or "}".
func splitTemplateRuns(s string) ([]templateRun, error) {
	var runs []templateRun
	var lit strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			if lit.Len() > 0 {
				runs = append(runs, templateRun{text: lit.String()})
				lit.Reset()
			}
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, newErr(ErrInvalidCharacter, "unterminated \"${\" in %q", s)
			}
			body := s[i+2 : i+2+end]
			runs = append(runs, templateRun{isExpr: true, text: s[i : i+2+end+1], body: body})
			i = i + 2 + end + 1
			continue
		}
		lit.WriteByte(s[i])
		i++
	}
	if lit.Len() > 0 || len(runs) == 0 {
		runs = append(runs, templateRun{text: lit.String()})
	}
	return runs, nil
}
