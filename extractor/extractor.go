// Package extractor compiles and evaluates the regex-based variable
// producers attached to a rule's "with" clause (spec §4.4). A compiled
// Extractor pairs a "from" expression with an ExtractorRegex, validated once
// at build time using the stdlib RE2 engine so every match runs in linear
// time (spec §5's bounded-pattern-complexity requirement).
package extractor

import (
	"fmt"
	"regexp"

	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/parser"
	"github.com/konveyor-labs/tornado/value"
)

// Mode discriminates the four ExtractorRegex evaluation modes.
type Mode int

const (
	// Indexed extracts one or all capture groups by numeric index.
	Indexed Mode = iota
	// Named extracts named capture groups.
	Named
)

// Spec is the uncompiled description of an extractor, mirroring the config
// shape from spec §3/§4.4.
type Spec struct {
	VarName    string
	From       string
	Mode       Mode
	Pattern    string
	GroupIdx   *int // Indexed only; nil means "all captures"
	AllMatches bool
}

// Extractor is a compiled, ready-to-evaluate extractor.
type Extractor struct {
	VarName    string
	From       parser.Expr
	Mode       Mode
	Regex      *regexp.Regexp
	GroupIdx   *int
	AllMatches bool
}

// CompileError reports a compile-time validation failure (spec §4.4 step 2).
type CompileError struct {
	VarName string
	Reason  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("extractor %q: %s", e.VarName, e.Reason)
}

// Compile parses From and the regex pattern, and validates that Named
// extractors declare named groups while Indexed extractors don't require
// them (spec §4.4 step 2). extraNamespaces widens accessor root validation
// beyond "event"/"_variables"/"_ruleset" — the matcher passes "item" here
// when compiling an extractor inside an iterator.
func Compile(p *parser.Parser, s Spec, extraNamespaces ...string) (*Extractor, error) {
	fromExpr, err := p.Parse(s.From)
	if err != nil {
		return nil, &CompileError{VarName: s.VarName, Reason: err.Error()}
	}
	if err := accessor.ValidateRoot(fromExpr, extraNamespaces...); err != nil {
		return nil, &CompileError{VarName: s.VarName, Reason: err.Error()}
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return nil, &CompileError{VarName: s.VarName, Reason: "invalid regex: " + err.Error()}
	}
	names := re.SubexpNames()
	hasNamed := false
	for _, n := range names {
		if n != "" {
			hasNamed = true
			break
		}
	}
	switch s.Mode {
	case Named:
		if !hasNamed {
			return nil, &CompileError{VarName: s.VarName, Reason: "Named extractor pattern has no named groups"}
		}
	case Indexed:
		if s.GroupIdx != nil && (*s.GroupIdx < 0 || *s.GroupIdx >= len(names)) {
			return nil, &CompileError{VarName: s.VarName, Reason: "group_idx out of range for pattern"}
		}
	}
	return &Extractor{
		VarName:    s.VarName,
		From:       fromExpr,
		Mode:       s.Mode,
		Regex:      re,
		GroupIdx:   s.GroupIdx,
		AllMatches: s.AllMatches,
	}, nil
}

// EvalError is returned when extraction fails for an otherwise well-formed
// extractor (spec §4.4: "failure of any extractor aborts extraction for
// that rule").
type EvalError struct {
	VarName string
	Reason  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("extractor %q failed: %s", e.VarName, e.Reason)
}

// Evaluate resolves e.From to text and runs the configured regex mode,
// producing the Value described by spec §4.4 step 3.
func (e *Extractor) Evaluate(ctx *accessor.Context) (value.Value, error) {
	resolved, ok := accessor.Resolve(e.From, ctx)
	if !ok {
		return value.Value{}, &EvalError{VarName: e.VarName, Reason: "from accessor did not resolve"}
	}
	text, ok := resolved.AsText()
	if !ok {
		return value.Value{}, &EvalError{VarName: e.VarName, Reason: "from did not resolve to text"}
	}
	switch e.Mode {
	case Indexed:
		return e.evalIndexed(text)
	case Named:
		return e.evalNamed(text)
	default:
		return value.Value{}, &EvalError{VarName: e.VarName, Reason: "unknown extractor mode"}
	}
}

func (e *Extractor) evalIndexed(text string) (value.Value, error) {
	if e.GroupIdx != nil {
		idx := *e.GroupIdx
		if !e.AllMatches {
			m := e.Regex.FindStringSubmatchIndex(text)
			if m == nil {
				return value.Value{}, &EvalError{VarName: e.VarName, Reason: "no match"}
			}
			lo, hi, err := captureBounds(m, idx, e.VarName)
			if err != nil {
				return value.Value{}, err
			}
			return value.Text(text[lo:hi]), nil
		}
		allIdx := e.Regex.FindAllStringSubmatchIndex(text, -1)
		if len(allIdx) == 0 {
			return value.Value{}, &EvalError{VarName: e.VarName, Reason: "no matches"}
		}
		out := make([]value.Value, 0, len(allIdx))
		for _, m := range allIdx {
			lo, hi, err := captureBounds(m, idx, e.VarName)
			if err != nil {
				return value.Value{}, err
			}
			out = append(out, value.Text(text[lo:hi]))
		}
		return value.Array(out), nil
	}
	if !e.AllMatches {
		m := e.Regex.FindStringSubmatchIndex(text)
		if m == nil {
			return value.Value{}, &EvalError{VarName: e.VarName, Reason: "no match"}
		}
		caps, err := allCaptures(e.Regex, text, m, e.VarName)
		if err != nil {
			return value.Value{}, err
		}
		return value.Array(caps), nil
	}
	allIdx := e.Regex.FindAllStringSubmatchIndex(text, -1)
	if len(allIdx) == 0 {
		return value.Value{}, &EvalError{VarName: e.VarName, Reason: "no matches"}
	}
	rows := make([]value.Value, 0, len(allIdx))
	for _, m := range allIdx {
		caps, err := allCaptures(e.Regex, text, m, e.VarName)
		if err != nil {
			return value.Value{}, err
		}
		rows = append(rows, value.Array(caps))
	}
	return value.Array(rows), nil
}

func allCaptures(re *regexp.Regexp, text string, m []int, varName string) ([]value.Value, error) {
	n := re.NumSubexp()
	out := make([]value.Value, 0, n)
	for g := 1; g <= n; g++ {
		lo, hi := m[2*g], m[2*g+1]
		if lo < 0 || hi < 0 {
			return nil, &EvalError{VarName: varName, Reason: "a capture group did not participate in the match"}
		}
		out = append(out, value.Text(text[lo:hi]))
	}
	return out, nil
}

func captureBounds(m []int, idx int, varName string) (int, int, error) {
	if 2*idx+1 >= len(m) {
		return 0, 0, &EvalError{VarName: varName, Reason: "capture group index out of range"}
	}
	lo, hi := m[2*idx], m[2*idx+1]
	if lo < 0 || hi < 0 {
		return 0, 0, &EvalError{VarName: varName, Reason: "capture group absent in match"}
	}
	return lo, hi, nil
}

func (e *Extractor) evalNamed(text string) (value.Value, error) {
	names := e.Regex.SubexpNames()
	if !e.AllMatches {
		m := e.Regex.FindStringSubmatchIndex(text)
		if m == nil {
			return value.Value{}, &EvalError{VarName: e.VarName, Reason: "no match"}
		}
		obj, err := namedCaptures(names, text, m, e.VarName)
		if err != nil {
			return value.Value{}, err
		}
		return value.Object(obj), nil
	}
	allIdx := e.Regex.FindAllStringSubmatchIndex(text, -1)
	if len(allIdx) == 0 {
		return value.Value{}, &EvalError{VarName: e.VarName, Reason: "no matches"}
	}
	rows := make([]value.Value, 0, len(allIdx))
	for _, m := range allIdx {
		obj, err := namedCaptures(names, text, m, e.VarName)
		if err != nil {
			return value.Value{}, err
		}
		rows = append(rows, value.Object(obj))
	}
	return value.Array(rows), nil
}

func namedCaptures(names []string, text string, m []int, varName string) (map[string]value.Value, error) {
	obj := map[string]value.Value{}
	for g, name := range names {
		if name == "" {
			continue
		}
		if 2*g+1 >= len(m) {
			return nil, &EvalError{VarName: varName, Reason: "named group " + name + " absent"}
		}
		lo, hi := m[2*g], m[2*g+1]
		if lo < 0 || hi < 0 {
			return nil, &EvalError{VarName: varName, Reason: "named group " + name + " did not participate"}
		}
		obj[name] = value.Text(text[lo:hi])
	}
	return obj, nil
}
