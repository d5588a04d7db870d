// Package selector compiles boolean label expressions used to pick subsets
// of a compiled processing graph without recompiling it (spec §4.8). The
// expression language and version-ranged value matching are grounded
// directly on the label-selector mechanism built for rule engines: gval
// supplies the boolean evaluator, go-version the version-range comparison.
package selector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/hashicorp/go-version"
)

const (
	// IncludeLabel overrides every other label when present on a rule or
	// ruleset: "always" forces a match, "never" forces exclusion.
	IncludeLabel = "tornado.io/include"
	IncludeAlways = "always"
	IncludeNever  = "never"
)

const (
	labelValueFmt  = `^[a-zA-Z0-9]([-a-zA-Z0-9. ]*[a-zA-Z0-9+-])?$`
	labelPrefixFmt = `^(([A-Za-z0-9][-A-Za-z0-9_.]*)?[A-Za-z0-9])?$`
	specialSymbols = `!|\|\||&&|\(|\)`
	splitter       = `(` + specialSymbols + `|[^!` + specialSymbols + `]+)`
)

var (
	labelValueRe  = regexp.MustCompile(labelValueFmt)
	labelPrefixRe = regexp.MustCompile(labelPrefixFmt)
	specialRe     = regexp.MustCompile(specialSymbols)
	splitterRe    = regexp.MustCompile(splitter)
)

// Labeled is satisfied by any config node selector compiles against: both
// config.RuleNode and config.RulesetNode carry a Labels() []string method.
type Labeled interface {
	Labels() []string
}

// MatchAny decides whether candidate (a label value found on a node)
// satisfies matchWith (a label value named in a selector expression).
type MatchAny func(candidate string, matchWith []string) bool

// Selector compiles a boolean label expression (spec §4.8) once and can be
// reused across many Matches calls against different nodes.
type Selector struct {
	expr     string
	language gval.Language
	matchAny MatchAny
}

// New compiles expr into a reusable Selector. expr supports "&&", "||", "!"
// and parenthesized grouping over bare "key" or "key=value" operands; match
// defaults to version-aware value matching when nil.
func New(expr string, match MatchAny) (*Selector, error) {
	language := gval.NewLanguage(
		gval.Ident(),
		gval.Parentheses(),
		gval.Constant("true", true),
		gval.Constant("false", false),
		gval.PrefixOperator("!", func(_ context.Context, v interface{}) (interface{}, error) {
			b, ok := asBool(v)
			if !ok {
				return nil, fmt.Errorf("selector: unexpected %T, expected bool", v)
			}
			return !b, nil
		}),
		gval.InfixShortCircuit("&&", func(a interface{}) (interface{}, bool) { return false, a == false }),
		gval.InfixBoolOperator("&&", func(a, b bool) (interface{}, error) { return a && b, nil }),
		gval.InfixShortCircuit("||", func(a interface{}) (interface{}, bool) { return true, a == true }),
		gval.InfixBoolOperator("||", func(a, b bool) (interface{}, error) { return a || b, nil }),
	)
	// force validation of expr's syntax against an empty label set.
	if _, err := gval.Evaluate(booleanExpression(expr, map[string][]string{}, matchesAny), nil); err != nil {
		return nil, fmt.Errorf("selector: invalid expression %q: %w", expr, err)
	}
	if match == nil {
		match = matchesAny
	}
	return &Selector{expr: expr, language: language, matchAny: match}, nil
}

// Matches reports whether v's labels satisfy the compiled expression.
// IncludeLabel, if present on v, overrides the expression entirely.
func (s *Selector) Matches(v Labeled) (bool, error) {
	nodeLabels, _ := ParseLabels(v.Labels())
	if vals, ok := nodeLabels[IncludeLabel]; ok && len(vals) > 0 {
		switch vals[0] {
		case IncludeAlways:
			return true, nil
		case IncludeNever:
			return false, nil
		}
	}
	expr := booleanExpression(s.expr, nodeLabels, s.matchAny)
	out, err := s.language.Evaluate(expr, nil)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	return ok && b, nil
}

// ParseLabels turns a list of "key" / "key=value" strings into a
// key -> values map; keys may repeat with different values.
func ParseLabels(labels []string) (map[string][]string, error) {
	out := map[string][]string{}
	var errs []string
	for _, l := range labels {
		key, val, err := ParseLabel(l)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		out[key] = append(out[key], val)
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("selector: invalid labels: %v", errs)
	}
	return out, nil
}

// ParseLabel splits a single "key", "key=", "key=value" or
// "prefix/key=value" label into its key and value, validating each part
// against the grammar spec §4.8 carries over.
func ParseLabel(label string) (key, val string, err error) {
	parts := strings.Split(label, "=")
	if len(parts) > 2 || len(parts) < 1 {
		return "", "", fmt.Errorf("selector: invalid label %q", label)
	}
	key = parts[0]
	if len(parts) == 2 {
		val = parts[1]
		if val != "" && !labelValueRe.MatchString(val) {
			return "", "", fmt.Errorf("selector: invalid label value %q", val)
		}
	}
	prefixParts := strings.Split(key, "/")
	switch len(prefixParts) {
	case 1:
		if !labelValueRe.MatchString(prefixParts[0]) {
			return "", "", fmt.Errorf("selector: invalid label key %q", prefixParts[0])
		}
		return prefixParts[0], val, nil
	case 2:
		if !labelPrefixRe.MatchString(prefixParts[0]) {
			return "", "", fmt.Errorf("selector: invalid label key prefix %q", prefixParts[0])
		}
		if !labelValueRe.MatchString(prefixParts[1]) {
			return "", "", fmt.Errorf("selector: invalid label key suffix %q", prefixParts[1])
		}
		return key, val, nil
	default:
		return "", "", fmt.Errorf("selector: invalid label key %q", key)
	}
}

func asBool(o interface{}) (bool, bool) {
	switch v := o.(type) {
	case bool:
		return v, true
	case string:
		if v == "true" {
			return true, true
		}
		if v == "false" {
			return false, true
		}
	}
	return false, false
}

// labelsFromExpression extracts every bare "key"/"key=value" operand token
// from expr, ignoring the boolean operator tokens.
func labelsFromExpression(expr string) (map[string][]string, error) {
	var operands []string
	for _, tok := range tokenize(expr) {
		if tok == "" || specialRe.MatchString(tok) {
			continue
		}
		operands = append(operands, tok)
	}
	return ParseLabels(operands)
}

// booleanExpression rewrites expr by substituting each label operand with
// "true"/"false" according to whether nodeLabels satisfies it, producing a
// plain boolean expression gval can evaluate (gval has no notion of a
// "label" operand on its own).
func booleanExpression(expr string, nodeLabels map[string][]string, matchAny MatchAny) string {
	exprLabels, err := labelsFromExpression(expr)
	if err != nil {
		return expr
	}
	replace := map[string]string{}
	for key, vals := range exprLabels {
		for _, val := range vals {
			token := key
			if val != "" {
				token = key + "=" + val
			}
			nodeVals, ok := nodeLabels[key]
			switch {
			case !ok:
				replace[token] = "false"
			case val != "" && !matchAny(val, nodeVals):
				replace[token] = "false"
			default:
				replace[token] = "true"
			}
		}
	}
	var sb strings.Builder
	for _, tok := range tokenize(expr) {
		if v, ok := replace[tok]; ok {
			sb.WriteString(" " + v)
		} else {
			sb.WriteString(" " + tok)
		}
	}
	return strings.Trim(sb.String(), " ")
}

func tokenize(expr string) []string {
	var out []string
	for _, tok := range splitterRe.FindAllString(expr, -1) {
		tok = strings.Trim(tok, " ")
		tok = strings.TrimSuffix(tok, "=")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func matchesAny(candidate string, matchWith []string) bool {
	for _, item := range matchWith {
		if labelValueMatches(item, candidate) {
			return true
		}
	}
	return false
}

// versionTailRe splits a label value into a name and an optional trailing
// version with a +/- range symbol, e.g. "eap7+" -> ("eap", "7", "+").
var versionTailRe = regexp.MustCompile(`(\d(?:[\d.]*\d)?)([+-])?$`)

// labelValueMatches reports whether candidate satisfies matchWith, which
// may carry a version range suffix ("+": at least, "-": at most).
func labelValueMatches(matchWith, candidate string) bool {
	mMatch := versionTailRe.FindStringSubmatch(matchWith)
	if len(mMatch) != 3 {
		return candidate == matchWith
	}
	mName, mVersion, rangeSym := versionTailRe.ReplaceAllString(matchWith, ""), mMatch[1], mMatch[2]
	cMatch := versionTailRe.FindStringSubmatch(candidate)
	if len(cMatch) != 3 {
		return mName == candidate
	}
	cName, cVersion := versionTailRe.ReplaceAllString(candidate, ""), cMatch[1]
	if mName != cName {
		return false
	}
	if mVersion == "" {
		return mVersion == cVersion
	}
	if cVersion == "" {
		return true
	}
	cSemver, err := version.NewSemver(cVersion)
	if err != nil {
		return cVersion == mVersion
	}
	mSemver, err := version.NewSemver(mVersion)
	if err != nil {
		return cVersion == mVersion
	}
	switch rangeSym {
	case "+":
		return cSemver.GreaterThanOrEqual(mSemver)
	case "-":
		return mSemver.GreaterThanOrEqual(cSemver)
	default:
		return cSemver.Equal(mSemver)
	}
}
