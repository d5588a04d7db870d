// Package interpolator renders a compiled Interpolator template into a
// string, per spec §4.2. Every embedded "${…}" expression must resolve to a
// scalar Value (null, bool, number or text); arrays, objects, and
// unresolvable accessors are rendering errors, not empty strings.
package interpolator

import (
	"fmt"
	"strings"

	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/parser"
)

// RenderError is raised when a template segment resolves to a non-scalar
// Value, or doesn't resolve at all.
type RenderError struct {
	Segment int
	Reason  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("interpolator: segment %d: %s", e.Segment, e.Reason)
}

// Render renders expr against ctx. expr is normally a parser.Interpolator,
// but Literal and scalar Accessor/Custom expressions are accepted too so
// callers don't need a type switch before rendering an arbitrary compiled
// expression as text.
func Render(expr parser.Expr, ctx *accessor.Context) (string, error) {
	interp, ok := expr.(parser.Interpolator)
	if !ok {
		return renderScalarSegment(0, expr, ctx)
	}
	var sb strings.Builder
	for i, seg := range interp.Segments {
		if seg.Expr == nil {
			sb.WriteString(seg.Text)
			continue
		}
		s, err := renderScalarSegment(i, seg.Expr, ctx)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func renderScalarSegment(i int, expr parser.Expr, ctx *accessor.Context) (string, error) {
	val, ok := accessor.Resolve(expr, ctx)
	if !ok {
		return "", &RenderError{Segment: i, Reason: "accessor did not resolve"}
	}
	if !val.IsScalar() {
		return "", &RenderError{Segment: i, Reason: fmt.Sprintf("expected scalar, got %s", val.Kind())}
	}
	return val.String(), nil
}
