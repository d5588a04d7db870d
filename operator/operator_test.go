package operator

import (
	"testing"

	"github.com/konveyor-labs/tornado/expr/accessor"
	"github.com/konveyor-labs/tornado/expr/parser"
	"github.com/konveyor-labs/tornado/value"
)

type fakeVars struct{}

func (fakeVars) RuleObject(string) value.Value { return value.Object(nil) }
func (fakeVars) Root() value.Value             { return value.Object(nil) }

func newTestParser() *parser.Parser {
	return parser.NewBuilder([]string{"_variables", "_ruleset"}, []string{"item"}).Build()
}

func eventCtx(fields map[string]value.Value) *accessor.Context {
	return &accessor.Context{Event: value.Object(fields), Vars: fakeVars{}}
}

func TestOperator_SimpleMatchEquals(t *testing.T) {
	p := newTestParser()
	op, err := Compile(p, Node{Kind: "eq", A: "${event.type}", B: "email"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !op.Evaluate(eventCtx(map[string]value.Value{"type": value.Text("email")})) {
		t.Fatalf("expected match")
	}
	if op.Evaluate(eventCtx(map[string]value.Value{"type": value.Text("sms")})) {
		t.Fatalf("expected no match")
	}
}

func TestOperator_CrossTagNumberEquality(t *testing.T) {
	p := newTestParser()
	op, err := Compile(p, Node{Kind: "eq", A: "${event.count}", B: "${event.countf}"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := eventCtx(map[string]value.Value{"count": value.Num(value.Unsigned(0)), "countf": value.Num(value.Float(0.0))})
	if !op.Evaluate(ctx) {
		t.Fatalf("expected equal")
	}
}

func TestOperator_UnresolvedAccessorIsFalseNotError(t *testing.T) {
	p := newTestParser()
	op, err := Compile(p, Node{Kind: "eq", A: "${event.missing}", B: "x"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if op.Evaluate(eventCtx(nil)) {
		t.Fatalf("expected false for unresolved accessor")
	}
}

func TestOperator_AndOrNot(t *testing.T) {
	p := newTestParser()
	and, err := Compile(p, Node{Kind: "and", Ops: []Node{
		{Kind: "eq", A: "a", B: "a"},
		{Kind: "eq", A: "b", B: "b"},
	}})
	if err != nil {
		t.Fatalf("compile and: %v", err)
	}
	if !and.Evaluate(eventCtx(nil)) {
		t.Fatalf("expected and=true")
	}
	not, err := Compile(p, Node{Kind: "not", Op: &Node{Kind: "eq", A: "a", B: "b"}})
	if err != nil {
		t.Fatalf("compile not: %v", err)
	}
	if !not.Evaluate(eventCtx(nil)) {
		t.Fatalf("expected not(false)=true")
	}
}

func TestOperator_GreaterThanUnorderedIsFalse(t *testing.T) {
	p := newTestParser()
	op, err := Compile(p, Node{Kind: "gt", A: "${event.a}", B: "${event.b}"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := eventCtx(map[string]value.Value{"a": value.Text("x"), "b": value.Num(value.Unsigned(1))})
	if op.Evaluate(ctx) {
		t.Fatalf("expected false for unordered comparison")
	}
}

func TestOperator_Contains(t *testing.T) {
	p := newTestParser()
	op, err := Compile(p, Node{Kind: "contains", Haystack: "${event.msg}", Needle: "wor"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !op.Evaluate(eventCtx(map[string]value.Value{"msg": value.Text("hello world")})) {
		t.Fatalf("expected contains match")
	}
}

func TestOperator_Regex(t *testing.T) {
	p := newTestParser()
	op, err := Compile(p, Node{Kind: "regex", Pattern: `^[0-9]+$`, Target: "${event.code}"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !op.Evaluate(eventCtx(map[string]value.Value{"code": value.Text("1234")})) {
		t.Fatalf("expected regex match")
	}
	if op.Evaluate(eventCtx(map[string]value.Value{"code": value.Text("12a4")})) {
		t.Fatalf("expected regex no-match")
	}
}

func TestOperator_InvalidRegexFailsAtCompileTime(t *testing.T) {
	p := newTestParser()
	_, err := Compile(p, Node{Kind: "regex", Pattern: `(unterminated`, Target: "${event.code}"})
	if err == nil {
		t.Fatalf("expected compile-time regex error")
	}
}
