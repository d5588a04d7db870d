package extractor

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

func ctxWithType(t string) *accessor.Context {
	return &accessor.Context{
		Event: value.Object(map[string]value.Value{
			"type": value.Text(t),
		}),
		Vars: fakeVars{},
	}
}

func TestExtractor_IndexedSingleGroupFirstMatch(t *testing.T) {
	idx := 0
	ex, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.type}", Mode: Indexed,
		Pattern: `([0-9]+)`, GroupIdx: &idx,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := ex.Evaluate(ctxWithType("temp=44"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	s, _ := got.AsText()
	if s != "44" {
		t.Fatalf("got %q, want 44", s)
	}
}

func TestExtractor_IndexedAllMatches(t *testing.T) {
	idx := 0
	ex, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.type}", Mode: Indexed,
		Pattern: `([0-9]+)`, GroupIdx: &idx, AllMatches: true,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := ex.Evaluate(ctxWithType("a=1 b=22 c=333"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	arr, ok := got.AsArray()
	if !ok || len(arr) != 3 {
		t.Fatalf("got %#v, want array of 3", got)
	}
	s0, _ := arr[0].AsText()
	s2, _ := arr[2].AsText()
	if s0 != "1" || s2 != "333" {
		t.Fatalf("got %v", arr)
	}
}

func TestExtractor_IndexedNoGroupIdxAllCaptures(t *testing.T) {
	ex, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.type}", Mode: Indexed,
		Pattern: `(\w+)=(\d+)`,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := ex.Evaluate(ctxWithType("temp=44"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	arr, ok := got.AsArray()
	if !ok || len(arr) != 2 {
		t.Fatalf("got %#v, want 2 captures", got)
	}
}

func TestExtractor_NamedSingle(t *testing.T) {
	ex, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.type}", Mode: Named,
		Pattern: `(?P<key>\w+)=(?P<val>\d+)`,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := ex.Evaluate(ctxWithType("temp=44"))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	obj, ok := got.AsObject()
	if !ok {
		t.Fatalf("got %#v, want object", got)
	}
	key, _ := obj["key"].AsText()
	val, _ := obj["val"].AsText()
	if key != "temp" || val != "44" {
		t.Fatalf("got key=%q val=%q", key, val)
	}
}

func TestExtractor_NamedRequiresNamedGroups(t *testing.T) {
	_, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.type}", Mode: Named,
		Pattern: `(\d+)`,
	})
	if err == nil {
		t.Fatalf("expected compile error: Named pattern with no named groups")
	}
}

func TestExtractor_NoMatchFails(t *testing.T) {
	idx := 0
	ex, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.type}", Mode: Indexed,
		Pattern: `([0-9]+)`, GroupIdx: &idx,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = ex.Evaluate(ctxWithType("no digits here"))
	if err == nil {
		t.Fatalf("expected evaluation error on no match")
	}
}

func TestExtractor_FromNotTextFails(t *testing.T) {
	idx := 0
	ex, err := Compile(newTestParser(), Spec{
		VarName: "t", From: "${event.payload}", Mode: Indexed,
		Pattern: `([0-9]+)`, GroupIdx: &idx,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := &accessor.Context{
		Event: value.Object(map[string]value.Value{"payload": value.Object(nil)}),
		Vars:  fakeVars{},
	}
	_, err = ex.Evaluate(ctx)
	if err == nil {
		t.Fatalf("expected error: from did not resolve to text")
	}
}
