package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberCrossTagEquality(t *testing.T) {
	assert.True(t, Num(Unsigned(0)).Equal(Num(Float(0.0))))
	assert.True(t, Num(Signed(5)).Equal(Num(Unsigned(5))))
	assert.False(t, Num(Signed(-1)).Equal(Num(Unsigned(0))))
}

func TestNumberOrdering(t *testing.T) {
	assert.Equal(t, LessThan, Num(Signed(-1)).Compare(Num(Unsigned(0))))
	assert.Equal(t, GreaterThan, Num(Unsigned(3)).Compare(Num(Signed(-3))))
	assert.Equal(t, EqualTo, Num(Float(2.0)).Compare(Num(Signed(2))))
}

func TestBoolOrdering(t *testing.T) {
	assert.Equal(t, LessThan, Bool(false).Compare(Bool(true)))
	assert.Equal(t, EqualTo, Bool(true).Compare(Bool(true)))
}

func TestTextOrderingAndEquality(t *testing.T) {
	assert.Equal(t, LessThan, Text("a").Compare(Text("b")))
	assert.True(t, Text("x").Equal(Text("x")))
}

func TestCrossTypeCompareIsUnordered(t *testing.T) {
	assert.Equal(t, Unordered, Text("1").Compare(Num(Signed(1))))
	assert.False(t, Text("1").Equal(Num(Signed(1))))
}

func TestNullEqualsOnlyNull(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(Bool(false)))
}

func TestObjectEqualityIgnoresKeyOrder(t *testing.T) {
	a := Object(map[string]Value{"a": Text("1"), "b": Text("2")})
	b := Object(map[string]Value{"b": Text("2"), "a": Text("1")})
	assert.True(t, a.Equal(b))
}

func TestObjectCompareIsUnordered(t *testing.T) {
	a := Object(map[string]Value{"a": Text("1")})
	b := Object(map[string]Value{"a": Text("1")})
	assert.Equal(t, Unordered, a.Compare(b))
}

func TestArrayLexicographicOrdering(t *testing.T) {
	a := Array([]Value{Num(Signed(1)), Num(Signed(2))})
	b := Array([]Value{Num(Signed(1)), Num(Signed(3))})
	assert.Equal(t, LessThan, a.Compare(b))

	short := Array([]Value{Num(Signed(1))})
	assert.Equal(t, LessThan, short.Compare(a))
}

func TestIndexPastEndIsNotAnError(t *testing.T) {
	arr := Array([]Value{Text("x")})
	_, ok := arr.Index(5)
	assert.False(t, ok)
}

func TestContainsTextArrayObject(t *testing.T) {
	assert.True(t, Text("hello world").Contains(Text("wor")))
	assert.False(t, Text("hello").Contains(Text("xyz")))

	arr := Array([]Value{Num(Signed(1)), Num(Signed(2))})
	assert.True(t, arr.Contains(Num(Unsigned(2))))

	obj := Object(map[string]Value{"k": Text("v")})
	assert.True(t, obj.Contains(Text("k")))
	assert.False(t, obj.Contains(Text("missing")))
}

func TestScalarStringRendering(t *testing.T) {
	assert.Equal(t, "null", Null().String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "44", Num(Signed(44)).String())
	assert.Equal(t, "44.5", Num(Float(44.5)).String())
	assert.Equal(t, "44.0", Num(Float(44.0)).String())
	assert.Equal(t, "email", Text("email").String())
}

func TestIsScalar(t *testing.T) {
	require.True(t, Text("x").IsScalar())
	require.False(t, Array(nil).IsScalar())
	require.False(t, Object(nil).IsScalar())
}

func TestFromAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"type":       "email",
		"created_ms": uint64(1554130814854),
		"nested":     map[string]any{"a": int64(1)},
		"list":       []any{1, "two", 3.5},
	}
	v := FromAny(in)
	typ, ok := v.Field("type")
	require.True(t, ok)
	assert.Equal(t, "email", typ.String())

	created, ok := v.Field("created_ms")
	require.True(t, ok)
	n, _ := created.AsNumber()
	assert.Equal(t, NumberUnsigned, n.Kind)
}
