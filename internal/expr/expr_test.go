package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrictExpr(t *testing.T) {
	assert.True(t, IsStrictExpr("${ .a.b }"))
	assert.True(t, IsStrictExpr("  ${.a}  "))
	assert.False(t, IsStrictExpr(".a.b"))
	assert.False(t, IsStrictExpr("plain string"))
}

func TestSanitize_StripsWrapper(t *testing.T) {
	assert.Equal(t, ".a.b", Sanitize("${ .a.b }"))
	assert.Equal(t, ".a", Sanitize("${.a}"))
}

func TestEvaluate_BareProgramAgainstInput(t *testing.T) {
	g := NewGojqEvaluator()
	env := Environment{Input: map[string]interface{}{"a": map[string]interface{}{"b": 42}}}

	v, err := g.Evaluate(context.Background(), "$input.a.b", env)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestEvaluate_MissingFieldDegradesToNull(t *testing.T) {
	g := NewGojqEvaluator()
	env := Environment{Input: map[string]interface{}{"a": 1}}

	v, err := g.Evaluate(context.Background(), "$input.missing.deeper", env)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvaluate_FieldAccessOnScalarDegradesToNull(t *testing.T) {
	g := NewGojqEvaluator()
	env := Environment{Input: map[string]interface{}{"a": 1}}

	v, err := g.Evaluate(context.Background(), "$input.a.b", env)
	require.NoError(t, err, "indexing into a scalar field must degrade to null, not raise")
	assert.Nil(t, v)
}

func TestEvaluate_EmptyExpressionReturnsNil(t *testing.T) {
	g := NewGojqEvaluator()

	v, err := g.Evaluate(context.Background(), "   ", Environment{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvaluate_SyntaxErrorSurfaces(t *testing.T) {
	g := NewGojqEvaluator()

	_, err := g.Evaluate(context.Background(), "$input[", Environment{})
	require.Error(t, err)
}

func TestEvaluate_CompileCacheReused(t *testing.T) {
	g := NewGojqEvaluator()
	env := Environment{Input: 1}

	_, err := g.Evaluate(context.Background(), "$input + 1", env)
	require.NoError(t, err)
	_, ok := g.cache["$input + 1"]
	assert.True(t, ok, "compiled program should be memoized under its original source")

	_, err = g.Evaluate(context.Background(), "$input + 1", env)
	require.NoError(t, err)
}

func TestEvaluate_TypeErrorSurfacesRatherThanDegradingToNull(t *testing.T) {
	g := NewGojqEvaluator()

	_, err := g.Evaluate(context.Background(), "{} + 1", Environment{})
	require.Error(t, err, "adding an object to a number must surface as a real error, not nil,nil")
}

func TestEvaluate_DivisionTypeErrorSurfaces(t *testing.T) {
	g := NewGojqEvaluator()

	_, err := g.Evaluate(context.Background(), `"a" / 0`, Environment{})
	require.Error(t, err)
}

func TestNullSafeFieldAccess_RewritesBareFieldSegments(t *testing.T) {
	assert.Equal(t, ".foo?.bar?", nullSafeFieldAccess(".foo.bar"))
	assert.Equal(t, "$input.foo?", nullSafeFieldAccess("$input.foo"))
}

func TestNullSafeFieldAccess_LeavesAlreadyOptionalSegmentsAlone(t *testing.T) {
	assert.Equal(t, ".foo?", nullSafeFieldAccess(".foo?"))
}

func TestNullSafeFieldAccess_SkipsStringLiterals(t *testing.T) {
	assert.Equal(t, `"a.b" + .foo?`, nullSafeFieldAccess(`"a.b" + .foo`))
}

func TestNullSafeFieldAccess_LeavesDecimalLiteralsAndRecursiveDescentAlone(t *testing.T) {
	assert.Equal(t, "3.14", nullSafeFieldAccess("3.14"))
	assert.Equal(t, "..", nullSafeFieldAccess(".."))
}

func TestEvaluateValue_TraversesMapsAndSlices(t *testing.T) {
	g := NewGojqEvaluator()
	env := Environment{Input: map[string]interface{}{"name": "gopher"}}

	value := map[string]interface{}{
		"greeting": "${ \"hello \" + $input.name }",
		"literal":  "unchanged",
		"nested": []interface{}{
			"${ $input.name }",
			42,
		},
	}

	out, err := g.EvaluateValue(context.Background(), value, env)
	require.NoError(t, err)

	m, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hello gopher", m["greeting"])
	assert.Equal(t, "unchanged", m["literal"])

	nested, ok := m["nested"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "gopher", nested[0])
	assert.EqualValues(t, 42, nested[1])
}

func TestEvaluateValue_NonStringScalarsPassThrough(t *testing.T) {
	g := NewGojqEvaluator()

	out, err := g.EvaluateValue(context.Background(), 7, Environment{})
	require.NoError(t, err)
	assert.EqualValues(t, 7, out)

	out, err = g.EvaluateValue(context.Background(), true, Environment{})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestEvaluate_ItemAndAtBindings(t *testing.T) {
	g := NewGojqEvaluator()
	env := Environment{Item: "x", At: 2}

	v, err := g.Evaluate(context.Background(), "{item: $item, at: $at}", env)
	require.NoError(t, err)
	m, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "x", m["item"])
	assert.EqualValues(t, 2, m["at"])
}
