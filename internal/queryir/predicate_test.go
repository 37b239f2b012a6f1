package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_RejectsMalformedComparisons(t *testing.T) {
	tests := []struct {
		name  string
		field string
		op    Operator
		value any
	}{
		{"unknown operator", "age", Operator("~="), 1},
		{"empty field", "  ", OpEq, 1},
		{"in with scalar", "age", OpIn, 3},
		{"in with nil", "age", OpIn, nil},
		{"range with one bound", "age", OpRange, []any{1}},
		{"range with null bound", "age", OpRange, []any{1, nil}},
		{"range with scalar", "age", OpRange, 5},
		{"like with int", "name", OpLike, 5},
		{"icontains with nil", "name", OpIContains, nil},
		{"ordering against nil", "age", OpGt, nil},
		{"ordering against list", "age", OpLt, []int{1, 2}},
		{"equality against list", "age", OpEq, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compare(tt.field, tt.op, tt.value)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrInvalidPredicate)
			assert.True(t, IsInvalidPredicate(err))

			var pe *PredicateError
			require.ErrorAs(t, err, &pe)
			assert.NotEmpty(t, pe.Message)
		})
	}
}

func TestCompare_AcceptsEveryOperator(t *testing.T) {
	for _, op := range Operators() {
		var value any = "x"
		switch {
		case op == OpIn:
			value = []any{"x"}
		case op == OpRange:
			value = []any{"a", "z"}
		case !op.TakesValue():
			value = nil
		}
		p, err := Compare("name", op, value)
		require.NoError(t, err, "operator %s", op)
		assert.Equal(t, op, p.(Comparison).Op)
	}
}

func TestCompare_CopiesListValues(t *testing.T) {
	ids := []int{1, 2, 3}
	p, err := Compare("id", OpIn, ids)
	require.NoError(t, err)

	ids[0] = 99

	assert.Equal(t, []any{1, 2, 3}, p.(Comparison).Value)
}

func TestIn_Variadic(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, In("tag", "a", "b").(Comparison).Value)
	assert.Equal(t, []any{}, In("tag").(Comparison).Value)
}

func TestCompare_NullOperatorsDropValue(t *testing.T) {
	p, err := Compare("deleted_at", OpIsNull, "ignored")
	require.NoError(t, err)
	assert.Nil(t, p.(Comparison).Value)
}

func TestMustCompare_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompare("", OpEq, 1) })
	assert.NotPanics(t, func() { MustCompare("age", OpEq, 1) })
}

func TestConstructors_PanicOnInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		fn   func() Predicate
	}{
		{"gt null", func() Predicate { return Gt("age", nil) }},
		{"lte list", func() Predicate { return Lte("age", []int{1, 2}) }},
		{"range null bound", func() Predicate { return Range("age", nil, 5) }},
		{"is null empty field", func() Predicate { return IsNull("") }},
		{"eq empty field", func() Predicate { return Eq("", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { tt.fn() })
		})
	}

	assert.NotPanics(t, func() { Gt("age", 18) })
	assert.NotPanics(t, func() { IsNotNull("deleted_at") })
}

func TestEq_NilValueIsAllowed(t *testing.T) {
	p := Eq("parent", nil)
	c := p.(Comparison)
	assert.Equal(t, OpEq, c.Op)
	assert.Nil(t, c.Value)
}

func TestAndWith_Identities(t *testing.T) {
	p := Eq("a", 1)

	assert.True(t, Equal(p, AndWith(All{}, p)), "All is the identity of AND")
	assert.True(t, Equal(p, AndWith(p, All{})))
	assert.True(t, Equal(p, AndWith(nil, p)), "nil acts as All")
	assert.True(t, IsEmpty(AndWith(Empty{}, p)), "Empty annihilates AND")
	assert.True(t, IsEmpty(AndWith(p, Empty{})))
	assert.True(t, IsAll(AndWith(All{}, All{})))
}

func TestOrWith_Identities(t *testing.T) {
	p := Eq("a", 1)

	assert.True(t, Equal(p, OrWith(Empty{}, p)), "Empty is the identity of OR")
	assert.True(t, Equal(p, OrWith(p, Empty{})))
	assert.True(t, IsAll(OrWith(All{}, p)), "All annihilates OR")
	assert.True(t, IsAll(OrWith(p, All{})))
	assert.True(t, IsEmpty(OrWith(Empty{}, Empty{})))
}

func TestCombinators_ShareOperands(t *testing.T) {
	p := Eq("a", 1)
	q := Gt("b", 2)

	and := AndWith(p, q).(And)
	assert.True(t, Equal(p, and.Left))
	assert.True(t, Equal(q, and.Right))

	or := OrWith(p, q).(Or)
	assert.True(t, Equal(p, or.Left))
	assert.True(t, Equal(q, or.Right))

	// The operands are untouched.
	assert.Equal(t, Comparison{Field: "a", Op: OpEq, Value: 1}, p)
}

func TestNegate_DoesNotCollapseDoubleNegation(t *testing.T) {
	p := Eq("a", 1)
	nn := Negate(Negate(p))

	outer, ok := nn.(Not)
	require.True(t, ok)
	inner, ok := outer.Inner.(Not)
	require.True(t, ok)
	assert.True(t, Equal(p, inner.Inner))
	assert.False(t, Equal(p, nn))
}

func TestEqual_IsStructural(t *testing.T) {
	a := AndWith(Eq("a", 1), Eq("b", 2))
	b := AndWith(Eq("a", 1), Eq("b", 2))
	swapped := AndWith(Eq("b", 2), Eq("a", 1))

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, swapped), "logically equivalent but shaped differently")
	assert.False(t, Equal(a, OrWith(Eq("a", 1), Eq("b", 2))))
	assert.True(t, Equal(nil, All{}))
	assert.False(t, Equal(Empty{}, All{}))
	assert.True(t, Equal(In("id", 1, 2), In("id", 1, 2)))
	assert.False(t, Equal(In("id", 1, 2), In("id", 2, 1)))
}

func TestString_RendersTree(t *testing.T) {
	p := AndWith(Gte("age", 18), Negate(Eq("status", "banned")))
	assert.Equal(t, `(age >= 18 AND NOT (status = "banned"))`, String(p))
	assert.Equal(t, "deleted_at IS NULL", String(IsNull("deleted_at")))
	assert.Equal(t, "ALL", String(nil))
	assert.Equal(t, "EMPTY", String(Empty{}))
}

func TestFields_LeftToRight(t *testing.T) {
	p := OrWith(AndWith(Eq("a", 1), Negate(Eq("author__name", "x"))), Eq("a", 2))
	assert.Equal(t, []string{"a", "author__name", "a"}, Fields(p))
	assert.Empty(t, Fields(All{}))
}

func TestOperator_Classification(t *testing.T) {
	assert.True(t, OpIContains.IsText())
	assert.True(t, OpIContains.CaseInsensitive())
	assert.False(t, OpContains.CaseInsensitive())
	assert.True(t, OpGte.IsOrdering())
	assert.False(t, OpEq.IsOrdering())
	assert.False(t, OpIsNull.TakesValue())
	assert.False(t, Operator("BETWEEN").Valid())
	assert.Len(t, Operators(), 19)
}
