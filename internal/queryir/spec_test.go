package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrder(t *testing.T) {
	assert.Equal(t, OrderKey{Field: "created", Desc: true}, ParseOrder("-created"))
	assert.Equal(t, OrderKey{Field: "name"}, ParseOrder("+name"))
	assert.Equal(t, OrderKey{Field: "name"}, ParseOrder("name"))
	assert.Equal(t, "-created", ParseOrder("-created").String())
}

func TestSpec_ZeroValueMatchesNewSpec(t *testing.T) {
	var zero Spec
	assert.True(t, zero.Equal(NewSpec()))
	assert.True(t, IsAll(zero.Where()))
	assert.False(t, zero.IsNone())
	_, bounded := zero.Length()
	assert.False(t, bounded)
}

func TestSpec_DerivationNeverMutatesReceiver(t *testing.T) {
	base := NewSpec().Filter(Gte("age", 18)).OrderBy("-created").Limit(0, 10)
	snapshot := base

	_ = base.Filter(Eq("status", "x"))
	_ = base.Exclude(Eq("status", "y"))
	_ = base.None()
	_ = base.OrderBy("name")
	_ = base.Limit(2, 3)
	_ = base.SelectRelated()

	assert.True(t, base.Equal(snapshot))
	assert.Equal(t, []OrderKey{{Field: "created", Desc: true}}, base.Order())
	assert.False(t, base.Related())
}

func TestSpec_OrderReturnsCopy(t *testing.T) {
	s := NewSpec().OrderBy("a", "-b")
	keys := s.Order()
	keys[0].Field = "mutated"
	assert.Equal(t, "a", s.Order()[0].Field)
}

func TestSpec_FilterTwiceEqualsFilterOfConjunction(t *testing.T) {
	p := Gte("age", 18)
	q := NotEq("status", "banned")

	chained := NewSpec().Filter(p).Filter(q)
	combined := NewSpec().Filter(AndWith(p, q))

	assert.True(t, chained.Equal(combined))
}

func TestSpec_ExcludeNegates(t *testing.T) {
	p := Eq("status", "banned")
	s := NewSpec().Exclude(p)
	assert.True(t, Equal(Negate(p), s.Where()))
}

func TestSpec_OrderByReplaces(t *testing.T) {
	s := NewSpec().OrderBy("a", "-b").OrderBy("c")
	assert.Equal(t, []OrderKey{{Field: "c"}}, s.Order())
	assert.Empty(t, s.OrderBy().Order())
}

func TestSpec_None(t *testing.T) {
	s := NewSpec().Filter(Eq("a", 1)).None()
	assert.True(t, s.IsNone())
	assert.True(t, s.Filter(Eq("b", 2)).IsNone(), "Empty stays Empty through filtering")
	assert.True(t, NewSpec().Limit(4, 0).IsNone(), "zero-length window")
}

func TestSpec_LimitRebasing(t *testing.T) {
	tests := []struct {
		name       string
		spec       Spec
		wantOffset int
		wantLength int
		wantBound  bool
	}{
		{"single", NewSpec().Limit(2, 3), 2, 3, true},
		{"nested inside", NewSpec().Limit(2, 3).Limit(1, 1), 3, 1, true},
		{"nested clamps length", NewSpec().Limit(2, 3).Limit(1, 10), 3, 2, true},
		{"nested past end", NewSpec().Limit(2, 3).Limit(5, 1), 7, 0, true},
		{"negative length unbounded", NewSpec().Limit(4, -1), 4, 0, false},
		{"negative length inside window", NewSpec().Limit(0, 5).Limit(2, -1), 2, 3, true},
		{"negative offset clamped", NewSpec().Limit(-3, 2), 0, 2, true},
		{"bounded after unbounded", NewSpec().Limit(4, -1).Limit(1, 2), 5, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOffset, tt.spec.Offset())
			length, bounded := tt.spec.Length()
			assert.Equal(t, tt.wantBound, bounded)
			if bounded {
				assert.Equal(t, tt.wantLength, length)
			}
		})
	}
}

func TestSpec_LimitComposition(t *testing.T) {
	composed := NewSpec().Limit(2, 3).Limit(1, 1)
	single := NewSpec().Limit(3, 1)
	assert.True(t, composed.Equal(single))
}

func TestSpec_EqualityIsNotIdentity(t *testing.T) {
	a := NewSpec().Filter(Eq("a", 1)).OrderBy("-b")
	b := NewSpec().Filter(Eq("a", 1)).OrderBy("-b")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(b.SelectRelated()))
	assert.False(t, a.Equal(b.OrderBy("b")))
	assert.False(t, a.Equal(b.Limit(1, -1)))
}

func TestSpec_Fingerprint(t *testing.T) {
	a := NewSpec().Filter(In("id", 1, 2)).OrderBy("-created").Limit(0, 5)
	b := NewSpec().Filter(In("id", 1, 2)).OrderBy("-created").Limit(0, 5)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)

	fc, err := a.Limit(1, -1).Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestSpec_String(t *testing.T) {
	s := NewSpec().Filter(Gte("age", 18)).OrderBy("-created", "name").Limit(2, 3).SelectRelated()
	assert.Equal(t, "where=age >= 18 order=-created,name window=2:3 related", s.String())
	assert.Equal(t, "where=ALL window=4:*", NewSpec().Limit(4, -1).String())
}
