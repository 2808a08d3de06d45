package matchup

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	ts := time.Date(2013, 1, 2, 0, 0, 1, 500_000_000, time.UTC)

	tests := []struct {
		name  string
		value Value
		kind  Kind
		float float64
	}{
		{"number", Number(27.5), KindNumber, 27.5},
		{"numeric string", String("12.25"), KindString, 12.25},
		{"time", Time(ts), KindTime, 1357084801.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.value.Kind())
			assert.True(t, tt.value.Valid())
			assert.InDelta(t, tt.float, tt.value.Float64(), 1e-6)
		})
	}

	assert.True(t, math.IsNaN(String("WMO-41001").Float64()))
	assert.True(t, math.IsNaN(Value{}.Float64()))
	assert.Nil(t, Value{}.Interface())
	assert.Equal(t, "invalid", Value{}.Kind().String())
}

func TestValueEqualTreatsNaNAsEqual(t *testing.T) {
	assert.True(t, Number(math.NaN()).Equal(Number(math.NaN())))
	assert.False(t, Number(1).Equal(String("1")))
	assert.True(t, Time(time.Unix(10, 0)).Equal(Time(time.Unix(10, 0).In(time.FixedZone("X", 3600)))))
}

func TestRecordFields(t *testing.T) {
	rec := NewRecord().
		Set("y", Number(22.8)).
		Set("platform", String("ship")).
		Set("ignored", Value{})

	assert.Equal(t, 2, rec.Len())
	assert.False(t, rec.Has("ignored"))
	assert.Equal(t, []string{"platform", "y"}, rec.FieldNames())

	v, ok := rec.Get("y")
	require.True(t, ok)
	f, ok := v.Num()
	require.True(t, ok)
	assert.Equal(t, 22.8, f)

	_, ok = rec.Get("x")
	assert.False(t, ok)

	rec.Delete("platform")
	assert.False(t, rec.Has("platform"))

	var zero Record
	zero.Set("x", Number(1))
	assert.True(t, zero.Has("x"))
}

func TestTreeShape(t *testing.T) {
	tree := Tree{
		NewRecord().AddMatch(
			NewRecord(),
			NewRecord().AddMatch(NewRecord()),
		),
		NewRecord(),
	}

	assert.Equal(t, 5, tree.Size())
	assert.Equal(t, 3, tree.Depth())
	assert.Equal(t, 0, Tree{}.Size())
	assert.Equal(t, 0, Tree{}.Depth())
	assert.True(t, tree[0].HasMatches())
	assert.False(t, tree[1].HasMatches())
}

func TestRecordEqual(t *testing.T) {
	a := NewRecord().Set("x", Number(1)).AddMatch(NewRecord().Set("y", Number(math.NaN())))
	b := NewRecord().Set("x", Number(1)).AddMatch(NewRecord().Set("y", Number(math.NaN())))
	assert.True(t, a.Equal(b))

	b.Matches[0].Set("y", Number(2))
	assert.False(t, a.Equal(b))

	withEmpty := NewRecord()
	withEmpty.Matches = []*Record{}
	assert.False(t, NewRecord().Equal(withEmpty), "nil and empty matches are distinct")
}
