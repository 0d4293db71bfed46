package datalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Value equality and ordering
// ============================================================================

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"ints equal", Int(42), Int(42), true},
		{"ints not equal", Int(42), Int(43), false},
		{"strings equal", Str("hello"), Str("hello"), true},
		{"bools equal", Bool(true), Bool(true), true},
		{"bytes equal", BytesVal([]byte{1, 2, 3}), BytesVal([]byte{1, 2, 3}), true},
		{"different kinds", Int(1), Str("1"), false},
		{"sets equal regardless of build order", MustSet(Int(1), Int(2)), MustSet(Int(2), Int(1)), true},
		{"sets not equal", MustSet(Int(1)), MustSet(Int(1), Int(2)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.a.Equal(tt.b))
		})
	}
}

func TestValueCompareTotalOrder(t *testing.T) {
	values := []Value{Int(1), Int(2), Str("a"), Str("b"), Bool(false), Bool(true)}
	for i := range values {
		for j := range values {
			c := values[i].Compare(values[j])
			switch {
			case i == j:
				require.Zero(t, c)
			case i < j:
				require.Negative(t, c)
			default:
				require.Positive(t, c)
			}
		}
	}
}

func TestNewSetRejectsNestedSets(t *testing.T) {
	inner := MustSet(Int(1))
	_, err := NewSet(inner)
	require.Error(t, err)
}

func TestNewSetDeduplicatesAndSorts(t *testing.T) {
	v, err := NewSet(Int(3), Int(1), Int(1), Int(2))
	require.NoError(t, err)
	items, ok := v.AsSet()
	require.True(t, ok)
	require.Equal(t, []Value{Int(1), Int(2), Int(3)}, items)
}

func TestDateValTruncatesToUTC(t *testing.T) {
	loc := time.FixedZone("TEST", 3600)
	local := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)
	v := DateVal(local)
	got, ok := v.AsDate()
	require.True(t, ok)
	require.Equal(t, time.UTC, got.Location())
}

func TestValueStringRendering(t *testing.T) {
	tests := []struct {
		v        Value
		expected string
	}{
		{Int(42), "42"},
		{Str("hi"), `"hi"`},
		{Bool(true), "true"},
		{BytesVal([]byte{0xab, 0xcd}), "hex:abcd"},
		{MustSet(Int(1), Int(2)), "[1, 2]"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, tt.v.String())
	}
}
