package datalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestOriginUnionAndSubset(t *testing.T) {
	a := NewOrigin(0, 1)
	b := NewOrigin(2)
	u := a.Union(b)

	require.True(t, u.Contains(0))
	require.True(t, u.Contains(1))
	require.True(t, u.Contains(2))
	require.True(t, a.Subset(u))
	require.True(t, b.Subset(u))
	require.False(t, u.Subset(a))
}

func TestOriginEqual(t *testing.T) {
	require.True(t, NewOrigin(1, 2, 3).Equal(NewOrigin(3, 2, 1)))
	require.False(t, NewOrigin(1, 2).Equal(NewOrigin(1, 2, 3)))
}

func TestOriginSlicesSorted(t *testing.T) {
	o := NewOrigin(3, 1, 2)
	if diff := cmp.Diff([]BlockID{1, 2, 3}, o.Slice()); diff != "" {
		t.Errorf("Slice() mismatch (-want +got):\n%s", diff)
	}
}

func TestFactGroupInsertDedupesByOriginAndFact(t *testing.T) {
	fg := NewFactGroup()
	fact := NewFact("right", Str("alice"), Str("read"))

	require.True(t, fg.Insert(NewOrigin(0), fact))
	require.False(t, fg.Insert(NewOrigin(0), fact))
	require.Equal(t, 1, fg.Len())

	require.True(t, fg.Insert(NewOrigin(1), fact))
	require.Equal(t, 2, fg.Len())
}

func TestFactGroupCandidatesForRespectsScope(t *testing.T) {
	fg := NewFactGroup()
	authorityFact := NewFact("right", Str("alice"), Str("read"))
	extraFact := NewFact("right", Str("mallory"), Str("write"))

	fg.Insert(NewOrigin(0), authorityFact)
	fg.Insert(NewOrigin(1), extraFact)

	authorityOnly := fg.CandidatesFor("right", NewOrigin(0))
	require.Len(t, authorityOnly, 1)
	require.True(t, authorityOnly[0].fact.Equal(authorityFact))

	both := fg.CandidatesFor("right", NewOrigin(0, 1))
	require.Len(t, both, 2)
}

func TestFactGroupFilterScope(t *testing.T) {
	fg := NewFactGroup()
	fg.Insert(NewOrigin(0), NewFact("a", Int(1)))
	fg.Insert(NewOrigin(1), NewFact("b", Int(2)))

	filtered := fg.FilterScope(NewOrigin(0))
	require.Equal(t, 1, filtered.Len())
}

func TestFactGroupMerge(t *testing.T) {
	a := NewFactGroup()
	a.Insert(NewOrigin(0), NewFact("a", Int(1)))
	b := NewFactGroup()
	b.Insert(NewOrigin(1), NewFact("b", Int(2)))

	a.Merge(b)
	require.Equal(t, 2, a.Len())
}
