package datalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnifyPredicateBindsVariables(t *testing.T) {
	goal := NewPredicate("right", Var("user"), Val(Str("read")))
	fact, _ := NewPredicate("right", Val(Str("alice")), Val(Str("read"))).Ground()

	b, ok := UnifyPredicate(goal, fact, Binding{})
	require.True(t, ok)
	v, ok := b["user"]
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "alice", s)
}

func TestUnifyPredicateRejectsDifferentArity(t *testing.T) {
	goal := NewPredicate("right", Var("user"))
	fact, _ := NewPredicate("right", Val(Str("alice")), Val(Str("read"))).Ground()
	_, ok := UnifyPredicate(goal, fact, Binding{})
	require.False(t, ok)
}

func TestUnifyPredicateRejectsDifferentName(t *testing.T) {
	goal := NewPredicate("right", Val(Str("alice")))
	fact, _ := NewPredicate("left", Val(Str("alice"))).Ground()
	_, ok := UnifyPredicate(goal, fact, Binding{})
	require.False(t, ok)
}

func TestUnifyPredicateConsistentRepeatedVariable(t *testing.T) {
	goal := NewPredicate("pair", Var("x"), Var("x"))

	same, _ := NewPredicate("pair", Val(Int(1)), Val(Int(1))).Ground()
	b, ok := UnifyPredicate(goal, same, Binding{})
	require.True(t, ok)
	v := b["x"]
	got, _ := v.AsInt()
	require.EqualValues(t, 1, got)

	diff, _ := NewPredicate("pair", Val(Int(1)), Val(Int(2))).Ground()
	_, ok = UnifyPredicate(goal, diff, Binding{})
	require.False(t, ok)
}

func TestUnifyPredicateRespectsExistingBinding(t *testing.T) {
	goal := NewPredicate("right", Var("user"))
	fact, _ := NewPredicate("right", Val(Str("bob"))).Ground()

	existing := Binding{"user": Str("alice")}
	_, ok := UnifyPredicate(goal, fact, existing)
	require.False(t, ok)
}
