package datalog

// UnifyPredicate attempts to match a (possibly variable-bearing) predicate
// against a ground fact's predicate under an existing binding. A variable
// already bound in b must agree with the fact's value at that position; an
// unbound variable takes the fact's value. Arity and name must match.
//
// This generalizes plain atom-vs-atom term equality to Value.Equal across
// the full value lattice.
func UnifyPredicate(goal Predicate, fact Fact, b Binding) (Binding, bool) {
	if goal.Name != fact.Predicate.Name {
		return nil, false
	}
	if len(goal.Terms) != len(fact.Predicate.Terms) {
		return nil, false
	}
	result := b
	extended := false
	for i, term := range goal.Terms {
		factVal := fact.Predicate.Terms[i].Value()
		if term.IsVariable() {
			if bound, ok := result[term.Variable()]; ok {
				if !bound.Equal(factVal) {
					return nil, false
				}
				continue
			}
			if !extended {
				result = result.Copy()
				extended = true
			}
			result[term.Variable()] = factVal
			continue
		}
		if !term.Value().Equal(factVal) {
			return nil, false
		}
	}
	return result, true
}
