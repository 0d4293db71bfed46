package datalog

// Derived is one fact produced by firing a rule once against the current
// fact set, tagged with the origin it was derived under.
type Derived struct {
	Origin Origin
	Fact   Fact
}

// MatchRule enumerates every substitution that satisfies rule.Body against
// the facts permitted (i.e. whose origin is a subset of permitted),
// evaluates rule.Expressions under each substitution, and emits one
// Derived per surviving substitution. owner is the block
// that declares the rule; its id combines into the origin of anything
// derived, per the origin-soundness invariant.
//
// Matching order is author-given: body atoms are tried in declaration
// order, nested depth-first, which is stable for reproducibility but not
// required for correctness. The final fixpoint result is the same
// regardless of this order because FactGroup.Insert dedupes by (origin,
// fact).
func MatchRule(rule Rule, owner BlockID, permitted Origin, facts *FactGroup, limits EvalLimits) []Derived {
	var out []Derived
	var walk func(idx int, b Binding, origin Origin)
	walk = func(idx int, b Binding, origin Origin) {
		if idx == len(rule.Body) {
			for _, expr := range rule.Expressions {
				if !expr.EvalBool(b, limits) {
					return
				}
			}
			head := rule.Head.Substitute(b)
			fact, ok := head.Ground()
			if !ok {
				// Can't happen if Rule.Validate passed, but guards against
				// a caller skipping validation.
				return
			}
			out = append(out, Derived{Origin: NewOrigin(owner).Union(origin), Fact: fact})
			return
		}
		goal := rule.Body[idx]
		for _, ref := range facts.CandidatesFor(goal.Name, permitted) {
			newB, ok := UnifyPredicate(goal, ref.fact, b)
			if !ok {
				continue
			}
			walk(idx+1, newB, origin.Union(ref.origin))
		}
	}
	walk(0, Binding{}, emptyOrigin())
	return out
}

// MatchQueryItem enumerates every substitution satisfying a bodiless rule
// (a check or policy disjunct) against permitted facts, returning the
// bindings of every solution. It shares MatchRule's body-matching walk
// but has no head to instantiate and no owning block to fold into an
// origin.
func MatchQueryItem(item QueryItem, permitted Origin, facts *FactGroup, limits EvalLimits) []Binding {
	var out []Binding
	var walk func(idx int, b Binding)
	walk = func(idx int, b Binding) {
		if idx == len(item.Body) {
			for _, expr := range item.Expressions {
				if !expr.EvalBool(b, limits) {
					return
				}
			}
			out = append(out, b)
			return
		}
		goal := item.Body[idx]
		for _, ref := range facts.CandidatesFor(goal.Name, permitted) {
			newB, ok := UnifyPredicate(goal, ref.fact, b)
			if !ok {
				continue
			}
			walk(idx+1, newB)
		}
	}
	walk(0, Binding{})
	return out
}
