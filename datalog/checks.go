package datalog

// CheckPasses reports whether at least one of check's query items has a
// non-empty solution set against facts, scoped per-item via owner's
// default scope. isAuthorizer selects the computed default (all blocks)
// over the extra-block default ({0, owner}) when an item's scope and the
// block's default_scope are both empty.
func CheckPasses(check Check, owner BlockID, blockDefaultScope []ScopeElement, isAuthorizer bool, resolver *ScopeResolver, facts *FactGroup, limits EvalLimits) bool {
	for _, item := range check.Queries {
		scope := EffectiveScope(item.Scope, blockDefaultScope)
		permitted := resolver.Resolve(scope, owner, isAuthorizer)
		if len(MatchQueryItem(item, permitted, facts, limits)) > 0 {
			return true
		}
	}
	return false
}

// PolicyMatch is the outcome of evaluating one policy: which query item
// matched and its full solution set.
type PolicyMatch struct {
	Policy   Policy
	Item     QueryItem
	Bindings []Binding
}

// EvaluatePolicies evaluates policies in order against facts, scoped per
// policy (its own scope if given, else the authorizer block's
// default_scope, else "all blocks" since policies are always owned by the
// authorizer). The first policy with a non-empty solution decides; later
// policies are simply never reached in that case (they are not
// force-evaluated "eagerly" here since there is no expression-level side
// effect they could be racing against).
func EvaluatePolicies(policies []Policy, authorizerID BlockID, authorizerDefaultScope []ScopeElement, resolver *ScopeResolver, facts *FactGroup, limits EvalLimits) *PolicyMatch {
	for _, policy := range policies {
		for _, item := range policy.Queries {
			scope := EffectiveScope(item.Scope, authorizerDefaultScope)
			permitted := resolver.Resolve(scope, authorizerID, true)
			bindings := MatchQueryItem(item, permitted, facts, limits)
			if len(bindings) > 0 {
				return &PolicyMatch{Policy: policy, Item: item, Bindings: bindings}
			}
		}
	}
	return nil
}
