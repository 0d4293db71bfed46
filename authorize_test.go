package biscuit

import (
	"testing"
	"time"

	"github.com/biscuit-eval/datalog/datalog"
	"github.com/stretchr/testify/require"
)

func allowTrue() datalog.Policy {
	return datalog.Policy{Kind: datalog.PolicyAllow, Queries: []datalog.QueryItem{{}}}
}

// S1: a trivially satisfiable allow policy succeeds.
func TestAuthorizeS1Allow(t *testing.T) {
	authority := AuthorityInput{Block: Block{
		Facts: []datalog.Fact{datalog.NewFact("resource", datalog.Str("file1"))},
	}}
	authorizer := AuthorizerInput{
		Policies: []datalog.Policy{
			{Kind: datalog.PolicyAllow, Queries: []datalog.QueryItem{
				{Body: []datalog.Predicate{datalog.NewPredicate("resource", datalog.Val(datalog.Str("file1")))}},
			}},
		},
	}

	success, err := Authorize(authority, nil, authorizer, datalog.DefaultLimits())
	require.NoError(t, err)
	require.NotNil(t, success)
	require.Empty(t, success.Matched.Bindings[0])
}

// S2: a time-window check passes or fails depending on the authorizer's
// asserted current_time fact.
func TestAuthorizeS2TimeCheck(t *testing.T) {
	deadline := time.Date(2021, 5, 8, 0, 0, 0, 0, time.UTC)
	makeCheck := func() datalog.Check {
		lt := datalog.TreeToStack(datalog.BinaryNode{
			Op:    datalog.OpLessThan,
			Left:  datalog.ValueNode{Term: datalog.Var("t")},
			Right: datalog.ValueNode{Term: datalog.Val(datalog.DateVal(deadline))},
		})
		return datalog.Check{Queries: []datalog.QueryItem{{
			Body:        []datalog.Predicate{datalog.NewPredicate("current_time", datalog.Var("t"))},
			Expressions: []datalog.Expression{lt},
		}}}
	}

	authority := AuthorityInput{Block: Block{Facts: []datalog.Fact{datalog.NewFact("resource", datalog.Str("file1"))}}}
	extras := []ExtraInput{{Block: Block{Checks: []datalog.Check{makeCheck()}}, PublicKey: "pk1"}}

	before := AuthorizerInput{
		Block:    Block{Facts: []datalog.Fact{datalog.NewFact("current_time", datalog.DateVal(time.Date(2021, 5, 7, 12, 0, 0, 0, time.UTC)))}},
		Policies: []datalog.Policy{allowTrue()},
	}
	success, err := Authorize(authority, extras, before, datalog.DefaultLimits())
	require.NoError(t, err)
	require.NotNil(t, success)

	after := AuthorizerInput{
		Block:    Block{Facts: []datalog.Fact{datalog.NewFact("current_time", datalog.DateVal(time.Date(2021, 5, 9, 12, 0, 0, 0, time.UTC)))}},
		Policies: []datalog.Policy{allowTrue()},
	}
	_, err = Authorize(authority, extras, after, datalog.DefaultLimits())
	require.Error(t, err)
	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	require.Equal(t, ResultCheckFailed, resultErr.Kind)
	require.Len(t, resultErr.FailedChecks, 1)
	require.Equal(t, datalog.BlockID(1), resultErr.FailedChecks[0].Block)
}

// S3: an extra block's check over its own contributed fact passes (scope
// widens to include it), and a wildcard authorizer policy matches both
// the authority's and the extra block's owner fact.
func TestAuthorizeS3ScopeSafety(t *testing.T) {
	authority := AuthorityInput{Block: Block{Facts: []datalog.Fact{datalog.NewFact("owner", datalog.Str("alice"))}}}
	extras := []ExtraInput{{
		Block: Block{
			Facts: []datalog.Fact{datalog.NewFact("owner", datalog.Str("mallory"))},
			Checks: []datalog.Check{{Queries: []datalog.QueryItem{{
				Body: []datalog.Predicate{datalog.NewPredicate("owner", datalog.Val(datalog.Str("mallory")))},
			}}}},
		},
		PublicKey: "pk1",
	}}
	authorizer := AuthorizerInput{
		Policies: []datalog.Policy{
			{Kind: datalog.PolicyAllow, Queries: []datalog.QueryItem{
				{Body: []datalog.Predicate{datalog.NewPredicate("owner", datalog.Val(datalog.Str("alice")))}},
			}},
		},
	}
	success, err := Authorize(authority, extras, authorizer, datalog.DefaultLimits())
	require.NoError(t, err)
	require.NotNil(t, success)

	wildcard := AuthorizerInput{
		Policies: []datalog.Policy{
			{Kind: datalog.PolicyAllow, Queries: []datalog.QueryItem{
				{Body: []datalog.Predicate{datalog.NewPredicate("owner", datalog.Var("x"))}},
			}},
		},
	}
	success, err = Authorize(authority, extras, wildcard, datalog.DefaultLimits())
	require.NoError(t, err)
	require.Len(t, success.Matched.Bindings, 2)
}

// S4: a rule contributed by an extra block can never make a derived fact
// visible to a policy scoped to authority-only, even though the extra
// block's own check (default-scoped to {authority, self}) does see it.
func TestAuthorizeS4ExtraRuleCannotInfluenceAuthorityScope(t *testing.T) {
	authority := AuthorityInput{Block: Block{Facts: []datalog.Fact{datalog.NewFact("user", datalog.Int(1))}}}
	adminRule := datalog.Rule{
		Head: datalog.NewPredicate("admin", datalog.Val(datalog.Int(1))),
		Body: []datalog.Predicate{datalog.NewPredicate("user", datalog.Val(datalog.Int(1)))},
	}
	extras := []ExtraInput{{
		Block: Block{
			Rules: []datalog.Rule{adminRule},
			Checks: []datalog.Check{{Queries: []datalog.QueryItem{{
				Body: []datalog.Predicate{datalog.NewPredicate("admin", datalog.Val(datalog.Int(1)))},
			}}}},
		},
		PublicKey: "pk1",
	}}
	authorizer := AuthorizerInput{
		Policies: []datalog.Policy{
			{Kind: datalog.PolicyAllow, Queries: []datalog.QueryItem{
				{
					Body:  []datalog.Predicate{datalog.NewPredicate("admin", datalog.Val(datalog.Int(1)))},
					Scope: []datalog.ScopeElement{datalog.OnlyAuthority()},
				},
			}},
		},
	}
	_, err := Authorize(authority, extras, authorizer, datalog.DefaultLimits())
	require.Error(t, err)
	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	require.Equal(t, ResultNoPolicyMatched, resultErr.Kind)
}

// Every check across every block is evaluated, even after an earlier one
// has already failed, so the caller sees the complete failed-check list.
func TestAuthorizeAllFailedChecksAreReported(t *testing.T) {
	failingCheck := func(name string) datalog.Check {
		return datalog.Check{Queries: []datalog.QueryItem{{
			Body: []datalog.Predicate{datalog.NewPredicate(name)},
		}}}
	}
	authority := AuthorityInput{Block: Block{Checks: []datalog.Check{failingCheck("nope1")}}}
	extras := []ExtraInput{{Block: Block{Checks: []datalog.Check{failingCheck("nope2")}}, PublicKey: "pk1"}}
	authorizer := AuthorizerInput{Policies: []datalog.Policy{allowTrue()}}

	_, err := Authorize(authority, extras, authorizer, datalog.DefaultLimits())
	require.Error(t, err)
	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	require.Equal(t, ResultCheckFailed, resultErr.Kind)
	require.Len(t, resultErr.FailedChecks, 2)
	require.Equal(t, datalog.BlockID(0), resultErr.FailedChecks[0].Block)
	require.Equal(t, datalog.BlockID(1), resultErr.FailedChecks[1].Block)
}

// A Deny policy match is reported as such even when a check also failed:
// the deny verdict and the failed-check list are both surfaced, rather
// than the check failure masking the deny match.
func TestAuthorizeDenyMatchedWithFailedChecks(t *testing.T) {
	failingCheck := datalog.Check{Queries: []datalog.QueryItem{{
		Body: []datalog.Predicate{datalog.NewPredicate("nope")},
	}}}
	authority := AuthorityInput{Block: Block{Checks: []datalog.Check{failingCheck}}}
	authorizer := AuthorizerInput{
		Policies: []datalog.Policy{{Kind: datalog.PolicyDeny, Queries: []datalog.QueryItem{{}}}},
	}

	_, err := Authorize(authority, nil, authorizer, datalog.DefaultLimits())
	require.Error(t, err)
	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	require.Equal(t, ResultDenyPolicyMatched, resultErr.Kind)
	require.Len(t, resultErr.FailedChecks, 1)
	require.NotNil(t, resultErr.MatchedPolicy)
}

// S5: cross-product blow-up past maxFacts is reported as a fixpoint
// fault, not silently truncated.
func TestAuthorizeS5FactCap(t *testing.T) {
	facts := make([]datalog.Fact, 0, 1000)
	for i := 0; i < 1000; i++ {
		facts = append(facts, datalog.NewFact("n", datalog.Int(int64(i))))
	}
	authority := AuthorityInput{Block: Block{
		Facts: facts,
		Rules: []datalog.Rule{{
			Head: datalog.NewPredicate("p", datalog.Var("x"), datalog.Var("y")),
			Body: []datalog.Predicate{datalog.NewPredicate("n", datalog.Var("x")), datalog.NewPredicate("n", datalog.Var("y"))},
		}},
	}}
	authorizer := AuthorizerInput{Policies: []datalog.Policy{allowTrue()}}

	limits := datalog.DefaultLimits()
	limits.MaxFacts = 10_000
	_, err := Authorize(authority, nil, authorizer, limits)
	require.Error(t, err)
	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	require.Equal(t, ResultFixpointFault, resultErr.Kind)
	require.ErrorIs(t, resultErr.Cause, datalog.ErrTooManyFacts)
}

// S6: a range-restriction violation is rejected before the fixpoint runs,
// so no policy is ever evaluated.
func TestAuthorizeS6InvalidRule(t *testing.T) {
	authority := AuthorityInput{Block: Block{
		Rules: []datalog.Rule{{
			Head: datalog.NewPredicate("h", datalog.Var("x"), datalog.Var("y")),
			Body: []datalog.Predicate{datalog.NewPredicate("b", datalog.Var("x"))},
		}},
	}}
	authorizer := AuthorizerInput{Policies: []datalog.Policy{allowTrue()}}

	_, err := Authorize(authority, nil, authorizer, datalog.DefaultLimits())
	require.Error(t, err)
	var resultErr *ResultError
	require.ErrorAs(t, err, &resultErr)
	require.Equal(t, ResultInvalidRule, resultErr.Kind)
}

func TestQueryAuthorityFactsExcludesExtraBlocks(t *testing.T) {
	authority := AuthorityInput{Block: Block{Facts: []datalog.Fact{datalog.NewFact("owner", datalog.Str("alice"))}}}
	extras := []ExtraInput{{Block: Block{Facts: []datalog.Fact{datalog.NewFact("owner", datalog.Str("mallory"))}}, PublicKey: "pk1"}}
	authorizer := AuthorizerInput{Policies: []datalog.Policy{allowTrue()}}

	success, err := Authorize(authority, extras, authorizer, datalog.DefaultLimits())
	require.NoError(t, err)

	bindings := QueryAuthorityFacts(success, datalog.QueryItem{
		Body: []datalog.Predicate{datalog.NewPredicate("owner", datalog.Var("x"))},
	})
	require.Len(t, bindings, 1)
	got, _ := bindings[0]["x"].AsString()
	require.Equal(t, "alice", got)
}
