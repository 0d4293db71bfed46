package biscuit

import (
	"fmt"

	"github.com/biscuit-eval/datalog/datalog"
)

// ResultKind classifies why Authorize returned a non-nil error: a hard
// evaluator fault (resource exhaustion, context deadline, malformed rule)
// is always distinguished from an ordinary "the policies said no"
// verdict, since callers typically react to the two very differently
// (retry/alert vs. deny-and-log).
type ResultKind int

const (
	// ResultInvalidRule: ValidateRules rejected a rule before the fixpoint
	// ever ran.
	ResultInvalidRule ResultKind = iota
	// ResultFixpointFault: the fixpoint itself hit a resource cap or its
	// context was cancelled.
	ResultFixpointFault
	// ResultCheckFailed: at least one check had an empty solution set, and
	// an Allow policy would otherwise have matched.
	ResultCheckFailed
	// ResultNoPolicyMatched: every policy's every query item had an empty
	// solution set, regardless of whether any check also failed.
	ResultNoPolicyMatched
	// ResultDenyPolicyMatched: a Deny-kind policy was the first to match,
	// regardless of whether any check also failed.
	ResultDenyPolicyMatched
)

func (k ResultKind) String() string {
	switch k {
	case ResultInvalidRule:
		return "invalid_rule"
	case ResultFixpointFault:
		return "fixpoint_fault"
	case ResultCheckFailed:
		return "check_failed"
	case ResultNoPolicyMatched:
		return "no_policy_matched"
	case ResultDenyPolicyMatched:
		return "deny_policy_matched"
	default:
		return "unknown"
	}
}

// FailedCheck identifies one check that had an empty solution set: which
// block declared it, and its index within that block's check list.
type FailedCheck struct {
	Block datalog.BlockID
	Index int
}

// ResultError is the typed, always-non-fatal verdict Authorize returns
// whenever it does not return a Success: "no" is a normal outcome of
// authorization, not a program error, so ResultError deliberately does
// not satisfy the sentinel-error equality pattern datalog's
// ErrTooManyFacts/ErrTooManyIterations/ErrTimeout use — those wrap INTO
// a ResultError of Kind ResultFixpointFault via Unwrap instead of being
// returned bare.
type ResultError struct {
	Kind ResultKind
	// FailedChecks is every check that failed, across every block, in
	// block/index order. Set (possibly empty) whenever Kind is
	// ResultCheckFailed, ResultNoPolicyMatched, or
	// ResultDenyPolicyMatched — all three checks and policy evaluation
	// always both run, so either list can be non-empty regardless of
	// which policy (if any) matched.
	FailedChecks []FailedCheck
	// MatchedPolicy is set when Kind == ResultDenyPolicyMatched.
	MatchedPolicy *datalog.Policy
	// Cause carries the wrapped fixpoint/validation error, if any.
	Cause error
}

func (e *ResultError) Error() string {
	switch e.Kind {
	case ResultInvalidRule:
		return fmt.Sprintf("invalid rule: %v", e.Cause)
	case ResultFixpointFault:
		return fmt.Sprintf("fixpoint did not converge: %v", e.Cause)
	case ResultCheckFailed:
		return fmt.Sprintf("%d check(s) failed", len(e.FailedChecks))
	case ResultNoPolicyMatched:
		return fmt.Sprintf("no policy matched (%d check(s) failed)", len(e.FailedChecks))
	case ResultDenyPolicyMatched:
		return fmt.Sprintf("deny policy matched (%d check(s) failed)", len(e.FailedChecks))
	default:
		return "authorization failed"
	}
}

func (e *ResultError) Unwrap() error { return e.Cause }
