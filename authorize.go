package biscuit

import (
	"context"

	"github.com/biscuit-eval/datalog/datalog"
	"github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"
	"golang.org/x/sync/errgroup"
)

// revocationIDPredicate is the well-known fact name each block's
// revocation id is exposed under, so that checks/policies
// can reason about it like any other fact.
const revocationIDPredicate = "revocation_id"

// config holds the options assembled by Option values.
type config struct {
	logger hclog.Logger
}

// Option customizes one Authorize/AuthorizeWithTimeout call.
type Option func(*config)

// WithLogger attaches a structured logger; every authorize call logs under
// its own request id regardless, so passing nil here is equivalent to not
// calling WithLogger at all (a null logger is used).
func WithLogger(l hclog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Authorize runs one authorize call to completion with no deadline beyond
// whatever limits.MaxTime imposes internally. It is
// equivalent to AuthorizeWithTimeout(context.Background(), ...).
func Authorize(authority AuthorityInput, extras []ExtraInput, authorizer AuthorizerInput, limits datalog.Limits, opts ...Option) (*Success, error) {
	return AuthorizeWithTimeout(context.Background(), authority, extras, authorizer, limits, opts...)
}

// AuthorizeWithTimeout is Authorize with an explicit parent context: ctx
// cancellation and limits.MaxTime race each other, whichever fires first
// ends the fixpoint. The fixpoint itself runs on a goroutine
// tracked by an errgroup so that a future caller wiring additional
// concurrent work (e.g. a parallel pre-validation pass) has somewhere to
// hang it without restructuring this function.
func AuthorizeWithTimeout(ctx context.Context, authority AuthorityInput, extras []ExtraInput, authorizer AuthorizerInput, limits datalog.Limits, opts ...Option) (*Success, error) {
	cfg := config{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	requestID, err := uuid.GenerateUUID()
	if err != nil {
		requestID = "unknown"
	}
	logger := cfg.logger.With("request_id", requestID)

	if limits.MaxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MaxTime)
		defer cancel()
	}

	blockCount := datalog.BlockID(2 + len(extras)) // authority + extras + authorizer
	authorizerID := datalog.BlockID(1 + len(extras))

	publicKeys := make([]datalog.PublicKey, blockCount)
	hasKey := make([]bool, blockCount)
	for i, extra := range extras {
		publicKeys[1+i] = extra.PublicKey
		hasKey[1+i] = true
	}
	resolver := datalog.NewScopeResolver(publicKeys, hasKey)

	rulesByBlock := map[datalog.BlockID][]datalog.Rule{}
	defaultScope := map[datalog.BlockID][]datalog.ScopeElement{}
	facts := datalog.NewFactGroup()

	seedBlock := func(id datalog.BlockID, b Block, revocationID []byte) {
		rulesByBlock[id] = b.Rules
		defaultScope[id] = b.DefaultScope
		origin := datalog.NewOrigin(id)
		for _, f := range b.Facts {
			facts.Insert(origin, f)
		}
		if len(revocationID) > 0 {
			facts.Insert(origin, datalog.NewFact(revocationIDPredicate, datalog.Int(int64(id)), datalog.BytesVal(revocationID)))
		}
	}

	seedBlock(0, authority.Block, authority.RevocationID)
	for i, extra := range extras {
		seedBlock(datalog.BlockID(1+i), extra.Block, extra.RevocationID)
	}
	seedBlock(authorizerID, authorizer.Block, nil)

	logger.Debug("authorize starting", "extras", len(extras), "max_facts", limits.MaxFacts, "max_iterations", limits.MaxIterations)

	if err := datalog.ValidateRules(rulesByBlock); err != nil {
		logger.Warn("rule validation failed", "error", err)
		return nil, &ResultError{Kind: ResultInvalidRule, Cause: err}
	}

	cs := datalog.NewComputeState(limits, rulesByBlock, defaultScope, blockCount, authorizerID, resolver, facts, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cs.Run(gctx) })
	if err := g.Wait(); err != nil {
		logger.Warn("fixpoint did not converge", "error", err)
		return nil, &ResultError{Kind: ResultFixpointFault, Cause: err}
	}

	evalLimits := limits.EvalLimits()

	blockIDs := []datalog.BlockID{0}
	for i := range extras {
		blockIDs = append(blockIDs, datalog.BlockID(1+i))
	}
	blockIDs = append(blockIDs, authorizerID)

	allChecks := map[datalog.BlockID][]datalog.Check{0: authority.Block.Checks}
	for i, extra := range extras {
		allChecks[datalog.BlockID(1+i)] = extra.Block.Checks
	}
	allChecks[authorizerID] = authorizer.Block.Checks

	// Every check is evaluated even once one has already failed, so the
	// caller sees the complete failed-check list rather than only the
	// first failure.
	var failedChecks []FailedCheck
	for _, blockID := range blockIDs {
		isAuthorizer := blockID == authorizerID
		for idx, check := range allChecks[blockID] {
			if !datalog.CheckPasses(check, blockID, defaultScope[blockID], isAuthorizer, resolver, cs.Facts, evalLimits) {
				logger.Debug("check failed", "block", blockID, "check", idx)
				failedChecks = append(failedChecks, FailedCheck{Block: blockID, Index: idx})
			}
		}
	}

	// Policies are evaluated regardless of failed checks: a Deny match
	// must be reported as such even when checks also failed, and a caller
	// needs the full failed-check list alongside whichever policy (if
	// any) matched.
	match := datalog.EvaluatePolicies(authorizer.Policies, authorizerID, defaultScope[authorizerID], resolver, cs.Facts, evalLimits)
	switch {
	case match == nil:
		logger.Debug("no policy matched", "failed_checks", len(failedChecks))
		return nil, &ResultError{Kind: ResultNoPolicyMatched, FailedChecks: failedChecks}
	case match.Policy.Kind == datalog.PolicyDeny:
		logger.Debug("deny policy matched", "failed_checks", len(failedChecks))
		policy := match.Policy
		return nil, &ResultError{Kind: ResultDenyPolicyMatched, FailedChecks: failedChecks, MatchedPolicy: &policy}
	case len(failedChecks) > 0:
		logger.Debug("checks failed", "count", len(failedChecks))
		return nil, &ResultError{Kind: ResultCheckFailed, FailedChecks: failedChecks}
	default:
		logger.Debug("authorize succeeded", "facts", cs.Facts.Len())
		return &Success{
			Matched:  MatchedQuery{QueryItem: match.Item, Bindings: match.Bindings},
			AllFacts: cs.Facts,
			Limits:   limits,
		}, nil
	}
}

// RevocationIDFact builds the well-known fact Authorize seeds for a
// block's revocation id, for callers that want to reference the same
// predicate name/shape from a check or policy they construct directly.
func RevocationIDFact(block datalog.BlockID, id []byte) datalog.Fact {
	return datalog.NewFact(revocationIDPredicate, datalog.Int(int64(block)), datalog.BytesVal(id))
}
