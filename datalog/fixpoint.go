package datalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"
)

// Limits bounds the fixpoint driver and expression evaluator, defending
// against adversarial blow-up. A zero MaxTime or MaxRegexLength means no
// limit. MaxIterations and MaxFacts have no such case: Run always compares
// against whatever is configured, so a zero value fails the first
// iteration, and a caller that truly wants no cap should set a very large
// number.
type Limits struct {
	MaxFacts       int
	MaxIterations  int
	MaxTime        time.Duration
	MaxRegexLength int
}

// DefaultLimits mirrors the conservative defaults real Biscuit
// implementations ship with: generous enough for ordinary policies, tight
// enough to bound adversarial extra blocks.
func DefaultLimits() Limits {
	return Limits{
		MaxFacts:       1000,
		MaxIterations:  100,
		MaxTime:        1 * time.Second,
		MaxRegexLength: 4096,
	}
}

// EvalLimits projects the expression-evaluation-relevant subset of Limits.
func (l Limits) EvalLimits() EvalLimits { return EvalLimits{MaxRegexLength: l.MaxRegexLength} }

// ComputeState is the mutable state of one authorize call's fixpoint:
// read-only limits/rules/block-count plus an append-only, mutable fact
// set and iteration counter. Nothing in ComputeState survives past one
// Run.
type ComputeState struct {
	Limits       Limits
	RulesByBlock map[BlockID][]Rule
	BlockCount   BlockID
	Resolver     *ScopeResolver
	// DefaultScope is each block's own default_scope,
	// used by EffectiveScope when a rule's own scope is empty.
	DefaultScope map[BlockID][]ScopeElement
	AuthorizerID BlockID

	Facts      *FactGroup
	Iterations int

	Logger hclog.Logger
}

// NewComputeState builds the initial state: Facts must already contain
// every block's base facts (with origin {block}) and the revocation-id
// facts; NewComputeState itself does not seed anything.
func NewComputeState(limits Limits, rulesByBlock map[BlockID][]Rule, defaultScope map[BlockID][]ScopeElement, blockCount BlockID, authorizerID BlockID, resolver *ScopeResolver, facts *FactGroup, logger hclog.Logger) *ComputeState {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ComputeState{
		Limits:       limits,
		RulesByBlock: rulesByBlock,
		DefaultScope: defaultScope,
		BlockCount:   blockCount,
		AuthorizerID: authorizerID,
		Resolver:     resolver,
		Facts:        facts,
		Logger:       logger,
	}
}

// ValidateRules checks every rule of every block against the
// range-restriction invariant before the first fixpoint iteration,
// collecting every violation (not just the first) via go-multierror —
// the same "report every problem found, not just the first" discipline
// nomad's job validation uses for an operator-supplied spec, applied here
// to rules an untrusted block may have contributed.
func ValidateRules(rulesByBlock map[BlockID][]Rule) error {
	var result *multierror.Error
	blockIDs := make([]BlockID, 0, len(rulesByBlock))
	for id := range rulesByBlock {
		blockIDs = append(blockIDs, id)
	}
	sort.Slice(blockIDs, func(i, j int) bool { return blockIDs[i] < blockIDs[j] })
	for _, id := range blockIDs {
		for i, rule := range rulesByBlock[id] {
			if err := rule.Validate(); err != nil {
				result = multierror.Append(result, fmt.Errorf("block %d rule %d: %w: %v", id, i, ErrInvalidRule, err))
			}
		}
	}
	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}

// Run drives the fixpoint: repeatedly fire every rule of
// every block once over the current fact set until no previously-unseen
// (origin, fact) pair is produced, or a resource cap is exceeded. ctx is
// checked cooperatively once per iteration so a wall-clock deadline set up
// by the caller (AuthorizeWithTimeout) is honored even though no single
// iteration is itself cancellable mid-flight.
// TODO: pre-filter cs.Facts once per iteration by the union of every rule's
// weakest scope before calling MatchRule, instead of letting each MatchRule
// call re-filter by its own permitted set via CandidatesFor. Semantically
// equivalent, purely a performance improvement for blocks with many rules
// sharing a scope.
func (cs *ComputeState) Run(ctx context.Context) error {
	blockIDs := make([]BlockID, 0, len(cs.RulesByBlock))
	for id := range cs.RulesByBlock {
		blockIDs = append(blockIDs, id)
	}
	sort.Slice(blockIDs, func(i, j int) bool { return blockIDs[i] < blockIDs[j] })

	for {
		select {
		case <-ctx.Done():
			return ErrTimeout
		default:
		}

		newCount := 0
		for _, blockID := range blockIDs {
			isAuthorizer := blockID == cs.AuthorizerID
			for _, rule := range cs.RulesByBlock[blockID] {
				scope := EffectiveScope(rule.Scope, cs.DefaultScope[blockID])
				permitted := cs.Resolver.Resolve(scope, blockID, isAuthorizer)
				derived := MatchRule(rule, blockID, permitted, cs.Facts, cs.Limits.EvalLimits())
				for _, d := range derived {
					if cs.Facts.Insert(d.Origin, d.Fact) {
						newCount++
					}
				}
			}
		}
		cs.Iterations++
		cs.Logger.Debug("fixpoint iteration", "iteration", cs.Iterations, "new_facts", newCount, "total_facts", cs.Facts.Len())

		if cs.Facts.Len() >= cs.Limits.MaxFacts {
			cs.Logger.Warn("fixpoint exceeded max facts", "total_facts", cs.Facts.Len(), "max_facts", cs.Limits.MaxFacts)
			return ErrTooManyFacts
		}
		if cs.Iterations >= cs.Limits.MaxIterations {
			cs.Logger.Warn("fixpoint exceeded max iterations", "iterations", cs.Iterations, "max_iterations", cs.Limits.MaxIterations)
			return ErrTooManyIterations
		}
		if newCount == 0 {
			return nil
		}
	}
}
