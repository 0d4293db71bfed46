package loadercfg

import (
	"encoding/hex"
	"fmt"

	biscuit "github.com/biscuit-eval/datalog"
	"github.com/biscuit-eval/datalog/datalog"
	multierror "github.com/hashicorp/go-multierror"
)

func (b BlockConfig) toBlock() (biscuit.Block, error) {
	facts := make([]datalog.Fact, len(b.Facts))
	var errs *multierror.Error
	for i, p := range b.Facts {
		fact, ok := p.toPredicate().Ground()
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("facts[%d]: %q is not fully ground", i, p.Name))
			continue
		}
		facts[i] = fact
	}
	rules := make([]datalog.Rule, len(b.Rules))
	for i, r := range b.Rules {
		rule, err := r.toRule()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("rules[%d]: %w", i, err))
			continue
		}
		rules[i] = rule
	}
	checks := make([]datalog.Check, len(b.Checks))
	for i, c := range b.Checks {
		check, err := c.toCheck()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("checks[%d]: %w", i, err))
			continue
		}
		checks[i] = check
	}
	scope, err := toScope(b.DefaultScope)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("default_scope: %w", err))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return biscuit.Block{}, err
	}
	return biscuit.Block{Facts: facts, Rules: rules, Checks: checks, DefaultScope: scope, Context: b.Context}, nil
}

func decodeRevocationID(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return hex.DecodeString(raw)
}

// Build converts a decoded Scenario into the inputs biscuit.Authorize
// expects, plus the resolved datalog.Limits. Every structural error
// (ungrounded fact, bad scope entry, unknown expression op, malformed
// revocation-id hex) is accumulated via go-multierror.
func (s *Scenario) Build() (biscuit.AuthorityInput, []biscuit.ExtraInput, biscuit.AuthorizerInput, datalog.Limits, error) {
	var errs *multierror.Error

	authorityBlock, err := s.Authority.BlockConfig.toBlock()
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("authority: %w", err))
	}
	authorityRevID, err := decodeRevocationID(s.Authority.RevocationID)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("authority.revocation_id: %w", err))
	}

	extras := make([]biscuit.ExtraInput, len(s.Extras))
	for i, e := range s.Extras {
		block, err := e.BlockConfig.toBlock()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("extras[%d]: %w", i, err))
			continue
		}
		revID, err := decodeRevocationID(e.RevocationID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("extras[%d].revocation_id: %w", i, err))
			continue
		}
		extras[i] = biscuit.ExtraInput{
			Block:        block,
			RevocationID: revID,
			PublicKey:    datalog.NewPublicKey([]byte(e.PublicKey)),
		}
	}

	authorizerBlock, err := s.Authorizer.BlockConfig.toBlock()
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("authorizer: %w", err))
	}
	policies := make([]datalog.Policy, len(s.Authorizer.Policies))
	for i, p := range s.Authorizer.Policies {
		policy, err := p.toPolicy()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("authorizer.policies[%d]: %w", i, err))
			continue
		}
		policies[i] = policy
	}

	if err := errs.ErrorOrNil(); err != nil {
		return biscuit.AuthorityInput{}, nil, biscuit.AuthorizerInput{}, datalog.Limits{}, err
	}

	return biscuit.AuthorityInput{Block: authorityBlock, RevocationID: authorityRevID},
		extras,
		biscuit.AuthorizerInput{Block: authorizerBlock, Policies: policies},
		s.Limits.toLimits(),
		nil
}
