// Package biscuit orchestrates the scoped Datalog evaluator (package
// datalog) into the single public operation authorize(authority, extras,
// authorizer, limits) -> verdict. Token signing, wire (de)serialization,
// the surface-syntax parser, and any transport layer are external
// collaborators; this package only accepts already-parsed,
// already-authenticated block structures.
package biscuit

import "github.com/biscuit-eval/datalog/datalog"

// Block is the parsed content of one token block or the authorizer's own
// block: its facts, the rules it contributes to the fixpoint, the checks
// it must pass, its default scope (inherited by any rule/check whose own
// scope is empty), and an optional free-form context string carried for
// diagnostics only.
type Block struct {
	Facts        []datalog.Fact
	Rules        []datalog.Rule
	Checks       []datalog.Check
	DefaultScope []datalog.ScopeElement
	Context      string
}

// AuthorityInput is block 0: the token's root block, always trusted,
// never carrying a public key of its own.
type AuthorityInput struct {
	Block        Block
	RevocationID []byte
}

// ExtraInput is one block appended after minting: untrusted relative to
// authority, identified by the public key that signed it.
type ExtraInput struct {
	Block        Block
	RevocationID []byte
	PublicKey    datalog.PublicKey
}

// AuthorizerInput is the verifier's own block plus its ordered policies.
type AuthorizerInput struct {
	Block    Block
	Policies []datalog.Policy
}

// MatchedQuery is the query item and full binding set that decided an
// Allow verdict.
type MatchedQuery struct {
	QueryItem datalog.QueryItem
	Bindings  []datalog.Binding
}

// Success is the positive outcome of Authorize: the policy that matched,
// every fact the fixpoint derived (useful for ancillary queries and
// diagnostics), and the limits the call ran under.
type Success struct {
	Matched  MatchedQuery
	AllFacts *datalog.FactGroup
	Limits   datalog.Limits
}

// QueryAuthorityFacts runs query against only the facts whose origin is
// exactly the authority block: an ancillary, post-success query that can
// never see anything an extra block contributed, even indirectly through
// a rule.
func QueryAuthorityFacts(success *Success, query datalog.QueryItem) []datalog.Binding {
	authorityOnly := datalog.NewOrigin(0)
	scoped := success.AllFacts.FilterScope(authorityOnly)
	return datalog.MatchQueryItem(query, authorityOnly, scoped, datalog.EvalLimits{})
}
