package datalog

import "fmt"

// BlockID identifies a block within one authorize call: 0 is authority,
// 1..k are extra blocks in order, and the authorizer's own block is
// 1+len(extras).
type BlockID uint32

// PublicKey is an opaque, comparable stand-in for the cryptographic
// identity attached to a block. Token signing and key verification are
// external collaborators; this package only needs to compare
// keys for equality when resolving BlockId(pk) scopes.
type PublicKey string

// NewPublicKey wraps raw key bytes (as produced by the signing
// collaborator) into the opaque comparable identity this package uses.
func NewPublicKey(raw []byte) PublicKey { return PublicKey(raw) }

// ScopeKind is the tag of a ScopeElement.
type ScopeKind int

const (
	ScopeOnlyAuthority ScopeKind = iota
	ScopePrevious
	ScopeByPublicKey
)

// ScopeElement is one entry of a rule's, check's, or query's scope list.
// After resolution (ScopeResolver) each element contributes a concrete
// set of block ids to the permitted set.
type ScopeElement struct {
	Kind ScopeKind
	Key  PublicKey // meaningful only when Kind == ScopeByPublicKey
}

func OnlyAuthority() ScopeElement                  { return ScopeElement{Kind: ScopeOnlyAuthority} }
func Previous() ScopeElement                       { return ScopeElement{Kind: ScopePrevious} }
func ByPublicKey(pk PublicKey) ScopeElement         { return ScopeElement{Kind: ScopeByPublicKey, Key: pk} }

// Rule is a Horn clause: head <- body, expressions, scope.
type Rule struct {
	Head        Predicate
	Body        []Predicate
	Expressions []Expression
	Scope       []ScopeElement
}

// Validate enforces that the body is non-empty and the range-restriction
// invariant: every variable in the head must appear somewhere in the
// body. Violation is a static error (InvalidRule) caught before any fact
// is derived. A rule with an empty body would otherwise fire
// unconditionally on every fixpoint iteration, which is not a valid rule.
func (r Rule) Validate() error {
	if len(r.Body) == 0 {
		return fmt.Errorf("rule %s has an empty body", r.Head)
	}
	bodyVars := map[string]bool{}
	for _, p := range r.Body {
		for _, v := range p.Variables() {
			bodyVars[v] = true
		}
	}
	for _, v := range r.Head.Variables() {
		if !bodyVars[v] {
			return fmt.Errorf("variable %q in head of %s is not bound by the body", v, r.Head)
		}
	}
	return nil
}

// QueryItem is a bodiless rule: the body/expressions/scope of a check or
// policy disjunct.
type QueryItem struct {
	Body        []Predicate
	Expressions []Expression
	Scope       []ScopeElement
}

// Check passes iff at least one of its query items has a non-empty
// solution set.
type Check struct {
	Queries []QueryItem
}

// PolicyKind distinguishes an allow policy from a deny policy.
type PolicyKind int

const (
	PolicyAllow PolicyKind = iota
	PolicyDeny
)

func (k PolicyKind) String() string {
	if k == PolicyDeny {
		return "deny"
	}
	return "allow"
}

// Policy is an ordered (Allow|Deny, query) pair; Queries is a
// disjunction, mirroring Check, since real policies commonly need more than
// one alternative query to match.
type Policy struct {
	Kind    PolicyKind
	Queries []QueryItem
}
