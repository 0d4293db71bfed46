package datalog

// ScopeResolver translates the symbolic scope elements attached to rules,
// checks, and policies into concrete permitted block-id sets. It is built once per authorize call from the public-key vector:
// index 0 is the authority block (key None), indices 1..k are extra
// blocks (key Some(pk)), and index N (authorizerID) is the authorizer's
// own block (key None).
type ScopeResolver struct {
	publicKeys  []PublicKey // publicKeys[i] is only meaningful for extra blocks; authority/authorizer entries are ignored
	hasKey      []bool
	authorityID BlockID
	blockCount  BlockID // number of blocks with a concrete id: N+1 (authority..extras..authorizer)
}

// NewScopeResolver builds a resolver given one PublicKey per block id 0..N
// (authority, extras in order, authorizer), with hasKey[i] indicating
// whether block i carries a concrete identity (false for authority and the
// authorizer, true for extra blocks).
func NewScopeResolver(publicKeys []PublicKey, hasKey []bool) *ScopeResolver {
	return &ScopeResolver{
		publicKeys: publicKeys,
		hasKey:     hasKey,
		blockCount: BlockID(len(publicKeys)),
	}
}

// resolveElement returns the block-id set a single scope element denotes.
func (r *ScopeResolver) resolveElement(el ScopeElement, owner BlockID) Origin {
	switch el.Kind {
	case ScopeOnlyAuthority:
		return NewOrigin(0)
	case ScopePrevious:
		// {0, 1, ..., owner-1}; meaningful only when owner is the
		// authorizer, but computed the same way regardless.
		if owner == 0 {
			return emptyOrigin()
		}
		ids := make([]BlockID, 0, owner)
		for i := BlockID(0); i < owner; i++ {
			ids = append(ids, i)
		}
		return NewOrigin(ids...)
	case ScopeByPublicKey:
		var ids []BlockID
		for i, pk := range r.publicKeys {
			if r.hasKey[i] && pk == el.Key {
				ids = append(ids, BlockID(i))
			}
		}
		return NewOrigin(ids...)
	default:
		return emptyOrigin()
	}
}

// Resolve computes the effective permitted set for a rule/check/query
// owned by block `owner`. `scope` is the already-inherited scope list
// (rule scope if non-empty, else the enclosing block's default_scope) —
// callers resolve that one level of inheritance before calling Resolve, so
// that Resolve only has to apply the computed default below when the
// final scope list is still empty:
//
//   - owner == authorizer: all blocks (0..N)
//   - otherwise: {0, owner} (authority + self)
func (r *ScopeResolver) Resolve(scope []ScopeElement, owner BlockID, isAuthorizer bool) Origin {
	if len(scope) == 0 {
		if isAuthorizer {
			ids := make([]BlockID, 0, r.blockCount)
			for i := BlockID(0); i < r.blockCount; i++ {
				ids = append(ids, i)
			}
			return NewOrigin(ids...)
		}
		return NewOrigin(0, owner)
	}
	out := emptyOrigin()
	for _, el := range scope {
		out = out.Union(r.resolveElement(el, owner))
	}
	return out
}

// EffectiveScope picks the scope list to resolve: the item's own scope if
// it declares one, else the enclosing block's default_scope (which may
// itself be empty, deferring further to Resolve's computed default).
func EffectiveScope(itemScope, blockDefaultScope []ScopeElement) []ScopeElement {
	if len(itemScope) > 0 {
		return itemScope
	}
	return blockDefaultScope
}
