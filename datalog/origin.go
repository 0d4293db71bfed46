package datalog

import (
	"sort"
	"strconv"
	"strings"

	hashset "github.com/hashicorp/go-set/v3"
)

// Origin is the set of block ids that jointly derived a fact. It wraps hashicorp/go-set's generic Set so that union-on-
// derivation and subset-on-scope-filtering — the two operations the origin
// algebra needs — are lattice operations, not hand-rolled ones.
type Origin struct {
	ids *hashset.Set[BlockID]
}

// NewOrigin builds an Origin from a list of block ids.
func NewOrigin(ids ...BlockID) Origin {
	return Origin{ids: hashset.From(ids)}
}

func emptyOrigin() Origin { return Origin{ids: hashset.New[BlockID](0)} }

// Union returns {this} ∪ {other}; a base fact's origin is Union of just its
// own block id, a derived fact's origin is Union(owner, body fact origins).
func (o Origin) Union(other Origin) Origin {
	out := o.ids.Copy()
	out.InsertSet(other.ids)
	return Origin{ids: out}
}

// Subset reports whether every block id in o is also in permitted — the
// central trust-boundary test: a fact's origin must be a subset of a
// consumer's permitted set to be visible to it.
func (o Origin) Subset(permitted Origin) bool {
	return o.ids.Subset(permitted.ids)
}

func (o Origin) Equal(other Origin) bool { return o.ids.Equal(other.ids) }

func (o Origin) Contains(id BlockID) bool { return o.ids.Contains(id) }

func (o Origin) Slice() []BlockID {
	s := o.ids.Slice()
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return s
}

func (o Origin) String() string {
	ids := o.Slice()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// key is the canonical map key for an Origin, used by FactGroup. Go's
// generic Set isn't itself comparable, so FactGroup indexes by this
// stable string instead (sorted ids joined by comma — block ids are small
// non-negative integers so this never collides).
func (o Origin) key() string { return o.String() }

// originEntry is one (origin, facts) row of a FactGroup.
type originEntry struct {
	origin Origin
	facts  map[string]Fact // canonicalKey -> Fact, within this origin only
}

// FactGroup is the map Origin -> set of facts. Each (origin, fact) pair is
// stored once; the same fact may appear under several origins when it was
// derived from different sets of blocks.
type FactGroup struct {
	byOrigin map[string]*originEntry
	byName   map[string][]factRef // predicate name -> facts carrying it, for rule-matcher lookups
}

type factRef struct {
	origin Origin
	fact   Fact
}

func NewFactGroup() *FactGroup {
	return &FactGroup{
		byOrigin: map[string]*originEntry{},
		byName:   map[string][]factRef{},
	}
}

// Insert adds fact under origin, merging into an existing entry for an
// equal origin. It reports whether the
// (origin, fact) pair was newly added — the fixpoint driver's measure of
// "new" growth.
func (fg *FactGroup) Insert(origin Origin, f Fact) bool {
	key := origin.key()
	entry, ok := fg.byOrigin[key]
	if !ok {
		entry = &originEntry{origin: origin, facts: map[string]Fact{}}
		fg.byOrigin[key] = entry
	}
	ck := f.canonicalKey()
	if _, exists := entry.facts[ck]; exists {
		return false
	}
	entry.facts[ck] = f
	fg.byName[f.Predicate.Name] = append(fg.byName[f.Predicate.Name], factRef{origin: origin, fact: f})
	return true
}

// Merge inserts every (origin, fact) pair of other into fg.
func (fg *FactGroup) Merge(other *FactGroup) {
	for _, entry := range other.byOrigin {
		for _, f := range entry.facts {
			fg.Insert(entry.origin, f)
		}
	}
}

// Len is the count of distinct (origin, fact) pairs — the quantity
// maxFacts bounds.
func (fg *FactGroup) Len() int {
	n := 0
	for _, entry := range fg.byOrigin {
		n += len(entry.facts)
	}
	return n
}

// CandidatesFor returns every (origin, fact) pair carrying the given
// predicate name whose origin is a subset of permitted — the scoped lookup
// the rule matcher uses for each body atom.
func (fg *FactGroup) CandidatesFor(name string, permitted Origin) []factRef {
	all := fg.byName[name]
	out := make([]factRef, 0, len(all))
	for _, ref := range all {
		if ref.origin.Subset(permitted) {
			out = append(out, ref)
		}
	}
	return out
}

// FilterScope restricts fg to the (origin, fact) pairs whose origin is a
// subset of permitted. Used directly by check/policy
// evaluation and by QueryAuthorityFacts; the rule matcher uses the more
// targeted CandidatesFor instead to avoid materializing a full copy per
// rule firing.
func (fg *FactGroup) FilterScope(permitted Origin) *FactGroup {
	out := NewFactGroup()
	for _, entry := range fg.byOrigin {
		if entry.origin.Subset(permitted) {
			for _, f := range entry.facts {
				out.Insert(entry.origin, f)
			}
		}
	}
	return out
}

// All calls fn for every (origin, fact) pair in fg.
func (fg *FactGroup) All(fn func(origin Origin, f Fact)) {
	for _, entry := range fg.byOrigin {
		for _, f := range entry.facts {
			fn(entry.origin, f)
		}
	}
}
