package datalog

import "strings"

// Predicate is a name applied to an ordered list of terms. Nothing enforces
// a fixed arity per name: facts of one name with different arities can
// coexist, and UnifyPredicate never matches a goal against a fact of a
// different arity.
type Predicate struct {
	Name  string
	Terms []Term
}

func NewPredicate(name string, terms ...Term) Predicate {
	return Predicate{Name: name, Terms: terms}
}

// Ground reports whether every term is a Value (no variables), and if so
// returns the corresponding Fact.
func (p Predicate) Ground() (Fact, bool) {
	for _, t := range p.Terms {
		if t.IsVariable() {
			return Fact{}, false
		}
	}
	return Fact{Predicate: p}, true
}

// Substitute applies a binding to every term, returning a new Predicate.
func (p Predicate) Substitute(b Binding) Predicate {
	terms := make([]Term, len(p.Terms))
	for i, t := range p.Terms {
		terms[i] = t.Substitute(b)
	}
	return Predicate{Name: p.Name, Terms: terms}
}

// Variables returns the set of distinct variable names appearing in p, in
// first-occurrence order.
func (p Predicate) Variables() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range p.Terms {
		if t.IsVariable() && !seen[t.variable] {
			seen[t.variable] = true
			out = append(out, t.variable)
		}
	}
	return out
}

func (p Predicate) String() string {
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = t.String()
	}
	return p.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Fact is a ground predicate: every term is a Value. Construct via
// NewFact, or via Predicate.Ground when a substitution happens to close
// every variable.
type Fact struct {
	Predicate Predicate
}

func NewFact(name string, values ...Value) Fact {
	terms := make([]Term, len(values))
	for i, v := range values {
		terms[i] = Val(v)
	}
	return Fact{Predicate: Predicate{Name: name, Terms: terms}}
}

func (f Fact) Equal(other Fact) bool {
	if f.Predicate.Name != other.Predicate.Name {
		return false
	}
	if len(f.Predicate.Terms) != len(other.Predicate.Terms) {
		return false
	}
	for i := range f.Predicate.Terms {
		if !f.Predicate.Terms[i].Value().Equal(other.Predicate.Terms[i].Value()) {
			return false
		}
	}
	return true
}

func (f Fact) String() string { return f.Predicate.String() }

// canonicalKey is a stable string key used for deduplication inside a
// FactGroup; it is deliberately independent of Value.Compare's ordering
// rules since within a single fact, argument order is significant.
func (f Fact) canonicalKey() string {
	var sb strings.Builder
	sb.WriteString(f.Predicate.Name)
	sb.WriteByte('/')
	for _, t := range f.Predicate.Terms {
		sb.WriteString(t.Value().String())
		sb.WriteByte(0)
	}
	return sb.String()
}

// Binding maps variable names to the Values they are bound to within one
// candidate substitution.
type Binding map[string]Value

func (b Binding) Copy() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Extend returns a copy of b with name bound to v. It never mutates b,
// since the rule matcher explores many candidate substitutions that share
// a prefix binding.
func (b Binding) Extend(name string, v Value) Binding {
	out := b.Copy()
	out[name] = v
	return out
}
