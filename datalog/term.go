package datalog

// Term is either a ground Value or a Variable. Facts contain only ground
// terms; rule/check/query bodies and heads may mix both, subject to the
// range-restriction invariant (every head variable appears in the body).
type Term struct {
	isVar    bool
	variable string
	value    Value
}

// Var builds a variable term identified by symbol name.
func Var(name string) Term { return Term{isVar: true, variable: name} }

// Val builds a ground term from a Value.
func Val(v Value) Term { return Term{value: v} }

func (t Term) IsVariable() bool { return t.isVar }

// Variable returns the variable's symbol name; it is only meaningful when
// IsVariable is true.
func (t Term) Variable() string { return t.variable }

// Value returns the held Value; only meaningful when IsVariable is false.
func (t Term) Value() Value { return t.value }

func (t Term) String() string {
	if t.isVar {
		return "$" + t.variable
	}
	return t.value.String()
}

// Substitute resolves a term through a binding: a ground term returns
// itself, a bound variable returns its bound Value as a ground term, and an
// unbound variable is returned unchanged (callers distinguish via
// IsVariable).
func (t Term) Substitute(b Binding) Term {
	if !t.isVar {
		return t
	}
	if v, ok := b[t.variable]; ok {
		return Val(v)
	}
	return t
}
