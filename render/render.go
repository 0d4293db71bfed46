// Package render produces Biscuit v2 surface syntax for diagnostics: it
// never participates in evaluation, only in printing what the evaluator
// saw or derived.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/biscuit-eval/datalog/datalog"
)

// Term renders one term as surface syntax: "$name" for a variable, or the
// value's own surface form for a ground term.
func Term(t datalog.Term) string {
	if t.IsVariable() {
		return "$" + t.Variable()
	}
	return Value(t.Value())
}

// Value renders one value: dates as RFC3339Nano, bytes as
// "hex:...", sets as "[...]", everything else via fmt.
func Value(v datalog.Value) string {
	switch v.Kind() {
	case datalog.KindSet:
		items, _ := v.AsSet()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Value(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.String()
	}
}

// Predicate renders "name(term, ...)".
func Predicate(p datalog.Predicate) string {
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = Term(t)
	}
	return p.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Fact renders a ground predicate followed by a semicolon, matching
// Biscuit v2's fact statement syntax.
func Fact(f datalog.Fact) string {
	return Predicate(f.Predicate) + ";"
}

// Expression renders an expression in infix form via its tree shape; a
// malformed stack renders as "<invalid expression>" rather than panicking,
// since render is diagnostic-only and must never be the reason a caller's
// error path itself fails.
func Expression(e datalog.Expression) string {
	tree, ok := datalog.StackToTree(e)
	if !ok {
		return "<invalid expression>"
	}
	return tree.String()
}

func scopeSuffix(scope []datalog.ScopeElement) string {
	if len(scope) == 0 {
		return ""
	}
	parts := make([]string, len(scope))
	for i, el := range scope {
		switch el.Kind {
		case datalog.ScopeOnlyAuthority:
			parts[i] = "authority"
		case datalog.ScopePrevious:
			parts[i] = "previous"
		case datalog.ScopeByPublicKey:
			parts[i] = string(el.Key)
		}
	}
	return " trusting " + strings.Join(parts, ", ")
}

func bodyAndExpr(body []datalog.Predicate, exprs []datalog.Expression) string {
	parts := make([]string, 0, len(body)+len(exprs))
	for _, p := range body {
		parts = append(parts, Predicate(p))
	}
	for _, e := range exprs {
		parts = append(parts, Expression(e))
	}
	return strings.Join(parts, ", ")
}

// Rule renders "head <- body, expr ... trusting scope;".
func Rule(r datalog.Rule) string {
	return fmt.Sprintf("%s <- %s%s;", Predicate(r.Head), bodyAndExpr(r.Body, r.Expressions), scopeSuffix(r.Scope))
}

// QueryItem renders one disjunct of a check/policy: "body, expr ... trusting scope".
func QueryItem(q datalog.QueryItem) string {
	return bodyAndExpr(q.Body, q.Expressions) + scopeSuffix(q.Scope)
}

// Check renders "check if item or item or ...;".
func Check(c datalog.Check) string {
	parts := make([]string, len(c.Queries))
	for i, q := range c.Queries {
		parts[i] = QueryItem(q)
	}
	return "check if " + strings.Join(parts, " or ") + ";"
}

// Policy renders "allow if ...;" or "deny if ...;".
func Policy(p datalog.Policy) string {
	parts := make([]string, len(p.Queries))
	for i, q := range p.Queries {
		parts[i] = QueryItem(q)
	}
	return p.Kind.String() + " if " + strings.Join(parts, " or ") + ";"
}

// FactGroup renders every (origin, fact) group of fg, sorted by origin for
// stable output, one "origin: fact; fact; ..." line per group.
func FactGroup(fg *datalog.FactGroup) string {
	type group struct {
		origin string
		facts  []string
	}
	byOrigin := map[string]*group{}
	fg.All(func(origin datalog.Origin, f datalog.Fact) {
		key := origin.String()
		g, ok := byOrigin[key]
		if !ok {
			g = &group{origin: key}
			byOrigin[key] = g
		}
		g.facts = append(g.facts, Fact(f))
	})
	keys := make([]string, 0, len(byOrigin))
	for k := range byOrigin {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		g := byOrigin[k]
		sort.Strings(g.facts)
		sb.WriteString(g.origin)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(g.facts, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
