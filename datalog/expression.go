package datalog

import (
	"math"
	"regexp"
	"strings"
)

// UnaryOp is one of the unary operators a Datalog expression can apply.
type UnaryOp int

const (
	OpNegate UnaryOp = iota // bool -> bool
	OpParens                // identity, retained for rendering
	OpLength                // string|bytes|set -> int
)

// BinaryOp is one of the binary operators a Datalog expression can apply.
type BinaryOp int

const (
	OpLessThan BinaryOp = iota
	OpGreaterThan
	OpLessOrEqual
	OpGreaterOrEqual
	OpEqual
	OpContains     // string-contains-substring, or set-contains-value
	OpStartsWith
	OpEndsWith
	OpMatches // regex
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpIntersection // set x set -> set
	OpUnion        // set x set -> set
)

// ExprOp is one element of the reverse-polish stack form an Expression is
// stored/evaluated in: push a term, or apply an operator to the top of the
// stack. The wire format is stack-based; the tree form
// (ExprNode) exists for rendering and is convertible in both directions.
type ExprOp struct {
	// exactly one of the following is set
	isTerm bool
	term   Term
	isUnary bool
	unary   UnaryOp
	isBinary bool
	binary   BinaryOp
}

func PushTerm(t Term) ExprOp      { return ExprOp{isTerm: true, term: t} }
func ApplyUnary(op UnaryOp) ExprOp  { return ExprOp{isUnary: true, unary: op} }
func ApplyBinary(op BinaryOp) ExprOp { return ExprOp{isBinary: true, binary: op} }

// Expression is a reverse-polish sequence of ExprOp. The whole sequence
// must leave exactly one value on the stack when fully applied.
type Expression []ExprOp

// EvalLimits bounds expression evaluation: maxRegexLength
// caps the pattern length `matches` will attempt, defending the fixpoint
// against adversarial catastrophic-backtracking patterns supplied in an
// untrusted block. Zero means unlimited.
type EvalLimits struct {
	MaxRegexLength int
}

// Eval evaluates the expression under a binding. Any type mismatch, unbound
// variable, arithmetic overflow, division by zero, malformed regex, or a
// regex pattern exceeding limits.MaxRegexLength makes the expression fail
// locally (ok=false) rather than returning a Go error: expression failures
// drop the current candidate binding and never propagate as evaluator
// faults.
func (e Expression) Eval(b Binding, limits EvalLimits) (Value, bool) {
	var stack []Value
	pop := func() (Value, bool) {
		if len(stack) == 0 {
			return Value{}, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for _, op := range e {
		switch {
		case op.isTerm:
			t := op.term.Substitute(b)
			if t.IsVariable() {
				return Value{}, false
			}
			stack = append(stack, t.Value())
		case op.isUnary:
			v, ok := pop()
			if !ok {
				return Value{}, false
			}
			r, ok := evalUnary(op.unary, v)
			if !ok {
				return Value{}, false
			}
			stack = append(stack, r)
		case op.isBinary:
			right, ok := pop()
			if !ok {
				return Value{}, false
			}
			left, ok := pop()
			if !ok {
				return Value{}, false
			}
			r, ok := evalBinary(op.binary, left, right, limits)
			if !ok {
				return Value{}, false
			}
			stack = append(stack, r)
		default:
			return Value{}, false
		}
	}
	if len(stack) != 1 {
		return Value{}, false
	}
	return stack[0], true
}

// EvalBool runs Eval and additionally requires the result be a boolean
// true; used for the expression lists attached to rules/checks/queries,
// where the whole list passes iff every expression yields Some(true).
func (e Expression) EvalBool(b Binding, limits EvalLimits) bool {
	v, ok := e.Eval(b, limits)
	if !ok {
		return false
	}
	bv, isBool := v.AsBool()
	return isBool && bv
}

func evalUnary(op UnaryOp, v Value) (Value, bool) {
	switch op {
	case OpNegate:
		bv, ok := v.AsBool()
		if !ok {
			return Value{}, false
		}
		return Bool(!bv), true
	case OpParens:
		return v, true
	case OpLength:
		switch v.Kind() {
		case KindString:
			s, _ := v.AsString()
			return Int(int64(len(s))), true
		case KindBytes:
			bs, _ := v.AsBytes()
			return Int(int64(len(bs))), true
		case KindSet:
			items, _ := v.AsSet()
			return Int(int64(len(items))), true
		default:
			return Value{}, false
		}
	default:
		return Value{}, false
	}
}

func evalBinary(op BinaryOp, left, right Value, limits EvalLimits) (Value, bool) {
	switch op {
	case OpEqual:
		if left.Kind() != right.Kind() {
			return Value{}, false
		}
		return Bool(left.Equal(right)), true
	case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual:
		return evalOrderComparison(op, left, right)
	case OpContains:
		return evalContains(left, right)
	case OpStartsWith:
		ls, ok1 := left.AsString()
		rs, ok2 := right.AsString()
		if !ok1 || !ok2 {
			return Value{}, false
		}
		return Bool(strings.HasPrefix(ls, rs)), true
	case OpEndsWith:
		ls, ok1 := left.AsString()
		rs, ok2 := right.AsString()
		if !ok1 || !ok2 {
			return Value{}, false
		}
		return Bool(strings.HasSuffix(ls, rs)), true
	case OpMatches:
		ls, ok1 := left.AsString()
		pattern, ok2 := right.AsString()
		if !ok1 || !ok2 {
			return Value{}, false
		}
		if limits.MaxRegexLength > 0 && len(pattern) > limits.MaxRegexLength {
			return Value{}, false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Value{}, false
		}
		return Bool(re.MatchString(ls)), true
	case OpAdd, OpSub, OpMul, OpDiv:
		li, ok1 := left.AsInt()
		ri, ok2 := right.AsInt()
		if !ok1 || !ok2 {
			return Value{}, false
		}
		return evalArith(op, li, ri)
	case OpAnd:
		lb, ok1 := left.AsBool()
		rb, ok2 := right.AsBool()
		if !ok1 || !ok2 {
			return Value{}, false
		}
		// Both operands are evaluated before combining (they already were,
		// as stack values) — short-circuit applies only at the value
		// level
		return Bool(lb && rb), true
	case OpOr:
		lb, ok1 := left.AsBool()
		rb, ok2 := right.AsBool()
		if !ok1 || !ok2 {
			return Value{}, false
		}
		return Bool(lb || rb), true
	case OpIntersection, OpUnion:
		return evalSetOp(op, left, right)
	default:
		return Value{}, false
	}
}

func evalOrderComparison(op BinaryOp, left, right Value) (Value, bool) {
	if left.Kind() != right.Kind() {
		return Value{}, false
	}
	switch left.Kind() {
	case KindInt, KindString, KindDate, KindBytes:
		c := left.Compare(right)
		switch op {
		case OpLessThan:
			return Bool(c < 0), true
		case OpGreaterThan:
			return Bool(c > 0), true
		case OpLessOrEqual:
			return Bool(c <= 0), true
		case OpGreaterOrEqual:
			return Bool(c >= 0), true
		}
	}
	return Value{}, false
}

func evalContains(left, right Value) (Value, bool) {
	switch left.Kind() {
	case KindString:
		ls, _ := left.AsString()
		rs, ok := right.AsString()
		if !ok {
			return Value{}, false
		}
		return Bool(strings.Contains(ls, rs)), true
	case KindSet:
		items, _ := left.AsSet()
		if right.Kind() == KindSet {
			rightItems, _ := right.AsSet()
			for _, want := range rightItems {
				found := false
				for _, have := range items {
					if have.Equal(want) {
						found = true
						break
					}
				}
				if !found {
					return Bool(false), true
				}
			}
			return Bool(true), true
		}
		for _, have := range items {
			if have.Equal(right) {
				return Bool(true), true
			}
		}
		return Bool(false), true
	default:
		return Value{}, false
	}
}

func evalSetOp(op BinaryOp, left, right Value) (Value, bool) {
	if left.Kind() != KindSet || right.Kind() != KindSet {
		return Value{}, false
	}
	leftItems, _ := left.AsSet()
	rightItems, _ := right.AsSet()
	var out []Value
	switch op {
	case OpIntersection:
		for _, a := range leftItems {
			for _, b := range rightItems {
				if a.Equal(b) {
					out = append(out, a)
					break
				}
			}
		}
	case OpUnion:
		out = append(out, leftItems...)
		out = append(out, rightItems...)
	}
	v, err := NewSet(out...)
	if err != nil {
		return Value{}, false
	}
	return v, true
}

// evalArith performs checked signed-64-bit arithmetic: overflow or
// division by zero fails the expression rather than wrapping or panicking.
func evalArith(op BinaryOp, a, b int64) (Value, bool) {
	switch op {
	case OpAdd:
		sum := a + b
		if (b > 0 && sum < a) || (b < 0 && sum > a) {
			return Value{}, false
		}
		return Int(sum), true
	case OpSub:
		diff := a - b
		if (b < 0 && diff < a) || (b > 0 && diff > a) {
			return Value{}, false
		}
		return Int(diff), true
	case OpMul:
		if a == 0 || b == 0 {
			return Int(0), true
		}
		product := a * b
		if product/b != a {
			return Value{}, false
		}
		if a == -1 && b == math.MinInt64 || b == -1 && a == math.MinInt64 {
			return Value{}, false
		}
		return Int(product), true
	case OpDiv:
		if b == 0 {
			return Value{}, false
		}
		if a == math.MinInt64 && b == -1 {
			return Value{}, false
		}
		return Int(a / b), true
	default:
		return Value{}, false
	}
}
