package datalog

import "fmt"

// ExprNode is the tree form of an Expression, used for rendering and for building expressions in tests without hand-writing stack
// order. TreeToStack and StackToTree are inverses of each other on every
// well-formed tree/stack.
type ExprNode interface {
	isExprNode()
}

type ValueNode struct{ Term Term }

func (ValueNode) isExprNode() {}

type UnaryNode struct {
	Op   UnaryOp
	Expr ExprNode
}

func (UnaryNode) isExprNode() {}

type BinaryNode struct {
	Op    BinaryOp
	Left  ExprNode
	Right ExprNode
}

func (BinaryNode) isExprNode() {}

// TreeToStack linearizes a tree into reverse-polish stack form: operands
// before operators, left before right.
func TreeToStack(n ExprNode) Expression {
	switch node := n.(type) {
	case ValueNode:
		return Expression{PushTerm(node.Term)}
	case UnaryNode:
		out := TreeToStack(node.Expr)
		return append(out, ApplyUnary(node.Op))
	case BinaryNode:
		out := TreeToStack(node.Left)
		out = append(out, TreeToStack(node.Right)...)
		return append(out, ApplyBinary(node.Op))
	default:
		return nil
	}
}

// StackToTree rebuilds the tree shape from a reverse-polish stack. It
// fails (ok=false) if the stack is malformed (wrong arity anywhere, or more
// than one value remaining at the end).
func StackToTree(e Expression) (ExprNode, bool) {
	var stack []ExprNode
	for _, op := range e {
		switch {
		case op.isTerm:
			stack = append(stack, ValueNode{Term: op.term})
		case op.isUnary:
			if len(stack) < 1 {
				return nil, false
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack = append(stack, UnaryNode{Op: op.unary, Expr: top})
		case op.isBinary:
			if len(stack) < 2 {
				return nil, false
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, BinaryNode{Op: op.binary, Left: left, Right: right})
		default:
			return nil, false
		}
	}
	if len(stack) != 1 {
		return nil, false
	}
	return stack[0], true
}

func (n ValueNode) String() string { return n.Term.String() }
func (n UnaryNode) String() string { return fmt.Sprintf("%s(%s)", unaryOpName(n.Op), n.Expr) }
func (n BinaryNode) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, binaryOpName(n.Op), n.Right)
}

func unaryOpName(op UnaryOp) string {
	switch op {
	case OpNegate:
		return "!"
	case OpParens:
		return "parens"
	case OpLength:
		return "length"
	default:
		return "?"
	}
}

func binaryOpName(op BinaryOp) string {
	switch op {
	case OpLessThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpLessOrEqual:
		return "<="
	case OpGreaterOrEqual:
		return ">="
	case OpEqual:
		return "=="
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpEndsWith:
		return "ends_with"
	case OpMatches:
		return "matches"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpIntersection:
		return "intersection"
	case OpUnion:
		return "union"
	default:
		return "?"
	}
}
