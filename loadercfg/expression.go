package loadercfg

import (
	"fmt"

	"github.com/biscuit-eval/datalog/datalog"
)

// ExpressionConfig is the tree form of one expression (mirrors
// datalog.ExprNode): exactly one of Term, Unary, or Binary is set.
type ExpressionConfig struct {
	Term   *TermConfig       `mapstructure:"term"`
	Unary  *UnaryExprConfig  `mapstructure:"unary"`
	Binary *BinaryExprConfig `mapstructure:"binary"`
}

// UnaryExprConfig is a unary operator applied to a sub-expression; Op is
// one of "not", "length".
type UnaryExprConfig struct {
	Op   string           `mapstructure:"op"`
	Expr *ExpressionConfig `mapstructure:"expr"`
}

// BinaryExprConfig is a binary operator applied to two sub-expressions;
// Op is one of "<", ">", "<=", ">=", "==", "contains", "starts_with",
// "ends_with", "matches", "+", "-", "*", "/", "&&", "||", "intersection",
// "union".
type BinaryExprConfig struct {
	Op    string            `mapstructure:"op"`
	Left  *ExpressionConfig `mapstructure:"left"`
	Right *ExpressionConfig `mapstructure:"right"`
}

var unaryOps = map[string]datalog.UnaryOp{
	"not":    datalog.OpNegate,
	"length": datalog.OpLength,
}

var binaryOps = map[string]datalog.BinaryOp{
	"<":            datalog.OpLessThan,
	">":            datalog.OpGreaterThan,
	"<=":           datalog.OpLessOrEqual,
	">=":           datalog.OpGreaterOrEqual,
	"==":           datalog.OpEqual,
	"contains":     datalog.OpContains,
	"starts_with":  datalog.OpStartsWith,
	"ends_with":    datalog.OpEndsWith,
	"matches":      datalog.OpMatches,
	"+":            datalog.OpAdd,
	"-":            datalog.OpSub,
	"*":            datalog.OpMul,
	"/":            datalog.OpDiv,
	"&&":           datalog.OpAnd,
	"||":           datalog.OpOr,
	"intersection": datalog.OpIntersection,
	"union":        datalog.OpUnion,
}

func (e ExpressionConfig) toNode() (datalog.ExprNode, error) {
	switch {
	case e.Term != nil:
		return datalog.ValueNode{Term: *e.Term}, nil
	case e.Unary != nil:
		op, ok := unaryOps[e.Unary.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary op %q", e.Unary.Op)
		}
		if e.Unary.Expr == nil {
			return nil, fmt.Errorf("unary op %q missing expr", e.Unary.Op)
		}
		inner, err := e.Unary.Expr.toNode()
		if err != nil {
			return nil, err
		}
		return datalog.UnaryNode{Op: op, Expr: inner}, nil
	case e.Binary != nil:
		op, ok := binaryOps[e.Binary.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary op %q", e.Binary.Op)
		}
		if e.Binary.Left == nil || e.Binary.Right == nil {
			return nil, fmt.Errorf("binary op %q missing left/right", e.Binary.Op)
		}
		left, err := e.Binary.Left.toNode()
		if err != nil {
			return nil, err
		}
		right, err := e.Binary.Right.toNode()
		if err != nil {
			return nil, err
		}
		return datalog.BinaryNode{Op: op, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("expression config sets none of term/unary/binary")
	}
}

func toExpressions(cfgs []ExpressionConfig) ([]datalog.Expression, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	out := make([]datalog.Expression, len(cfgs))
	for i, c := range cfgs {
		node, err := c.toNode()
		if err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		out[i] = datalog.TreeToStack(node)
	}
	return out, nil
}
