package ir

import (
	"fmt"
	"strings"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ast"
)

// ID is a dense integer handle, unique within a graph. It is the graph's sole
// addressing mechanism; nodes never hold pointers to each other.
type ID int

type Kind uint8

const (
	KindInvalid Kind = iota
	KindInput
	KindConstant
	KindAdd
	KindSub
	KindMul
	KindNeg
	// KindDiv is field division a * b^-1; a zero-divisor witness fails at
	// witness generation, a statically-known zero divisor fails at folding.
	KindDiv
	// KindBitDecompose asserts its operand fits in Aux bits and exposes the
	// decomposition to the backend. Its value is the operand's value.
	KindBitDecompose
	KindAnd
	KindOr
	KindNot
	KindXor
	KindEq
	KindLt
	KindLe
	KindGt
	KindGe
	// KindSelect is Select(cond, then, else); both branches are always
	// evaluated, matching the circuit model's absence of control flow.
	KindSelect
	KindOutput
)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindInput:        "input",
	KindConstant:     "const",
	KindAdd:          "add",
	KindSub:          "sub",
	KindMul:          "mul",
	KindNeg:          "neg",
	KindDiv:          "div",
	KindBitDecompose: "bits",
	KindAnd:          "and",
	KindOr:           "or",
	KindNot:          "not",
	KindXor:          "xor",
	KindEq:           "eq",
	KindLt:           "lt",
	KindLe:           "le",
	KindGt:           "gt",
	KindGe:           "ge",
	KindSelect:       "select",
	KindOutput:       "output",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Commutative reports whether operand order is irrelevant for this kind.
func (k Kind) Commutative() bool {
	switch k {
	case KindAdd, KindMul, KindAnd, KindOr, KindXor, KindEq:
		return true
	}
	return false
}

// Node is a single gate. Operand order matters for non-commutative kinds.
type Node struct {
	Kind     Kind
	Operands []ID
	Type     ast.Type

	// Constant value for KindConstant; for other kinds it is the optional
	// precomputed constant hint, valid when HasHint is set.
	Value   constraint.Element
	HasHint bool

	// bit width for KindBitDecompose
	Aux int

	// declared name for KindInput and KindOutput
	Name string
}

func (n *Node) IsConstant() bool {
	return n.Kind == KindConstant
}

func (n *Node) String() string {
	ops := make([]string, len(n.Operands))
	for i, op := range n.Operands {
		ops[i] = fmt.Sprintf("v%d", op)
	}
	switch n.Kind {
	case KindInput:
		return fmt.Sprintf("input(%s)", n.Name)
	case KindConstant:
		return "const"
	case KindOutput:
		return fmt.Sprintf("output(%s, %s)", n.Name, ops[0])
	case KindBitDecompose:
		return fmt.Sprintf("bits[%d](%s)", n.Aux, ops[0])
	default:
		return fmt.Sprintf("%s(%s)", n.Kind, strings.Join(ops, ","))
	}
}
