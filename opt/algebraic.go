package opt

import (
	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ir"
)

// algebraic applies local identity rewrites: additive and multiplicative
// units, annihilators, involutions, and selects with a known or irrelevant
// condition. It never needs more than one node of lookahead, so it stays
// linear in graph size.
type algebraic struct{}

func (algebraic) Name() string  { return "algebraic" }
func (algebraic) MinLevel() int { return 1 }

func (algebraic) Apply(g *ir.Graph) (*ir.Graph, bool, error) {
	return rebuild(g, func(dst *ir.Graph, _ ir.ID, n ir.Node) (ir.ID, bool, error) {
		f := dst.Field()
		constOf := func(id ir.ID) (constraint.Element, bool) {
			c := dst.Node(id)
			return c.Value, c.IsConstant()
		}
		isOne := func(id ir.ID) bool {
			v, ok := constOf(id)
			return ok && f.IsOne(v)
		}
		isZero := func(id ir.ID) bool {
			v, ok := constOf(id)
			return ok && f.ToBigInt(v).Sign() == 0
		}
		zeroConst := func() ir.ID {
			var zero constraint.Element
			return dst.AddConstant(zero, n.Type)
		}

		switch n.Kind {
		case ir.KindAdd:
			a, b := n.Operands[0], n.Operands[1]
			if isZero(a) {
				return b, true, nil
			}
			if isZero(b) {
				return a, true, nil
			}
		case ir.KindSub:
			a, b := n.Operands[0], n.Operands[1]
			if isZero(b) {
				return a, true, nil
			}
			if a == b {
				return zeroConst(), true, nil
			}
		case ir.KindMul:
			a, b := n.Operands[0], n.Operands[1]
			if isOne(a) {
				return b, true, nil
			}
			if isOne(b) {
				return a, true, nil
			}
			if isZero(a) || isZero(b) {
				return zeroConst(), true, nil
			}
		case ir.KindDiv:
			// x/x is NOT rewritten to 1: a zero x must still fail at
			// witness generation
			if isOne(n.Operands[1]) {
				return n.Operands[0], true, nil
			}
		case ir.KindNeg:
			if inner := dst.Node(n.Operands[0]); inner.Kind == ir.KindNeg {
				return inner.Operands[0], true, nil
			}
		case ir.KindNot:
			if inner := dst.Node(n.Operands[0]); inner.Kind == ir.KindNot {
				return inner.Operands[0], true, nil
			}
		case ir.KindAnd:
			a, b := n.Operands[0], n.Operands[1]
			if isOne(a) {
				return b, true, nil
			}
			if isOne(b) {
				return a, true, nil
			}
			if isZero(a) || isZero(b) {
				return zeroConst(), true, nil
			}
			if a == b {
				return a, true, nil
			}
		case ir.KindOr:
			a, b := n.Operands[0], n.Operands[1]
			if isZero(a) {
				return b, true, nil
			}
			if isZero(b) {
				return a, true, nil
			}
			if isOne(a) || isOne(b) {
				return dst.AddConstant(f.One(), n.Type), true, nil
			}
			if a == b {
				return a, true, nil
			}
		case ir.KindXor:
			a, b := n.Operands[0], n.Operands[1]
			if isZero(a) {
				return b, true, nil
			}
			if isZero(b) {
				return a, true, nil
			}
			if a == b {
				return zeroConst(), true, nil
			}
		case ir.KindEq:
			if n.Operands[0] == n.Operands[1] {
				return dst.AddConstant(f.One(), n.Type), true, nil
			}
		case ir.KindSelect:
			c, t, e := n.Operands[0], n.Operands[1], n.Operands[2]
			if t == e {
				return t, true, nil
			}
			if v, ok := constOf(c); ok {
				if f.IsOne(v) {
					return t, true, nil
				}
				return e, true, nil
			}
		}
		return 0, false, nil
	})
}
