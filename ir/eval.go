package ir

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/field"
)

// Assignment maps declared input names to field values.
type Assignment map[string]constraint.Element

// Evaluate computes the value of every node under the given input
// assignment, in topological (creation) order. It fails when an input is
// missing, a divisor evaluates to zero, or a decomposed value exceeds its
// declared bit width; these are the failures a prover would hit at witness
// generation time.
func (g *Graph) Evaluate(assign Assignment) ([]constraint.Element, error) {
	values := make([]constraint.Element, len(g.nodes))
	for i := range g.nodes {
		n := &g.nodes[i]
		switch n.Kind {
		case KindInput:
			v, ok := assign[n.Name]
			if !ok {
				return nil, fmt.Errorf("no assignment for input %q", n.Name)
			}
			values[i] = v
		case KindConstant:
			values[i] = n.Value
		case KindOutput:
			values[i] = values[n.Operands[0]]
		default:
			in := make([]constraint.Element, len(n.Operands))
			for j, op := range n.Operands {
				in[j] = values[op]
			}
			v, err := EvalKind(g.field, n.Kind, in, n.Aux)
			if err != nil {
				return nil, fmt.Errorf("node %d (%s): %w", i, n.Kind, err)
			}
			values[i] = v
		}
	}
	return values, nil
}

// OutputValues evaluates the graph and returns the value of each declared
// output by name.
func (g *Graph) OutputValues(assign Assignment) (map[string]constraint.Element, error) {
	values, err := g.Evaluate(assign)
	if err != nil {
		return nil, err
	}
	res := make(map[string]constraint.Element, len(g.Outputs))
	for _, id := range g.Outputs {
		res[g.nodes[id].Name] = values[id]
	}
	return res, nil
}

// AssertionsHold reports whether every assertion root evaluates to true.
func (g *Graph) AssertionsHold(values []constraint.Element) bool {
	for _, id := range g.Assertions {
		if !g.field.IsOne(values[id]) {
			return false
		}
	}
	return true
}

// wrapped reduces an integer result modulo 2^nb. Arithmetic on fixed-width
// operands carries its width in Aux; both evaluation and the backend's
// carry-dropping decomposition reduce through this rule.
func wrapped(f field.Field, nb int, v *big.Int) constraint.Element {
	m := new(big.Int).Lsh(big.NewInt(1), uint(nb))
	return f.FromInterface(v.Mod(v, m))
}

// EvalKind computes one gate over concrete field values. Shared by graph
// evaluation, constant hints, and the folding pass, so all three agree
// exactly on semantics.
func EvalKind(f field.Field, kind Kind, in []constraint.Element, aux int) (constraint.Element, error) {
	one := f.One()
	var zero constraint.Element
	boolOf := func(b bool) constraint.Element {
		if b {
			return one
		}
		return zero
	}
	cmp := func() int {
		return f.ToBigInt(in[0]).Cmp(f.ToBigInt(in[1]))
	}
	switch kind {
	case KindAdd:
		if aux > 0 {
			return wrapped(f, aux, new(big.Int).Add(f.ToBigInt(in[0]), f.ToBigInt(in[1]))), nil
		}
		return f.Add(in[0], in[1]), nil
	case KindSub:
		if aux > 0 {
			return wrapped(f, aux, new(big.Int).Sub(f.ToBigInt(in[0]), f.ToBigInt(in[1]))), nil
		}
		return f.Sub(in[0], in[1]), nil
	case KindMul:
		if aux > 0 {
			return wrapped(f, aux, new(big.Int).Mul(f.ToBigInt(in[0]), f.ToBigInt(in[1]))), nil
		}
		return f.Mul(in[0], in[1]), nil
	case KindNeg:
		return f.Neg(in[0]), nil
	case KindDiv:
		inv, ok := f.Inverse(in[1])
		if !ok {
			return zero, fmt.Errorf("division by zero")
		}
		return f.Mul(in[0], inv), nil
	case KindBitDecompose:
		if f.ToBigInt(in[0]).BitLen() > aux {
			return zero, fmt.Errorf("value does not fit in %d bits", aux)
		}
		return in[0], nil
	case KindAnd:
		return f.Mul(in[0], in[1]), nil
	case KindOr:
		// a+b-ab
		return f.Sub(f.Add(in[0], in[1]), f.Mul(in[0], in[1])), nil
	case KindXor:
		// a+b-2ab
		ab := f.Mul(in[0], in[1])
		return f.Sub(f.Add(in[0], in[1]), f.Add(ab, ab)), nil
	case KindNot:
		return f.Sub(one, in[0]), nil
	case KindEq:
		return boolOf(in[0] == in[1]), nil
	case KindLt:
		return boolOf(cmp() < 0), nil
	case KindLe:
		return boolOf(cmp() <= 0), nil
	case KindGt:
		return boolOf(cmp() > 0), nil
	case KindGe:
		return boolOf(cmp() >= 0), nil
	case KindSelect:
		if f.IsOne(in[0]) {
			return in[1], nil
		}
		return in[2], nil
	}
	return zero, fmt.Errorf("kind %s has no evaluation rule", kind)
}
