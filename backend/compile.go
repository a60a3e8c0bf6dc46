package backend

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/utils"
)

// lowerer walks the graph in topological order and keeps, per node, the
// linear expression over witness columns that carries its value. Additions,
// subtractions, negations and constant factors fold into coefficients;
// everything else materializes columns and rows.
type lowerer struct {
	f     field.Field
	g     *ir.Graph
	cs    *R1CS
	exprs []Expression

	// shared comparison and equality gadgets, keyed by operand node ids
	cache utils.Map

	pow32 constraint.Element
	inv2  constraint.Element
}

func lowerR1CS(g *ir.Graph) (*R1CS, error) {
	f := g.Field()
	lo := &lowerer{
		f:     f,
		g:     g,
		cs:    &R1CS{field: f, NbColumns: 1},
		exprs: make([]Expression, g.NodeCount()),
		cache: make(utils.Map),
	}
	lo.pow32 = f.FromInterface(new(big.Int).Lsh(big.NewInt(1), 32))
	two := f.Add(f.One(), f.One())
	lo.inv2, _ = f.Inverse(two)

	// input columns come right after the constant-one column, in declaration
	// order, before any auxiliary column
	inputCols := make(map[ir.ID]int, len(g.Inputs))
	for _, id := range g.Inputs {
		col := lo.newCol()
		inputCols[id] = col
		lo.cs.Inputs = append(lo.cs.Inputs, Column{Name: g.Node(id).Name, Col: col})
	}

	for i := 0; i < g.NodeCount(); i++ {
		if err := lo.lowerNode(ir.ID(i), inputCols); err != nil {
			return nil, err
		}
	}

	for _, id := range g.Assertions {
		if err := lo.lowerAssertion(id); err != nil {
			return nil, err
		}
	}
	if err := lo.cs.checkDegrees(); err != nil {
		return nil, err
	}
	return lo.cs, nil
}

func (lo *lowerer) newCol() int {
	col := lo.cs.NbColumns
	lo.cs.NbColumns++
	return col
}

func (lo *lowerer) addRow(a, b, c Expression) {
	lo.cs.Constraints = append(lo.cs.Constraints, R1C{A: a, B: b, C: c})
}

func (lo *lowerer) addStep(col int, compute func(w []constraint.Element) (constraint.Element, error)) {
	lo.cs.plan = append(lo.cs.plan, witnessStep{col: col, compute: compute})
}

func (lo *lowerer) lowerNode(id ir.ID, inputCols map[ir.ID]int) error {
	f := lo.f
	n := lo.g.Node(id)
	op := func(k int) Expression { return lo.exprs[n.Operands[k]] }

	switch n.Kind {
	case ir.KindInput:
		e := wireExpr(f, inputCols[id])
		lo.exprs[id] = e
		if n.Type.Kind == ast.TBool {
			lo.addRow(e, subExpr(f, e, oneExpr(f)), nil)
		}

	case ir.KindConstant:
		lo.exprs[id] = constantExpr(n.Value)

	case ir.KindAdd:
		e := addExpr(f, op(0), op(1))
		if n.Aux > 0 {
			e = lo.truncate(e, n.Aux, 1)
		}
		lo.exprs[id] = e

	case ir.KindSub:
		e := subExpr(f, op(0), op(1))
		if n.Aux > 0 {
			// shift by 2^nb so the difference is non-negative, then drop the
			// carry; (a-b+2^nb) mod 2^nb = (a-b) mod 2^nb
			shift := constantExpr(f.FromInterface(new(big.Int).Lsh(big.NewInt(1), uint(n.Aux))))
			e = lo.truncate(addExpr(f, e, shift), n.Aux, 1)
		}
		lo.exprs[id] = e

	case ir.KindNeg:
		lo.exprs[id] = negExpr(f, op(0))

	case ir.KindMul:
		ea, eb := op(0), op(1)
		var e Expression
		if c, ok := ea.AsConstant(); ok {
			e = scaleExpr(f, eb, c)
		} else if c, ok := eb.AsConstant(); ok {
			e = scaleExpr(f, ea, c)
		} else {
			e = lo.product(ea, eb)
		}
		if n.Aux > 0 {
			// a product of two nb-bit values needs nb carry bits
			e = lo.truncate(e, n.Aux, n.Aux)
		}
		lo.exprs[id] = e

	case ir.KindDiv:
		ea, eb := op(0), op(1)
		if c, ok := eb.AsConstant(); ok {
			if inv, nonzero := f.Inverse(c); nonzero {
				lo.exprs[id] = scaleExpr(f, ea, inv)
				return nil
			}
			// a constant zero divisor still lowers; the system is simply
			// unsatisfiable and solving fails like any zero divisor would
		}
		inv := lo.newCol()
		lo.addRow(eb, wireExpr(f, inv), oneExpr(f))
		lo.addStep(inv, func(w []constraint.Element) (constraint.Element, error) {
			v, ok := f.Inverse(evalExpr(f, eb, w))
			if !ok {
				return v, fmt.Errorf("division by zero")
			}
			return v, nil
		})
		q := lo.newCol()
		lo.addRow(eb, wireExpr(f, q), ea)
		lo.addStep(q, func(w []constraint.Element) (constraint.Element, error) {
			return f.Mul(evalExpr(f, ea, w), w[inv]), nil
		})
		lo.exprs[id] = wireExpr(f, q)

	case ir.KindBitDecompose:
		e := op(0)
		lo.decompose(e, n.Aux)
		lo.exprs[id] = e

	case ir.KindAnd:
		lo.exprs[id] = lo.product(op(0), op(1))

	case ir.KindOr:
		// r = a+b-ab, as a*b = a+b-r
		ea, eb := op(0), op(1)
		r := lo.newCol()
		sum := addExpr(f, ea, eb)
		lo.addRow(ea, eb, subExpr(f, sum, wireExpr(f, r)))
		lo.addStep(r, func(w []constraint.Element) (constraint.Element, error) {
			a, b := evalExpr(f, ea, w), evalExpr(f, eb, w)
			return f.Sub(f.Add(a, b), f.Mul(a, b)), nil
		})
		lo.exprs[id] = wireExpr(f, r)

	case ir.KindXor:
		// r = a+b-2ab, as a*b = (a+b-r)/2
		ea, eb := op(0), op(1)
		r := lo.newCol()
		sum := addExpr(f, ea, eb)
		lo.addRow(ea, eb, scaleExpr(f, subExpr(f, sum, wireExpr(f, r)), lo.inv2))
		lo.addStep(r, func(w []constraint.Element) (constraint.Element, error) {
			a, b := evalExpr(f, ea, w), evalExpr(f, eb, w)
			ab := f.Mul(a, b)
			return f.Sub(f.Add(a, b), f.Add(ab, ab)), nil
		})
		lo.exprs[id] = wireExpr(f, r)

	case ir.KindNot:
		lo.exprs[id] = subExpr(f, oneExpr(f), op(0))

	case ir.KindEq:
		lo.exprs[id] = lo.equality(n.Operands[0], n.Operands[1])

	case ir.KindLt:
		lo.exprs[id] = subExpr(f, oneExpr(f), lo.geBit(n.Operands[0], n.Operands[1]))

	case ir.KindGe:
		lo.exprs[id] = lo.geBit(n.Operands[0], n.Operands[1])

	case ir.KindGt:
		lo.exprs[id] = subExpr(f, oneExpr(f), lo.geBit(n.Operands[1], n.Operands[0]))

	case ir.KindLe:
		lo.exprs[id] = lo.geBit(n.Operands[1], n.Operands[0])

	case ir.KindSelect:
		ec, et, ef := op(0), op(1), op(2)
		if c, ok := ec.AsConstant(); ok {
			if f.IsOne(c) {
				lo.exprs[id] = et
			} else {
				lo.exprs[id] = ef
			}
			return nil
		}
		// c * (t-f) = r-f
		r := lo.newCol()
		lo.addRow(ec, subExpr(f, et, ef), subExpr(f, wireExpr(f, r), ef))
		lo.addStep(r, func(w []constraint.Element) (constraint.Element, error) {
			if f.IsOne(evalExpr(f, ec, w)) {
				return evalExpr(f, et, w), nil
			}
			return evalExpr(f, ef, w), nil
		})
		lo.exprs[id] = wireExpr(f, r)

	case ir.KindOutput:
		e := op(0)
		if col, ok := e.AsWire(f); ok {
			// the output reads an existing column directly; no row needed
			lo.cs.Outputs = append(lo.cs.Outputs, Column{Name: n.Name, Col: col})
			lo.exprs[id] = e
			return nil
		}
		o := lo.newCol()
		lo.addRow(e, oneExpr(f), wireExpr(f, o))
		lo.addStep(o, func(w []constraint.Element) (constraint.Element, error) {
			return evalExpr(f, e, w), nil
		})
		lo.cs.Outputs = append(lo.cs.Outputs, Column{Name: n.Name, Col: o})
		lo.exprs[id] = wireExpr(f, o)

	default:
		return comperr.New(comperr.Backend, "cannot lower %s node", n.Kind)
	}
	return nil
}

// product materializes a multiplication into one row and a fresh column.
func (lo *lowerer) product(ea, eb Expression) Expression {
	f := lo.f
	m := lo.newCol()
	lo.addRow(ea, eb, wireExpr(f, m))
	lo.addStep(m, func(w []constraint.Element) (constraint.Element, error) {
		return f.Mul(evalExpr(f, ea, w), evalExpr(f, eb, w)), nil
	})
	return wireExpr(f, m)
}

// decompose allocates nb bit columns for an expression, constrains each to
// {0,1} and binds their weighted sum back to the expression. Returns the bit
// columns, least significant first.
func (lo *lowerer) decompose(e Expression, nb int) []int {
	f := lo.f
	cols := make([]int, nb)
	var sum Expression
	for j := 0; j < nb; j++ {
		c := lo.newCol()
		cols[j] = c
		bw := wireExpr(f, c)
		lo.addRow(bw, subExpr(f, bw, oneExpr(f)), nil)
		j := j
		lo.addStep(c, func(w []constraint.Element) (constraint.Element, error) {
			v := f.ToBigInt(evalExpr(f, e, w))
			if v.BitLen() > nb {
				return constraint.Element{}, fmt.Errorf("value does not fit in %d bits", nb)
			}
			if v.Bit(j) == 1 {
				return f.One(), nil
			}
			return constraint.Element{}, nil
		})
		coeff := f.FromInterface(new(big.Int).Lsh(big.NewInt(1), uint(j)))
		sum = addExpr(f, sum, scaleExpr(f, bw, coeff))
	}
	lo.addRow(sum, oneExpr(f), e)
	return cols
}

// truncate reduces an expression modulo 2^nb by decomposing it into nb+carry
// bits and summing the low nb back up; carry must bound the expression's
// overflow. A constant expression reduces without allocating columns.
func (lo *lowerer) truncate(e Expression, nb, carry int) Expression {
	f := lo.f
	m := new(big.Int).Lsh(big.NewInt(1), uint(nb))
	if c, ok := e.AsConstant(); ok {
		return constantExpr(f.FromInterface(new(big.Int).Mod(f.ToBigInt(c), m)))
	}
	cols := lo.decompose(e, nb+carry)
	var res Expression
	for j := 0; j < nb; j++ {
		coeff := f.FromInterface(new(big.Int).Lsh(big.NewInt(1), uint(j)))
		res = addExpr(f, res, scaleExpr(f, wireExpr(f, cols[j]), coeff))
	}
	return res
}

// geBit returns the boolean expression [x >= y] for 32-bit operands by
// decomposing x-y+2^32 into 33 bits; the top bit is the comparison. The
// decomposition is cached per operand pair so all four comparison kinds on
// the same operands share one gadget.
func (lo *lowerer) geBit(x, y ir.ID) Expression {
	key := &gadgetKey{tag: tagCmp, a: x, b: y}
	if v, ok := lo.cache.Find(key); ok {
		return v.(Expression)
	}
	f := lo.f
	d := addExpr(f, subExpr(f, lo.exprs[x], lo.exprs[y]), constantExpr(lo.pow32))
	bits := lo.decompose(d, 33)
	t := wireExpr(f, bits[32])
	lo.cache.Set(key, t)
	return t
}

// equality returns the boolean expression [x == y] via the standard
// inverse-or-zero gadget: with d = x-y, rows d*v = 1-z and d*z = 0 force
// z = 1 exactly when d = 0.
func (lo *lowerer) equality(x, y ir.ID) Expression {
	if y < x {
		x, y = y, x
	}
	key := &gadgetKey{tag: tagEq, a: x, b: y}
	if v, ok := lo.cache.Find(key); ok {
		return v.(Expression)
	}
	f := lo.f
	d := subExpr(f, lo.exprs[x], lo.exprs[y])
	if c, ok := d.AsConstant(); ok {
		var res Expression
		if f.ToBigInt(c).Sign() == 0 {
			res = oneExpr(f)
		}
		lo.cache.Set(key, res)
		return res
	}
	z := lo.newCol()
	v := lo.newCol()
	zw, vw := wireExpr(f, z), wireExpr(f, v)
	lo.addRow(d, vw, subExpr(f, oneExpr(f), zw))
	lo.addRow(d, zw, nil)
	lo.addStep(z, func(w []constraint.Element) (constraint.Element, error) {
		if f.ToBigInt(evalExpr(f, d, w)).Sign() == 0 {
			return f.One(), nil
		}
		return constraint.Element{}, nil
	})
	lo.addStep(v, func(w []constraint.Element) (constraint.Element, error) {
		inv, ok := f.Inverse(evalExpr(f, d, w))
		if !ok {
			return constraint.Element{}, nil
		}
		return inv, nil
	})
	lo.cache.Set(key, zw)
	return zw
}

// lowerAssertion pins an assertion root to one. Statically true assertions
// produce no row; statically false ones can never be satisfied and fail the
// compile.
func (lo *lowerer) lowerAssertion(id ir.ID) error {
	f := lo.f
	e := lo.exprs[id]
	if c, ok := e.AsConstant(); ok {
		if !f.IsOne(c) {
			return comperr.New(comperr.Backend, "assertion is always false")
		}
		return nil
	}
	lo.addRow(e, oneExpr(f), oneExpr(f))
	return nil
}

const (
	tagCmp uint8 = iota
	tagEq
)

type gadgetKey struct {
	tag  uint8
	a, b ir.ID
}

func (k *gadgetKey) HashCode() uint64 {
	h := uint64(k.tag)
	h = h*1000000007 + uint64(k.a)
	h = h*1000000007 + uint64(k.b)
	return h
}

func (k *gadgetKey) EqualI(o utils.Hashable) bool {
	t, ok := o.(*gadgetKey)
	return ok && *k == *t
}
