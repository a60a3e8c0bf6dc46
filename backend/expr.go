// Package backend lowers the optimized dataflow graph to a constraint
// system. The only supported target is rank-1 constraint systems: rows
// (A·w)∘(B·w)=(C·w) over a shared witness vector whose column 0 is pinned
// to the constant one.
package backend

import (
	"sort"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
)

// Term is Coeff * w[Col0] * w[Col1]. Column 0 is the constant-one wire, so
// Col1 == 0 makes the term linear and Col0 == Col1 == 0 a constant. The
// canonical form keeps Col0 >= Col1.
type Term struct {
	Col0  int
	Col1  int
	Coeff constraint.Element
}

func (t Term) degree() int {
	if t.Col0 == 0 {
		return 0
	}
	if t.Col1 == 0 {
		return 1
	}
	return 2
}

// Expression is a sum of terms, kept sorted by (Col0, Col1) with like terms
// merged and zero coefficients dropped.
type Expression []Term

// Degree is the highest term degree, 0 for the empty (zero) expression.
func (e Expression) Degree() int {
	d := 0
	for _, t := range e {
		if td := t.degree(); td > d {
			d = td
		}
	}
	return d
}

// AsConstant returns the expression's value when it has no variable term.
func (e Expression) AsConstant() (constraint.Element, bool) {
	var zero constraint.Element
	if len(e) == 0 {
		return zero, true
	}
	if len(e) == 1 && e[0].degree() == 0 {
		return e[0].Coeff, true
	}
	return zero, false
}

// AsWire returns the column when the expression is exactly 1*w[col].
func (e Expression) AsWire(f field.Field) (int, bool) {
	if len(e) == 1 && e[0].degree() == 1 && f.IsOne(e[0].Coeff) {
		return e[0].Col0, true
	}
	return 0, false
}

func constantExpr(v constraint.Element) Expression {
	return Expression{{Col0: 0, Col1: 0, Coeff: v}}
}

func oneExpr(f field.Field) Expression {
	return constantExpr(f.One())
}

func wireExpr(f field.Field, col int) Expression {
	return Expression{{Col0: col, Col1: 0, Coeff: f.One()}}
}

// normalize sorts terms, merges duplicates and drops zeros.
func normalize(f field.Field, e Expression) Expression {
	for i, t := range e {
		if t.Col0 < t.Col1 {
			e[i].Col0, e[i].Col1 = t.Col1, t.Col0
		}
	}
	sort.Slice(e, func(i, j int) bool {
		if e[i].Col0 != e[j].Col0 {
			return e[i].Col0 < e[j].Col0
		}
		return e[i].Col1 < e[j].Col1
	})
	res := e[:0]
	for _, t := range e {
		n := len(res)
		if n > 0 && res[n-1].Col0 == t.Col0 && res[n-1].Col1 == t.Col1 {
			res[n-1].Coeff = f.Add(res[n-1].Coeff, t.Coeff)
		} else {
			res = append(res, t)
		}
	}
	out := res[:0]
	for _, t := range res {
		if f.ToBigInt(t.Coeff).Sign() != 0 {
			out = append(out, t)
		}
	}
	return out
}

func addExpr(f field.Field, a, b Expression) Expression {
	res := make(Expression, 0, len(a)+len(b))
	res = append(res, a...)
	res = append(res, b...)
	return normalize(f, res)
}

func scaleExpr(f field.Field, e Expression, k constraint.Element) Expression {
	if f.ToBigInt(k).Sign() == 0 {
		return nil
	}
	res := make(Expression, len(e))
	for i, t := range e {
		res[i] = Term{Col0: t.Col0, Col1: t.Col1, Coeff: f.Mul(t.Coeff, k)}
	}
	return res
}

func negExpr(f field.Field, e Expression) Expression {
	return scaleExpr(f, e, f.Neg(f.One()))
}

func subExpr(f field.Field, a, b Expression) Expression {
	return addExpr(f, a, negExpr(f, b))
}

// mulExpr multiplies two expressions, failing when the product would exceed
// degree two. The lowering keeps every stored expression linear, so this can
// only trip on a compiler bug, but the constraint shape is a hard contract
// and worth guarding.
func mulExpr(f field.Field, a, b Expression) (Expression, error) {
	res := make(Expression, 0, len(a)*len(b))
	for _, ta := range a {
		for _, tb := range b {
			if ta.degree()+tb.degree() > 2 {
				return nil, comperr.New(comperr.Backend, "product exceeds degree 2")
			}
			t := Term{Coeff: f.Mul(ta.Coeff, tb.Coeff)}
			cols := []int{ta.Col0, ta.Col1, tb.Col0, tb.Col1}
			for _, c := range cols {
				if c == 0 {
					continue
				}
				if t.Col0 == 0 {
					t.Col0 = c
				} else {
					t.Col1 = c
				}
			}
			res = append(res, t)
		}
	}
	return normalize(f, res), nil
}

// evalExpr evaluates an expression over a witness vector. The caller keeps
// w[0] pinned to one.
func evalExpr(f field.Field, e Expression, w []constraint.Element) constraint.Element {
	var acc constraint.Element
	for _, t := range e {
		v := f.Mul(t.Coeff, w[t.Col0])
		if t.Col1 != 0 {
			v = f.Mul(v, w[t.Col1])
		}
		acc = f.Add(acc, v)
	}
	return acc
}
