package backend

import (
	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
)

// R1C is one rank-1 row: (A·w) * (B·w) = (C·w).
type R1C struct {
	A, B, C Expression
}

// Column binds a declared input or output name to its witness column.
type Column struct {
	Name string
	Col  int
}

// R1CS is the lowered constraint system together with the witness plan that
// reproduces a full witness vector from an input assignment. Column 0 is the
// constant one; input columns follow in declaration order, then the
// auxiliary columns in the order the lowering allocated them.
type R1CS struct {
	field       field.Field
	NbColumns   int
	Constraints []R1C
	Inputs      []Column
	Outputs     []Column

	plan []witnessStep
}

// witnessStep assigns one auxiliary column from the columns before it.
type witnessStep struct {
	col     int
	compute func(w []constraint.Element) (constraint.Element, error)
}

func (r *R1CS) Field() field.Field { return r.field }

func (r *R1CS) ConstraintCount() int { return len(r.Constraints) }

// InputColumn returns the witness column of a declared input.
func (r *R1CS) InputColumn(name string) (int, bool) {
	for _, c := range r.Inputs {
		if c.Name == name {
			return c.Col, true
		}
	}
	return 0, false
}

// OutputColumn returns the witness column a declared output is read from.
func (r *R1CS) OutputColumn(name string) (int, bool) {
	for _, c := range r.Outputs {
		if c.Name == name {
			return c.Col, true
		}
	}
	return 0, false
}

// ColumnDefined reports whether a column has a value source: the constant
// one, a declared input, or a witness plan step.
func (r *R1CS) ColumnDefined(col int) bool {
	if col == 0 {
		return true
	}
	for _, c := range r.Inputs {
		if c.Col == col {
			return true
		}
	}
	for _, s := range r.plan {
		if s.col == col {
			return true
		}
	}
	return false
}

// checkDegrees enforces the rank-1 shape on every row: both factor sides
// linear, the result side at most quadratic. The lowering materializes every
// product into its own column, so a violation signals a lowering bug rather
// than bad input.
func (r *R1CS) checkDegrees() error {
	for i, row := range r.Constraints {
		if row.A.Degree() > 1 || row.B.Degree() > 1 || row.C.Degree() > 2 {
			return comperr.New(comperr.Backend, "row %d exceeds degree 2", i)
		}
	}
	return nil
}

// Solve produces the full witness vector for an input assignment by running
// the plan in column order. It fails the way a prover would: on a missing
// input, a zero divisor, or a value outside its declared bit range.
func (r *R1CS) Solve(assign map[string]constraint.Element) ([]constraint.Element, error) {
	w := make([]constraint.Element, r.NbColumns)
	w[0] = r.field.One()
	for _, in := range r.Inputs {
		v, ok := assign[in.Name]
		if !ok {
			return nil, comperr.New(comperr.Backend, "no assignment for input %q", in.Name)
		}
		w[in.Col] = v
	}
	for _, s := range r.plan {
		v, err := s.compute(w)
		if err != nil {
			return nil, comperr.Wrap(comperr.Backend, err, "solving column %d", s.col)
		}
		w[s.col] = v
	}
	return w, nil
}

// CheckWitness verifies every row against a witness vector, reporting the
// first violated row.
func (r *R1CS) CheckWitness(w []constraint.Element) error {
	if len(w) != r.NbColumns {
		return comperr.New(comperr.Backend, "witness has %d columns, want %d", len(w), r.NbColumns)
	}
	f := r.field
	for i, row := range r.Constraints {
		l := f.Mul(evalExpr(f, row.A, w), evalExpr(f, row.B, w))
		if l != evalExpr(f, row.C, w) {
			return comperr.New(comperr.Backend, "row %d violated", i)
		}
	}
	return nil
}

// IsSatisfied reports whether the witness satisfies every row.
func (r *R1CS) IsSatisfied(w []constraint.Element) bool {
	return r.CheckWitness(w) == nil
}
