// Package verifier cross-checks a lowered constraint system against the
// graph it was compiled from. It runs two phases: structural checks on the
// system itself, then semantic checks that solve and test witnesses for a
// deterministic grid of sample inputs.
package verifier

import (
	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/backend"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/logger"
)

// maxSamples caps the semantic input grid. Below the cap the full cross
// product of per-type candidate values is used; above it, a reduced grid
// that still varies every input through all its candidates.
const maxSamples = 256

// Verify checks the lowered system against the optimized graph it came from
// and the pre-optimization graph for output equivalence.
func Verify(before, after *ir.Graph, cs *backend.R1CS) error {
	log := logger.Logger().With().Str("component", "verifier").Logger()
	if err := VerifyStructure(cs); err != nil {
		return err
	}
	samples := sampleAssignments(after)
	log.Debug().Int("samples", len(samples)).Msg("running semantic checks")
	for _, assign := range samples {
		if err := checkSample(before, after, cs, assign); err != nil {
			return err
		}
	}
	return nil
}

// VerifyStructure checks the system's shape: every referenced column exists
// and has a value source, and no row is vacuous.
func VerifyStructure(cs *backend.R1CS) error {
	checkExpr := func(e backend.Expression, row int) error {
		for _, t := range e {
			if t.Col0 < 0 || t.Col0 >= cs.NbColumns || t.Col1 < 0 || t.Col1 >= cs.NbColumns {
				return comperr.Wrap(comperr.Verification, comperr.ErrStructural,
					"row %d references a column outside [0,%d)", row, cs.NbColumns)
			}
		}
		return nil
	}
	hasVariable := func(e backend.Expression) bool {
		for _, t := range e {
			if t.Col0 != 0 {
				return true
			}
		}
		return false
	}
	for i, row := range cs.Constraints {
		for _, e := range []backend.Expression{row.A, row.B, row.C} {
			if err := checkExpr(e, i); err != nil {
				return err
			}
		}
		if !hasVariable(row.A) && !hasVariable(row.B) && !hasVariable(row.C) {
			return comperr.Wrap(comperr.Verification, comperr.ErrStructural,
				"row %d constrains no variable", i)
		}
	}
	for _, out := range cs.Outputs {
		if out.Col < 0 || out.Col >= cs.NbColumns {
			return comperr.Wrap(comperr.Verification, comperr.ErrStructural,
				"output %q column %d outside [0,%d)", out.Name, out.Col, cs.NbColumns)
		}
		if !cs.ColumnDefined(out.Col) {
			return comperr.Wrap(comperr.Verification, comperr.ErrStructural,
				"output %q column %d has no value source", out.Name, out.Col)
		}
	}
	for _, in := range cs.Inputs {
		if in.Col <= 0 || in.Col >= cs.NbColumns {
			return comperr.Wrap(comperr.Verification, comperr.ErrStructural,
				"input %q column %d outside (0,%d)", in.Name, in.Col, cs.NbColumns)
		}
	}
	return nil
}

// checkSample runs one input assignment through graph evaluation, witness
// solving and row checking, and requires the three to agree.
func checkSample(before, after *ir.Graph, cs *backend.R1CS, assign ir.Assignment) error {
	postVals, postErr := after.Evaluate(assign)
	preVals, preErr := before.Evaluate(assign)

	// optimization may remove a failure (a dead division by zero) but must
	// never introduce one, and surviving outputs must keep their values
	if preErr == nil {
		if postErr != nil {
			return comperr.New(comperr.Verification,
				"optimization introduced an evaluation failure: %v", postErr)
		}
		for _, id := range after.Outputs {
			name := after.Node(id).Name
			preID, ok := before.OutputByName(name)
			if !ok {
				return comperr.New(comperr.Verification, "output %q not present before optimization", name)
			}
			if postVals[id] != preVals[preID] {
				return comperr.New(comperr.Verification, "optimization changed the value of output %q", name)
			}
		}
	}

	w, solveErr := cs.Solve(toMap(assign))
	if postErr != nil {
		// a witness that cannot be generated must not be accepted
		if solveErr == nil && cs.IsSatisfied(w) {
			return comperr.Wrap(comperr.Verification, comperr.ErrWitnessInconsistent,
				"system accepts inputs the graph rejects")
		}
		return nil
	}
	if solveErr != nil {
		return comperr.Wrap(comperr.Verification, comperr.ErrWitnessInconsistent,
			"cannot solve witness: %v", solveErr)
	}
	if after.AssertionsHold(postVals) {
		if err := cs.CheckWitness(w); err != nil {
			return comperr.Wrap(comperr.Verification, comperr.ErrWitnessInconsistent,
				"valid inputs violate the system: %v", err)
		}
		for _, id := range after.Outputs {
			name := after.Node(id).Name
			col, ok := cs.OutputColumn(name)
			if !ok {
				return comperr.Wrap(comperr.Verification, comperr.ErrStructural,
					"output %q has no column", name)
			}
			if w[col] != postVals[id] {
				return comperr.Wrap(comperr.Verification, comperr.ErrWitnessInconsistent,
					"output %q disagrees with the graph", name)
			}
		}
		return nil
	}
	// at least one assertion fails on these inputs, so no witness extending
	// them may satisfy every row
	if cs.IsSatisfied(w) {
		return comperr.Wrap(comperr.Verification, comperr.ErrWitnessInconsistent,
			"system accepts inputs that violate an assertion")
	}
	return nil
}

func toMap(a ir.Assignment) map[string]constraint.Element {
	return map[string]constraint.Element(a)
}

// sampleAssignments builds the deterministic input grid: boundary values per
// input type, crossed when small enough, otherwise varied one input at a
// time over a baseline.
func sampleAssignments(g *ir.Graph) []ir.Assignment {
	f := g.Field()
	names := g.InputNames()
	candidates := make([][]constraint.Element, len(names))
	var zero constraint.Element
	one := f.One()
	for i, id := range g.Inputs {
		switch g.Node(id).Type.Kind {
		case ast.TBool:
			candidates[i] = []constraint.Element{zero, one}
		case ast.TU32:
			maxU32 := f.FromInterface(uint64(1<<32 - 1))
			candidates[i] = []constraint.Element{zero, one, maxU32}
		default:
			// p-1 probes wraparound behavior
			candidates[i] = []constraint.Element{zero, one, f.Neg(one)}
		}
	}

	total := 1
	for _, c := range candidates {
		total *= len(c)
		if total > maxSamples {
			break
		}
	}
	var res []ir.Assignment
	if total <= maxSamples {
		idx := make([]int, len(names))
		for {
			a := make(ir.Assignment, len(names))
			for i, name := range names {
				a[name] = candidates[i][idx[i]]
			}
			res = append(res, a)
			k := len(idx) - 1
			for k >= 0 {
				idx[k]++
				if idx[k] < len(candidates[k]) {
					break
				}
				idx[k] = 0
				k--
			}
			if k < 0 {
				break
			}
		}
		return res
	}

	base := make(ir.Assignment, len(names))
	for i, name := range names {
		base[name] = candidates[i][0]
	}
	res = append(res, base)
	for i, name := range names {
		for _, v := range candidates[i][1:] {
			a := make(ir.Assignment, len(names))
			for _, n := range names {
				a[n] = base[n]
			}
			a[name] = v
			res = append(res, a)
		}
	}
	return res
}
