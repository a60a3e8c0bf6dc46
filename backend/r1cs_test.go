package backend

import (
	"testing"

	"github.com/consensys/gnark/constraint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
	"github.com/fcmc-zk/fcmc/frontend"
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/opt"
)

func lower(t *testing.T, src string, level int) *R1CS {
	t.Helper()
	prog, err := frontend.ParseSource("test.fcmc", src)
	require.NoError(t, err)
	g, err := ir.FromAST(prog, field.BN254())
	require.NoError(t, err)
	g, err = opt.Optimize(g, level)
	require.NoError(t, err)
	cs, err := Compile(g, TargetR1CS)
	require.NoError(t, err)
	return cs
}

func elem(f field.Field, v interface{}) constraint.Element {
	return f.FromInterface(v)
}

func solve(t *testing.T, cs *R1CS, assign map[string]constraint.Element) []constraint.Element {
	t.Helper()
	w, err := cs.Solve(assign)
	require.NoError(t, err)
	return w
}

func output(t *testing.T, cs *R1CS, w []constraint.Element, name string) constraint.Element {
	t.Helper()
	col, ok := cs.OutputColumn(name)
	require.True(t, ok, "output %q", name)
	return w[col]
}

func TestPassthroughNeedsNoRows(t *testing.T) {
	cs := lower(t, `fn main(x: Field) -> Field { return x * 1 + 0; }`, 2)
	assert.Zero(t, cs.ConstraintCount())

	// the output reads the input column directly
	in, ok := cs.InputColumn("main.x")
	require.True(t, ok)
	out, ok := cs.OutputColumn("main")
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestLinearCircuitNeedsNoMulRows(t *testing.T) {
	cs := lower(t, `fn main(a: Field, b: Field) -> Field { return a + 2 * b - a; }`, 0)
	// additions and constant factors fold into coefficients; the only row
	// binds the output column
	assert.Equal(t, 1, cs.ConstraintCount())

	f := cs.Field()
	w := solve(t, cs, map[string]constraint.Element{
		"main.a": elem(f, 5),
		"main.b": elem(f, 7),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, 14), output(t, cs, w, "main"))
}

func TestSingleMultiplicationRow(t *testing.T) {
	cs := lower(t, `fn main(a: Field, b: Field) -> Field { return a * b; }`, 2)
	assert.Equal(t, 1, cs.ConstraintCount())

	f := cs.Field()
	w := solve(t, cs, map[string]constraint.Element{
		"main.a": elem(f, 3),
		"main.b": elem(f, 4),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, 12), output(t, cs, w, "main"))
}

func TestSharedProductRow(t *testing.T) {
	cs := lower(t, `fn main(a: Field, b: Field) -> Field { return a * b + a * b; }`, 2)
	// one product row; the doubled sum is linear and costs only the output
	// binding row
	assert.Equal(t, 2, cs.ConstraintCount())

	f := cs.Field()
	w := solve(t, cs, map[string]constraint.Element{
		"main.a": elem(f, 3),
		"main.b": elem(f, 4),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, 24), output(t, cs, w, "main"))
}

func TestCorruptedWitnessRejected(t *testing.T) {
	cs := lower(t, `fn main(a: Field, b: Field) -> Field { return a * b; }`, 2)
	f := cs.Field()
	w := solve(t, cs, map[string]constraint.Element{
		"main.a": elem(f, 3),
		"main.b": elem(f, 4),
	})
	col, _ := cs.OutputColumn("main")
	w[col] = elem(f, 13)
	assert.Error(t, cs.CheckWitness(w))
	assert.False(t, cs.IsSatisfied(w))
}

func TestMissingInputRejected(t *testing.T) {
	cs := lower(t, `fn main(a: Field, b: Field) -> Field { return a * b; }`, 2)
	_, err := cs.Solve(map[string]constraint.Element{"main.a": cs.Field().One()})
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestDivisionGadget(t *testing.T) {
	cs := lower(t, `fn main(x: Field, y: Field) -> Field { return x / y; }`, 2)
	f := cs.Field()

	w := solve(t, cs, map[string]constraint.Element{
		"main.x": elem(f, 6),
		"main.y": elem(f, 3),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, 2), output(t, cs, w, "main"))

	_, err := cs.Solve(map[string]constraint.Element{
		"main.x": elem(f, 6),
		"main.y": elem(f, 0),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestConstantDivisorFoldsIntoCoefficients(t *testing.T) {
	cs := lower(t, `fn main(x: Field) -> Field { return x / 2; }`, 0)
	// x * inv(2) is linear; only the output binding row remains
	assert.Equal(t, 1, cs.ConstraintCount())

	f := cs.Field()
	w := solve(t, cs, map[string]constraint.Element{"main.x": elem(f, 10)})
	assert.Equal(t, elem(f, 5), output(t, cs, w, "main"))
}

func TestBooleanInputConstrained(t *testing.T) {
	cs := lower(t, `fn main(b: Bool) -> Bool { return b; }`, 2)
	require.Equal(t, 1, cs.ConstraintCount())

	f := cs.Field()
	for _, v := range []uint64{0, 1} {
		w := solve(t, cs, map[string]constraint.Element{"main.b": elem(f, v)})
		assert.True(t, cs.IsSatisfied(w))
	}
	w := solve(t, cs, map[string]constraint.Element{"main.b": elem(f, 2)})
	assert.False(t, cs.IsSatisfied(w))
}

func TestU32RangeConstraint(t *testing.T) {
	cs := lower(t, `fn main(x: U32) -> U32 { return x; }`, 2)
	// 32 bit rows plus the recomposition row
	assert.Equal(t, 33, cs.ConstraintCount())

	f := cs.Field()
	w := solve(t, cs, map[string]constraint.Element{"main.x": elem(f, uint64(1)<<32-1)})
	assert.True(t, cs.IsSatisfied(w))

	_, err := cs.Solve(map[string]constraint.Element{"main.x": elem(f, uint64(1)<<32)})
	require.Error(t, err)
}

func TestComparisonGadget(t *testing.T) {
	cs := lower(t, `fn main(x: U32) -> Bool { return x < 256; }`, 2)
	f := cs.Field()
	cases := []struct {
		x    uint64
		want uint64
	}{
		{0, 1},
		{255, 1},
		{256, 0},
		{1<<32 - 1, 0},
	}
	for _, tc := range cases {
		w := solve(t, cs, map[string]constraint.Element{"main.x": elem(f, tc.x)})
		require.NoError(t, cs.CheckWitness(w), "x=%d", tc.x)
		assert.Equal(t, elem(f, tc.want), output(t, cs, w, "main"), "x=%d", tc.x)
	}
}

func TestU32AdditionWraps(t *testing.T) {
	cs := lower(t, `fn main(x: U32, y: U32) -> U32 { return x + y; }`, 0)
	f := cs.Field()
	max := uint64(1)<<32 - 1

	w := solve(t, cs, map[string]constraint.Element{
		"main.x": elem(f, max),
		"main.y": elem(f, uint64(2)),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, uint64(1)), output(t, cs, w, "main"))
}

func TestU32SubtractionWraps(t *testing.T) {
	cs := lower(t, `fn main(x: U32, y: U32) -> U32 { return x - y; }`, 0)
	f := cs.Field()

	w := solve(t, cs, map[string]constraint.Element{
		"main.x": elem(f, uint64(0)),
		"main.y": elem(f, uint64(1)),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, uint64(1)<<32-1), output(t, cs, w, "main"))
}

func TestU32MultiplicationWraps(t *testing.T) {
	cs := lower(t, `fn main(x: U32, y: U32) -> U32 { return x * y; }`, 0)
	f := cs.Field()

	w := solve(t, cs, map[string]constraint.Element{
		"main.x": elem(f, uint64(1)<<16),
		"main.y": elem(f, uint64(1)<<16),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, uint64(0)), output(t, cs, w, "main"))
}

func TestOverflowedComparisonStaysSolvable(t *testing.T) {
	// the comparison reads the wrapped sum, so witnesses exist for inputs
	// whose intermediate overflows
	cs := lower(t, `fn main(x: U32, y: U32, z: U32) -> Bool { return x + y < z; }`, 0)
	f := cs.Field()
	max := uint64(1)<<32 - 1
	cases := []struct {
		x, y, z uint64
		want    uint64
	}{
		{max, max, 0, 0},
		{max, 1, 1, 1},
		{3, 4, 8, 1},
		{3, 4, 7, 0},
	}
	for _, tc := range cases {
		w := solve(t, cs, map[string]constraint.Element{
			"main.x": elem(f, tc.x),
			"main.y": elem(f, tc.y),
			"main.z": elem(f, tc.z),
		})
		require.NoError(t, cs.CheckWitness(w), "x=%d y=%d z=%d", tc.x, tc.y, tc.z)
		assert.Equal(t, elem(f, tc.want), output(t, cs, w, "main"), "x=%d y=%d z=%d", tc.x, tc.y, tc.z)
	}
}

func TestComparisonsShareDecomposition(t *testing.T) {
	one := lower(t, `fn main(x: U32, y: U32) -> Bool { return x < y; }`, 0)
	both := lower(t, `fn main(x: U32, y: U32) -> Bool { return (x < y) ^ (x >= y); }`, 0)
	// x<y and x>=y read the same 33-bit decomposition, so the second
	// comparison adds no rows; the xor costs one row but its column replaces
	// the output binding row the single comparison needed
	assert.Equal(t, one.ConstraintCount(), both.ConstraintCount())
}

func TestEqualityGadget(t *testing.T) {
	cs := lower(t, `fn main(x: Field, y: Field) -> Bool { return x == y; }`, 2)
	f := cs.Field()
	cases := []struct {
		x, y uint64
		want uint64
	}{
		{3, 3, 1},
		{3, 4, 0},
		{0, 0, 1},
	}
	for _, tc := range cases {
		w := solve(t, cs, map[string]constraint.Element{
			"main.x": elem(f, tc.x),
			"main.y": elem(f, tc.y),
		})
		require.NoError(t, cs.CheckWitness(w))
		assert.Equal(t, elem(f, tc.want), output(t, cs, w, "main"))
	}
}

func TestSelectGadget(t *testing.T) {
	cs := lower(t, `
fn main(x: Field, flag: Bool) -> Field {
    let y = 0;
    if flag {
        y = x + 1;
    } else {
        y = x * 2;
    }
    return y;
}
`, 2)
	f := cs.Field()

	w := solve(t, cs, map[string]constraint.Element{
		"main.x":    elem(f, 10),
		"main.flag": f.One(),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, 11), output(t, cs, w, "main"))

	w = solve(t, cs, map[string]constraint.Element{
		"main.x":    elem(f, 10),
		"main.flag": elem(f, 0),
	})
	require.NoError(t, cs.CheckWitness(w))
	assert.Equal(t, elem(f, 20), output(t, cs, w, "main"))
}

func TestBoolOpsLowerToSingleRows(t *testing.T) {
	// and, or, xor are one row each; inputs add one boolean row apiece and
	// the output binds to the or column directly
	cs := lower(t, `fn main(a: Bool, b: Bool) -> Bool { return (a && b) || (a ^ b); }`, 0)
	assert.Equal(t, 5, cs.ConstraintCount())

	f := cs.Field()
	for _, tc := range []struct{ a, b, want uint64 }{
		{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1},
	} {
		w := solve(t, cs, map[string]constraint.Element{
			"main.a": elem(f, tc.a),
			"main.b": elem(f, tc.b),
		})
		require.NoError(t, cs.CheckWitness(w))
		assert.Equal(t, elem(f, tc.want), output(t, cs, w, "main"))
	}
}

func TestAssertionRow(t *testing.T) {
	cs := lower(t, `
fn main(x: Field, y: Field) -> Field {
    assert(x == y);
    return x;
}
`, 2)
	f := cs.Field()

	w := solve(t, cs, map[string]constraint.Element{
		"main.x": elem(f, 5),
		"main.y": elem(f, 5),
	})
	assert.True(t, cs.IsSatisfied(w))

	w = solve(t, cs, map[string]constraint.Element{
		"main.x": elem(f, 5),
		"main.y": elem(f, 6),
	})
	assert.False(t, cs.IsSatisfied(w))
}

func TestStaticallyFalseAssertionRejected(t *testing.T) {
	prog, err := frontend.ParseSource("t", `fn main(x: Field) -> Field { assert(false); return x; }`)
	require.NoError(t, err)
	g, err := ir.FromAST(prog, field.BN254())
	require.NoError(t, err)
	_, err = Compile(g, TargetR1CS)
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestConstraintDecl(t *testing.T) {
	cs := lower(t, `constraint nonzero(x: Field) { x != 0 }`, 2)
	f := cs.Field()

	w := solve(t, cs, map[string]constraint.Element{"nonzero.x": elem(f, 5)})
	assert.True(t, cs.IsSatisfied(w))

	w = solve(t, cs, map[string]constraint.Element{"nonzero.x": elem(f, 0)})
	assert.False(t, cs.IsSatisfied(w))
}

func TestWitnessColumnLayout(t *testing.T) {
	cs := lower(t, `fn main(a: Field, b: Field) -> Field { return a * b; }`, 2)
	require.Len(t, cs.Inputs, 2)
	assert.Equal(t, Column{Name: "main.a", Col: 1}, cs.Inputs[0])
	assert.Equal(t, Column{Name: "main.b", Col: 2}, cs.Inputs[1])
	for col := 0; col < cs.NbColumns; col++ {
		assert.True(t, cs.ColumnDefined(col), "column %d", col)
	}
}

func TestParseTarget(t *testing.T) {
	tgt, err := ParseTarget("r1cs")
	require.NoError(t, err)
	assert.Equal(t, TargetR1CS, tgt)
	assert.Equal(t, "r1cs", tgt.String())

	_, err = ParseTarget("plonk")
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestUnsupportedTarget(t *testing.T) {
	prog, err := frontend.ParseSource("t", `fn main(x: Field) -> Field { return x; }`)
	require.NoError(t, err)
	g, err := ir.FromAST(prog, field.BN254())
	require.NoError(t, err)
	_, err = Compile(g, TargetSystem(42))
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestExpressionDegree(t *testing.T) {
	f := field.BN254()
	one := f.One()
	assert.Equal(t, 0, Expression(nil).Degree())
	assert.Equal(t, 0, constantExpr(one).Degree())
	assert.Equal(t, 1, wireExpr(f, 3).Degree())

	q, err := mulExpr(f, wireExpr(f, 1), wireExpr(f, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, q.Degree())

	_, err = mulExpr(f, q, wireExpr(f, 3))
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestRowDegreeGuard(t *testing.T) {
	f := field.BN254()
	one := f.One()
	quad := Expression{{Col0: 2, Col1: 1, Coeff: one}}

	good := &R1CS{
		field:     f,
		NbColumns: 3,
		Constraints: []R1C{{
			A: wireExpr(f, 1),
			B: wireExpr(f, 2),
			C: quad,
		}},
	}
	require.NoError(t, good.checkDegrees())

	bad := &R1CS{
		field:       f,
		NbColumns:   3,
		Constraints: []R1C{{A: quad, B: oneExpr(f), C: oneExpr(f)}},
	}
	err := bad.checkDegrees()
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestExpressionNormalization(t *testing.T) {
	f := field.BN254()
	a := addExpr(f, wireExpr(f, 2), wireExpr(f, 1))
	b := addExpr(f, wireExpr(f, 1), wireExpr(f, 2))
	assert.Equal(t, a, b)

	cancel := subExpr(f, wireExpr(f, 1), wireExpr(f, 1))
	assert.Empty(t, cancel)
}
