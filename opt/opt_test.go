package opt

import (
	"testing"

	"github.com/consensys/gnark/constraint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
	"github.com/fcmc-zk/fcmc/frontend"
	"github.com/fcmc-zk/fcmc/ir"
)

func build(t *testing.T, src string) *ir.Graph {
	t.Helper()
	prog, err := frontend.ParseSource("test.fcmc", src)
	require.NoError(t, err)
	g, err := ir.FromAST(prog, field.BN254())
	require.NoError(t, err)
	return g
}

func optimize(t *testing.T, src string, level int) *ir.Graph {
	t.Helper()
	g, err := Optimize(build(t, src), level)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	return g
}

func countKind(g *ir.Graph, k ir.Kind) int {
	n := 0
	for i := 0; i < g.NodeCount(); i++ {
		if g.Node(ir.ID(i)).Kind == k {
			n++
		}
	}
	return n
}

func elem(f field.Field, v interface{}) constraint.Element {
	return f.FromInterface(v)
}

func TestLevelZeroIsUntouched(t *testing.T) {
	g := build(t, `fn main(x: Field) -> Field { return x * 1 + 0; }`)
	opt, err := Optimize(g, 0)
	require.NoError(t, err)
	assert.Same(t, g, opt)
}

func TestConstantFolding(t *testing.T) {
	g := optimize(t, `fn main() -> Field { return 2 + 3 * 4; }`, 1)
	out := g.Node(g.Outputs[0])
	n := g.Node(out.Operands[0])
	require.True(t, n.IsConstant())
	assert.Equal(t, elem(g.Field(), 14), n.Value)
	assert.Zero(t, countKind(g, ir.KindAdd))
	assert.Zero(t, countKind(g, ir.KindMul))
}

func TestIdentitiesFoldToPassthrough(t *testing.T) {
	g := optimize(t, `fn main(x: Field) -> Field { return x * 1 + 0; }`, 2)
	// after simplification and the dead node sweep only the input and its
	// output remain
	assert.Equal(t, 2, g.NodeCount())
	out := g.Node(g.Outputs[0])
	assert.Equal(t, ir.KindInput, g.Node(out.Operands[0]).Kind)
}

func TestMulByZeroAnnihilates(t *testing.T) {
	g := optimize(t, `fn main(x: Field) -> Field { return x * 0 + 5; }`, 2)
	out := g.Node(g.Outputs[0])
	n := g.Node(out.Operands[0])
	require.True(t, n.IsConstant())
	assert.Equal(t, elem(g.Field(), 5), n.Value)
	assert.Zero(t, countKind(g, ir.KindMul))
}

func TestDoubleNegation(t *testing.T) {
	g := optimize(t, `fn main(x: Field) -> Field { return -(-x); }`, 1)
	assert.Zero(t, countKind(g, ir.KindNeg))
}

func TestSelectWithEqualBranches(t *testing.T) {
	g := optimize(t, `
fn main(x: Field, flag: Bool) -> Field {
    let y = 0;
    if flag {
        y = x;
    } else {
        y = x;
    }
    return y;
}
`, 2)
	assert.Zero(t, countKind(g, ir.KindSelect))
}

func TestCommonSubexpressionElimination(t *testing.T) {
	g := optimize(t, `fn main(a: Field, b: Field) -> Field { return a * b + a * b; }`, 2)
	assert.Equal(t, 1, countKind(g, ir.KindMul))
}

func TestCSECanonicalizesCommutativeOperands(t *testing.T) {
	g := optimize(t, `fn main(a: Field, b: Field) -> Field { return a * b + b * a; }`, 2)
	assert.Equal(t, 1, countKind(g, ir.KindMul))
}

func TestCSEKeepsNonCommutativeOrder(t *testing.T) {
	g := optimize(t, `fn main(a: Field, b: Field) -> Field { return (a - b) * (b - a); }`, 2)
	assert.Equal(t, 2, countKind(g, ir.KindSub))
}

func TestDeadNodesSwept(t *testing.T) {
	g := optimize(t, `
fn main(x: Field) -> Field {
    let unused = x * x + 3;
    return x + 1;
}
`, 2)
	assert.Zero(t, countKind(g, ir.KindMul))
}

func TestUnreadInputSurvives(t *testing.T) {
	g := optimize(t, `fn main(x: Field, y: Field) -> Field { return x; }`, 3)
	assert.Equal(t, []string{"main.x", "main.y"}, g.InputNames())
}

func TestRangeRestrictionSurvivesSweep(t *testing.T) {
	// the decomposition constrains the witness even though nothing reads it
	g := optimize(t, `
fn main(x: U32) -> Field {
    return 7;
}
`, 3)
	assert.Equal(t, 1, countKind(g, ir.KindBitDecompose))
}

func TestStrengthReduction(t *testing.T) {
	src := `
fn main(x: Field) -> Field {
    let acc = x;
    for i in 0..8 {
        acc = acc * x;
    }
    return acc;
}
`
	chain := optimize(t, src, 2)
	assert.Equal(t, 8, countKind(chain, ir.KindMul))

	// x^9 by square and multiply: x^2, x^4, x^8, x^8 * x
	reduced := optimize(t, src, 3)
	assert.Equal(t, 4, countKind(reduced, ir.KindMul))

	f := reduced.Field()
	out, err := reduced.OutputValues(ir.Assignment{"main.x": elem(f, 2)})
	require.NoError(t, err)
	assert.Equal(t, elem(f, 512), out["main"])
}

func TestStrengthReductionKeepsWrapWidth(t *testing.T) {
	src := `
fn main(x: U32) -> U32 {
    let acc = x;
    for i in 0..20 {
        acc = acc * x;
    }
    return acc;
}
`
	g := optimize(t, src, 3)
	require.Less(t, countKind(g, ir.KindMul), 20)

	// x^21 still reduces modulo 2^32 after the rewrite
	f := g.Field()
	out, err := g.OutputValues(ir.Assignment{"main.x": elem(f, 3)})
	require.NoError(t, err)
	assert.Equal(t, elem(f, uint64(1870418611)), out["main"])
}

func TestStaticDivisionByZeroFails(t *testing.T) {
	_, err := Optimize(build(t, `fn main(x: Field) -> Field { return x + 1 / 0; }`), 1)
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Optimization))
}

func TestOptimizeIsIdempotent(t *testing.T) {
	for level := 1; level <= 3; level++ {
		g := optimize(t, `fn main(a: Field, b: Field) -> Field { return (a + b) * (a + b) + a * 1; }`, level)
		again, err := Optimize(g, level)
		require.NoError(t, err)
		assert.Equal(t, g.NodeCount(), again.NodeCount(), "level %d", level)
	}
}

func TestOptimizationPreservesSemantics(t *testing.T) {
	sources := []string{
		`fn main(x: Field) -> Field { return x * 1 + 0; }`,
		`fn main(a: Field, b: Field) -> Field { return a * b + a * b; }`,
		`fn main(x: Field, flag: Bool) -> Field {
			let y = 0;
			if flag { y = x + 1; } else { y = x * 2; }
			return y;
		}`,
		`fn main(x: U32, y: U32) -> Bool { return x < y || x == y; }`,
		`fn main(x: Field) -> Field {
			let acc = x;
			for i in 0..5 { acc = acc * x; }
			return acc;
		}`,
		`constraint nonzero(x: Field) { x != 0 }`,
	}
	f := field.BN254()
	inputs := []int{0, 1, 2, 7}

	for _, src := range sources {
		base := build(t, src)
		for level := 1; level <= 3; level++ {
			g, err := Optimize(base.Clone(), level)
			require.NoError(t, err)

			for _, v := range inputs {
				assign := make(ir.Assignment)
				for _, id := range base.Inputs {
					n := base.Node(id)
					val := v
					if n.Type.Kind == ast.TBool {
						val = val % 2
					}
					assign[n.Name] = elem(f, val)
				}
				want, err := base.OutputValues(assign)
				require.NoError(t, err)
				got, err := g.OutputValues(assign)
				require.NoError(t, err)
				assert.Equal(t, want, got, "level %d source %s", level, src)

				wantVals, err := base.Evaluate(assign)
				require.NoError(t, err)
				gotVals, err := g.Evaluate(assign)
				require.NoError(t, err)
				assert.Equal(t, base.AssertionsHold(wantVals), g.AssertionsHold(gotVals))
			}
		}
	}
}
