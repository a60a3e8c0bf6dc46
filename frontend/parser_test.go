package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/comperr"
)

func TestParseFunction(t *testing.T) {
	src := `
// doubles and shifts
fn main(x: Field, flag: Bool) -> Field {
    let y = x * 2 + 1;
    return y;
}
`
	prog, err := ParseSource("test.fcmc", src)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	fn := prog.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.True(t, fn.IsPublic)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, ast.Field, fn.Params[0].Type)
	assert.Equal(t, ast.Bool, fn.Params[1].Type)
	assert.Equal(t, ast.Field, fn.ReturnType)
	require.Len(t, fn.Body, 2)

	let, ok := fn.Body[0].(ast.LetStmt)
	require.True(t, ok)
	assert.Equal(t, "y", let.Name)
	assert.Nil(t, let.Type)
}

func TestHelperFunctionsAreNotPublic(t *testing.T) {
	prog, err := ParseSource("t", `fn helper(x: Field) -> Field { return x; }`)
	require.NoError(t, err)
	assert.False(t, prog.Functions[0].IsPublic)
}

func TestParsePrecedence(t *testing.T) {
	prog, err := ParseSource("t", `fn main(a: Field, b: Field, c: Field) -> Field { return a + b * c; }`)
	require.NoError(t, err)

	ret := prog.Functions[0].Body[0].(ast.ReturnStmt)
	add, ok := ret.Value.(ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, add.Op)
	mul, ok := add.Right.(ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)
}

func TestParseLeftAssociativity(t *testing.T) {
	prog, err := ParseSource("t", `fn main(a: Field, b: Field, c: Field) -> Field { return a - b - c; }`)
	require.NoError(t, err)

	ret := prog.Functions[0].Body[0].(ast.ReturnStmt)
	outer := ret.Value.(ast.Binary)
	assert.Equal(t, ast.OpSub, outer.Op)
	inner, ok := outer.Left.(ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpSub, inner.Op)
}

func TestParseComparisonAndLogic(t *testing.T) {
	prog, err := ParseSource("t", `fn main(x: U32, y: U32) -> Bool { return x < y && x != 0; }`)
	require.NoError(t, err)

	ret := prog.Functions[0].Body[0].(ast.ReturnStmt)
	and := ret.Value.(ast.Binary)
	assert.Equal(t, ast.OpAnd, and.Op)
	assert.Equal(t, ast.OpLt, and.Left.(ast.Binary).Op)
	assert.Equal(t, ast.OpNe, and.Right.(ast.Binary).Op)
}

func TestParseIfElseChain(t *testing.T) {
	src := `
fn main(x: Field) -> Field {
    let y = 0;
    if x == 0 {
        y = 1;
    } else if x == 1 {
        y = 2;
    } else {
        y = 3;
    }
    return y;
}
`
	prog, err := ParseSource("t", src)
	require.NoError(t, err)

	ifStmt := prog.Functions[0].Body[1].(ast.IfStmt)
	require.Len(t, ifStmt.Else, 1)
	chained, ok := ifStmt.Else[0].(ast.IfStmt)
	require.True(t, ok)
	require.Len(t, chained.Else, 1)
}

func TestParseForLoop(t *testing.T) {
	src := `
fn main(x: Field) -> Field {
    let acc = x;
    for i in 0..4 {
        acc = acc * x;
    }
    return acc;
}
`
	prog, err := ParseSource("t", src)
	require.NoError(t, err)

	loop := prog.Functions[0].Body[1].(ast.ForStmt)
	assert.Equal(t, "i", loop.Var)
	require.Len(t, loop.Body, 1)
}

func TestParseConstraintDecl(t *testing.T) {
	prog, err := ParseSource("t", `constraint nonzero(x: Field) { x != 0 }`)
	require.NoError(t, err)
	require.Len(t, prog.Constraints, 1)
	assert.Equal(t, "nonzero", prog.Constraints[0].Name)
	assert.Equal(t, ast.OpNe, prog.Constraints[0].Body.(ast.Binary).Op)
}

func TestParseAssertAndCall(t *testing.T) {
	src := `
fn main(x: Field) -> Field {
    assert(square(x) == 4);
    return x;
}
`
	prog, err := ParseSource("t", src)
	require.NoError(t, err)

	as := prog.Functions[0].Body[0].(ast.AssertStmt)
	eq := as.Cond.(ast.Binary)
	call, ok := eq.Left.(ast.Call)
	require.True(t, ok)
	assert.Equal(t, "square", call.Name)
	require.Len(t, call.Args, 1)
}

func TestParseArrayTypeLiteralAndIndex(t *testing.T) {
	src := `
fn main(xs: Field[3]) -> Field {
    let ys = [1, 2, 3];
    return xs[0] + ys[2];
}
`
	prog, err := ParseSource("t", src)
	require.NoError(t, err)

	p := prog.Functions[0].Params[0]
	assert.Equal(t, ast.TArray, p.Type.Kind)
	assert.Equal(t, 3, p.Type.Len)
	assert.Equal(t, ast.Field, *p.Type.Elem)

	let := prog.Functions[0].Body[0].(ast.LetStmt)
	lit, ok := let.Value.(ast.ArrayLit)
	require.True(t, ok)
	assert.Len(t, lit.Elems, 3)
}

func TestParseHexNumber(t *testing.T) {
	prog, err := ParseSource("t", `fn main() -> Field { return 0xff; }`)
	require.NoError(t, err)
	lit := prog.Functions[0].Body[0].(ast.ReturnStmt).Value.(ast.NumberLit)
	assert.EqualValues(t, 255, lit.Value.Int64())
}

func TestParseUnaryAndParens(t *testing.T) {
	prog, err := ParseSource("t", `fn main(a: Field, b: Field) -> Field { return -(a + b); }`)
	require.NoError(t, err)
	neg := prog.Functions[0].Body[0].(ast.ReturnStmt).Value.(ast.Unary)
	assert.Equal(t, ast.OpNeg, neg.Op)
	assert.Equal(t, ast.OpAdd, neg.Expr.(ast.Binary).Op)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing semicolon", `fn main() -> Field { return 1 }`},
		{"unclosed brace", `fn main() -> Field { return 1;`},
		{"bad array size", `fn main(xs: Field[0]) -> Field { return 1; }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSource("t", tc.src)
			require.Error(t, err)
			assert.True(t, comperr.IsKind(err, comperr.Parse))
		})
	}
}

func TestUnknownTypeName(t *testing.T) {
	_, err := ParseSource("t", `fn main(x: Quux) -> Field { return x; }`)
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Type))
}

func TestCommentsAreElided(t *testing.T) {
	src := `
// top comment
fn main(x: Field) -> Field {
    // inner
    return x; // trailing
}
`
	_, err := ParseSource("t", src)
	require.NoError(t, err)
}
