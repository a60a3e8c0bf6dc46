// Package frontend parses fcmc source text into the validated AST consumed
// by the compiler core. The core performs its own semantic validation; the
// frontend only guarantees the tree is syntactically well formed.
package frontend

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/comperr"
)

var parser = participle.MustBuild[Program](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// ParseSource parses source text into an ast.Program.
func ParseSource(filename, source string) (*ast.Program, error) {
	tree, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, comperr.Wrap(comperr.Parse, err, "failed to parse %s", filename)
	}
	return convertProgram(tree)
}

// ReportParseError prints a caret-style parse error message for CLI use.
func ReportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("-> %s\n", pe.Message())
}

func convertProgram(p *Program) (*ast.Program, error) {
	res := &ast.Program{EntryPoint: "main"}
	for _, d := range p.Decls {
		switch {
		case d.Function != nil:
			f, err := convertFunction(d.Function)
			if err != nil {
				return nil, err
			}
			res.Functions = append(res.Functions, f)
		case d.Constraint != nil:
			c, err := convertConstraint(d.Constraint)
			if err != nil {
				return nil, err
			}
			res.Constraints = append(res.Constraints, c)
		}
	}
	return res, nil
}

func convertFunction(f *Function) (*ast.Function, error) {
	params, err := convertParams(f.Params)
	if err != nil {
		return nil, err
	}
	ret := ast.Unit
	if f.Return != nil {
		if ret, err = convertType(f.Return); err != nil {
			return nil, err
		}
	}
	body, err := convertStmts(f.Body)
	if err != nil {
		return nil, err
	}
	return &ast.Function{
		Name:       f.Name,
		Params:     params,
		ReturnType: ret,
		Body:       body,
		// main is public by default
		IsPublic: f.Name == "main",
	}, nil
}

func convertConstraint(c *Constraint) (*ast.Constraint, error) {
	params, err := convertParams(c.Params)
	if err != nil {
		return nil, err
	}
	body, err := convertExpr(c.Body)
	if err != nil {
		return nil, err
	}
	return &ast.Constraint{Name: c.Name, Params: params, Body: body}, nil
}

func convertParams(params []*Param) ([]ast.Param, error) {
	res := make([]ast.Param, 0, len(params))
	for _, p := range params {
		t, err := convertType(p.Type)
		if err != nil {
			return nil, err
		}
		res = append(res, ast.Param{Name: p.Name, Type: t})
	}
	return res, nil
}

func convertType(t *TypeRef) (ast.Type, error) {
	base, err := ast.TypeFromName(t.Name)
	if err != nil {
		return ast.Unit, err
	}
	if t.Size != nil {
		if *t.Size <= 0 {
			return ast.Unit, comperr.New(comperr.Parse, "array size must be positive, got %d", *t.Size)
		}
		return ast.ArrayOf(base, *t.Size), nil
	}
	return base, nil
}

func convertStmts(stmts []*Stmt) ([]ast.Statement, error) {
	res := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		st, err := convertStmt(s)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, nil
}

func convertStmt(s *Stmt) (ast.Statement, error) {
	switch {
	case s.Let != nil:
		value, err := convertExpr(s.Let.Value)
		if err != nil {
			return nil, err
		}
		var typ *ast.Type
		if s.Let.Type != nil {
			t, err := convertType(s.Let.Type)
			if err != nil {
				return nil, err
			}
			typ = &t
		}
		return ast.LetStmt{Name: s.Let.Name, Type: typ, Value: value}, nil
	case s.If != nil:
		return convertIf(s.If)
	case s.For != nil:
		start, err := convertExpr(s.For.Start)
		if err != nil {
			return nil, err
		}
		end, err := convertExpr(s.For.End)
		if err != nil {
			return nil, err
		}
		body, err := convertStmts(s.For.Body)
		if err != nil {
			return nil, err
		}
		return ast.ForStmt{Var: s.For.Var, Start: start, End: end, Body: body}, nil
	case s.Return != nil:
		if s.Return.Value == nil {
			return ast.ReturnStmt{}, nil
		}
		value, err := convertExpr(s.Return.Value)
		if err != nil {
			return nil, err
		}
		return ast.ReturnStmt{Value: value}, nil
	case s.Assert != nil:
		cond, err := convertExpr(s.Assert.Cond)
		if err != nil {
			return nil, err
		}
		return ast.AssertStmt{Cond: cond}, nil
	case s.Expr != nil:
		expr, err := convertExpr(s.Expr.Expr)
		if err != nil {
			return nil, err
		}
		return ast.ExprStmt{Expr: expr}, nil
	}
	return nil, comperr.New(comperr.Parse, "empty statement")
}

func convertIf(i *IfStmt) (ast.Statement, error) {
	cond, err := convertExpr(i.Cond)
	if err != nil {
		return nil, err
	}
	then, err := convertStmts(i.Then)
	if err != nil {
		return nil, err
	}
	var els []ast.Statement
	if i.Else != nil {
		if i.Else.If != nil {
			chained, err := convertIf(i.Else.If)
			if err != nil {
				return nil, err
			}
			els = []ast.Statement{chained}
		} else if i.Else.Block != nil {
			if els, err = convertStmts(i.Else.Block.Stmts); err != nil {
				return nil, err
			}
		}
	}
	return ast.IfStmt{Condition: cond, Then: then, Else: els}, nil
}

func convertExpr(e *Expr) (ast.Expression, error) {
	if e.Assign != nil {
		value, err := convertExpr(e.Assign.Value)
		if err != nil {
			return nil, err
		}
		return ast.Assignment{Target: e.Assign.Target, Value: value}, nil
	}
	return resolveBinary(e.Binary)
}

// operator precedence, loosest first; all operators are left associative
func prec(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "^":
		return 3
	case "==", "!=":
		return 4
	case "<", "<=", ">", ">=":
		return 5
	case "+", "-":
		return 6
	case "*", "/", "%":
		return 7
	}
	return 0
}

func binOp(op string) ast.BinaryOp {
	switch op {
	case "||":
		return ast.OpOr
	case "&&":
		return ast.OpAnd
	case "^":
		return ast.OpXor
	case "==":
		return ast.OpEq
	case "!=":
		return ast.OpNe
	case "<":
		return ast.OpLt
	case "<=":
		return ast.OpLe
	case ">":
		return ast.OpGt
	case ">=":
		return ast.OpGe
	case "+":
		return ast.OpAdd
	case "-":
		return ast.OpSub
	case "*":
		return ast.OpMul
	case "/":
		return ast.OpDiv
	case "%":
		return ast.OpMod
	}
	panic("unknown binary operator " + op)
}

// resolveBinary rebuilds the precedence tree from the grammar's flat
// operand/operator list by precedence climbing.
func resolveBinary(b *BinaryExpr) (ast.Expression, error) {
	lhs, err := convertUnary(b.Left)
	if err != nil {
		return nil, err
	}
	idx := 0
	return climb(lhs, b.Ops, &idx, 1)
}

func climb(lhs ast.Expression, ops []*BinOp, idx *int, minPrec int) (ast.Expression, error) {
	for *idx < len(ops) && prec(ops[*idx].Op) >= minPrec {
		op := ops[*idx]
		*idx++
		rhs, err := convertUnary(op.Right)
		if err != nil {
			return nil, err
		}
		for *idx < len(ops) && prec(ops[*idx].Op) > prec(op.Op) {
			if rhs, err = climb(rhs, ops, idx, prec(ops[*idx].Op)); err != nil {
				return nil, err
			}
		}
		lhs = ast.Binary{Op: binOp(op.Op), Left: lhs, Right: rhs}
	}
	return lhs, nil
}

func convertUnary(u *UnaryExpr) (ast.Expression, error) {
	if u.Unary != nil {
		inner, err := convertUnary(u.Unary.Expr)
		if err != nil {
			return nil, err
		}
		op := ast.OpNeg
		if u.Unary.Op == "!" {
			op = ast.OpNot
		}
		return ast.Unary{Op: op, Expr: inner}, nil
	}
	return convertPostfix(u.Postfix)
}

func convertPostfix(p *PostfixExpr) (ast.Expression, error) {
	expr, err := convertPrimary(p.Primary)
	if err != nil {
		return nil, err
	}
	for _, ix := range p.Indexes {
		idx, err := convertExpr(ix.Index)
		if err != nil {
			return nil, err
		}
		expr = ast.Index{Array: expr, Idx: idx}
	}
	return expr, nil
}

func convertPrimary(p *PrimaryExpr) (ast.Expression, error) {
	switch {
	case p.Call != nil:
		args := make([]ast.Expression, 0, len(p.Call.Args))
		for _, a := range p.Call.Args {
			e, err := convertExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		return ast.Call{Name: p.Call.Name, Args: args}, nil
	case p.True:
		return ast.BoolLit{Value: true}, nil
	case p.False:
		return ast.BoolLit{Value: false}, nil
	case p.Number != nil:
		v, ok := new(big.Int).SetString(*p.Number, 0)
		if !ok {
			return nil, comperr.New(comperr.Parse, "invalid number literal %q", *p.Number)
		}
		return ast.NumberLit{Value: v}, nil
	case p.Ident != nil:
		return ast.Variable{Name: *p.Ident}, nil
	case p.Array != nil:
		elems := make([]ast.Expression, 0, len(p.Array.Elems))
		for _, e := range p.Array.Elems {
			x, err := convertExpr(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, x)
		}
		return ast.ArrayLit{Elems: elems}, nil
	case p.Parens != nil:
		return convertExpr(p.Parens)
	}
	return nil, comperr.New(comperr.Parse, "empty expression")
}
