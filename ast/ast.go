// Package ast defines the validated syntax tree handed to the compiler core.
// The frontend produces it; the IR builder is its only consumer and performs
// its own semantic validation independent of any frontend-side checks.
package ast

import "math/big"

type Program struct {
	Functions   []*Function
	Constraints []*Constraint
	EntryPoint  string
}

func (p *Program) Function(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Param struct {
	Name string
	Type Type
}

type Function struct {
	Name       string
	Params     []Param
	ReturnType Type
	Body       []Statement
	IsPublic   bool
}

// Constraint is a named declarative predicate: a boolean expression over its
// parameters that must hold for every valid witness.
type Constraint struct {
	Name   string
	Params []Param
	Body   Expression
}

// Statements

type Statement interface{ isStatement() }

type LetStmt struct {
	Name  string
	Type  *Type // nil when inferred
	Value Expression
}

type IfStmt struct {
	Condition Expression
	Then      []Statement
	Else      []Statement // nil when absent
}

// ForStmt is `for Var in Start..End { Body }`; both bounds must be
// compile-time constants so the loop can unroll.
type ForStmt struct {
	Var   string
	Start Expression
	End   Expression
	Body  []Statement
}

type ReturnStmt struct {
	Value Expression // nil for bare return
}

type AssertStmt struct {
	Cond Expression
}

type ExprStmt struct {
	Expr Expression
}

func (LetStmt) isStatement()    {}
func (IfStmt) isStatement()     {}
func (ForStmt) isStatement()    {}
func (ReturnStmt) isStatement() {}
func (AssertStmt) isStatement() {}
func (ExprStmt) isStatement()   {}

// Expressions

type Expression interface{ isExpression() }

type NumberLit struct {
	Value *big.Int
}

type BoolLit struct {
	Value bool
}

type Variable struct {
	Name string
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpXor:
		return "^"
	}
	return "?"
}

type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

type Unary struct {
	Op   UnaryOp
	Expr Expression
}

type Assignment struct {
	Target string
	Value  Expression
}

type Call struct {
	Name string
	Args []Expression
}

type ArrayLit struct {
	Elems []Expression
}

type Index struct {
	Array Expression
	Idx   Expression
}

func (NumberLit) isExpression()  {}
func (BoolLit) isExpression()    {}
func (Variable) isExpression()   {}
func (Binary) isExpression()     {}
func (Unary) isExpression()      {}
func (Assignment) isExpression() {}
func (Call) isExpression()       {}
func (ArrayLit) isExpression()   {}
func (Index) isExpression()      {}
