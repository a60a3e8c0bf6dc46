package frontend

// Participle grammar for the fcmc surface language. The grammar keeps binary
// operators as a flat list; precedence is resolved when converting to the AST.

type Program struct {
	Decls []*Decl `@@*`
}

type Decl struct {
	Function   *Function   `  @@`
	Constraint *Constraint `| @@`
}

type Function struct {
	Name   string   `"fn" @Ident`
	Params []*Param `"(" [ @@ { "," @@ } ] ")"`
	Return *TypeRef `[ "->" @@ ]`
	Body   []*Stmt  `"{" @@* "}"`
}

type Constraint struct {
	Name   string   `"constraint" @Ident`
	Params []*Param `"(" [ @@ { "," @@ } ] ")"`
	Body   *Expr    `"{" @@ "}"`
}

type Param struct {
	Name string   `@Ident ":"`
	Type *TypeRef `@@`
}

type TypeRef struct {
	Name string `@Ident`
	Size *int   `[ "[" @Number "]" ]`
}

type Stmt struct {
	Let    *LetStmt    `  @@`
	If     *IfStmt     `| @@`
	For    *ForStmt    `| @@`
	Return *ReturnStmt `| @@`
	Assert *AssertStmt `| @@`
	Expr   *ExprStmt   `| @@`
}

type LetStmt struct {
	Name  string   `"let" @Ident`
	Type  *TypeRef `[ ":" @@ ]`
	Value *Expr    `"=" @@ ";"`
}

type IfStmt struct {
	Cond *Expr      `"if" @@`
	Then []*Stmt    `"{" @@* "}"`
	Else *ElseBlock `[ "else" @@ ]`
}

type ElseBlock struct {
	If    *IfStmt `  @@`
	Block *Block  `| @@`
}

type Block struct {
	Stmts []*Stmt `"{" @@* "}"`
}

type ForStmt struct {
	Var   string  `"for" @Ident "in"`
	Start *Expr   `@@ ".."`
	End   *Expr   `@@`
	Body  []*Stmt `"{" @@* "}"`
}

type ReturnStmt struct {
	Value *Expr `"return" [ @@ ] ";"`
}

type AssertStmt struct {
	Cond *Expr `"assert" "(" @@ ")" ";"`
}

type ExprStmt struct {
	Expr *Expr `@@ ";"`
}

type Expr struct {
	Assign *Assign     `  @@`
	Binary *BinaryExpr `| @@`
}

type Assign struct {
	Target string `@Ident "="`
	Value  *Expr  `@@`
}

type BinaryExpr struct {
	Left *UnaryExpr `@@`
	Ops  []*BinOp   `@@*`
}

type BinOp struct {
	Op    string     `@("||" | "&&" | "^" | "==" | "!=" | "<=" | ">=" | "<" | ">" | "+" | "-" | "*" | "/" | "%")`
	Right *UnaryExpr `@@`
}

type UnaryExpr struct {
	Unary   *UnaryInner  `  @@`
	Postfix *PostfixExpr `| @@`
}

type UnaryInner struct {
	Op   string     `@("-" | "!")`
	Expr *UnaryExpr `@@`
}

type PostfixExpr struct {
	Primary *PrimaryExpr `@@`
	Indexes []*IndexOp   `@@*`
}

type IndexOp struct {
	Index *Expr `"[" @@ "]"`
}

type PrimaryExpr struct {
	Call   *CallExpr `  @@`
	True   bool      `| @"true"`
	False  bool      `| @"false"`
	Number *string   `| @Number`
	Ident  *string   `| @Ident`
	Array  *ArrayLit `| @@`
	Parens *Expr     `| "(" @@ ")"`
}

type CallExpr struct {
	Name string  `@Ident`
	Args []*Expr `"(" [ @@ { "," @@ } ] ")"`
}

type ArrayLit struct {
	Elems []*Expr `"[" [ @@ { "," @@ } ] "]"`
}
