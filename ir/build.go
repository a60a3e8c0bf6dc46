package ir

import (
	"strconv"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
)

// FromAST translates the program's public functions and constraints into one
// merged graph. Function returns and constraint roots become outputs tagged
// by origin name; constraint roots and assert statements additionally become
// assertion roots. Non-public functions exist only inlined at their call
// sites. The builder performs the core's semantic validation:
// use-before-let, unknown callees, arity and type mismatches, static array
// bounds, and compile-time-constant loop bounds.
func FromAST(prog *ast.Program, f field.Field) (*Graph, error) {
	b := &builder{
		g:     NewGraph(f),
		prog:  prog,
		field: f,
	}
	built := 0
	for _, fn := range prog.Functions {
		if !fn.IsPublic {
			continue
		}
		if err := b.buildFunction(fn); err != nil {
			return nil, err
		}
		built++
	}
	for _, c := range prog.Constraints {
		if err := b.buildConstraint(c); err != nil {
			return nil, err
		}
		built++
	}
	if built == 0 {
		return nil, comperr.New(comperr.Semantic, "program has no entry point: no public function and no constraint")
	}
	if err := b.g.Validate(); err != nil {
		return nil, err
	}
	return b.g, nil
}

type builder struct {
	g     *Graph
	prog  *ast.Program
	field field.Field

	// inlining stack, for recursion detection
	callStack []string
	// active branch conditions; asserts inside an if are guarded by these
	condStack []ID
}

// value is a typed bundle of scalar wires. Arrays flatten to Len*elem wires.
// untyped marks numeric literals that have not committed to a type yet.
type value struct {
	t       ast.Type
	ids     []ID
	untyped bool
}

type scope struct {
	parent *scope
	vars   map[string]value
	// overlay scopes buffer writes to outer variables so if-branches can be
	// merged with Select; declared marks lets local to this scope
	overlay  bool
	declared map[string]bool
}

func newScope(parent *scope, overlay bool) *scope {
	return &scope{
		parent:   parent,
		vars:     make(map[string]value),
		overlay:  overlay,
		declared: make(map[string]bool),
	}
}

func (s *scope) lookup(name string) (value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return value{}, false
}

func (s *scope) define(name string, v value) {
	s.vars[name] = v
	s.declared[name] = true
}

// assign writes to an existing binding. Writes crossing an overlay boundary
// land in the overlay so branch merging can observe them.
func (s *scope) assign(name string, v value) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return true
		}
		if cur.overlay {
			if _, ok := cur.parentLookup(name); ok {
				cur.vars[name] = v
				return true
			}
			return false
		}
	}
	return false
}

func (s *scope) parentLookup(name string) (value, bool) {
	if s.parent == nil {
		return value{}, false
	}
	return s.parent.lookup(name)
}

func (b *builder) buildFunction(fn *ast.Function) error {
	sc := newScope(nil, false)
	for _, p := range fn.Params {
		v, err := b.declareInput(fn.Name+"."+p.Name, p.Type)
		if err != nil {
			return err
		}
		sc.define(p.Name, v)
	}

	ret, err := b.execBlock(fn.Body, sc)
	if err != nil {
		return comperr.Wrap(comperr.Semantic, err, "in function %q", fn.Name)
	}

	if fn.ReturnType.Kind == ast.TUnit {
		return nil
	}
	if ret == nil {
		return comperr.New(comperr.Semantic, "function %q does not return a value", fn.Name)
	}
	rv, err := b.commit(*ret, fn.ReturnType)
	if err != nil {
		return comperr.Wrap(comperr.Type, err, "return value of %q", fn.Name)
	}
	for i, id := range rv.ids {
		name := fn.Name
		if len(rv.ids) > 1 {
			name = wireName(fn.Name, i)
		}
		b.g.AddOutput(name, id)
	}
	return nil
}

func (b *builder) buildConstraint(c *ast.Constraint) error {
	sc := newScope(nil, false)
	for _, p := range c.Params {
		v, err := b.declareInput(c.Name+"."+p.Name, p.Type)
		if err != nil {
			return err
		}
		sc.define(p.Name, v)
	}
	root, err := b.buildExpr(c.Body, sc)
	if err != nil {
		return comperr.Wrap(comperr.Semantic, err, "in constraint %q", c.Name)
	}
	rv, err := b.commit(root, ast.Bool)
	if err != nil {
		return comperr.Wrap(comperr.Type, err, "constraint %q body must be boolean", c.Name)
	}
	b.g.AddOutput(c.Name, rv.ids[0])
	b.g.Assertions = append(b.g.Assertions, rv.ids[0])
	return nil
}

// declareInput allocates input wires for a parameter. U32 inputs are wrapped
// in a 32-bit decomposition so the backend range-constrains them and
// comparisons can share the bits.
func (b *builder) declareInput(name string, t ast.Type) (value, error) {
	switch t.Kind {
	case ast.TArray:
		v := value{t: t}
		for i := 0; i < t.Len; i++ {
			elem, err := b.declareInput(wireName(name, i), *t.Elem)
			if err != nil {
				return value{}, err
			}
			v.ids = append(v.ids, elem.ids...)
		}
		return v, nil
	case ast.TField, ast.TBool:
		id := b.g.AddInput(name, t)
		return value{t: t, ids: []ID{id}}, nil
	case ast.TU32:
		id := b.g.AddInput(name, t)
		bd := b.g.AddNode(Node{Kind: KindBitDecompose, Operands: []ID{id}, Type: t, Aux: 32})
		return value{t: t, ids: []ID{bd}}, nil
	}
	return value{}, comperr.New(comperr.Type, "parameter %q has unsupported type %s", name, t)
}

func wireName(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

// execBlock executes statements in order and returns the function's return
// value once a return statement is hit; statements after a return are dead.
func (b *builder) execBlock(stmts []ast.Statement, sc *scope) (*value, error) {
	for _, st := range stmts {
		switch s := st.(type) {
		case ast.LetStmt:
			v, err := b.buildExpr(s.Value, sc)
			if err != nil {
				return nil, err
			}
			if s.Type != nil {
				if v, err = b.commit(v, *s.Type); err != nil {
					return nil, comperr.Wrap(comperr.Type, err, "let %q", s.Name)
				}
			}
			sc.define(s.Name, v)

		case ast.IfStmt:
			ret, err := b.execIf(s, sc)
			if err != nil {
				return nil, err
			}
			if ret != nil {
				return ret, nil
			}

		case ast.ForStmt:
			ret, err := b.execFor(s, sc)
			if err != nil {
				return nil, err
			}
			if ret != nil {
				return ret, nil
			}

		case ast.ReturnStmt:
			if s.Value == nil {
				return &value{t: ast.Unit}, nil
			}
			v, err := b.buildExpr(s.Value, sc)
			if err != nil {
				return nil, err
			}
			return &v, nil

		case ast.AssertStmt:
			cond, err := b.buildExpr(s.Cond, sc)
			if err != nil {
				return nil, err
			}
			cv, err := b.commit(cond, ast.Bool)
			if err != nil {
				return nil, comperr.Wrap(comperr.Type, err, "assert condition")
			}
			root := cv.ids[0]
			// both branches of an if always execute; an assert under a
			// condition only binds on the path that takes it
			for i := len(b.condStack) - 1; i >= 0; i-- {
				t := b.g.AddConstant(b.field.One(), ast.Bool)
				root = b.newOp(KindSelect, []ID{b.condStack[i], root, t}, ast.Bool)
			}
			b.g.Assertions = append(b.g.Assertions, root)

		case ast.ExprStmt:
			if _, err := b.buildExpr(s.Expr, sc); err != nil {
				return nil, err
			}

		default:
			return nil, comperr.New(comperr.Semantic, "unsupported statement")
		}
	}
	return nil, nil
}

func (b *builder) execIf(s ast.IfStmt, sc *scope) (*value, error) {
	cond, err := b.buildExpr(s.Condition, sc)
	if err != nil {
		return nil, err
	}
	cv, err := b.commit(cond, ast.Bool)
	if err != nil {
		return nil, comperr.Wrap(comperr.Type, err, "if condition")
	}
	condID := cv.ids[0]
	notCond := b.newOp(KindNot, []ID{condID}, ast.Bool)

	thenSc := newScope(sc, true)
	b.condStack = append(b.condStack, condID)
	retThen, err := b.execBlock(s.Then, thenSc)
	b.condStack = b.condStack[:len(b.condStack)-1]
	if err != nil {
		return nil, err
	}

	elseSc := newScope(sc, true)
	var retElse *value
	if s.Else != nil {
		b.condStack = append(b.condStack, notCond)
		retElse, err = b.execBlock(s.Else, elseSc)
		b.condStack = b.condStack[:len(b.condStack)-1]
		if err != nil {
			return nil, err
		}
	}

	if (retThen == nil) != (retElse == nil) {
		return nil, comperr.New(comperr.Semantic, "both branches of an if must return, or neither")
	}
	if retThen != nil {
		merged, err := b.mergeValues(condID, *retThen, *retElse)
		if err != nil {
			return nil, err
		}
		return &merged, nil
	}

	// merge writes to outer variables: modified on either path becomes a
	// Select over both paths' values
	names := make(map[string]bool)
	for name := range thenSc.vars {
		if !thenSc.declared[name] {
			names[name] = true
		}
	}
	for name := range elseSc.vars {
		if !elseSc.declared[name] {
			names[name] = true
		}
	}
	for name := range names {
		outer, _ := sc.lookup(name)
		tv, ok := thenSc.vars[name]
		if !ok {
			tv = outer
		}
		ev, ok := elseSc.vars[name]
		if !ok {
			ev = outer
		}
		merged, err := b.mergeValues(condID, tv, ev)
		if err != nil {
			return nil, comperr.Wrap(comperr.Type, err, "variable %q modified in if", name)
		}
		if !sc.assign(name, merged) {
			return nil, comperr.New(comperr.Semantic, "variable %q is not defined", name)
		}
	}
	return nil, nil
}

func (b *builder) mergeValues(cond ID, tv, ev value) (value, error) {
	t, tv, ev, err := b.unify(tv, ev)
	if err != nil {
		return value{}, err
	}
	if sameIDs(tv.ids, ev.ids) {
		return tv, nil
	}
	res := value{t: t, ids: make([]ID, len(tv.ids))}
	wt := wireTypes(t)
	for i := range tv.ids {
		if tv.ids[i] == ev.ids[i] {
			res.ids[i] = tv.ids[i]
			continue
		}
		res.ids[i] = b.newOp(KindSelect, []ID{cond, tv.ids[i], ev.ids[i]}, wt[i])
	}
	return res, nil
}

func sameIDs(a, b []ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// wireTypes flattens a type into the scalar type of each wire.
func wireTypes(t ast.Type) []ast.Type {
	if t.Kind != ast.TArray {
		return []ast.Type{t}
	}
	elem := wireTypes(*t.Elem)
	res := make([]ast.Type, 0, t.Len*len(elem))
	for i := 0; i < t.Len; i++ {
		res = append(res, elem...)
	}
	return res
}

func (b *builder) execFor(s ast.ForStmt, sc *scope) (*value, error) {
	start, err := b.constBound(s.Start, sc)
	if err != nil {
		return nil, comperr.Wrap(comperr.Semantic, err, "for range start")
	}
	end, err := b.constBound(s.End, sc)
	if err != nil {
		return nil, comperr.Wrap(comperr.Semantic, err, "for range end")
	}
	if end < start {
		return nil, comperr.New(comperr.Semantic, "for range %d..%d is reversed", start, end)
	}
	// circuits have no runtime loops: unroll end-start copies of the body
	// with the loop variable bound to each literal value
	for i := start; i < end; i++ {
		iter := newScope(sc, false)
		c := b.g.AddConstant(b.field.FromInterface(i), ast.Field)
		iter.define(s.Var, value{t: ast.Field, ids: []ID{c}, untyped: true})
		ret, err := b.execBlock(s.Body, iter)
		if err != nil {
			return nil, err
		}
		if ret != nil {
			return ret, nil
		}
	}
	return nil, nil
}

// constBound evaluates a loop bound, which must be constant-foldable before
// graph construction completes; anything else (a function parameter, say)
// has no fixed unroll count and is rejected.
func (b *builder) constBound(e ast.Expression, sc *scope) (int64, error) {
	v, err := b.buildExpr(e, sc)
	if err != nil {
		return 0, err
	}
	if len(v.ids) != 1 {
		return 0, comperr.New(comperr.Semantic, "range bound must be a scalar")
	}
	n := b.g.Node(v.ids[0])
	if !n.HasHint {
		return 0, comperr.New(comperr.Semantic, "range bound is not a compile-time constant")
	}
	x := b.field.ToBigInt(n.Value)
	if !x.IsInt64() || x.Int64() < 0 {
		return 0, comperr.New(comperr.Semantic, "range bound %s out of range", x)
	}
	return x.Int64(), nil
}

// commit resolves an untyped literal against an expected type and otherwise
// requires an exact match.
func (b *builder) commit(v value, t ast.Type) (value, error) {
	if v.untyped {
		if !t.IsScalar() {
			return value{}, comperr.New(comperr.Type, "cannot use a number literal as %s", t)
		}
		n := b.g.Node(v.ids[0])
		x := b.field.ToBigInt(n.Value)
		switch t.Kind {
		case ast.TU32:
			if x.BitLen() > 32 {
				return value{}, comperr.New(comperr.Type, "constant %s does not fit in U32", x)
			}
		case ast.TBool:
			if !(x.Sign() == 0 || (x.IsUint64() && x.Uint64() == 1)) {
				return value{}, comperr.New(comperr.Type, "constant %s is not a boolean", x)
			}
		}
		n.Type = t
		return value{t: t, ids: v.ids}, nil
	}
	if !v.t.Equal(t) {
		return value{}, comperr.New(comperr.Type, "expected %s, got %s", t, v.t)
	}
	return v, nil
}

// unify reconciles the operand types of a binary operation.
func (b *builder) unify(x, y value) (ast.Type, value, value, error) {
	if x.untyped && y.untyped {
		return x.t, x, y, nil
	}
	if x.untyped {
		cx, err := b.commit(x, y.t)
		if err != nil {
			return ast.Unit, x, y, err
		}
		return y.t, cx, y, nil
	}
	if y.untyped {
		cy, err := b.commit(y, x.t)
		if err != nil {
			return ast.Unit, x, y, err
		}
		return x.t, x, cy, nil
	}
	if !x.t.Equal(y.t) {
		return ast.Unit, x, y, comperr.New(comperr.Type, "mismatched operand types %s and %s", x.t, y.t)
	}
	return x.t, x, y, nil
}

// newOp appends an operation node and precomputes its constant hint when all
// operands are statically known.
func (b *builder) newOp(kind Kind, operands []ID, t ast.Type) ID {
	return b.newOpAux(kind, operands, t, 0)
}

func (b *builder) newOpAux(kind Kind, operands []ID, t ast.Type, aux int) ID {
	n := Node{Kind: kind, Operands: operands, Type: t, Aux: aux}
	allConst := true
	for _, op := range operands {
		if !b.g.Node(op).HasHint {
			allConst = false
			break
		}
	}
	if allConst {
		in := make([]constraint.Element, len(operands))
		for i, op := range operands {
			in[i] = b.g.Node(op).Value
		}
		if v, err := EvalKind(b.field, kind, in, aux); err == nil {
			n.Value = v
			n.HasHint = true
		}
	}
	return b.g.AddNode(n)
}

func (b *builder) buildExpr(e ast.Expression, sc *scope) (value, error) {
	switch x := e.(type) {
	case ast.NumberLit:
		id := b.g.AddConstant(b.field.FromInterface(x.Value), ast.Field)
		return value{t: ast.Field, ids: []ID{id}, untyped: true}, nil

	case ast.BoolLit:
		v := b.field.FromInterface(0)
		if x.Value {
			v = b.field.One()
		}
		id := b.g.AddConstant(v, ast.Bool)
		return value{t: ast.Bool, ids: []ID{id}}, nil

	case ast.Variable:
		v, ok := sc.lookup(x.Name)
		if !ok {
			return value{}, comperr.New(comperr.Semantic, "variable %q read before let binding", x.Name)
		}
		return v, nil

	case ast.Binary:
		return b.buildBinary(x, sc)

	case ast.Unary:
		return b.buildUnary(x, sc)

	case ast.Assignment:
		v, err := b.buildExpr(x.Value, sc)
		if err != nil {
			return value{}, err
		}
		old, ok := sc.lookup(x.Target)
		if !ok {
			return value{}, comperr.New(comperr.Semantic, "assignment to undeclared variable %q", x.Target)
		}
		if !old.untyped {
			if v, err = b.commit(v, old.t); err != nil {
				return value{}, comperr.Wrap(comperr.Type, err, "assignment to %q", x.Target)
			}
		}
		sc.assign(x.Target, v)
		return v, nil

	case ast.Call:
		return b.buildCall(x, sc)

	case ast.ArrayLit:
		return b.buildArrayLit(x, sc)

	case ast.Index:
		return b.buildIndex(x, sc)
	}
	return value{}, comperr.New(comperr.Semantic, "unsupported expression")
}

func (b *builder) buildBinary(x ast.Binary, sc *scope) (value, error) {
	l, err := b.buildExpr(x.Left, sc)
	if err != nil {
		return value{}, err
	}
	r, err := b.buildExpr(x.Right, sc)
	if err != nil {
		return value{}, err
	}

	switch x.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul:
		t, l, r, err := b.unify(l, r)
		if err != nil {
			return value{}, err
		}
		if t.Kind != ast.TField && t.Kind != ast.TU32 {
			return value{}, comperr.New(comperr.Type, "operator %s requires Field or U32 operands, got %s", x.Op, t)
		}
		kind := map[ast.BinaryOp]Kind{ast.OpAdd: KindAdd, ast.OpSub: KindSub, ast.OpMul: KindMul}[x.Op]
		// U32 arithmetic wraps modulo 2^32; Aux records the width so both
		// evaluation and lowering reduce the result identically
		aux := 0
		if t.Kind == ast.TU32 {
			aux = 32
		}
		id := b.newOpAux(kind, []ID{l.ids[0], r.ids[0]}, t, aux)
		return value{t: t, ids: []ID{id}, untyped: l.untyped && r.untyped}, nil

	case ast.OpDiv:
		t, l, r, err := b.unify(l, r)
		if err != nil {
			return value{}, err
		}
		if t.Kind != ast.TField {
			return value{}, comperr.New(comperr.Type, "division requires Field operands, got %s", t)
		}
		id := b.newOp(KindDiv, []ID{l.ids[0], r.ids[0]}, ast.Field)
		return value{t: ast.Field, ids: []ID{id}, untyped: l.untyped && r.untyped}, nil

	case ast.OpMod:
		return value{}, comperr.New(comperr.Semantic, "modulo has no circuit lowering")

	case ast.OpEq, ast.OpNe:
		t, l, r, err := b.unify(l, r)
		if err != nil {
			return value{}, err
		}
		if !t.IsScalar() {
			return value{}, comperr.New(comperr.Type, "operator %s requires scalar operands, got %s", x.Op, t)
		}
		id := b.newOp(KindEq, []ID{l.ids[0], r.ids[0]}, ast.Bool)
		if x.Op == ast.OpNe {
			id = b.newOp(KindNot, []ID{id}, ast.Bool)
		}
		return value{t: ast.Bool, ids: []ID{id}}, nil

	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		t, l, r, err := b.unify(l, r)
		if err != nil {
			return value{}, err
		}
		if l.untyped && r.untyped {
			// two bare literals: compare as 32-bit integers
			if l, err = b.commit(l, ast.U32); err != nil {
				return value{}, err
			}
			if r, err = b.commit(r, ast.U32); err != nil {
				return value{}, err
			}
			t = ast.U32
		}
		// the field has no total order; ordering is defined on U32 only
		if t.Kind != ast.TU32 {
			return value{}, comperr.New(comperr.Type, "operator %s requires U32 operands, got %s", x.Op, t)
		}
		kind := map[ast.BinaryOp]Kind{ast.OpLt: KindLt, ast.OpLe: KindLe, ast.OpGt: KindGt, ast.OpGe: KindGe}[x.Op]
		id := b.newOp(kind, []ID{l.ids[0], r.ids[0]}, ast.Bool)
		return value{t: ast.Bool, ids: []ID{id}}, nil

	case ast.OpAnd, ast.OpOr, ast.OpXor:
		l, err := b.commit(l, ast.Bool)
		if err != nil {
			return value{}, err
		}
		r, err := b.commit(r, ast.Bool)
		if err != nil {
			return value{}, err
		}
		kind := map[ast.BinaryOp]Kind{ast.OpAnd: KindAnd, ast.OpOr: KindOr, ast.OpXor: KindXor}[x.Op]
		id := b.newOp(kind, []ID{l.ids[0], r.ids[0]}, ast.Bool)
		return value{t: ast.Bool, ids: []ID{id}}, nil
	}
	return value{}, comperr.New(comperr.Semantic, "unsupported binary operator %s", x.Op)
}

func (b *builder) buildUnary(x ast.Unary, sc *scope) (value, error) {
	v, err := b.buildExpr(x.Expr, sc)
	if err != nil {
		return value{}, err
	}
	switch x.Op {
	case ast.OpNeg:
		if !v.untyped && v.t.Kind != ast.TField {
			return value{}, comperr.New(comperr.Type, "negation requires a Field operand, got %s", v.t)
		}
		if v.untyped {
			if v, err = b.commit(v, ast.Field); err != nil {
				return value{}, err
			}
		}
		id := b.newOp(KindNeg, []ID{v.ids[0]}, ast.Field)
		return value{t: ast.Field, ids: []ID{id}}, nil
	case ast.OpNot:
		if v, err = b.commit(v, ast.Bool); err != nil {
			return value{}, err
		}
		id := b.newOp(KindNot, []ID{v.ids[0]}, ast.Bool)
		return value{t: ast.Bool, ids: []ID{id}}, nil
	}
	return value{}, comperr.New(comperr.Semantic, "unsupported unary operator")
}

// buildCall inlines the callee's body with arguments bound to the caller's
// values; circuits have no call frames.
func (b *builder) buildCall(x ast.Call, sc *scope) (value, error) {
	fn := b.prog.Function(x.Name)
	if fn == nil {
		return value{}, comperr.New(comperr.Semantic, "call to undefined function %q", x.Name)
	}
	for _, active := range b.callStack {
		if active == x.Name {
			return value{}, comperr.New(comperr.Semantic, "recursive call to %q cannot be unrolled", x.Name)
		}
	}
	if len(x.Args) != len(fn.Params) {
		return value{}, comperr.New(comperr.Semantic,
			"function %q expects %d arguments, got %d", x.Name, len(fn.Params), len(x.Args))
	}

	callee := newScope(nil, false)
	for i, arg := range x.Args {
		v, err := b.buildExpr(arg, sc)
		if err != nil {
			return value{}, err
		}
		if v, err = b.commit(v, fn.Params[i].Type); err != nil {
			return value{}, comperr.Wrap(comperr.Type, err, "argument %d of %q", i, x.Name)
		}
		callee.define(fn.Params[i].Name, v)
	}

	b.callStack = append(b.callStack, x.Name)
	ret, err := b.execBlock(fn.Body, callee)
	b.callStack = b.callStack[:len(b.callStack)-1]
	if err != nil {
		return value{}, err
	}

	if fn.ReturnType.Kind == ast.TUnit {
		if ret != nil && ret.t.Kind != ast.TUnit {
			return value{}, comperr.New(comperr.Type, "function %q returns a value but is declared ()", x.Name)
		}
		return value{t: ast.Unit}, nil
	}
	if ret == nil {
		return value{}, comperr.New(comperr.Semantic, "function %q does not return a value", x.Name)
	}
	rv, err := b.commit(*ret, fn.ReturnType)
	if err != nil {
		return value{}, comperr.Wrap(comperr.Type, err, "return value of %q", x.Name)
	}
	return rv, nil
}

func (b *builder) buildArrayLit(x ast.ArrayLit, sc *scope) (value, error) {
	if len(x.Elems) == 0 {
		return value{}, comperr.New(comperr.Semantic, "empty array literal has no type")
	}
	elems := make([]value, len(x.Elems))
	var elemType ast.Type
	typed := false
	for i, e := range x.Elems {
		v, err := b.buildExpr(e, sc)
		if err != nil {
			return value{}, err
		}
		elems[i] = v
		if !v.untyped && !typed {
			elemType = v.t
			typed = true
		}
	}
	if !typed {
		elemType = ast.Field
	}
	res := value{t: ast.ArrayOf(elemType, len(elems))}
	for i, v := range elems {
		cv, err := b.commit(v, elemType)
		if err != nil {
			return value{}, comperr.Wrap(comperr.Type, err, "array element %d", i)
		}
		res.ids = append(res.ids, cv.ids...)
	}
	return res, nil
}

// buildIndex resolves a statically-known index directly to the element's
// wires; a non-constant index has no fixed topology and is rejected.
func (b *builder) buildIndex(x ast.Index, sc *scope) (value, error) {
	arr, err := b.buildExpr(x.Array, sc)
	if err != nil {
		return value{}, err
	}
	if arr.t.Kind != ast.TArray {
		return value{}, comperr.New(comperr.Type, "cannot index into %s", arr.t)
	}
	iv, err := b.buildExpr(x.Idx, sc)
	if err != nil {
		return value{}, err
	}
	if len(iv.ids) != 1 {
		return value{}, comperr.New(comperr.Semantic, "array index must be a scalar")
	}
	n := b.g.Node(iv.ids[0])
	if !n.HasHint {
		return value{}, comperr.New(comperr.Semantic, "array index is not a compile-time constant")
	}
	idx := b.field.ToBigInt(n.Value)
	if !idx.IsInt64() || idx.Int64() < 0 || idx.Int64() >= int64(arr.t.Len) {
		return value{}, comperr.New(comperr.Semantic, "array index %s out of bounds for length %d", idx, arr.t.Len)
	}
	w := arr.t.Elem.NbWires()
	lo := int(idx.Int64()) * w
	return value{t: *arr.t.Elem, ids: arr.ids[lo : lo+w]}, nil
}
