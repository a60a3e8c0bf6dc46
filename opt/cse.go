package opt

import (
	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/utils"
)

// cse merges structurally identical nodes by hash-consing their signatures.
// Operands of commutative kinds are sorted first, so a*b and b*a collapse to
// one node. Because the walk is topological, operands are already canonical
// when a node is signed, which makes a single pass sufficient.
type cse struct{}

func (cse) Name() string  { return "cse" }
func (cse) MinLevel() int { return 2 }

func (cse) Apply(g *ir.Graph) (*ir.Graph, bool, error) {
	seen := make(utils.Map)
	return rebuild(g, func(dst *ir.Graph, _ ir.ID, n ir.Node) (ir.ID, bool, error) {
		sig := signatureOf(&n)
		if prev, ok := seen.Find(sig); ok {
			return prev.(ir.ID), true, nil
		}
		id := dst.AddNode(n)
		seen.Set(sig, id)
		return id, true, nil
	})
}

type nodeSig struct {
	kind  ir.Kind
	aux   int
	t     ast.TypeKind
	value constraint.Element
	ops   []ir.ID
}

func signatureOf(n *ir.Node) *nodeSig {
	sig := &nodeSig{
		kind: n.Kind,
		aux:  n.Aux,
		t:    n.Type.Kind,
		ops:  append([]ir.ID(nil), n.Operands...),
	}
	if n.Kind == ir.KindConstant {
		sig.value = n.Value
	}
	if n.Kind.Commutative() && len(sig.ops) == 2 && sig.ops[0] > sig.ops[1] {
		sig.ops[0], sig.ops[1] = sig.ops[1], sig.ops[0]
	}
	return sig
}

func (s *nodeSig) HashCode() uint64 {
	h := uint64(s.kind)
	h = h*1000000007 + uint64(s.aux)
	h = h*1000000007 + uint64(s.t)
	for _, limb := range s.value {
		h = h*1000000007 + limb
	}
	for _, op := range s.ops {
		h = h*1000000007 + uint64(op)
	}
	return h
}

func (s *nodeSig) EqualI(o utils.Hashable) bool {
	t, ok := o.(*nodeSig)
	if !ok {
		return false
	}
	if s.kind != t.kind || s.aux != t.aux || s.t != t.t || s.value != t.value {
		return false
	}
	if len(s.ops) != len(t.ops) {
		return false
	}
	for i := range s.ops {
		if s.ops[i] != t.ops[i] {
			return false
		}
	}
	return true
}
