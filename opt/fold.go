package opt

import (
	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/ir"
)

// constFold replaces every compute node whose operands are all constants with
// the constant it evaluates to. A node that cannot evaluate on constant
// operands, a division by a known zero or a value outside its declared bit
// width, is a compile-time error: no witness could ever satisfy it.
type constFold struct{}

func (constFold) Name() string  { return "constfold" }
func (constFold) MinLevel() int { return 1 }

func (constFold) Apply(g *ir.Graph) (*ir.Graph, bool, error) {
	return rebuild(g, func(dst *ir.Graph, _ ir.ID, n ir.Node) (ir.ID, bool, error) {
		if n.Kind == ir.KindConstant {
			return 0, false, nil
		}
		in := make([]constraint.Element, len(n.Operands))
		for i, op := range n.Operands {
			c := dst.Node(op)
			if !c.IsConstant() {
				return 0, false, nil
			}
			in[i] = c.Value
		}
		v, err := ir.EvalKind(dst.Field(), n.Kind, in, n.Aux)
		if err != nil {
			return 0, false, comperr.Wrap(comperr.Optimization, err, "constant folding")
		}
		return dst.AddConstant(v, n.Type), true, nil
	})
}
