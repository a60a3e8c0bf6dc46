package opt

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/fcmc-zk/fcmc/ir"
)

// deadCode drops every node not reachable backwards from a root and
// renumbers the survivors densely. Roots are the outputs, the assertion
// roots, the declared inputs (their witness columns must survive even when
// unread), and every bit decomposition (its range restriction constrains the
// witness whether or not the value is read again).
type deadCode struct{}

func (deadCode) Name() string  { return "dce" }
func (deadCode) MinLevel() int { return 2 }

func (deadCode) Apply(g *ir.Graph) (*ir.Graph, bool, error) {
	n := g.NodeCount()
	live := bitset.New(uint(n))
	var stack []ir.ID
	mark := func(id ir.ID) {
		if !live.Test(uint(id)) {
			live.Set(uint(id))
			stack = append(stack, id)
		}
	}
	for _, id := range g.Outputs {
		mark(id)
	}
	for _, id := range g.Assertions {
		mark(id)
	}
	for _, id := range g.Inputs {
		mark(id)
	}
	for i := 0; i < n; i++ {
		if g.Node(ir.ID(i)).Kind == ir.KindBitDecompose {
			mark(ir.ID(i))
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, op := range g.Node(id).Operands {
			mark(op)
		}
	}

	if live.Count() == uint(n) {
		return g, false, nil
	}

	dst := ir.NewGraph(g.Field())
	remap := make([]ir.ID, n)
	for i := 0; i < n; i++ {
		if !live.Test(uint(i)) {
			continue
		}
		node := *g.Node(ir.ID(i))
		node.Operands = remapIDs(node.Operands, remap)
		switch node.Kind {
		case ir.KindInput:
			remap[i] = dst.AddInput(node.Name, node.Type)
		case ir.KindOutput:
			remap[i] = dst.AddOutput(node.Name, node.Operands[0])
		default:
			remap[i] = dst.AddNode(node)
		}
	}
	dst.Assertions = remapIDs(g.Assertions, remap)
	return dst, true, nil
}
