// Package opt rewrites the dataflow graph to an equivalent one with fewer
// nodes. Passes are pure graph-to-graph transforms; running a pass never
// changes the value of any surviving output or assertion under any input
// assignment.
package opt

import (
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/logger"
)

// Pass is a single rewrite. Apply returns the rewritten graph and whether
// anything changed; when nothing changed the returned graph may be the input.
type Pass interface {
	Name() string
	MinLevel() int
	Apply(g *ir.Graph) (*ir.Graph, bool, error)
}

// pipeline order is fixed so results are deterministic across runs. Dead node
// elimination runs last each round to sweep what the other passes orphaned.
var passes = []Pass{
	constFold{},
	algebraic{},
	cse{},
	strengthReduce{},
	deadCode{},
}

// maxRounds bounds the fixed-point iteration. The passes strictly shrink or
// canonicalize, so in practice two or three rounds suffice; the cap guards
// against a rewrite cycle introduced by a buggy pass.
const maxRounds = 32

// Optimize runs the pipeline at the given level until no pass reports a
// change. Level 0 disables optimization entirely.
func Optimize(g *ir.Graph, level int) (*ir.Graph, error) {
	if level <= 0 {
		return g, nil
	}
	log := logger.Logger().With().Str("component", "opt").Logger()
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, p := range passes {
			if p.MinLevel() > level {
				continue
			}
			before := g.NodeCount()
			ng, ch, err := p.Apply(g)
			if err != nil {
				return nil, err
			}
			if ch {
				g = ng
				changed = true
				log.Debug().
					Str("pass", p.Name()).
					Int("before", before).
					Int("after", g.NodeCount()).
					Msg("pass applied")
			}
		}
		if !changed {
			return g, nil
		}
	}
	log.Warn().Int("rounds", maxRounds).Msg("optimization did not reach a fixed point")
	return g, nil
}

// ruleFunc inspects one node (operands already remapped into dst) and either
// handles it, returning the id to use in its place, or declines and lets the
// rebuilder append it unchanged. A rule may append nodes to dst itself.
type ruleFunc func(dst *ir.Graph, id ir.ID, n ir.Node) (ir.ID, bool, error)

// rebuild walks g in topological order and reassembles it in a fresh graph,
// giving rule the chance to substitute each compute node. Inputs and outputs
// are carried over verbatim; assertion roots are remapped at the end.
func rebuild(g *ir.Graph, rule ruleFunc) (*ir.Graph, bool, error) {
	dst := ir.NewGraph(g.Field())
	remap := make([]ir.ID, g.NodeCount())
	for i := 0; i < g.NodeCount(); i++ {
		n := *g.Node(ir.ID(i))
		n.Operands = remapIDs(n.Operands, remap)
		switch n.Kind {
		case ir.KindInput:
			remap[i] = dst.AddInput(n.Name, n.Type)
		case ir.KindOutput:
			remap[i] = dst.AddOutput(n.Name, n.Operands[0])
		default:
			id, ok, err := rule(dst, ir.ID(i), n)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				id = dst.AddNode(n)
			}
			remap[i] = id
		}
	}
	dst.Assertions = remapIDs(g.Assertions, remap)
	return dst, !sameGraph(g, dst), nil
}

func remapIDs(ids []ir.ID, remap []ir.ID) []ir.ID {
	res := make([]ir.ID, len(ids))
	for i, id := range ids {
		res[i] = remap[id]
	}
	return res
}

func sameGraph(a, b *ir.Graph) bool {
	if a.NodeCount() != b.NodeCount() {
		return false
	}
	for i := 0; i < a.NodeCount(); i++ {
		if !sameNode(a.Node(ir.ID(i)), b.Node(ir.ID(i))) {
			return false
		}
	}
	return true
}

func sameNode(a, b *ir.Node) bool {
	if a.Kind != b.Kind || a.Aux != b.Aux || a.Name != b.Name || a.Value != b.Value {
		return false
	}
	if len(a.Operands) != len(b.Operands) {
		return false
	}
	for i := range a.Operands {
		if a.Operands[i] != b.Operands[i] {
			return false
		}
	}
	return true
}
