// Package ir defines the dataflow graph the compiler core operates on: a
// directed acyclic graph of typed arithmetic and boolean gates addressed by
// dense integer ids. Acyclicity is enforced at construction time, since a node
// may only reference ids created before it, so creation order doubles as a
// topological order and every pass gets O(n) traversal for free.
package ir

import (
	"fmt"

	"github.com/consensys/gnark/constraint"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
)

type Graph struct {
	field field.Field
	nodes []Node

	// declared input node ids, in declaration order
	Inputs []ID
	// output node ids (KindOutput), tagged by origin name
	Outputs []ID
	// boolean node ids that must evaluate to true for every valid witness:
	// constraint roots and assert statements
	Assertions []ID
}

func NewGraph(f field.Field) *Graph {
	return &Graph{field: f}
}

func (g *Graph) Field() field.Field { return g.field }

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) Node(id ID) *Node { return &g.nodes[id] }

// AddNode appends a node and returns its id. The operand relation must point
// strictly backwards; violating that breaks the acyclicity invariant, which
// is a compiler bug, hence the panic rather than an error.
func (g *Graph) AddNode(n Node) ID {
	id := ID(len(g.nodes))
	for _, op := range n.Operands {
		if op < 0 || op >= id {
			panic(fmt.Sprintf("node %d references id %d outside [0,%d)", id, op, id))
		}
	}
	g.nodes = append(g.nodes, n)
	return id
}

func (g *Graph) AddInput(name string, t ast.Type) ID {
	id := g.AddNode(Node{Kind: KindInput, Type: t, Name: name})
	g.Inputs = append(g.Inputs, id)
	return id
}

func (g *Graph) AddConstant(v constraint.Element, t ast.Type) ID {
	return g.AddNode(Node{Kind: KindConstant, Type: t, Value: v, HasHint: true})
}

func (g *Graph) AddOutput(name string, v ID) ID {
	id := g.AddNode(Node{Kind: KindOutput, Operands: []ID{v}, Type: g.nodes[v].Type, Name: name})
	g.Outputs = append(g.Outputs, id)
	return id
}

// TopoOrder returns node ids in a topological order. By the creation-order
// invariant this is simply 0..n-1; passes rely on this instead of re-deriving
// an order.
func (g *Graph) TopoOrder() []ID {
	order := make([]ID, len(g.nodes))
	for i := range order {
		order[i] = ID(i)
	}
	return order
}

// Consumers rebuilds the reverse-adjacency map: for each node, the ids that
// read it. Passes that rewire edges rebuild this after mutation.
func (g *Graph) Consumers() [][]ID {
	res := make([][]ID, len(g.nodes))
	for i, n := range g.nodes {
		for _, op := range n.Operands {
			res[op] = append(res[op], ID(i))
		}
	}
	return res
}

func (g *Graph) Clone() *Graph {
	res := &Graph{
		field:      g.field,
		nodes:      make([]Node, len(g.nodes)),
		Inputs:     append([]ID(nil), g.Inputs...),
		Outputs:    append([]ID(nil), g.Outputs...),
		Assertions: append([]ID(nil), g.Assertions...),
	}
	for i, n := range g.nodes {
		res.nodes[i] = n
		res.nodes[i].Operands = append([]ID(nil), n.Operands...)
	}
	return res
}

// Validate checks the structural invariants: the operand relation is acyclic
// and in-bounds, every declared output resolves to exactly one output node,
// and assertion roots are boolean.
func (g *Graph) Validate() error {
	for i, n := range g.nodes {
		for _, op := range n.Operands {
			if op < 0 || op >= ID(len(g.nodes)) {
				return comperr.New(comperr.Semantic, "node %d operand %d does not exist", i, op)
			}
			if op >= ID(i) {
				return comperr.New(comperr.Semantic, "node %d operand %d violates acyclicity", i, op)
			}
		}
	}
	seen := make(map[string]bool, len(g.Outputs))
	for _, id := range g.Outputs {
		if id < 0 || id >= ID(len(g.nodes)) {
			return comperr.New(comperr.Semantic, "output id %d does not exist", id)
		}
		n := &g.nodes[id]
		if n.Kind != KindOutput {
			return comperr.New(comperr.Semantic, "output id %d is a %s node", id, n.Kind)
		}
		if seen[n.Name] {
			return comperr.New(comperr.Semantic, "duplicate output name %q", n.Name)
		}
		seen[n.Name] = true
	}
	for _, id := range g.Assertions {
		if id < 0 || id >= ID(len(g.nodes)) {
			return comperr.New(comperr.Semantic, "assertion id %d does not exist", id)
		}
		if g.nodes[id].Type.Kind != ast.TBool {
			return comperr.New(comperr.Semantic, "assertion id %d is not boolean", id)
		}
	}
	return nil
}

// OutputByName returns the output node id tagged with name.
func (g *Graph) OutputByName(name string) (ID, bool) {
	for _, id := range g.Outputs {
		if g.nodes[id].Name == name {
			return id, true
		}
	}
	return 0, false
}

// InputNames returns declared input names in declaration order.
func (g *Graph) InputNames() []string {
	res := make([]string, len(g.Inputs))
	for i, id := range g.Inputs {
		res[i] = g.nodes[id].Name
	}
	return res
}

func (g *Graph) Print() {
	for i, n := range g.nodes {
		fmt.Printf("v%d = %s\n", i, n.String())
	}
	for _, id := range g.Assertions {
		fmt.Printf("assert v%d\n", id)
	}
}
