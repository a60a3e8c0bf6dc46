package backend

import (
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/logger"
)

// TargetSystem selects the constraint system the graph is lowered to.
type TargetSystem int

const (
	TargetR1CS TargetSystem = iota
)

func (t TargetSystem) String() string {
	switch t {
	case TargetR1CS:
		return "r1cs"
	}
	return "unknown"
}

// ParseTarget maps a target name to its TargetSystem.
func ParseTarget(s string) (TargetSystem, error) {
	switch s {
	case "r1cs":
		return TargetR1CS, nil
	}
	return 0, comperr.New(comperr.Backend, "unknown target system %q", s)
}

// Compile lowers a graph to the requested target system.
func Compile(g *ir.Graph, target TargetSystem) (*R1CS, error) {
	log := logger.Logger().With().Str("component", "backend").Logger()
	switch target {
	case TargetR1CS:
		cs, err := lowerR1CS(g)
		if err != nil {
			return nil, err
		}
		log.Debug().
			Int("nodes", g.NodeCount()).
			Int("rows", cs.ConstraintCount()).
			Int("columns", cs.NbColumns).
			Msg("lowered to r1cs")
		return cs, nil
	}
	return nil, comperr.New(comperr.Backend, "unsupported target system %d", target)
}
