// Package fcmc compiles a small imperative circuit language to rank-1
// constraint systems. The pipeline is parse, graph construction,
// optimization, lowering, and an optional verification pass that
// cross-checks the lowered system against the graph it came from.
package fcmc

import (
	"errors"

	"github.com/fcmc-zk/fcmc/backend"
	"github.com/fcmc-zk/fcmc/comperr"
	"github.com/fcmc-zk/fcmc/field"
	"github.com/fcmc-zk/fcmc/frontend"
	"github.com/fcmc-zk/fcmc/ir"
	"github.com/fcmc-zk/fcmc/logger"
	"github.com/fcmc-zk/fcmc/opt"
	"github.com/fcmc-zk/fcmc/verifier"
)

// Config controls a compilation. The zero value is not useful; start from
// DefaultConfig and chain the With methods.
type Config struct {
	// OptimizationLevel 0 disables rewriting; 1 folds and simplifies, 2 adds
	// subexpression sharing and dead node elimination, 3 adds strength
	// reduction.
	OptimizationLevel int
	Target            backend.TargetSystem
	// VerifyOutput runs the verifier on the compiled system before returning
	// it. On by default; a circuit that fails verification is never returned.
	VerifyOutput bool
	Field        field.Field
}

func DefaultConfig() *Config {
	return &Config{
		OptimizationLevel: 2,
		Target:            backend.TargetR1CS,
		VerifyOutput:      true,
		Field:             field.BN254(),
	}
}

func (c *Config) WithOptimizationLevel(level int) *Config {
	c.OptimizationLevel = level
	return c
}

func (c *Config) WithTarget(t backend.TargetSystem) *Config {
	c.Target = t
	return c
}

func (c *Config) WithVerification(on bool) *Config {
	c.VerifyOutput = on
	return c
}

// Stats summarizes what compilation did to the program.
type Stats struct {
	OriginalNodes   int
	OptimizedNodes  int
	ConstraintCount int
}

// OptimizationRatio is the fraction of graph nodes optimization removed.
func (s Stats) OptimizationRatio() float64 {
	if s.OriginalNodes == 0 {
		return 0
	}
	return 1 - float64(s.OptimizedNodes)/float64(s.OriginalNodes)
}

// CompiledCircuit is the result of a successful compilation. Graph is the
// optimized dataflow graph the circuit was lowered from; Source is the graph
// as built, before optimization.
type CompiledCircuit struct {
	Source  *ir.Graph
	Graph   *ir.Graph
	Circuit *backend.R1CS
	Stats   Stats
}

// Compile runs the full pipeline on source text. The name is only used in
// diagnostics. A nil config compiles with DefaultConfig.
func Compile(name, source string, cfg *Config) (*CompiledCircuit, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Field == nil {
		cfg.Field = field.BN254()
	}
	log := logger.Logger().With().Str("component", "compiler").Logger()

	prog, err := frontend.ParseSource(name, source)
	if err != nil {
		return nil, err
	}
	g, err := ir.FromAST(prog, cfg.Field)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Int("nodes", g.NodeCount()).Msg("graph built")

	before := g.Clone()
	optimized, err := opt.Optimize(g, cfg.OptimizationLevel)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("before", before.NodeCount()).
		Int("after", optimized.NodeCount()).
		Int("level", cfg.OptimizationLevel).
		Msg("optimization done")

	cs, err := backend.Compile(optimized, cfg.Target)
	if err != nil {
		return nil, err
	}

	if cfg.VerifyOutput {
		if err := verifier.Verify(before, optimized, cs); err != nil {
			return nil, err
		}
		log.Debug().Msg("verification passed")
	}

	return &CompiledCircuit{
		Source:  before,
		Graph:   optimized,
		Circuit: cs,
		Stats: Stats{
			OriginalNodes:   before.NodeCount(),
			OptimizedNodes:  optimized.NodeCount(),
			ConstraintCount: cs.ConstraintCount(),
		},
	}, nil
}

// IsCompileError reports whether err came out of the pipeline as a typed
// compilation error rather than an unexpected failure.
func IsCompileError(err error) bool {
	var ce *comperr.Error
	return errors.As(err, &ce)
}
