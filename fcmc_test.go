package fcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmc-zk/fcmc/backend"
	"github.com/fcmc-zk/fcmc/comperr"
)

func TestCompileEndToEnd(t *testing.T) {
	src := `
fn square(v: Field) -> Field {
    return v * v;
}

fn main(x: Field, flag: Bool) -> Field {
    let y = square(x);
    if flag {
        y = y + 1;
    }
    assert(x != 0);
    return y;
}

constraint small(n: U32) { n < 1024 }
`
	circuit, err := Compile("test.fcmc", src, DefaultConfig().WithVerification(true))
	require.NoError(t, err)

	assert.NotNil(t, circuit.Source)
	assert.NotNil(t, circuit.Graph)
	assert.NotNil(t, circuit.Circuit)
	assert.Equal(t, circuit.Source.NodeCount(), circuit.Stats.OriginalNodes)
	assert.Equal(t, circuit.Graph.NodeCount(), circuit.Stats.OptimizedNodes)
	assert.Equal(t, circuit.Circuit.ConstraintCount(), circuit.Stats.ConstraintCount)

	names := make(map[string]bool)
	for _, out := range circuit.Circuit.Outputs {
		names[out.Name] = true
	}
	assert.True(t, names["main"])
	assert.True(t, names["small"])
}

func TestCompileNilConfig(t *testing.T) {
	circuit, err := Compile("t", `fn main(x: Field) -> Field { return x; }`, nil)
	require.NoError(t, err)
	assert.Zero(t, circuit.Stats.ConstraintCount)
}

func TestOptimizationReducesNodes(t *testing.T) {
	src := `fn main(x: Field) -> Field { return x * 1 + 0; }`

	raw, err := Compile("t", src, DefaultConfig().WithOptimizationLevel(0))
	require.NoError(t, err)
	opt, err := Compile("t", src, DefaultConfig().WithOptimizationLevel(2))
	require.NoError(t, err)

	assert.Equal(t, raw.Stats.OriginalNodes, opt.Stats.OriginalNodes)
	assert.Less(t, opt.Stats.OptimizedNodes, opt.Stats.OriginalNodes)
	assert.Greater(t, opt.Stats.OptimizationRatio(), 0.0)
	assert.Zero(t, opt.Stats.ConstraintCount)
}

func TestOptimizationRatioZeroGuard(t *testing.T) {
	assert.Zero(t, Stats{}.OptimizationRatio())
}

func TestCompileParseError(t *testing.T) {
	_, err := Compile("t", `fn main( {`, nil)
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Parse))
	assert.True(t, IsCompileError(err))
}

func TestCompileSemanticError(t *testing.T) {
	_, err := Compile("t", `fn main(x: Field) -> Field { return y; }`, nil)
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Semantic))
}

func TestCompileStaticDivisionByZero(t *testing.T) {
	_, err := Compile("t", `fn main(x: Field) -> Field { return x + 1 / 0; }`, nil)
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Optimization))
}

func TestCompileUnsupportedTarget(t *testing.T) {
	_, err := Compile("t", `fn main(x: Field) -> Field { return x; }`,
		DefaultConfig().WithTarget(backend.TargetSystem(42)))
	require.Error(t, err)
	assert.True(t, comperr.IsKind(err, comperr.Backend))
}

func TestDefaultConfigVerifies(t *testing.T) {
	assert.True(t, DefaultConfig().VerifyOutput)
}

func TestOverflowedIntermediateCompiles(t *testing.T) {
	// x + y wraps modulo 2^32, so the sampled boundary inputs solve and the
	// default verification pass accepts the program
	src := `fn main(x: U32, y: U32, z: U32) -> Bool { return x + y < z; }`
	for level := 0; level <= 3; level++ {
		_, err := Compile("t", src, DefaultConfig().WithOptimizationLevel(level))
		assert.NoError(t, err, "level %d", level)
	}
}

func TestConfigBuilder(t *testing.T) {
	cfg := DefaultConfig().
		WithOptimizationLevel(3).
		WithTarget(backend.TargetR1CS).
		WithVerification(true)
	assert.Equal(t, 3, cfg.OptimizationLevel)
	assert.Equal(t, backend.TargetR1CS, cfg.Target)
	assert.True(t, cfg.VerifyOutput)
}

func TestVerificationCatchesNothingOnHonestPipeline(t *testing.T) {
	sources := []string{
		`fn main(x: U32, y: U32) -> Bool { return x < y; }`,
		`fn main(a: Bool, b: Bool) -> Bool { return a ^ b; }`,
		`fn main(x: Field) -> Field {
			let acc = x;
			for i in 0..6 { acc = acc * x; }
			return acc;
		}`,
	}
	for _, src := range sources {
		for level := 0; level <= 3; level++ {
			cfg := DefaultConfig().WithOptimizationLevel(level).WithVerification(true)
			_, err := Compile("t", src, cfg)
			assert.NoError(t, err, "level %d source %s", level, src)
		}
	}
}
