package opt

import (
	"math/bits"

	"github.com/fcmc-zk/fcmc/ast"
	"github.com/fcmc-zk/fcmc/ir"
)

// strengthReduce rewrites repeated-multiplication chains x*x*...*x into
// square-and-multiply form, cutting the multiplication count from e-1 to
// O(log e). Each node carries its base, exponent, and the depth of the
// multiplication chain that computes it; a node is only rewritten when the
// binary method beats that depth, so a chain that is already in reduced form
// is left alone and the pipeline reaches a fixed point. Orphaned chain
// segments are swept by the dead code pass in the same round.
type strengthReduce struct{}

func (strengthReduce) Name() string  { return "strength" }
func (strengthReduce) MinLevel() int { return 3 }

type powInfo struct {
	base ir.ID
	exp  int
	// multiplications on the longest path down to the base; shared subchains
	// count once, which matches the cost of the binary method exactly
	muls int
}

func (strengthReduce) Apply(g *ir.Graph) (*ir.Graph, bool, error) {
	pow := make(map[ir.ID]powInfo)
	powOf := func(id ir.ID) powInfo {
		if p, ok := pow[id]; ok {
			return p
		}
		return powInfo{base: id, exp: 1}
	}
	return rebuild(g, func(dst *ir.Graph, _ ir.ID, n ir.Node) (ir.ID, bool, error) {
		if n.Kind != ir.KindMul {
			return 0, false, nil
		}
		pa, pb := powOf(n.Operands[0]), powOf(n.Operands[1])
		if pa.base != pb.base {
			return 0, false, nil
		}
		e := pa.exp + pb.exp
		muls := max(pa.muls, pb.muls) + 1
		if squareMulCost(e) >= muls {
			id := dst.AddNode(n)
			pow[id] = powInfo{base: pa.base, exp: e, muls: muls}
			return id, true, nil
		}
		return emitPow(dst, pa.base, e, n.Type, n.Aux, pow), true, nil
	})
}

// squareMulCost is the multiplication count of the binary method.
func squareMulCost(e int) int {
	return bits.Len(uint(e)) - 1 + bits.OnesCount(uint(e)) - 1
}

// emitPow appends a square-and-multiply chain computing base^e and returns
// the id of the result. Every intermediate is recorded in pow so a longer
// chain built on top of this one keeps reducing. The original node's wrap
// width carries onto every emitted multiplication; wrapping each step is
// congruent to wrapping once at the end.
func emitPow(dst *ir.Graph, base ir.ID, e int, t ast.Type, aux int, pow map[ir.ID]powInfo) ir.ID {
	mul := func(a, b ir.ID, exp, muls int) ir.ID {
		id := dst.AddNode(ir.Node{Kind: ir.KindMul, Operands: []ir.ID{a, b}, Type: t, Aux: aux})
		pow[id] = powInfo{base: base, exp: exp, muls: muls}
		return id
	}
	res, resExp, resMuls := ir.ID(-1), 0, 0
	cur, curExp, curMuls := base, 1, 0
	for e > 0 {
		if e&1 == 1 {
			if res < 0 {
				res, resExp, resMuls = cur, curExp, curMuls
			} else {
				resExp += curExp
				resMuls = max(resMuls, curMuls) + 1
				res = mul(res, cur, resExp, resMuls)
			}
		}
		e >>= 1
		if e > 0 {
			curExp *= 2
			curMuls++
			cur = mul(cur, cur, curExp, curMuls)
		}
	}
	return res
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
