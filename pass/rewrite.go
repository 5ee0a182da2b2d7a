package pass

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// loadSite is one load that must become a call into the synthesized
// polynomial function, paired with the index value it was loading at.
type loadSite struct {
	load  *ir.InstLoad
	index value.Value
}

// rewritePlan is the complete, mutation-free analysis of how to absorb a
// table global: every load to redirect, and every now-dead element-address
// instruction to erase once the rewrite is applied. Collecting the whole
// plan before touching the IR is what lets planRewrite stay a pure function
// of the use index, since rewriting should never mutate a use graph mid-walk.
type rewritePlan struct {
	loads    []loadSite
	deadGEPs []*ir.InstGetElementPtr
}

// planRewrite implements the use-shape eligibility table for a
// candidate table global: every use must be an element-address computation
// whose own only consumers are loads. Anything else disqualifies the
// candidate outright.
func planRewrite(idx *useIndex, g *ir.Global) (*rewritePlan, bool) {
	plan := &rewritePlan{}

	for _, user := range idx.usersOfValue(g) {
		gep, ok := user.(*ir.InstGetElementPtr)
		if !ok {
			return nil, false
		}
		if !validElementAddress(gep.Src, gep.Indices) {
			return nil, false
		}

		loadUsers := idx.usersOfValue(gep)
		if len(loadUsers) == 0 {
			return nil, false
		}

		for _, lu := range loadUsers {
			load, ok := lu.(*ir.InstLoad)
			if !ok {
				return nil, false
			}
			plan.loads = append(plan.loads, loadSite{load: load, index: gep.Indices[1]})
		}

		plan.deadGEPs = append(plan.deadGEPs, gep)
	}

	if len(plan.loads) == 0 {
		return nil, false
	}

	return plan, true
}

// validElementAddress checks the shape required of a table
// address computation: a two-index getelementptr rooted at the candidate
// global itself, with a constant-zero first index selecting the whole array
// rather than some other aggregate member.
func validElementAddress(src value.Value, indices []value.Value) bool {
	if src == nil || len(indices) != 2 {
		return false
	}

	first, ok := indices[0].(*constant.Int)

	return ok && first.X.Sign() == 0
}

// applyRewrite redirects every planned load into a call of fn at the load's
// original index, and erases the element-address instructions the rewrite
// made dead. idx must be the same index planRewrite analyzed g against, so
// that the loads' own consumers (whatever used the value each load read)
// can be retargeted at the new call results.
func applyRewrite(idx *useIndex, fn *ir.Func, plan *rewritePlan) {
	replacements := make(map[*ir.Block]map[int][]ir.Instruction)
	removals := make(map[*ir.Block]map[int]bool)

	for _, site := range plan.loads {
		loc, ok := idx.locationOf(site.load)
		if !ok {
			continue
		}

		var prelude []ir.Instruction
		callIndex := site.index
		if it, ok := site.index.Type().(*types.IntType); ok && it.BitSize != 64 {
			zext := ir.NewZExt(site.index, types.I64)
			prelude = append(prelude, zext)
			callIndex = zext
		}

		call := ir.NewCall(fn, callIndex)

		for _, consumer := range idx.usersOfValue(site.load) {
			replaceOperand(consumer, site.load, call)
		}
		for _, ret := range idx.retUsersOfValue(site.load) {
			ret.X = call
		}

		if replacements[loc.block] == nil {
			replacements[loc.block] = make(map[int][]ir.Instruction)
		}
		replacements[loc.block][loc.pos] = append(prelude, call)
	}

	for _, gep := range plan.deadGEPs {
		loc, ok := idx.locationOf(gep)
		if !ok {
			continue
		}

		if removals[loc.block] == nil {
			removals[loc.block] = make(map[int]bool)
		}
		removals[loc.block][loc.pos] = true
	}

	for block, repl := range replacements {
		spliceBlock(block, repl, removals[block])
		delete(removals, block)
	}
	for block, rem := range removals {
		spliceBlock(block, nil, rem)
	}
}

// spliceBlock rebuilds block's instruction list, splicing in the
// instruction sequences named in repl (a load's replacement call, optionally
// preceded by an index-widening zext) and dropping the positions in rem.
func spliceBlock(block *ir.Block, repl map[int][]ir.Instruction, rem map[int]bool) {
	out := make([]ir.Instruction, 0, len(block.Insts))
	for pos, inst := range block.Insts {
		if rem[pos] {
			continue
		}
		if seq, ok := repl[pos]; ok {
			out = append(out, seq...)
			continue
		}
		out = append(out, inst)
	}

	block.Insts = out
}

// replaceOperand patches the one field of consumer that points at old, if
// any, to point at replacement instead. It mirrors instructionOperands'
// coverage of instruction kinds exactly.
func replaceOperand(consumer ir.Instruction, old, replacement value.Value) {
	switch v := consumer.(type) {
	case *ir.InstGetElementPtr:
		if v.Src == old {
			v.Src = replacement
		}
		for i, idxv := range v.Indices {
			if idxv == old {
				v.Indices[i] = replacement
			}
		}
	case *ir.InstLoad:
		if v.Src == old {
			v.Src = replacement
		}
	case *ir.InstStore:
		if v.Src == old {
			v.Src = replacement
		}
		if v.Dst == old {
			v.Dst = replacement
		}
	case *ir.InstCall:
		if v.Callee == old {
			v.Callee = replacement
		}
		for i, arg := range v.Args {
			if arg == old {
				v.Args[i] = replacement
			}
		}
	case *ir.InstAdd:
		if v.X == old {
			v.X = replacement
		}
		if v.Y == old {
			v.Y = replacement
		}
	case *ir.InstMul:
		if v.X == old {
			v.X = replacement
		}
		if v.Y == old {
			v.Y = replacement
		}
	case *ir.InstURem:
		if v.X == old {
			v.X = replacement
		}
		if v.Y == old {
			v.Y = replacement
		}
	case *ir.InstTrunc:
		if v.From == old {
			v.From = replacement
		}
	case *ir.InstZExt:
		if v.From == old {
			v.From = replacement
		}
	case *ir.InstSExt:
		if v.From == old {
			v.From = replacement
		}
	}
}
