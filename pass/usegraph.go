package pass

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// instLoc pinpoints where an instruction lives, so a later rewrite pass can
// replace or erase it without re-walking the module to find it again.
type instLoc struct {
	block *ir.Block
	pos   int
}

// useIndex is a reverse-use index built by walking the module once. Unlike
// the C++ LLVM APIs the original pass targets, llir/llvm keeps no use-lists
// on its IR values, so this pass builds its own before doing anything else,
// guarding against mutating a use-list while iterating it: collecting first
// means rewriting never has to re-walk a changing module.
type useIndex struct {
	usersOf     map[value.Value][]ir.Instruction
	termUsersOf map[value.Value][]*ir.TermRet
	locations   map[ir.Instruction]instLoc
}

// buildUseIndex scans every instruction and terminator in every function of
// m and records, for each operand value, which instruction or terminator
// consumes it, plus where every instruction lives within its block.
// instructionOperands enumerates every instruction kind whose operands this
// pass needs to reason about: the element-address and load/store chain a
// rewritable table's uses follow, plus comparison, select, phi and the other
// instruction kinds a candidate global's address could otherwise leak
// through undetected. A global reachable only through kinds this pass
// doesn't enumerate would be invisible to usersOfValue and so incorrectly
// treated as eligible; the enumeration below is kept as wide as the
// instruction set this pass's inputs are expected to contain.
func buildUseIndex(m *ir.Module) *useIndex {
	idx := &useIndex{
		usersOf:     make(map[value.Value][]ir.Instruction),
		termUsersOf: make(map[value.Value][]*ir.TermRet),
		locations:   make(map[ir.Instruction]instLoc),
	}

	for _, fn := range m.Funcs {
		for _, block := range fn.Blocks {
			for pos, inst := range block.Insts {
				idx.locations[inst] = instLoc{block: block, pos: pos}
				for _, operand := range instructionOperands(inst) {
					idx.usersOf[operand] = append(idx.usersOf[operand], inst)
				}
			}

			if ret, ok := block.Term.(*ir.TermRet); ok && ret.X != nil {
				idx.termUsersOf[ret.X] = append(idx.termUsersOf[ret.X], ret)
			}
		}
	}

	return idx
}

// instructionOperands returns the direct value operands of inst: both the
// ones a table's address or load chain could pass through, and the ones a
// disqualifying but otherwise unrelated use could pass through instead.
func instructionOperands(inst ir.Instruction) []value.Value {
	switch v := inst.(type) {
	case *ir.InstGetElementPtr:
		ops := make([]value.Value, 0, len(v.Indices)+1)
		ops = append(ops, v.Src)
		ops = append(ops, v.Indices...)

		return ops
	case *ir.InstLoad:
		return []value.Value{v.Src}
	case *ir.InstStore:
		return []value.Value{v.Src, v.Dst}
	case *ir.InstCall:
		ops := make([]value.Value, 0, len(v.Args)+1)
		ops = append(ops, v.Callee)
		ops = append(ops, v.Args...)

		return ops
	case *ir.InstAdd:
		return []value.Value{v.X, v.Y}
	case *ir.InstMul:
		return []value.Value{v.X, v.Y}
	case *ir.InstURem:
		return []value.Value{v.X, v.Y}
	case *ir.InstTrunc:
		return []value.Value{v.From}
	case *ir.InstZExt:
		return []value.Value{v.From}
	case *ir.InstSExt:
		return []value.Value{v.From}
	case *ir.InstICmp:
		return []value.Value{v.X, v.Y}
	case *ir.InstFCmp:
		return []value.Value{v.X, v.Y}
	case *ir.InstSelect:
		return []value.Value{v.Cond, v.X, v.Y}
	case *ir.InstPhi:
		ops := make([]value.Value, 0, len(v.Incs))
		for _, inc := range v.Incs {
			ops = append(ops, inc.X)
		}

		return ops
	case *ir.InstFreeze:
		return []value.Value{v.X}
	case *ir.InstExtractValue:
		return []value.Value{v.X}
	case *ir.InstInsertValue:
		return []value.Value{v.X, v.Elem}
	case *ir.InstAtomicRMW:
		return []value.Value{v.Dst, v.X}
	case *ir.InstCmpXchg:
		return []value.Value{v.Ptr, v.Cmp, v.New}
	default:
		// An instruction kind outside the enumeration above is not expected
		// to appear in any module this pass is run on; if one does, its
		// operands go unrecorded and a candidate global reachable only
		// through it would be missed by usersOfValue.
		return nil
	}
}

// usersOfValue returns every instruction recorded as directly consuming v.
func (idx *useIndex) usersOfValue(v value.Value) []ir.Instruction {
	return idx.usersOf[v]
}

// retUsersOfValue returns every ret terminator recorded as returning v.
func (idx *useIndex) retUsersOfValue(v value.Value) []*ir.TermRet {
	return idx.termUsersOf[v]
}

// locationOf returns where inst sits in its parent block.
func (idx *useIndex) locationOf(inst ir.Instruction) (instLoc, bool) {
	loc, ok := idx.locations[inst]
	return loc, ok
}
