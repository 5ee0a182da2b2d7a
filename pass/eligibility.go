package pass

import (
	"fmt"
	"math/big"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/ir-polyfold/interpolate/lagrange"
)

// elementModulus is 2^32, the range a table element's bit pattern is taken
// modulo to recover its raw unsigned 32-bit value regardless of how the
// parsed constant stores its sign.
var elementModulus = new(big.Int).Lsh(big.NewInt(1), 32)

// isValidTable checks the shape of the global itself: an array of 32-bit
// integers, constant, with a matching-length constant data array
// initializer.
func isValidTable(g *ir.Global) bool {
	arrType, ok := g.ContentType.(*types.ArrayType)
	if !ok {
		return false
	}

	intType, ok := arrType.ElemType.(*types.IntType)
	if !ok || intType.BitSize != 32 {
		return false
	}

	if !g.Immutable || g.Init == nil {
		return false
	}

	arr, ok := g.Init.(*constant.Array)
	if !ok {
		return false
	}

	return uint64(len(arr.Elems)) == arrType.Len
}

// extractPoints reads the (index, value) pairs out of an already-validated
// table global, widening each element from 32 bits by treating its stored
// bits as a raw pattern regardless of signedness: ci.X may hold a negative
// big.Int for a negative i32 literal, and big.Int.Uint64 returns the low 64
// bits of the absolute value rather than a two's-complement reinterpretation,
// so the value is reduced modulo 2^32 first to land on the same unsigned
// 32-bit representative a C cast to uint32_t would produce.
func extractPoints(g *ir.Global) ([]lagrange.Point, error) {
	arr, ok := g.Init.(*constant.Array)
	if !ok {
		return nil, fmt.Errorf("pass: %s initializer is not a constant array", g.GlobalName)
	}

	points := make([]lagrange.Point, len(arr.Elems))
	bits := new(big.Int)
	for i, elem := range arr.Elems {
		ci, ok := elem.(*constant.Int)
		if !ok {
			return nil, fmt.Errorf("pass: %s element %d is not a constant integer", g.GlobalName, i)
		}

		bits.Mod(ci.X, elementModulus)
		points[i] = lagrange.Point{
			X: int64(i),
			Y: int64(bits.Uint64()),
		}
	}

	return points, nil
}

