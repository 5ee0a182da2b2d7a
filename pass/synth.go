package pass

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/ir-polyfold/interpolate/polynomial"
)

// modpowFuncName is the external runtime entry point synthesized polynomial
// functions call to raise the index to each monomial's power modulo the
// interpolation modulus; runtime/modpow provides the definition this
// declaration is linked against.
const modpowFuncName = "modpow"

// synthesizePolynomial builds the private function that replaces every load
// from the table named name with a call to this function.
// The function takes the table index widened to i64 and returns the table's
// original element width (i32): it evaluates the interpolated polynomial by
// Horner-free summation of monomials, reducing modulo modulus after every
// addition (the per-step-reduction form) so no partial sum can overflow the
// runtime's 64-bit modular arithmetic before the final reduction. The
// constant term is materialized directly, without a modpow call or a
// multiply, since index^0 is 1 regardless of index.
func synthesizePolynomial(m *ir.Module, name string, poly *polynomial.Polynomial, modulus int64) *ir.Func {
	modpow := getOrInsertModPow(m)

	fn := ir.NewFunc(fmt.Sprintf("poly_%s", name), types.I32, ir.NewParam("i", types.I64))
	fn.Linkage = enum.LinkagePrivate
	m.Funcs = append(m.Funcs, fn)

	entry := fn.NewBlock("entry")
	index := fn.Params[0]
	modConst := constant.NewInt(types.I64, modulus)

	var acc value.Value
	for power, coeff := range poly.Coeffs {
		if power == 0 {
			acc = constant.NewInt(types.I64, coeff)
			continue
		}
		if coeff == 0 {
			continue
		}

		exp := constant.NewInt(types.I64, int64(power))
		term := entry.NewCall(modpow, index, exp, modConst)

		withCoeff := entry.NewMul(constant.NewInt(types.I64, coeff), term)
		summed := entry.NewAdd(acc, withCoeff)
		acc = entry.NewURem(summed, modConst)
	}

	result := entry.NewTrunc(acc, types.I32)
	entry.NewRet(result)

	return fn
}

// getOrInsertModPow returns the module's declaration of the external
// three-argument modular exponentiation runtime helper, declaring it if this
// is the first polynomial function synthesized in m.
func getOrInsertModPow(m *ir.Module) *ir.Func {
	if fn := findFunc(m, modpowFuncName); fn != nil {
		return fn
	}

	fn := ir.NewFunc(modpowFuncName, types.I64,
		ir.NewParam("base", types.I64),
		ir.NewParam("exp", types.I64),
		ir.NewParam("mod", types.I64),
	)
	m.Funcs = append(m.Funcs, fn)

	return fn
}
