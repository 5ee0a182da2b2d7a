package pass

import (
	"fmt"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
)

// eraseGlobals drops every absorbed table global from the module once its
// last use has been rewritten away.
func eraseGlobals(m *ir.Module, absorbed []*ir.Global) {
	for _, g := range absorbed {
		m.Globals = removeGlobal(m.Globals, g)
	}
}

// verify re-parses the module's own textual form as a structural sanity
// check on the rewrite. llir/llvm has no equivalent of LLVM's C++
// verifyModule; round-tripping through its assembler catches the failure
// mode this pass could actually introduce (a dangling reference left behind
// by an incomplete rewrite), since the printer renders every value by the
// identity this pass just finished splicing together.
func verify(m *ir.Module) error {
	text := m.String()

	if _, err := asm.ParseString("", text); err != nil {
		return fmt.Errorf("pass: re-parsing transformed module: %w", err)
	}

	return nil
}
