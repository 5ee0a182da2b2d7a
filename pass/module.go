package pass

import "github.com/llir/llvm/ir"

// findGlobal returns the module-level global named name, or nil if absent.
func findGlobal(m *ir.Module, name string) *ir.Global {
	for _, g := range m.Globals {
		if g.GlobalName == name {
			return g
		}
	}

	return nil
}

// findFunc returns the module-level function named name, or nil if absent.
func findFunc(m *ir.Module, name string) *ir.Func {
	for _, f := range m.Funcs {
		if f.GlobalName == name {
			return f
		}
	}

	return nil
}
