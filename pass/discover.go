package pass

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// annotationEntry is one decoded slot of llvm.global.annotations: the
// constant struct itself (so it can be preserved verbatim when rebuilding
// the array), the annotation string, and the annotated global when the
// annotated value is a global variable (nil otherwise, which always keeps
// the entry).
type annotationEntry struct {
	raw    *constant.Struct
	tag    string
	global *ir.Global
}

// readAnnotationEntries decodes every entry of the llvm.global.annotations
// array. The annotated value is reached either through a
// bitcast constant expression (the common Clang-era shape) or directly as
// a typed pointer to the global (how newer opaque-pointer front ends emit
// it); both are recognized.
func readAnnotationEntries(annotations *ir.Global) ([]annotationEntry, error) {
	arr, ok := annotations.Init.(*constant.Array)
	if !ok {
		return nil, fmt.Errorf("pass: %s has no constant array initializer", annotationsGlobalName)
	}

	entries := make([]annotationEntry, 0, len(arr.Elems))
	for _, elem := range arr.Elems {
		entry, err := decodeAnnotationEntry(elem)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func decodeAnnotationEntry(elem constant.Constant) (annotationEntry, error) {
	st, ok := elem.(*constant.Struct)
	if !ok {
		return annotationEntry{}, fmt.Errorf("pass: annotation entry is not a constant struct")
	}
	if len(st.Fields) < 2 {
		return annotationEntry{}, fmt.Errorf("pass: annotation entry has fewer than 2 fields")
	}

	entry := annotationEntry{raw: st}
	entry.global = annotatedGlobal(st.Fields[0])
	entry.tag = annotationString(st.Fields[1])

	return entry, nil
}

// annotatedGlobal extracts the annotated *ir.Global from a field of an
// annotation struct, unwrapping the constant expressions Clang wraps it in:
// a bitcast to i8* for the annotated value itself, or a zero-index
// getelementptr into a string constant for the annotation/file-name fields.
func annotatedGlobal(field constant.Constant) *ir.Global {
	switch v := field.(type) {
	case *ir.Global:
		return v
	case *constant.ExprBitCast:
		return annotatedGlobal(v.From)
	case *constant.ExprGetElementPtr:
		return annotatedGlobal(v.Src)
	default:
		return nil
	}
}

// annotationString reads the annotation tag string out of the second field
// of an annotation struct, which is itself a pointer (possibly bitcast) to
// a global holding a constant C-string.
func annotationString(field constant.Constant) string {
	g := annotatedGlobal(field)
	if g == nil {
		return ""
	}

	switch init := g.Init.(type) {
	case *constant.CharArray:
		return trimTrailingNUL(string(init.X))
	case *constant.Array:
		return charArrayToString(init)
	default:
		return ""
	}
}

func charArrayToString(arr *constant.Array) string {
	bs := make([]byte, 0, len(arr.Elems))
	for _, e := range arr.Elems {
		ci, ok := e.(*constant.Int)
		if !ok {
			return ""
		}
		bs = append(bs, byte(ci.X.Int64()))
	}

	return trimTrailingNUL(string(bs))
}

func trimTrailingNUL(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}

	return s
}

// rebuildAnnotations replaces the llvm.global.annotations initializer with
// only the kept entries, or erases the global entirely if none remain.
func rebuildAnnotations(m *ir.Module, annotations *ir.Global, kept []annotationEntry) {
	if len(kept) == 0 {
		m.Globals = removeGlobal(m.Globals, annotations)
		return
	}

	elemType := kept[0].raw.Typ
	elems := make([]constant.Constant, len(kept))
	for i, entry := range kept {
		elems[i] = entry.raw
	}

	annotations.Init = constant.NewArray(types.NewArray(uint64(len(elems)), elemType), elems...)
}

func removeGlobal(globals []*ir.Global, target *ir.Global) []*ir.Global {
	out := globals[:0]
	for _, g := range globals {
		if g != target {
			out = append(out, g)
		}
	}

	return out
}
