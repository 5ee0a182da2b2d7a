// Package pass implements the module transformation pass: it finds globals
// annotated "interpolate", verifies every use of each one is rewritable,
// replaces the annotated table with calls into a synthesized polynomial
// function, and cleans up the module's annotation bookkeeping afterwards.
package pass

import (
	"fmt"
	"os"

	"github.com/llir/llvm/ir"

	"github.com/ir-polyfold/interpolate/lagrange"
)

// annotationTag is the exact annotation string this pass looks for.
const annotationTag = "interpolate"

// annotationsGlobalName is the well-known LLVM global the front end uses to
// carry variable-level source annotations into IR.
const annotationsGlobalName = "llvm.global.annotations"

// reason strings for the two diagnostics this pass reports explicitly.
const (
	reasonWrongType     = "Wrong type for interpolation."
	reasonNotRewritable = "Not rewritable."
)

// Transform is the module transformation entry point: it enumerates
// annotated globals, absorbs every eligible one into a synthesized
// polynomial function, rebuilds the annotation array, and reports whether
// the module changed. A non-nil error indicates one of the fatal internal
// error classes (an interpolation precondition violated, or
// the post-transform structural check failing) — both indicate a bug in
// this pass rather than a problem with the input module.
func Transform(m *ir.Module) (bool, error) {
	annotations := findGlobal(m, annotationsGlobalName)
	if annotations == nil {
		return false, nil
	}

	entries, err := readAnnotationEntries(annotations)
	if err != nil {
		return false, fmt.Errorf("pass: reading %s: %w", annotationsGlobalName, err)
	}

	idx := buildUseIndex(m)

	changed := false
	var kept []annotationEntry
	var absorbed []*ir.Global

	for _, entry := range entries {
		if entry.tag != annotationTag || entry.global == nil {
			kept = append(kept, entry)
			continue
		}

		ok, reason, err := absorbTable(m, idx, entry.global)
		if err != nil {
			return changed, err
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "interpolateTable: Skipping %s, reason: %s\n",
				entry.global.GlobalName, reason)
			kept = append(kept, entry)
			continue
		}

		changed = true
		absorbed = append(absorbed, entry.global)
	}

	if changed {
		rebuildAnnotations(m, annotations, kept)
		eraseGlobals(m, absorbed)

		if err := verify(m); err != nil {
			return changed, fmt.Errorf("pass: module verification failed after transform: %w", err)
		}
	}

	return changed, nil
}

// absorbTable runs eligibility analysis on g and, if eligible, interpolates
// its table, synthesizes the polynomial function, and rewrites every use.
// It returns (false, reason, nil) for an ineligible candidate, which is not
// an error.
func absorbTable(m *ir.Module, idx *useIndex, g *ir.Global) (bool, string, error) {
	if !isValidTable(g) {
		return false, reasonWrongType, nil
	}

	plan, ok := planRewrite(idx, g)
	if !ok {
		return false, reasonNotRewritable, nil
	}

	points, err := extractPoints(g)
	if err != nil {
		return false, "", fmt.Errorf("pass: extracting points for %s: %w", g.GlobalName, err)
	}

	poly, modulus, err := lagrange.Interpolate(points)
	if err != nil {
		return false, "", fmt.Errorf("pass: interpolating %s: %w", g.GlobalName, err)
	}

	fn := synthesizePolynomial(m, g.GlobalName, poly, modulus)
	applyRewrite(idx, fn, plan)

	return true, "", nil
}
