package pass

import (
	"fmt"
	"testing"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ir-polyfold/interpolate/lagrange"
)

// fixtureTemplate shapes a module the way Clang emits a source-level
// __attribute__((annotate("interpolate"))) table: a constant i32 array, an
// instruction-form element-address load of it, and the
// llvm.global.annotations bookkeeping wiring the two together through a
// bitcast and a pair of GEP'd string constants.
const fixtureTemplate = `
@.str = private unnamed_addr constant [12 x i8] c"interpolate\00", section "llvm.metadata"
@.str.1 = private unnamed_addr constant [8 x i8] c"test.c\00", section "llvm.metadata"
@table = dso_local constant [%[1]d x i32] [%[2]s]
@llvm.global.annotations = appending global [1 x { i8*, i8*, i8*, i32 }] [{ i8*, i8*, i8*, i32 } { i8* bitcast ([%[1]d x i32]* @table to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 }], section "llvm.metadata"

define i32 @lookup(i64 %idx) {
entry:
  %arrayidx = getelementptr inbounds [%[1]d x i32], [%[1]d x i32]* @table, i64 0, i64 %idx
  %val = load i32, i32* %arrayidx
  ret i32 %val
}
`

func parseFixture(t *testing.T, values string, length int) *ir.Module {
	t.Helper()

	text := fmt.Sprintf(fixtureTemplate, length, values)
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	return m
}

func TestTransformRewritesFourPointTable(t *testing.T) {
	m := parseFixture(t, "i32 10, i32 20, i32 30, i32 40", 4)

	changed, err := Transform(m)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Nil(t, findGlobal(m, "table"))
	assert.Nil(t, findGlobal(m, "llvm.global.annotations"), "the sole annotation entry was absorbed, so the bookkeeping global must be erased too")

	poly := findFunc(m, "poly_table")
	require.NotNil(t, poly)
	assert.Equal(t, 1, len(poly.Params))

	modpowFn := findFunc(m, "modpow")
	require.NotNil(t, modpowFn)

	lookup := findFunc(m, "lookup")
	require.NotNil(t, lookup)

	entry := lookup.Blocks[0]
	require.Len(t, entry.Insts, 1, "the dead getelementptr must be erased, leaving only the call")

	call, ok := entry.Insts[0].(*ir.InstCall)
	require.True(t, ok, "the load must be replaced with a call")
	assert.Same(t, poly, call.Callee)
}

func TestTransformLeavesUnannotatedModuleUnchanged(t *testing.T) {
	text := `
define i32 @identity(i32 %x) {
entry:
  ret i32 %x
}
`
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	changed, err := Transform(m)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTransformSkipsTableWithStoreUse(t *testing.T) {
	text := `
@.str = private unnamed_addr constant [12 x i8] c"interpolate\00", section "llvm.metadata"
@.str.1 = private unnamed_addr constant [8 x i8] c"test.c\00", section "llvm.metadata"
@table = dso_local constant [2 x i32] [i32 1, i32 2]
@llvm.global.annotations = appending global [1 x { i8*, i8*, i8*, i32 }] [{ i8*, i8*, i8*, i32 } { i8* bitcast ([2 x i32]* @table to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 }], section "llvm.metadata"

define void @mutate(i64 %idx, i32 %v) {
entry:
  %arrayidx = getelementptr inbounds [2 x i32], [2 x i32]* @table, i64 0, i64 %idx
  store i32 %v, i32* %arrayidx
  ret void
}
`
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	changed, err := Transform(m)
	require.NoError(t, err)
	assert.False(t, changed, "a table with a store use must not be rewritten")

	assert.NotNil(t, findGlobal(m, "table"))
}

func TestTransformSkipsWrongElementWidth(t *testing.T) {
	text := `
@.str = private unnamed_addr constant [12 x i8] c"interpolate\00", section "llvm.metadata"
@.str.1 = private unnamed_addr constant [8 x i8] c"test.c\00", section "llvm.metadata"
@table = dso_local constant [2 x i64] [i64 1, i64 2]
@llvm.global.annotations = appending global [1 x { i8*, i8*, i8*, i32 }] [{ i8*, i8*, i8*, i32 } { i8* bitcast ([2 x i64]* @table to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 }], section "llvm.metadata"

define i64 @lookup(i64 %idx) {
entry:
  %arrayidx = getelementptr inbounds [2 x i64], [2 x i64]* @table, i64 0, i64 %idx
  %val = load i64, i64* %arrayidx
  ret i64 %val
}
`
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	changed, err := Transform(m)
	require.NoError(t, err)
	assert.False(t, changed, "a table of i64 elements is not a valid interpolation target")
}

// TestTransformSkipsTableWithIcmpUse checks a use the element-address/load
// chain walk in rewrite.go never sees directly: the table's address compared
// against null. Without usersOfValue(g) recording the icmp as a consumer of
// g itself, planRewrite would only ever see the getelementptr user and wrongly
// call this table eligible.
func TestTransformSkipsTableWithIcmpUse(t *testing.T) {
	text := `
@.str = private unnamed_addr constant [12 x i8] c"interpolate\00", section "llvm.metadata"
@.str.1 = private unnamed_addr constant [8 x i8] c"test.c\00", section "llvm.metadata"
@table = dso_local constant [4 x i32] [i32 10, i32 20, i32 30, i32 40]
@llvm.global.annotations = appending global [1 x { i8*, i8*, i8*, i32 }] [{ i8*, i8*, i8*, i32 } { i8* bitcast ([4 x i32]* @table to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 }], section "llvm.metadata"

define i32 @lookup(i64 %idx) {
entry:
  %arrayidx = getelementptr inbounds [4 x i32], [4 x i32]* @table, i64 0, i64 %idx
  %val = load i32, i32* %arrayidx
  ret i32 %val
}

define i1 @check() {
entry:
  %cmp = icmp eq [4 x i32]* @table, null
  ret i1 %cmp
}
`
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	idx := buildUseIndex(m)
	g := findGlobal(m, "table")
	require.NotNil(t, g)

	ok, reason, err := absorbTable(m, idx, g)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, reasonNotRewritable, reason)

	changed, err := Transform(m)
	require.NoError(t, err)
	assert.False(t, changed, "a table compared directly against null must not be rewritten")
	assert.NotNil(t, findGlobal(m, "table"))
}

// TestExtractPointsWidensNegativeElementsCorrectly checks that a negative
// i32 element widens to its unsigned 32-bit representative rather than
// being corrupted by big.Int.Uint64's absolute-value semantics.
func TestExtractPointsWidensNegativeElementsCorrectly(t *testing.T) {
	text := `
@.str = private unnamed_addr constant [12 x i8] c"interpolate\00", section "llvm.metadata"
@.str.1 = private unnamed_addr constant [8 x i8] c"test.c\00", section "llvm.metadata"
@table = dso_local constant [3 x i32] [i32 -1, i32 -100, i32 2147483647]
@llvm.global.annotations = appending global [1 x { i8*, i8*, i8*, i32 }] [{ i8*, i8*, i8*, i32 } { i8* bitcast ([3 x i32]* @table to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 }], section "llvm.metadata"

define i32 @lookup(i64 %idx) {
entry:
  %arrayidx = getelementptr inbounds [3 x i32], [3 x i32]* @table, i64 0, i64 %idx
  %val = load i32, i32* %arrayidx
  ret i32 %val
}
`
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	g := findGlobal(m, "table")
	require.NotNil(t, g)
	require.True(t, isValidTable(g))

	points, err := extractPoints(g)
	require.NoError(t, err)

	want := []int64{4294967295, 4294967196, 2147483647}
	for i, p := range points {
		assert.Equal(t, int64(i), p.X)
		assert.Equal(t, want[i], p.Y)
	}
}

// TestTransformPartialAbsorptionRebuildsAnnotations checks that rewriting one
// eligible table out of two leaves llvm.global.annotations in place, holding
// exactly the entry for the table that was not absorbed.
func TestTransformPartialAbsorptionRebuildsAnnotations(t *testing.T) {
	text := `
@.str = private unnamed_addr constant [12 x i8] c"interpolate\00", section "llvm.metadata"
@.str.1 = private unnamed_addr constant [8 x i8] c"test.c\00", section "llvm.metadata"
@table_a = dso_local constant [4 x i32] [i32 10, i32 20, i32 30, i32 40]
@table_b = dso_local constant [2 x i32] [i32 1, i32 2]
@llvm.global.annotations = appending global [2 x { i8*, i8*, i8*, i32 }] [
  { i8*, i8*, i8*, i32 } { i8* bitcast ([4 x i32]* @table_a to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 },
  { i8*, i8*, i8*, i32 } { i8* bitcast ([2 x i32]* @table_b to i8*), i8* getelementptr inbounds ([12 x i8], [12 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([8 x i8], [8 x i8]* @.str.1, i32 0, i32 0), i32 1 }
], section "llvm.metadata"

define i32 @lookup_a(i64 %idx) {
entry:
  %arrayidx = getelementptr inbounds [4 x i32], [4 x i32]* @table_a, i64 0, i64 %idx
  %val = load i32, i32* %arrayidx
  ret i32 %val
}

define void @mutate_b(i64 %idx, i32 %v) {
entry:
  %arrayidx = getelementptr inbounds [2 x i32], [2 x i32]* @table_b, i64 0, i64 %idx
  store i32 %v, i32* %arrayidx
  ret void
}
`
	m, err := asm.ParseString("fixture.ll", text)
	require.NoError(t, err)

	changed, err := Transform(m)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Nil(t, findGlobal(m, "table_a"), "the eligible table must be absorbed")
	assert.NotNil(t, findGlobal(m, "table_b"), "the table with a store use must be retained")

	annotations := findGlobal(m, "llvm.global.annotations")
	require.NotNil(t, annotations, "one annotation entry remains, so the bookkeeping global must survive")

	arr, ok := annotations.Init.(*constant.Array)
	require.True(t, ok)
	require.Len(t, arr.Elems, 1, "only table_b's entry should remain")

	st, ok := arr.Elems[0].(*constant.Struct)
	require.True(t, ok)
	kept := annotatedGlobal(st.Fields[0])
	assert.Same(t, findGlobal(m, "table_b"), kept)
}

// TestSynthesizedPolynomialAgreesWithOriginalTable checks the mathematical
// core end to end: the interpolated polynomial, evaluated independently of
// the IR synthesis step, reproduces every original table entry exactly.
func TestSynthesizedPolynomialAgreesWithOriginalTable(t *testing.T) {
	values := []int64{7, 2, 9, 4, 1}

	points := make([]lagrange.Point, len(values))
	for i, v := range values {
		points[i] = lagrange.Point{X: int64(i), Y: v}
	}

	poly, modulus, err := lagrange.Interpolate(points)
	require.NoError(t, err)

	for i, want := range values {
		got := poly.Eval(int64(i))
		assert.Equal(t, want, got)
		assert.True(t, got < modulus)
	}
}
