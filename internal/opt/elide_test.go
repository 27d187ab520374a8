package opt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/internal/ir"
	"ember/internal/opt"
)

// TestElide_StraightLine is the canonical accepted case:
//
//	construct(b, copy-of a); destroy(a); use(b)
//
// with no other uses of a. The construction and destruction disappear, a is
// folded into b, and use(b) is untouched.
func TestElide_StraightLine(t *testing.T) {
	f := ir.NewFunc("straight")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	use := f.EmitCall(bb, "use", false, b)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))

	assert.Equal(t, ir.InstrInvalid, f.Instr(a).Kind, "source allocation should be erased")
	assert.Equal(t, ir.InstrAlloc, f.Instr(b).Kind)
	assert.Equal(t, []ir.ValueID{b}, f.Instr(use).Args)

	// Only the alloc, the ordinary call and the return survive.
	assert.Len(t, f.Blocks[bb].Instrs, 3)
}

// TestElide_MoveConstruct checks that a move-construction call goes through
// the same analysis as a copy.
func TestElide_MoveConstruct(t *testing.T) {
	f := ir.NewFunc("move")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.move", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitCall(bb, "use", false, b)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, ir.InstrInvalid, f.Instr(a).Kind)
}

// TestElide_DtorArityNotACandidate checks that a 1-argument call carrying
// the shared special-member tag is a destructor, never a construction
// candidate, so a function containing only destructions does not change.
func TestElide_DtorArityNotACandidate(t *testing.T) {
	f := ir.NewFunc("dtoronly")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitReturn(bb, ir.NoValue)

	assert.False(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, ir.InstrAlloc, f.Instr(a).Kind)
}

// TestElide_BranchDivergence is the conservativeness case: one arm destroys
// a and uses b, the other arm keeps using a after the copy. The second arm's
// use of a is reachable from the constructor but not from the destructor, so
// elision must be rejected.
func TestElide_BranchDivergence(t *testing.T) {
	f := ir.NewFunc("branch")
	p := f.AddParam("p")
	entry := f.AddBlock()
	left := f.AddBlock()
	right := f.AddBlock()
	exit := f.AddBlock()

	a := f.EmitAlloc(entry, "a", "Widget")
	b := f.EmitAlloc(entry, "b", "Widget")
	ctor := f.EmitCall(entry, "Widget.ctor.copy", true, b, a)
	f.EmitIf(entry, p, left, right)

	f.EmitCall(left, "Widget.dtor", true, a)
	f.EmitCall(left, "use", false, b)
	f.EmitGoto(left, exit)

	f.EmitCall(right, "use", false, a)
	f.EmitGoto(right, exit)

	f.EmitReturn(exit, ir.NoValue)

	assert.False(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, ir.InstrAlloc, f.Instr(a).Kind)
	assert.Equal(t, ir.InstrCall, f.Instr(ctor).Kind)
}

// TestElide_UseFullyPostDatedByDtor accepts a branch where both arms destroy
// a before the late use becomes reachable.
func TestElide_UseFullyPostDatedByDtor(t *testing.T) {
	f := ir.NewFunc("postdated")
	p := f.AddParam("p")
	entry := f.AddBlock()
	left := f.AddBlock()
	right := f.AddBlock()
	exit := f.AddBlock()

	a := f.EmitAlloc(entry, "a", "Widget")
	b := f.EmitAlloc(entry, "b", "Widget")
	f.EmitCall(entry, "Widget.ctor.copy", true, b, a)
	f.EmitCall(entry, "Widget.dtor", true, a)
	f.EmitIf(entry, p, left, right)

	f.EmitGoto(left, exit)
	f.EmitGoto(right, exit)

	// store into a's old storage after every lifetime end: reachable from
	// the ctor, but also from the dtor, so aliasing it with b is immaterial.
	v := f.EmitLoad(exit, "v", b)
	f.EmitStore(exit, a, v)
	f.EmitReturn(exit, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	// The surviving store was redirected to b.
	store := f.Blocks[3].Instrs[1]
	assert.Equal(t, ir.InstrStore, f.Instr(store).Kind)
	assert.Equal(t, b, f.Instr(store).Args[0])
}

// TestElide_NoDtorRejectsLaterUse: with no lifetime end tied to the copied
// value there is nothing to post-date a later use with, so any use reachable
// from the constructor blocks elision.
func TestElide_NoDtorRejectsLaterUse(t *testing.T) {
	f := ir.NewFunc("nodtor")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "use", false, a)
	f.EmitReturn(bb, ir.NoValue)

	assert.False(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
}

// TestElide_UseBeforeCtorAccepted: a use the constructor cannot reach poses
// no ordering conflict and is simply redirected.
func TestElide_UseBeforeCtorAccepted(t *testing.T) {
	f := ir.NewFunc("init")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	init := f.EmitCall(bb, "init", false, a)
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, []ir.ValueID{b}, f.Instr(init).Args, "surviving use redirected to destination")
}

// TestElide_ParamSourceRejected: elision is restricted to automatic
// storage; a parameter as the underlying source object disqualifies.
func TestElide_ParamSourceRejected(t *testing.T) {
	f := ir.NewFunc("param")
	p := f.AddParam("p")
	bb := f.AddBlock()
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, p)
	f.EmitReturn(bb, ir.NoValue)

	assert.False(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
}

// TestElide_TrivialChainAbsorbed: a reinterpretation of a consumed only by a
// lifetime-end marker is trivial plumbing and folds into the rewrite rather
// than blocking it.
func TestElide_TrivialChainAbsorbed(t *testing.T) {
	f := ir.NewFunc("chain")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	cast := f.EmitBitcast(bb, "t", a)
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitLifetime(bb, true, cast)
	f.EmitCall(bb, "use", false, b)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, ir.InstrInvalid, f.Instr(cast).Kind, "trivial reinterpretation erased")
	assert.Equal(t, ir.InstrInvalid, f.Instr(a).Kind)
}

// TestElide_DeepTrivialChainAbsorbed: triviality closes transitively over
// consumers, so bitcast-of-bitcast feeding only lifetime markers still
// folds away.
func TestElide_DeepTrivialChainAbsorbed(t *testing.T) {
	f := ir.NewFunc("deepchain")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	c1 := f.EmitBitcast(bb, "t1", a)
	c2 := f.EmitFieldAddr(bb, "t2", c1, 0)
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitLifetime(bb, true, c2)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, ir.InstrInvalid, f.Instr(c1).Kind)
	assert.Equal(t, ir.InstrInvalid, f.Instr(c2).Kind)
}

// TestElide_OpaqueEscapeRejected: passing a's address to an ordinary call
// after the construction is a genuine conflicting use.
func TestElide_OpaqueEscapeRejected(t *testing.T) {
	f := ir.NewFunc("escape")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "sink", false, a, b)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitReturn(bb, ir.NoValue)

	// sink(a, b) is reachable from the ctor and not post-dated by the dtor.
	assert.False(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
}

// TestElide_ChainedCandidatesSeeMutatedGraph: each accepted candidate is
// applied before the next is checked, so a->b->c collapses to c in one run.
func TestElide_ChainedCandidatesSeeMutatedGraph(t *testing.T) {
	f := ir.NewFunc("chain2")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	c := f.EmitAlloc(bb, "c", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitCall(bb, "Widget.ctor.move", true, c, b)
	f.EmitCall(bb, "Widget.dtor", true, b)
	use := f.EmitCall(bb, "use", false, c)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
	assert.Equal(t, ir.InstrInvalid, f.Instr(a).Kind)
	assert.Equal(t, ir.InstrInvalid, f.Instr(b).Kind)
	assert.Equal(t, ir.InstrAlloc, f.Instr(c).Kind)
	assert.Equal(t, []ir.ValueID{c}, f.Instr(use).Args)
	assert.Len(t, f.Blocks[bb].Instrs, 3)
}

// TestElide_Idempotent: a second run after a fixed point reports no change.
func TestElide_Idempotent(t *testing.T) {
	f := ir.NewFunc("idem")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "Widget.dtor", true, a)
	f.EmitReturn(bb, ir.NoValue)

	require.True(t, opt.ElideConstructions(f))
	assert.False(t, opt.ElideConstructions(f))
	require.NoError(t, ir.ValidateFunc(f))
}

// TestElide_RejectionLeavesGraphUntouched: a rejected candidate must not
// leave partial mutations behind.
func TestElide_RejectionLeavesGraphUntouched(t *testing.T) {
	f := ir.NewFunc("reject")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "Widget")
	b := f.EmitAlloc(bb, "b", "Widget")
	f.EmitCall(bb, "Widget.ctor.copy", true, b, a)
	f.EmitCall(bb, "use", false, a)
	f.EmitReturn(bb, ir.NoValue)

	before := len(f.Blocks[bb].Instrs)
	assert.False(t, opt.ElideConstructions(f))
	assert.Len(t, f.Blocks[bb].Instrs, before)
	require.NoError(t, ir.ValidateFunc(f))
}
