package ir_test

import (
	"testing"

	"ember/internal/ir"
)

// TestUseLists tests that emitting instructions keeps consumer lists in sync
// with operand edges, with multiplicity.
func TestUseLists(t *testing.T) {
	f := ir.NewFunc("uses")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "T")
	call := f.EmitCall(bb, "sink", false, a, a)
	f.EmitReturn(bb, ir.NoValue)

	if got := f.NumUsers(a); got != 2 {
		t.Fatalf("expected 2 consumer edges for a double use, got %d", got)
	}
	for _, u := range f.Users(a) {
		if u != call {
			t.Errorf("unexpected user %%v%d", u)
		}
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// TestReplaceAllUses tests redirection of every consumer edge.
func TestReplaceAllUses(t *testing.T) {
	f := ir.NewFunc("replace")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "T")
	b := f.EmitAlloc(bb, "b", "T")
	cast := f.EmitBitcast(bb, "t", a)
	call := f.EmitCall(bb, "sink", false, a, a)
	f.EmitReturn(bb, ir.NoValue)

	f.ReplaceAllUses(a, b)

	if got := f.NumUsers(a); got != 0 {
		t.Fatalf("expected no remaining users of a, got %d", got)
	}
	if args := f.Instr(cast).Args; args[0] != b {
		t.Errorf("bitcast operand not redirected: %v", args)
	}
	if args := f.Instr(call).Args; args[0] != b || args[1] != b {
		t.Errorf("call operands not redirected: %v", args)
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// TestErase tests removal of an unused instruction and the release of its
// operand edges.
func TestErase(t *testing.T) {
	f := ir.NewFunc("erase")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "T")
	cast := f.EmitBitcast(bb, "t", a)
	f.EmitReturn(bb, ir.NoValue)

	f.Erase(cast)

	if f.Instr(cast).Kind != ir.InstrInvalid {
		t.Errorf("erased slot should be a tombstone")
	}
	if got := f.NumUsers(a); got != 0 {
		t.Errorf("operand edge not released, %d users left", got)
	}
	if len(f.Blocks[bb].Instrs) != 2 {
		t.Errorf("erased instruction still listed in block")
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// TestEraseWithUsersPanics tests the zero-consumer erase invariant.
func TestEraseWithUsersPanics(t *testing.T) {
	f := ir.NewFunc("panic")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "T")
	f.EmitBitcast(bb, "t", a)
	f.EmitReturn(bb, ir.NoValue)

	defer func() {
		if recover() == nil {
			t.Errorf("erasing an instruction with consumers must panic")
		}
	}()
	f.Erase(a)
}

// TestUnderlyingObject tests storage-identity resolution through
// reinterpretation chains.
func TestUnderlyingObject(t *testing.T) {
	f := ir.NewFunc("resolve")
	p := f.AddParam("p")
	bb := f.AddBlock()
	a := f.EmitAlloc(bb, "a", "T")
	c1 := f.EmitBitcast(bb, "t1", a)
	c2 := f.EmitFieldAddr(bb, "t2", c1, 3)
	pc := f.EmitBitcast(bb, "pt", p)
	f.EmitReturn(bb, ir.NoValue)

	if got := ir.UnderlyingObject(f, c2); got != a {
		t.Errorf("expected chain to resolve to the alloc, got %%v%d", got)
	}
	if got := ir.UnderlyingObject(f, a); got != a {
		t.Errorf("an alloc resolves to itself")
	}
	if got := ir.UnderlyingObject(f, pc); got != p {
		t.Errorf("a cast parameter resolves to the parameter, got %%v%d", got)
	}
}
