package opt

import "ember/internal/ir"

// EliminateDeadValues erases side-effect-free instructions with no
// consumers, rechecking operands freed by each erasure until the worklist
// drains. Returns whether the function changed.
func EliminateDeadValues(f *ir.Func) bool {
	var work []ir.ValueID
	for v := 0; v < f.NumValues(); v++ {
		work = append(work, ir.ValueID(v))
	}

	changed := false
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]

		in := f.Instr(v)
		if !isPure(in.Kind) || f.NumUsers(v) != 0 {
			continue
		}
		operands := append([]ir.ValueID(nil), in.Args...)
		f.Erase(v)
		changed = true
		work = append(work, operands...)
	}
	return changed
}

// isPure reports whether a kind has no observable effect beyond its result.
// Allocations count: an address nobody consumes is dead storage.
func isPure(k ir.InstrKind) bool {
	switch k {
	case ir.InstrAlloc, ir.InstrBitcast, ir.InstrFieldAddr, ir.InstrLoad:
		return true
	}
	return false
}
